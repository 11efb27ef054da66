package fill

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFCPUFiller fills AcroForm fields in-process with pdfcpu. It is the
// primary fill backend; sources it cannot parse (notably some encrypted
// templates) are handed to the fallback by the Filler façade.
type PDFCPUFiller struct{}

// NewPDFCPUFiller creates the primary fill backend.
func NewPDFCPUFiller() *PDFCPUFiller {
	return &PDFCPUFiller{}
}

// Name identifies the backend in logs.
func (p *PDFCPUFiller) Name() string { return "pdfcpu" }

// Fill writes data values into the template's fields and saves the result
// at outputPath. Checkbox values ("Yes"/"Off") become name objects mapped
// to the widget's native on-state; everything else becomes a string value.
// NeedAppearances is set so viewers regenerate field appearances.
func (p *PDFCPUFiller) Fill(templatePath, outputPath string, data map[string]string) error {
	f, err := os.Open(templatePath)
	if err != nil {
		return fmt.Errorf("open template: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return fmt.Errorf("read pdf context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return fmt.Errorf("ensure page count: %w", err)
	}

	acroFormDict, fieldsArray, err := acroFormFields(ctx)
	if err != nil {
		return err
	}
	if fieldsArray == nil {
		return fmt.Errorf("template %s has no AcroForm fields", templatePath)
	}

	applied := 0
	for _, fieldRef := range fieldsArray {
		applied += p.applyField(ctx, fieldRef, "", data)
	}
	if applied == 0 {
		return fmt.Errorf("no field names matched in %s", templatePath)
	}

	acroFormDict["NeedAppearances"] = types.Boolean(true)

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	if err := api.WriteContext(ctx, out); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// Flatten makes every field read-only so the output renders as a static
// document. Viewers honor the read-only flag without regenerating
// appearance streams, which is as close to flattening as AcroForm
// manipulation allows without rasterizing.
func (p *PDFCPUFiller) Flatten(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open pdf: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		f.Close()
		return fmt.Errorf("read pdf context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		f.Close()
		return fmt.Errorf("ensure page count: %w", err)
	}

	_, fieldsArray, err := acroFormFields(ctx)
	if err != nil {
		f.Close()
		return err
	}
	for _, fieldRef := range fieldsArray {
		p.lockField(ctx, fieldRef)
	}
	f.Close()

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	if err := api.WriteContext(ctx, out); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// acroFormFields returns the AcroForm dictionary and its dereferenced
// Fields array, both nil when the document has no form.
func acroFormFields(ctx *model.Context) (types.Dict, types.Array, error) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: %w", err)
	}
	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, nil, fmt.Errorf("dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return nil, nil, nil
	}
	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return acroFormDict, nil, nil
	}
	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, nil, fmt.Errorf("dereference Fields array: %w", err)
	}
	return acroFormDict, fieldsArray, nil
}

// applyField recurses the field tree, writing values for fully qualified
// names present in data. It returns the number of fields written.
func (p *PDFCPUFiller) applyField(ctx *model.Context, fieldObj types.Object, prefix string, data map[string]string) int {
	fieldDict, err := ctx.DereferenceDict(fieldObj)
	if err != nil || fieldDict == nil {
		return 0
	}

	name := prefix
	if nameObj, found := fieldDict.Find("T"); found {
		if partial, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
			if name != "" {
				name += "."
			}
			name += partial
		}
	}

	applied := 0
	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kid := range kids {
				if kidDict, err := ctx.DereferenceDict(kid); err == nil && kidDict != nil {
					if _, hasName := kidDict.Find("T"); hasName {
						applied += p.applyField(ctx, kid, name, data)
					}
				}
			}
		}
	}

	value, ok := data[name]
	if !ok {
		return applied
	}

	if p.isButton(ctx, fieldDict) {
		state := "Off"
		if value == "Yes" {
			state = p.onState(ctx, fieldDict)
		}
		fieldDict["V"] = types.Name(state)
		fieldDict["AS"] = types.Name(state)
		p.setKidStates(ctx, fieldDict, state)
	} else {
		fieldDict["V"] = types.StringLiteral(value)
		// Stale appearance streams would show the old value.
		delete(fieldDict, "AP")
	}
	return applied + 1
}

func (p *PDFCPUFiller) isButton(ctx *model.Context, fieldDict types.Dict) bool {
	ftObj, found := fieldDict.Find("FT")
	if !found {
		if parentObj, found := fieldDict.Find("Parent"); found {
			if parentDict, err := ctx.DereferenceDict(parentObj); err == nil && parentDict != nil {
				return p.isButton(ctx, parentDict)
			}
		}
		return false
	}
	ftName, err := ctx.DereferenceName(ftObj, model.V10, nil)
	return err == nil && ftName == "Btn"
}

// onState discovers the widget's native checked-state name from its normal
// appearance dictionary, defaulting to "Yes".
func (p *PDFCPUFiller) onState(ctx *model.Context, fieldDict types.Dict) string {
	dicts := []types.Dict{fieldDict}
	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kid := range kids {
				if kidDict, err := ctx.DereferenceDict(kid); err == nil && kidDict != nil {
					dicts = append(dicts, kidDict)
				}
			}
		}
	}

	for _, d := range dicts {
		apObj, found := d.Find("AP")
		if !found {
			continue
		}
		apDict, err := ctx.DereferenceDict(apObj)
		if err != nil || apDict == nil {
			continue
		}
		nObj, found := apDict.Find("N")
		if !found {
			continue
		}
		nDict, err := ctx.DereferenceDict(nObj)
		if err != nil || nDict == nil {
			continue
		}
		for key := range nDict {
			if key != "Off" {
				return key
			}
		}
	}
	return "Yes"
}

// setKidStates propagates the appearance state to separate widget kids.
func (p *PDFCPUFiller) setKidStates(ctx *model.Context, fieldDict types.Dict, state string) {
	kidsObj, found := fieldDict.Find("Kids")
	if !found {
		return
	}
	kids, err := ctx.DereferenceArray(kidsObj)
	if err != nil {
		return
	}
	for _, kid := range kids {
		if kidDict, err := ctx.DereferenceDict(kid); err == nil && kidDict != nil {
			kidDict["AS"] = types.Name(state)
		}
	}
}

// lockField sets the read-only flag on a field and its children.
func (p *PDFCPUFiller) lockField(ctx *model.Context, fieldObj types.Object) {
	fieldDict, err := ctx.DereferenceDict(fieldObj)
	if err != nil || fieldDict == nil {
		return
	}

	flags := 0
	if flagsObj, found := fieldDict.Find("Ff"); found {
		if n, err := ctx.DereferenceInteger(flagsObj); err == nil && n != nil {
			flags = n.Value()
		}
	}
	fieldDict["Ff"] = types.Integer(flags | 1)

	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kid := range kids {
				p.lockField(ctx, kid)
			}
		}
	}
}
