package fill

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Resolver locates the pdftk executable once and caches the result. It is
// constructed explicitly and injected so tests can point it at a stub and
// Reset it between cases; the cached path is read-only after first
// resolution and idempotent to recompute.
type Resolver struct {
	// Lookup overrides binary resolution. Defaults to exec.LookPath plus
	// the conventional install locations.
	Lookup func() (string, error)

	mu       sync.Mutex
	path     string
	resolved bool
}

// conventional pdftk install locations checked after PATH.
var pdftkLocations = []string{
	"/usr/bin/pdftk",
	"/usr/local/bin/pdftk",
	"/opt/homebrew/bin/pdftk",
}

// NewResolver creates a resolver with the default lookup.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Path returns the resolved executable path, resolving on first call.
func (r *Resolver) Path() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		if r.path == "" {
			return "", fmt.Errorf("pdftk executable not found")
		}
		return r.path, nil
	}

	lookup := r.Lookup
	if lookup == nil {
		lookup = defaultLookup
	}
	path, err := lookup()
	r.resolved = true
	if err != nil {
		r.path = ""
		return "", fmt.Errorf("pdftk executable not found: %w", err)
	}
	r.path = path
	return path, nil
}

// Reset clears the cached path so the next Path call resolves again.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.path = ""
	r.resolved = false
}

func defaultLookup() (string, error) {
	if path, err := exec.LookPath("pdftk"); err == nil {
		return path, nil
	}
	for _, loc := range pdftkLocations {
		if info, err := os.Stat(loc); err == nil && !info.IsDir() {
			return loc, nil
		}
	}
	return "", fmt.Errorf("not in PATH or conventional locations")
}

// PdftkFiller fills forms by shelling out to the pdftk executable. It is
// the fallback backend: slower and out-of-process, but it handles encrypted
// and malformed templates the in-process backend rejects. The invocation
// blocks the caller for the process lifetime.
type PdftkFiller struct {
	resolver *Resolver
}

// NewPdftkFiller creates the fallback fill backend over the given resolver.
func NewPdftkFiller(resolver *Resolver) *PdftkFiller {
	if resolver == nil {
		resolver = NewResolver()
	}
	return &PdftkFiller{resolver: resolver}
}

// Name identifies the backend in logs.
func (p *PdftkFiller) Name() string { return "pdftk" }

// Fill lists the template's own fields, builds an FDF for the names that
// match, and runs fill_form. Button fields keep the "Yes"/"Off" name
// semantics; choice and text fields take the stringified value.
func (p *PdftkFiller) Fill(templatePath, outputPath string, data map[string]string) error {
	bin, err := p.resolver.Path()
	if err != nil {
		return err
	}

	fields, err := p.dumpFields(bin, templatePath)
	if err != nil {
		return err
	}

	matched := make(map[string]string, len(data))
	for name, value := range data {
		if _, ok := fields[name]; ok {
			matched[name] = value
		}
	}
	if len(matched) == 0 {
		return fmt.Errorf("no field names matched in %s", templatePath)
	}

	fdfPath := outputPath + ".fdf"
	if err := os.WriteFile(fdfPath, buildFDF(matched), 0o600); err != nil {
		return fmt.Errorf("write fdf: %w", err)
	}
	defer os.Remove(fdfPath)

	cmd := exec.Command(bin, templatePath, "fill_form", fdfPath, "output", outputPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pdftk fill_form: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// dumpFields parses `pdftk dump_data_fields` output into a name -> native
// field type map (Button, Choice, Text).
func (p *PdftkFiller) dumpFields(bin, templatePath string) (map[string]string, error) {
	cmd := exec.Command(bin, templatePath, "dump_data_fields")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftk dump_data_fields: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	fields := map[string]string{}
	var currentType string
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "FieldType:"):
			currentType = strings.TrimSpace(strings.TrimPrefix(line, "FieldType:"))
		case strings.HasPrefix(line, "FieldName:"):
			name := strings.TrimSpace(strings.TrimPrefix(line, "FieldName:"))
			if name != "" {
				fields[name] = currentType
			}
		}
	}
	return fields, scanner.Err()
}

// buildFDF renders the (name, value) pairs as a minimal FDF document.
func buildFDF(data map[string]string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%FDF-1.2\n1 0 obj\n<< /FDF << /Fields [\n")
	for name, value := range data {
		fmt.Fprintf(&buf, "<< /T (%s) /V (%s) >>\n", escapeFDF(name), escapeFDF(value))
	}
	buf.WriteString("] >> >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
	return buf.Bytes()
}

// escapeFDF escapes PDF string delimiters in FDF literals.
func escapeFDF(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	s = strings.ReplaceAll(s, ")", `\)`)
	return s
}

// ensureDir creates the parent directory of path.
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o750)
}
