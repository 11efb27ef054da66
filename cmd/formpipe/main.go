package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/cancelei/ca-small-claims/internal/config"
	"github.com/cancelei/ca-small-claims/internal/extract"
	"github.com/cancelei/ca-small-claims/internal/fill"
	"github.com/cancelei/ca-small-claims/internal/generate"
	"github.com/cancelei/ca-small-claims/internal/schema"
	"github.com/cancelei/ca-small-claims/internal/store"
	"github.com/cancelei/ca-small-claims/internal/syncer"
	"github.com/cancelei/ca-small-claims/internal/templates"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "help" {
			printHelp()
			return
		}
	}

	// Subcommand flags, registered before config parses the command line.
	pflag.Bool("force", false, "Regenerate schemas that already exist (batch)")
	pflag.Bool("flatten", false, "Lock filled fields against further editing (fill)")
	pflag.String("format", "text", "Output format: text, json")

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if version != "dev" {
		cfg.Version = version
	}

	args := pflag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Error: command required\n\n")
		printUsage()
		os.Exit(1)
	}

	app := newApp(cfg)
	defer app.close()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "extract":
		err = app.runExtract(rest)
	case "generate":
		err = app.runGenerate(rest)
	case "batch":
		err = app.runBatch(rest)
	case "validate":
		err = app.runValidate(rest)
	case "sync":
		err = app.runSync(rest)
	case "fill":
		err = app.runFill(rest)
	case "list":
		err = app.runList(rest)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app wires the pipeline components over the parsed configuration. The
// store is opened lazily so read-only commands never create the database.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	templates templates.Store
	extractor *extract.Extractor
	generator *generate.Generator
	validator *schema.Validator
	db        *store.SQLite
}

func newApp(cfg *config.Config) *app {
	logger := newLogger(cfg)
	tpl := templates.NewDir(cfg.TemplatesDir)
	extractor := extract.NewExtractor(logger)
	return &app{
		cfg:       cfg,
		logger:    logger,
		templates: tpl,
		extractor: extractor,
		generator: generate.NewGenerator(tpl, extractor, cfg.SchemasDir, logger),
		validator: &schema.Validator{TemplatesDir: cfg.TemplatesDir},
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (a *app) openStore() (*store.SQLite, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := store.Open(a.cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.db = db
	return db, nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *app) newFiller(db *store.SQLite) *fill.Filler {
	fallback := fill.NewPdftkFiller(a.resolver())
	return fill.NewFillerWithBackends(a.templates, db, a.cfg.OutputDir,
		fill.NewPDFCPUFiller(), fallback, a.logger)
}

func (a *app) resolver() *fill.Resolver {
	r := fill.NewResolver()
	if path := a.cfg.PdftkPath; path != "" {
		r.Lookup = func() (string, error) { return path, nil }
	}
	return r
}

func (a *app) runExtract(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: formpipe extract <form-code>")
	}
	path, err := a.templates.ResolveByCode(args[0])
	if err != nil {
		return err
	}
	fields := a.extractor.Extract(path)

	if outputFormat() == "json" {
		return printJSON(map[string]any{
			"template":    path,
			"field_count": len(fields),
			"fields":      fields,
		})
	}

	fmt.Printf("Extracted %d field(s) from %s\n", len(fields), path)
	for i, f := range fields {
		fmt.Printf("[%d] %s\n", i+1, f.Name)
		fmt.Printf("    Kind: %s\n", f.Kind)
		if f.Page > 0 {
			fmt.Printf("    Page: %d\n", f.Page)
		}
		if f.Rect != nil {
			fmt.Printf("    Position: (%.1f, %.1f) to (%.1f, %.1f)\n", f.Rect.X1, f.Rect.Y1, f.Rect.X2, f.Rect.Y2)
		}
		if len(f.Options) > 0 {
			fmt.Printf("    Options: %s\n", strings.Join(f.Options, ", "))
		}
		if f.Value != "" {
			fmt.Printf("    Value: %s\n", f.Value)
		}
	}
	return nil
}

func (a *app) runGenerate(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: formpipe generate <form-code>")
	}
	doc, err := a.generator.Generate(args[0])
	if err != nil {
		return err
	}
	path, err := a.generator.Write(doc)
	if err != nil {
		return err
	}
	if outputFormat() == "json" {
		return printJSON(map[string]any{
			"form":        doc.Form.Code,
			"path":        path,
			"fillable":    doc.Form.Fillable,
			"field_count": len(doc.AllFields()),
		})
	}
	fmt.Printf("Schema for %s written to %s (%d field(s))\n", doc.Form.Code, path, len(doc.AllFields()))
	return nil
}

func (a *app) runBatch(args []string) error {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	force, _ := pflag.CommandLine.GetBool("force")

	result := a.generator.Batch(prefix, force)
	if outputFormat() == "json" {
		return printJSON(result)
	}

	fmt.Printf("Batch complete: %d generated, %d skipped, %d failed\n",
		len(result.Generated), len(result.Skipped), len(result.Failed))
	for _, code := range result.Generated {
		fmt.Printf("  generated: %s\n", code)
	}
	for _, code := range result.Skipped {
		fmt.Printf("  skipped:   %s (schema exists)\n", code)
	}
	for _, msg := range result.Errors {
		fmt.Printf("  failed:    %s\n", msg)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d form(s) failed", len(result.Failed))
	}
	return nil
}

func (a *app) runValidate(args []string) error {
	docs, err := a.loadSchemas(args)
	if err != nil {
		return err
	}

	type report struct {
		Form     string   `json:"form"`
		Valid    bool     `json:"valid"`
		Errors   []string `json:"errors,omitempty"`
		Warnings []string `json:"warnings,omitempty"`
	}
	var reports []report
	failed := 0
	for _, code := range sortedCodes(docs) {
		res := a.validator.Validate(docs[code])
		if !res.Valid {
			failed++
		}
		reports = append(reports, report{
			Form: code, Valid: res.Valid, Errors: res.Errors, Warnings: res.Warnings,
		})
	}
	var collisions []string
	if len(args) == 0 {
		collisions = schema.CheckSharedKeyCollisions(docs)
	}

	if outputFormat() == "json" {
		if err := printJSON(map[string]any{
			"schemas":    reports,
			"collisions": collisions,
		}); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			if r.Valid && len(r.Warnings) == 0 {
				fmt.Printf("%s: ok\n", r.Form)
				continue
			}
			fmt.Printf("%s:\n", r.Form)
			for _, e := range r.Errors {
				fmt.Printf("  error: %s\n", e)
			}
			for _, w := range r.Warnings {
				fmt.Printf("  warning: %s\n", w)
			}
		}
		for _, c := range collisions {
			fmt.Printf("warning: %s\n", c)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d schema(s) failed validation", failed)
	}
	return nil
}

func (a *app) runSync(args []string) error {
	docs, err := a.loadSchemas(args)
	if err != nil {
		return err
	}
	db, err := a.openStore()
	if err != nil {
		return err
	}
	sync := syncer.New(db, a.logger)

	for _, code := range sortedCodes(docs) {
		res, err := sync.Sync(docs[code])
		if err != nil {
			return fmt.Errorf("sync %s: %w", code, err)
		}
		fmt.Printf("%s: %d field(s) synced, %d removed\n", code, res.Synced, res.Removed)
	}
	return nil
}

func (a *app) runFill(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: formpipe fill <submission-id> <form-code> <values.json|->")
	}
	submissionID, formCode, valuesPath := args[0], args[1], args[2]

	values, err := readValues(valuesPath)
	if err != nil {
		return err
	}

	doc, err := schema.LoadByCode(a.cfg.SchemasDir, formCode)
	if err != nil {
		return err
	}

	db, err := a.openStore()
	if err != nil {
		return err
	}
	if _, err := syncer.New(db, a.logger).Sync(doc); err != nil {
		return fmt.Errorf("sync %s: %w", doc.Form.Code, err)
	}
	fields, err := db.FieldsByForm(doc.Form.Code)
	if err != nil {
		return err
	}

	req := fill.Request{
		SubmissionID: submissionID,
		FormCode:     doc.Form.Code,
		Fields:       fields,
		Values:       values,
	}

	filler := a.newFiller(db)
	flatten, _ := pflag.CommandLine.GetBool("flatten")
	var outputPath string
	if flatten {
		outputPath, err = filler.GenerateFlattened(req)
	} else {
		outputPath, err = filler.Generate(req)
	}
	if err != nil {
		return err
	}
	fmt.Println(outputPath)
	return nil
}

func (a *app) runList(args []string) error {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	paths, err := a.templates.List(prefix)
	if err != nil {
		return err
	}
	if outputFormat() == "json" {
		return printJSON(paths)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

// loadSchemas resolves the optional single form-code argument against the
// schemas directory, loading all schemas when absent. The result is keyed
// by form code.
func (a *app) loadSchemas(args []string) (map[string]*schema.Schema, error) {
	if len(args) > 0 {
		doc, err := schema.LoadByCode(a.cfg.SchemasDir, args[0])
		if err != nil {
			return nil, err
		}
		return map[string]*schema.Schema{doc.Form.Code: doc}, nil
	}
	loaded, err := schema.LoadDir(a.cfg.SchemasDir)
	if err != nil {
		return nil, err
	}
	docs := make(map[string]*schema.Schema, len(loaded))
	for _, doc := range loaded {
		docs[doc.Form.Code] = doc
	}
	return docs, nil
}

func readValues(path string) (map[string]any, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse values: %w", err)
	}
	return values, nil
}

func sortedCodes(docs map[string]*schema.Schema) []string {
	codes := make([]string, 0, len(docs))
	for code := range docs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func outputFormat() string {
	format, _ := pflag.CommandLine.GetString("format")
	return format
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printHelp() {
	fmt.Println("formpipe - derive, validate, sync, and fill court form schemas")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("COMMANDS:")
	fmt.Println("  extract <form-code>                       Show the template's fillable field inventory")
	fmt.Println("  generate <form-code>                      Generate and write one schema document")
	fmt.Println("  batch [prefix]                            Generate schemas for matching templates")
	fmt.Println("  validate [form-code]                      Validate one or all schema documents")
	fmt.Println("  sync [form-code]                          Project schemas into the field store")
	fmt.Println("  fill <submission-id> <form-code> <values> Fill a template with submitted values")
	fmt.Println("  list [prefix]                             List available templates")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  --templates    Directory containing form template PDFs")
	fmt.Println("  --schemas      Directory containing form schema documents")
	fmt.Println("  --output       Directory for filled PDF output")
	fmt.Println("  --db           Path to the canonical field store database")
	fmt.Println("  --pdftk        Path to the pdftk executable")
	fmt.Println("  --format       Output format: text (default), json")
	fmt.Println("  --force        Regenerate schemas that already exist (batch)")
	fmt.Println("  --flatten      Lock filled fields against further editing (fill)")
	fmt.Println("  --loglevel     Log level (debug, info, warn, error)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  formpipe generate sc-100")
	fmt.Println("  formpipe batch sc --force")
	fmt.Println("  formpipe validate")
	fmt.Println("  formpipe fill 42 sc-100 values.json --flatten")
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  formpipe [OPTIONS] <command> [arguments]")
}

func printVersion() {
	fmt.Printf("formpipe\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
