package mcp

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cancelei/ca-small-claims/internal/config"
	"github.com/cancelei/ca-small-claims/internal/extract"
	"github.com/cancelei/ca-small-claims/internal/fill"
	"github.com/cancelei/ca-small-claims/internal/generate"
	"github.com/cancelei/ca-small-claims/internal/schema"
	"github.com/cancelei/ca-small-claims/internal/store"
	"github.com/cancelei/ca-small-claims/internal/syncer"
	"github.com/cancelei/ca-small-claims/internal/templates"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	templates templates.Store
	extractor *extract.Extractor
	generator *generate.Generator
	validator *schema.Validator
	syncer    *syncer.Syncer
	filler    *fill.Filler
	store     store.Store
	mcpServer *server.MCPServer
}

// Deps bundles the pipeline components the server exposes as tools.
type Deps struct {
	Templates templates.Store
	Extractor *extract.Extractor
	Generator *generate.Generator
	Validator *schema.Validator
	Syncer    *syncer.Syncer
	Filler    *fill.Filler
	Store     store.Store
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Templates == nil {
		return nil, fmt.Errorf("template store cannot be nil")
	}
	if deps.Extractor == nil {
		return nil, fmt.Errorf("extractor cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		templates: deps.Templates,
		extractor: deps.Extractor,
		generator: deps.Generator,
		validator: deps.Validator,
		syncer:    deps.Syncer,
		filler:    deps.Filler,
		store:     deps.Store,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	extractTool := mcp.NewTool(
		"form_extract_fields",
		mcp.WithDescription("Extract the fillable field inventory from a form template PDF"),
		mcp.WithString("form_code",
			mcp.Required(),
			mcp.Description("Form code, e.g. sc-100"),
		),
	)
	s.mcpServer.AddTool(extractTool, s.handleExtractFields)

	generateTool := mcp.NewTool(
		"form_generate_schema",
		mcp.WithDescription("Generate a declarative schema document from a form template PDF"),
		mcp.WithString("form_code",
			mcp.Required(),
			mcp.Description("Form code, e.g. sc-100"),
		),
		mcp.WithBoolean("write",
			mcp.Description("Write the schema to the schemas directory instead of returning it inline"),
		),
	)
	s.mcpServer.AddTool(generateTool, s.handleGenerateSchema)

	batchTool := mcp.NewTool(
		"form_batch_generate",
		mcp.WithDescription("Generate schemas for every template matching a form code prefix"),
		mcp.WithString("prefix",
			mcp.Description("Form code prefix, e.g. sc (all templates when empty)"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Regenerate schemas that already exist"),
		),
	)
	s.mcpServer.AddTool(batchTool, s.handleBatchGenerate)

	validateTool := mcp.NewTool(
		"form_validate_schemas",
		mcp.WithDescription("Validate schema documents against structural and referential rules"),
		mcp.WithString("form_code",
			mcp.Description("Validate a single form's schema (all schemas when empty)"),
		),
	)
	s.mcpServer.AddTool(validateTool, s.handleValidateSchemas)

	syncTool := mcp.NewTool(
		"form_sync",
		mcp.WithDescription("Synchronize schema documents into the canonical field store"),
		mcp.WithString("form_code",
			mcp.Description("Sync a single form's schema (all schemas when empty)"),
		),
	)
	s.mcpServer.AddTool(syncTool, s.handleSync)

	fillTool := mcp.NewTool(
		"form_fill",
		mcp.WithDescription("Fill a form template PDF with submitted values and write the result"),
		mcp.WithString("submission_id",
			mcp.Required(),
			mcp.Description("Submission identifier used for the output directory"),
		),
		mcp.WithString("form_code",
			mcp.Required(),
			mcp.Description("Form code, e.g. sc-100"),
		),
		mcp.WithObject("values",
			mcp.Required(),
			mcp.Description("Field values keyed by schema field name"),
		),
		mcp.WithBoolean("flatten",
			mcp.Description("Lock the filled fields against further editing"),
		),
	)
	s.mcpServer.AddTool(fillTool, s.handleFill)

	listTool := mcp.NewTool(
		"form_list_templates",
		mcp.WithDescription("List available form template PDFs"),
		mcp.WithString("prefix",
			mcp.Description("Form code prefix filter, e.g. sc"),
		),
	)
	s.mcpServer.AddTool(listTool, s.handleListTemplates)

	infoTool := mcp.NewTool(
		"form_server_info",
		mcp.WithDescription("Get server information, configured directories, and available tools"),
	)
	s.mcpServer.AddTool(infoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleExtractFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formCode, err := request.RequireString("form_code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path, err := s.templates.ResolveByCode(formCode)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fields := s.extractor.Extract(path)

	responseText := fmt.Sprintf("Extracted %d field(s) from %s\n", len(fields), path)
	for i, f := range fields {
		responseText += fmt.Sprintf("%d. %s\n", i+1, f.Name)
		responseText += fmt.Sprintf("   Kind: %s, Page: %d\n", f.Kind, f.Page)
		if len(f.Options) > 0 {
			responseText += fmt.Sprintf("   Options: %s\n", strings.Join(f.Options, ", "))
		}
		if f.Value != "" {
			responseText += fmt.Sprintf("   Value: %s\n", f.Value)
		}
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleGenerateSchema(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formCode, err := request.RequireString("form_code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.generator.Generate(formCode)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	if write, ok := args["write"].(bool); ok && write {
		path, err := s.generator.Write(doc)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Schema for %s written to %s", doc.Form.Code, path)), nil
	}

	encoded, err := schema.Encode(doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Generated schema for %s (%d field(s))\n\n%s",
		doc.Form.Code, len(doc.AllFields()), string(encoded))
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleBatchGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	prefix := ""
	if p, ok := args["prefix"].(string); ok {
		prefix = p
	}
	force := false
	if f, ok := args["force"].(bool); ok {
		force = f
	}

	result := s.generator.Batch(prefix, force)

	responseText := fmt.Sprintf("Batch generation complete: %d generated, %d skipped, %d failed\n",
		len(result.Generated), len(result.Skipped), len(result.Failed))
	for _, code := range result.Generated {
		responseText += fmt.Sprintf("  generated: %s\n", code)
	}
	for _, code := range result.Skipped {
		responseText += fmt.Sprintf("  skipped:   %s (schema exists)\n", code)
	}
	for _, msg := range result.Errors {
		responseText += fmt.Sprintf("  failed:    %s\n", msg)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleValidateSchemas(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	formCode := ""
	if c, ok := args["form_code"].(string); ok {
		formCode = c
	}

	docs, err := s.loadSchemas(formCode)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := ""
	allValid := true
	codes := sortedCodes(docs)
	for _, code := range codes {
		result := s.validator.Validate(docs[code])
		if !result.Valid {
			allValid = false
		}
		responseText += formatValidation(code, result)
	}
	if formCode == "" {
		for _, warning := range schema.CheckSharedKeyCollisions(docs) {
			responseText += fmt.Sprintf("warning: %s\n", warning)
		}
	}

	if allValid {
		responseText = fmt.Sprintf("All %d schema(s) valid\n\n", len(docs)) + responseText
	} else {
		responseText = "Validation found errors\n\n" + responseText
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleSync(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	formCode := ""
	if c, ok := args["form_code"].(string); ok {
		formCode = c
	}

	docs, err := s.loadSchemas(formCode)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := ""
	for _, code := range sortedCodes(docs) {
		result, err := s.syncer.Sync(docs[code])
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("sync %s: %v", code, err)), nil
		}
		responseText += fmt.Sprintf("%s: %d field(s) synced, %d removed\n", code, result.Synced, result.Removed)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleFill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	submissionID, err := request.RequireString("submission_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	formCode, err := request.RequireString("form_code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	values, ok := args["values"].(map[string]any)
	if !ok {
		return mcp.NewToolResultError("values must be an object keyed by field name"), nil
	}
	flatten := false
	if f, ok := args["flatten"].(bool); ok {
		flatten = f
	}

	doc, err := schema.LoadByCode(s.config.SchemasDir, formCode)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Filling consumes canonical field records, so re-sync first. Sync is
	// idempotent, making this safe to repeat per request.
	if _, err := s.syncer.Sync(doc); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("sync %s: %v", doc.Form.Code, err)), nil
	}
	fields, err := s.store.FieldsByForm(doc.Form.Code)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := fill.Request{
		SubmissionID: submissionID,
		FormCode:     doc.Form.Code,
		Fields:       fields,
		Values:       values,
	}

	var outputPath string
	if flatten {
		outputPath, err = s.filler.GenerateFlattened(req)
	} else {
		outputPath, err = s.filler.Generate(req)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Filled %s for submission %s: %s", formCode, submissionID, outputPath)), nil
}

func (s *Server) handleListTemplates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	prefix := ""
	if p, ok := args["prefix"].(string); ok {
		prefix = p
	}

	paths, err := s.templates.List(prefix)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(paths) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No templates found in %s", s.config.TemplatesDir)), nil
	}

	responseText := fmt.Sprintf("Found %d template(s) in %s\n", len(paths), s.config.TemplatesDir)
	for i, p := range paths {
		responseText += fmt.Sprintf("%d. %s\n", i+1, p)
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := fmt.Sprintf("%s v%s\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Templates: %s\n", s.config.TemplatesDir)
	text += fmt.Sprintf("Schemas: %s\n", s.config.SchemasDir)
	text += fmt.Sprintf("Output: %s\n", s.config.OutputDir)
	text += fmt.Sprintf("Database: %s\n\n", s.config.DatabasePath)

	text += "Available Tools:\n"
	tools := [][2]string{
		{"form_extract_fields", "Extract the fillable field inventory from a form template PDF"},
		{"form_generate_schema", "Generate a declarative schema document from a form template PDF"},
		{"form_batch_generate", "Generate schemas for every template matching a form code prefix"},
		{"form_validate_schemas", "Validate schema documents against structural and referential rules"},
		{"form_sync", "Synchronize schema documents into the canonical field store"},
		{"form_fill", "Fill a form template PDF with submitted values and write the result"},
		{"form_list_templates", "List available form template PDFs"},
		{"form_server_info", "Get server information, configured directories, and available tools"},
	}
	for _, t := range tools {
		text += fmt.Sprintf("\n• %s\n  %s\n", t[0], t[1])
	}

	return mcp.NewToolResultText(text), nil
}

// loadSchemas loads either a single schema by form code or every schema
// in the configured schemas directory, keyed by form code.
func (s *Server) loadSchemas(formCode string) (map[string]*schema.Schema, error) {
	if formCode != "" {
		doc, err := schema.LoadByCode(s.config.SchemasDir, formCode)
		if err != nil {
			return nil, err
		}
		return map[string]*schema.Schema{doc.Form.Code: doc}, nil
	}
	loaded, err := schema.LoadDir(s.config.SchemasDir)
	if err != nil {
		return nil, err
	}
	docs := make(map[string]*schema.Schema, len(loaded))
	for _, doc := range loaded {
		docs[doc.Form.Code] = doc
	}
	return docs, nil
}

func sortedCodes(docs map[string]*schema.Schema) []string {
	codes := make([]string, 0, len(docs))
	for code := range docs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func formatValidation(code string, result schema.Result) string {
	if result.Valid && len(result.Warnings) == 0 {
		return fmt.Sprintf("%s: ok\n", code)
	}
	text := fmt.Sprintf("%s:\n", code)
	for _, e := range result.Errors {
		text += fmt.Sprintf("  error: %s\n", e)
	}
	for _, w := range result.Warnings {
		text += fmt.Sprintf("  warning: %s\n", w)
	}
	return text
}

// Run starts the MCP server over standard I/O.
func (s *Server) Run(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting form pipeline MCP server in stdio mode")
		log.Printf("Templates directory: %s", s.config.TemplatesDir)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
