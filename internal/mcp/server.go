package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-medreport/internal/alignment"
	"github.com/a3tai/mcp-medreport/internal/config"
	"github.com/a3tai/mcp-medreport/internal/descriptions"
	"github.com/a3tai/mcp-medreport/internal/features"
	"github.com/a3tai/mcp-medreport/internal/layout"
	"github.com/a3tai/mcp-medreport/internal/layout/pdfsource"
	"github.com/a3tai/mcp-medreport/internal/lexicon"
	"github.com/a3tai/mcp-medreport/internal/pagerange"
	"github.com/a3tai/mcp-medreport/internal/pipeline"
	"github.com/a3tai/mcp-medreport/internal/reports"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	engine    *pipeline.CachedEngine
	search    *reports.Search
	dateline  *features.DatelineBuilder
	ner       *features.NERBuilder
	aligner   *alignment.Aligner
	logger    *zap.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, engine *pipeline.CachedEngine, lex *lexicon.Lexicon, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		engine:    engine,
		search:    reports.NewSearch(cfg.MaxFileSize),
		dateline:  features.NewDatelineBuilder(lex),
		ner:       features.NewNERBuilder(lex),
		aligner:   alignment.New(logger.Named("align")),
		logger:    logger,
		mcpServer: mcpServer,
	}
	s.registerTools()
	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"medreport_features",
		mcp.WithDescription(descriptions.GetToolDescription("medreport_features")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF report"),
		),
		mcp.WithString("pages",
			mcp.Description("Pages to extract, e.g. 1-3,5 (all pages when empty)"),
		),
	), s.handleFeatures)

	s.mcpServer.AddTool(mcp.NewTool(
		"medreport_label",
		mcp.WithDescription(descriptions.GetToolDescription("medreport_label")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF report"),
		),
		mcp.WithString("pages",
			mcp.Description("Pages to extract, e.g. 1-3,5 (all pages when empty)"),
		),
		mcp.WithBoolean("write",
			mcp.Description("Write the training files to the output directory"),
		),
	), s.handleLabel)

	s.mcpServer.AddTool(mcp.NewTool(
		"medreport_batch",
		mcp.WithDescription(descriptions.GetToolDescription("medreport_batch")),
		mcp.WithString("directory",
			mcp.Description("Directory of reports (uses the input directory if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional file name filter"),
		),
	), s.handleBatch)

	s.mcpServer.AddTool(mcp.NewTool(
		"medreport_find",
		mcp.WithDescription(descriptions.GetToolDescription("medreport_find")),
		mcp.WithString("directory",
			mcp.Description("Directory to search (uses the input directory if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional file name filter"),
		),
	), s.handleFind)

	s.mcpServer.AddTool(mcp.NewTool(
		"medreport_page_range",
		mcp.WithDescription(descriptions.GetToolDescription("medreport_page_range")),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("Raw page range, e.g. 433-8"),
		),
	), s.handlePageRange)

	s.mcpServer.AddTool(mcp.NewTool(
		"medreport_dateline",
		mcp.WithDescription(descriptions.GetToolDescription("medreport_dateline")),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("One \"token label\" pair per line, blank lines between sequences"),
		),
	), s.handleDateline)

	s.mcpServer.AddTool(mcp.NewTool(
		"medreport_ner",
		mcp.WithDescription(descriptions.GetToolDescription("medreport_ner")),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Plain text to featurise"),
		),
	), s.handleNER)

	s.mcpServer.AddTool(mcp.NewTool(
		"medreport_align",
		mcp.WithDescription(descriptions.GetToolDescription("medreport_align")),
		mcp.WithString("features",
			mcp.Required(),
			mcp.Description("Raw feature records, one per line"),
		),
		mcp.WithString("labeled",
			mcp.Required(),
			mcp.Description("One \"token label\" pair per line"),
		),
	), s.handleAlign)

	s.mcpServer.AddTool(mcp.NewTool(
		"medreport_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("medreport_server_info")),
	), s.handleServerInfo)
}

// sourceFor returns a page restricted reader, or nil for whole documents.
func (s *Server) sourceFor(pages string) (*pdfsource.Source, error) {
	if strings.TrimSpace(pages) == "" {
		return nil, nil
	}
	ranges, err := pagerange.ParseSelection(pages)
	if err != nil {
		return nil, err
	}
	return pdfsource.New(pdfsource.Options{MaxFileSize: s.config.MaxFileSize, Pages: ranges}, s.logger), nil
}

// process runs the whole pipeline on path, through the cache unless pages
// are selected.
func (s *Server) process(ctx context.Context, path, pages string) (*pipeline.Result, error) {
	src, err := s.sourceFor(pages)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return s.engine.ProcessFile(ctx, path)
	}
	doc, err := src.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.engine.Engine().Process(ctx, doc, pipeline.DocumentID(path))
}

func (s *Server) handleFeatures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.process(ctx, path, request.GetString("pages", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Empty {
		return mcp.NewToolResultText(fmt.Sprintf("No text found in %s", path)), nil
	}

	text := fmt.Sprintf("Document: %s\nRecords: %d\nTokens: %d\n\n", res.ID, res.Records, len(res.Tokens))
	text += res.Features
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleLabel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.process(ctx, path, request.GetString("pages", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Empty {
		return mcp.NewToolResultText(fmt.Sprintf("No text found in %s", path)), nil
	}

	var written []string
	if request.GetBool("write", false) {
		written, err = pipeline.WriteTrainingFiles(s.config.OutputDirectory, res)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return mcp.NewToolResultText(s.formatLabelResult(res, written)), nil
}

func (s *Server) handleBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	directory := request.GetString("directory", s.config.InputDirectory)
	if directory == "" {
		directory = s.config.InputDirectory
	}

	files, err := s.search.Find(directory, request.GetString("query", ""), 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(files) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No PDF reports found in %s", directory)), nil
	}

	batch := &pipeline.Batch{
		Processor: s.engine,
		OutputDir: s.config.OutputDirectory,
		Workers:   s.config.Workers,
		Logger:    s.logger,
	}
	report, err := batch.Run(ctx, reports.Paths(files))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatBatchReport(directory, len(files), report)), nil
}

func (s *Server) handleFind(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	directory := request.GetString("directory", s.config.InputDirectory)
	if directory == "" {
		directory = s.config.InputDirectory
	}
	query := request.GetString("query", "")

	files, err := s.search.Find(directory, query, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatFindResult(directory, query, files)), nil
}

func (s *Server) handlePageRange(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(pagerange.Normalize(value)), nil
}

func (s *Server) handleDateline(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.dateline.Build(features.DatelineLines(text))), nil
}

func (s *Server) handleNER(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.ner.Build(layout.TextTokens(text), nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) handleAlign(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("features")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	labeled, err := request.RequireString("labeled")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.aligner.Align(splitLines(raw), splitLines(labeled))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := fmt.Sprintf("Matched: %d\nReused: %d\nDropped: %d\nAccepted: %t\n\n%s",
		res.Matched, res.Reused, res.Dropped, res.Accepted, res.String())
	return mcp.NewToolResultText(text), nil
}

func splitLines(text string) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

func (s *Server) formatLabelResult(res *pipeline.Result, written []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Document: %s\n", res.ID)
	fmt.Fprintf(&sb, "Records: %d\n", res.Records)
	if !res.Labeled {
		sb.WriteString("\n⚠️  WARNING: no tagger is configured, the TEI holds the unlabeled text.\n")
	} else {
		fmt.Fprintf(&sb, "Figures: %d\n", len(res.Figures))
		fmt.Fprintf(&sb, "Tables: %d\n", len(res.Tables))
		fmt.Fprintf(&sb, "Paragraphs: %d\n", len(res.Paragraphs))
		fmt.Fprintf(&sb, "Items: %d\n", len(res.Items))
		fmt.Fprintf(&sb, "Figure callouts: %s\n", res.Callouts.Figure)
		fmt.Fprintf(&sb, "Table callouts: %s\n", res.Callouts.Table)
		if res.Desyncs > 0 {
			fmt.Fprintf(&sb, "Unaligned records: %d\n", res.Desyncs)
		}
	}
	if len(written) > 0 {
		sb.WriteString("\nTraining files:\n")
		for _, p := range written {
			fmt.Fprintf(&sb, "  • %s\n", p)
		}
	}
	sb.WriteString("\nTEI:\n")
	sb.WriteString(res.TEI())
	return sb.String()
}

func (s *Server) formatBatchReport(directory string, total int, report *pipeline.BatchReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Processed %d report(s) from %s\n", total, directory)
	fmt.Fprintf(&sb, "Labeled or featurised: %d\n", report.Processed)
	fmt.Fprintf(&sb, "Without text: %d\n", report.Empty)
	fmt.Fprintf(&sb, "Files written: %d to %s\n", len(report.Files), s.config.OutputDirectory)
	fmt.Fprintf(&sb, "%s\n", report.Errors.Summary())
	for _, e := range report.Errors.Errors() {
		fmt.Fprintf(&sb, "  • %s: %s\n", e.Document, e.Error())
	}
	return sb.String()
}

func (s *Server) formatFindResult(directory, query string, files []reports.FileInfo) string {
	var sb strings.Builder
	if query != "" {
		fmt.Fprintf(&sb, "Found %d report(s) matching %q in %s\n", len(files), query, directory)
	} else {
		fmt.Fprintf(&sb, "Found %d report(s) in %s\n", len(files), directory)
	}
	for _, f := range files {
		rel, err := filepath.Rel(directory, f.Path)
		if err != nil {
			rel = f.Path
		}
		fmt.Fprintf(&sb, "  • %s (%d bytes, modified %s)\n", rel, f.Size, f.ModifiedTime)
	}
	return sb.String()
}

func (s *Server) formatServerInfo() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Server: %s %s\n", s.config.ServerName, s.config.Version)
	fmt.Fprintf(&sb, "Input directory: %s\n", s.config.InputDirectory)
	fmt.Fprintf(&sb, "Output directory: %s\n", s.config.OutputDirectory)
	if s.config.HasTagger() {
		fmt.Fprintf(&sb, "Tagger: %s (model %s)\n", s.config.Tagger.Command, s.config.Tagger.Model)
	} else {
		sb.WriteString("Tagger: none, features only\n")
	}
	fmt.Fprintf(&sb, "Cached documents: %d\n", s.engine.Len())

	if files, err := s.search.Find(s.config.InputDirectory, "", 0); err == nil {
		fmt.Fprintf(&sb, "Reports available: %d\n", len(files))
	}

	sb.WriteString("\n🔧 Available Tools:\n")
	for _, name := range descriptions.GetAllToolNames() {
		desc := descriptions.GetToolDescription(name)
		first, _, _ := strings.Cut(desc, "\n")
		fmt.Fprintf(&sb, "  • %s: %s\n", name, first)
	}
	return sb.String()
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	s.logger.Debug("starting MCP server in stdio mode",
		zap.String("input", s.config.InputDirectory))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves the MCP protocol over SSE until ctx ends.
func (s *Server) runServerMode(ctx context.Context) error {
	sse := server.NewSSEServer(s.mcpServer)
	addr := s.config.Address()
	s.logger.Info("starting MCP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}
