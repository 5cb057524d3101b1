package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/a3tai/mcp-rental-contract/internal/config"
	"github.com/a3tai/mcp-rental-contract/internal/contract"
	"github.com/a3tai/mcp-rental-contract/internal/delivery"
	"github.com/a3tai/mcp-rental-contract/internal/descriptions"
	"github.com/a3tai/mcp-rental-contract/internal/document"
)

const shutdownTimeout = 5 * time.Second

// Dependencies are the collaborators the tools call into.
type Dependencies struct {
	Contracts *contract.Service
	Documents document.Config
	Files     *delivery.DirSink
	// Objects is nil when object storage is not configured.
	Objects delivery.Sink
	Printer delivery.Printer
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	contracts *contract.Service
	builder   *document.Builder
	extractor *document.Extractor
	preparer  *document.Preparer
	files     *delivery.DirSink
	objects   delivery.Sink
	printer   delivery.Printer
	mcpServer *server.MCPServer
	log       zerolog.Logger

	now    func() time.Time
	stdin  io.Reader
	stdout io.Writer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Contracts == nil {
		return nil, fmt.Errorf("contract service cannot be nil")
	}
	if deps.Files == nil {
		return nil, fmt.Errorf("output directory sink cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		contracts: deps.Contracts,
		builder:   document.NewBuilder(deps.Documents),
		extractor: document.NewExtractor(deps.Documents),
		preparer:  document.NewPreparer(deps.Documents),
		files:     deps.Files,
		objects:   deps.Objects,
		printer:   deps.Printer,
		mcpServer: mcpServer,
		log:       deps.Documents.Logger.With().Str("component", "mcp").Logger(),
		now:       time.Now,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	fieldsArg := mcp.WithObject("fields",
		mcp.Required(),
		mcp.Description("Contract fields as an object of strings, e.g. {\"tenantName\": \"Ayşe Demir\"}"),
	)
	documentArg := mcp.WithString("document",
		mcp.Description("Base64 encoded PDF. Either this or name is required"),
	)
	nameArg := mcp.WithString("name",
		mcp.Description("File name of a document in the output directory"),
	)
	saveArg := mcp.WithBoolean("save",
		mcp.Description("Also save the result to the output directory"),
	)
	idArg := mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Contract record id"),
	)
	targetArg := mcp.WithString("target",
		mcp.Description("Where to save: file (default) or object"),
		mcp.Enum(targetFile, targetObject),
	)

	s.addTool(mcp.NewTool("contract_document_create",
		mcp.WithDescription(descriptions.DocumentCreateDescription),
		fieldsArg,
		saveArg,
	), s.handleDocumentCreate)

	s.addTool(mcp.NewTool("contract_document_fields",
		mcp.WithDescription(descriptions.DocumentFieldsDescription),
		documentArg,
		nameArg,
	), s.handleDocumentFields)

	s.addTool(mcp.NewTool("contract_document_finalize",
		mcp.WithDescription(descriptions.DocumentFinalizeDescription),
		documentArg,
		nameArg,
		saveArg,
	), s.handleDocumentFinalize)

	s.addTool(mcp.NewTool("contract_record_create",
		mcp.WithDescription(descriptions.RecordCreateDescription),
		fieldsArg,
		mcp.WithString("office", mcp.Description("Office id, defaults to the server's office")),
	), s.handleRecordCreate)

	s.addTool(mcp.NewTool("contract_record_get",
		mcp.WithDescription(descriptions.RecordGetDescription),
		idArg,
	), s.handleRecordGet)

	s.addTool(mcp.NewTool("contract_record_list",
		mcp.WithDescription(descriptions.RecordListDescription),
		mcp.WithString("office", mcp.Description("Only records of this office")),
		mcp.WithString("status", mcp.Description("Only records in this status")),
		mcp.WithString("query", mcp.Description("Match tenant, landlord or property address")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of records")),
	), s.handleRecordList)

	s.addTool(mcp.NewTool("contract_record_edit",
		mcp.WithDescription(descriptions.RecordEditDescription),
		idArg,
		fieldsArg,
	), s.handleRecordEdit)

	s.addTool(mcp.NewTool("contract_record_reopen",
		mcp.WithDescription(descriptions.RecordReopenDescription),
		idArg,
	), s.handleRecordReopen)

	s.addTool(mcp.NewTool("contract_record_transition",
		mcp.WithDescription(descriptions.RecordTransitionDescription),
		idArg,
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("Target status"),
			mcp.Enum(string(contract.Active), string(contract.Completed), string(contract.Cancelled)),
		),
	), s.handleRecordTransition)

	s.addTool(mcp.NewTool("contract_record_download",
		mcp.WithDescription(descriptions.RecordDownloadDescription),
		idArg,
		targetArg,
	), s.handleRecordDownload)

	s.addTool(mcp.NewTool("contract_record_print",
		mcp.WithDescription(descriptions.RecordPrintDescription),
		idArg,
	), s.handleRecordPrint)

	s.addTool(mcp.NewTool("contract_record_export",
		mcp.WithDescription(descriptions.RecordExportDescription),
		mcp.WithString("office", mcp.Description("Only records of this office")),
		mcp.WithString("status", mcp.Description("Only records in this status")),
		targetArg,
	), s.handleRecordExport)

	s.addTool(mcp.NewTool("contract_server_info",
		mcp.WithDescription(descriptions.ServerInfoDescription),
	), s.handleServerInfo)
}

// addTool registers h and logs every call.
func (s *Server) addTool(tool mcp.Tool, h server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := h(ctx, request)
		ev := s.log.Debug()
		if err != nil || (result != nil && result.IsError) {
			ev = s.log.Warn()
		}
		ev.Str("tool", tool.Name).Dur("took", time.Since(start)).Msg("tool call")
		return result, err
	})
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode serves on stdin/stdout until the input ends or ctx is done
func (s *Server) runStdioMode(ctx context.Context) error {
	s.log.Info().Str("output_dir", s.files.Dir()).Msg("starting rental contract server in stdio mode")

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.New(s.log, "", 0))
	if err := stdio.Listen(ctx, s.stdin, s.stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves SSE on the configured address until ctx is done
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("address", addr).Msg("starting rental contract server in SSE mode")
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve sse on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down sse server: %w", err)
		}
		s.log.Info().Msg("sse server stopped")
		return nil
	}
}
