package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-rental-contract/internal/contract"
	"github.com/a3tai/mcp-rental-contract/internal/delivery"
	"github.com/a3tai/mcp-rental-contract/internal/descriptions"
	"github.com/a3tai/mcp-rental-contract/internal/document"
	"github.com/a3tai/mcp-rental-contract/internal/fields"
)

const (
	targetFile   = "file"
	targetObject = "object"

	// printKind names flattened copies so they never replace the fillable file.
	printKind = contract.DocumentKind + "-baski"
)

var errNoObjectStorage = errors.New("object storage is not configured")

type documentResult struct {
	FileName string             `json:"fileName"`
	Document string             `json:"document"`
	Size     int                `json:"size"`
	Saved    *delivery.Location `json:"saved,omitempty"`
	Warnings []string           `json:"warnings,omitempty"`
}

type fieldsResult struct {
	Fields   fields.Schema `json:"fields"`
	Warnings []string      `json:"warnings,omitempty"`
}

type recordResult struct {
	Record   *contract.Record  `json:"record"`
	Next     []contract.Status `json:"next"`
	Warnings []string          `json:"warnings,omitempty"`
}

// Handler functions

func (s *Server) handleDocumentCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	partial, err := fieldsArgument(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	schema, mismatches := fields.Resolve(partial)
	doc, err := s.builder.Build(ctx, schema)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := documentResult{
		FileName: delivery.Filename(contract.DocumentKind, schema.TenantName, s.now().UTC()),
		Document: base64.StdEncoding.EncodeToString(doc),
		Size:     len(doc),
		Warnings: schemaWarnings(mismatches),
	}
	if boolArgument(args, "save") {
		loc, err := s.files.Save(ctx, result.FileName, doc)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result.Saved = &loc
	}
	return jsonResult(result)
}

func (s *Server) handleDocumentFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.documentArgument(ctx, request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	schema, mismatches, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(fieldsResult{Fields: schema, Warnings: documentWarnings(mismatches)})
}

func (s *Server) handleDocumentFinalize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	doc, err := s.documentArgument(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	schema, _, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	flat, err := s.preparer.Flatten(ctx, doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := documentResult{
		FileName: delivery.Filename(printKind, schema.TenantName, s.now().UTC()),
		Document: base64.StdEncoding.EncodeToString(flat),
		Size:     len(flat),
	}
	if boolArgument(args, "save") {
		loc, err := s.files.Save(ctx, result.FileName, flat)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result.Saved = &loc
	}
	return jsonResult(result)
}

func (s *Server) handleRecordCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	partial, err := fieldsArgument(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	office := s.config.OfficeID
	if o := stringArgument(args, "office"); o != "" {
		office = o
	}

	schema, mismatches := fields.Resolve(partial)
	rec, err := s.contracts.Create(ctx, office, schema)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(recordResult{Record: rec, Next: rec.Status.Next(), Warnings: schemaWarnings(mismatches)})
}

func (s *Server) handleRecordGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := s.contracts.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(recordResult{Record: rec, Next: rec.Status.Next()})
}

func (s *Server) handleRecordList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter, err := filterArgument(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	records, err := s.contracts.List(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summaries := make([]contract.Summary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, r.Summarize())
	}
	return jsonResult(map[string]any{"count": len(summaries), "contracts": summaries})
}

func (s *Server) handleRecordEdit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	partial, err := fieldsArgument(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	current, err := s.contracts.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	schema, mismatches := current.Details.ToSchema().Merge(partial)
	rec, err := s.contracts.Edit(ctx, id, schema)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(recordResult{Record: rec, Next: rec.Status.Next(), Warnings: schemaWarnings(mismatches)})
}

func (s *Server) handleRecordReopen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	schema, mismatches, err := s.contracts.ReopenForEdit(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(fieldsResult{Fields: schema, Warnings: documentWarnings(mismatches)})
}

func (s *Server) handleRecordTransition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := contract.ParseStatus(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := s.contracts.Transition(ctx, id, to)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(recordResult{Record: rec, Next: rec.Status.Next()})
}

func (s *Server) handleRecordDownload(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sink, err := s.sinkFor(stringArgument(request.GetArguments(), "target"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	loc, err := s.contracts.Download(ctx, id, sink)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(loc)
}

func (s *Server) handleRecordPrint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.printer == nil {
		return mcp.NewToolResultError("no printer is configured"), nil
	}

	if err := s.contracts.Print(ctx, id, s.printer); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Contract %s sent to the printer", id)), nil
}

func (s *Server) handleRecordExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	filter, err := filterArgument(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sink, err := s.sinkFor(stringArgument(args, "target"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	locations, err := s.contracts.ExportAll(ctx, filter, sink)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"count": len(locations), "documents": locations})
}

func (s *Server) handleServerInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := s.contracts.List(ctx, contract.Filter{})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	counts := make(map[contract.Status]int)
	for _, r := range records {
		counts[r.Status]++
	}

	type toolInfo struct {
		Name    string `json:"name"`
		Summary string `json:"summary"`
	}
	var tools []toolInfo
	for _, name := range descriptions.GetAllToolNames() {
		summary, _, _ := strings.Cut(descriptions.GetToolDescription(name), "\n")
		tools = append(tools, toolInfo{Name: name, Summary: summary})
	}

	storage := ""
	if s.config.Storage.Enabled() {
		storage = s.config.Storage.Endpoint + "/" + s.config.Storage.Bucket
	}

	return jsonResult(map[string]any{
		"server":          s.config.ServerName,
		"version":         s.config.Version,
		"mode":            s.config.Mode,
		"office":          s.config.OfficeID,
		"outputDirectory": s.files.Dir(),
		"objectStorage":   storage,
		"printCommand":    s.config.PrintCommand,
		"contracts":       len(records),
		"byStatus":        counts,
		"tools":           tools,
	})
}

// Argument helpers

// documentArgument reads the document from either a base64 argument or a
// file in the output directory.
func (s *Server) documentArgument(ctx context.Context, args map[string]any) ([]byte, error) {
	encoded := stringArgument(args, "document")
	name := stringArgument(args, "name")
	switch {
	case encoded != "" && name != "":
		return nil, fmt.Errorf("pass either document or name, not both")
	case name != "":
		return s.files.Load(ctx, name, s.config.MaxDocumentSize)
	case encoded == "":
		return nil, fmt.Errorf("document or name is required")
	}

	if limit := s.config.MaxDocumentSize; limit > 0 &&
		int64(base64.StdEncoding.DecodedLen(len(encoded))) > limit+2 {
		return nil, fmt.Errorf("document exceeds the %d byte limit", limit)
	}
	doc, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("document is not valid base64: %w", err)
	}
	if limit := s.config.MaxDocumentSize; limit > 0 && int64(len(doc)) > limit {
		return nil, fmt.Errorf("document exceeds the %d byte limit", limit)
	}
	return doc, nil
}

func (s *Server) sinkFor(target string) (delivery.Sink, error) {
	switch target {
	case "", targetFile:
		return s.files, nil
	case targetObject:
		if s.objects == nil {
			return nil, errNoObjectStorage
		}
		return s.objects, nil
	default:
		return nil, fmt.Errorf("unknown target %q: use %s or %s", target, targetFile, targetObject)
	}
}

// fieldsArgument accepts the fields either as an object or as a JSON
// encoded object. Every value must be a string.
func fieldsArgument(args map[string]any) (map[string]string, error) {
	switch v := args["fields"].(type) {
	case map[string]any:
		out := make(map[string]string, len(v))
		for key, value := range v {
			str, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("field %s must be a string, got %T", key, value)
			}
			out[key] = str
		}
		return out, nil
	case string:
		var out map[string]string
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("fields must be a JSON object of strings: %w", err)
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("fields is required")
	default:
		return nil, fmt.Errorf("fields must be an object, got %T", v)
	}
}

func filterArgument(args map[string]any) (contract.Filter, error) {
	f := contract.Filter{
		OfficeID: stringArgument(args, "office"),
		Query:    stringArgument(args, "query"),
	}
	if raw := stringArgument(args, "status"); raw != "" {
		st, err := contract.ParseStatus(raw)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	if n, ok := args["limit"].(float64); ok {
		if n < 0 {
			return f, fmt.Errorf("limit cannot be negative")
		}
		f.Limit = int(n)
	}
	return f, nil
}

func stringArgument(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func boolArgument(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func schemaWarnings(ms []fields.Mismatch) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.String())
	}
	return out
}

func documentWarnings(ms []document.FieldMismatch) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.String())
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
