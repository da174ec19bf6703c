// Package mcp exposes the validation engine over the Model Context
// Protocol so agent tooling can validate model output, list known
// schemas, and read stored pass rates.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"proctor/internal/logging"
	"proctor/internal/schema"
	"proctor/internal/store"
	"proctor/internal/validate"
)

// Server wraps the MCP SDK server around an engine and an optional
// result store.
type Server struct {
	MCPServer *sdkmcp.Server

	engine *validate.Engine
	reg    *schema.Registry
	st     store.Store // nil disables pass_rates
	log    *slog.Logger
}

// NewServer creates an MCP server with validation tools. st may be nil
// when no result store is configured.
func NewServer(eng *validate.Engine, reg *schema.Registry, st store.Store) *Server {
	s := &Server{
		engine: eng,
		reg:    reg,
		st:     st,
		log:    logging.New("mcp"),
	}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "proctor", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "validate_output",
		Description: "Validate raw model output against a named schema. Applies salvage heuristics and returns the verdict plus the normalized object.",
	}, s.handleValidateOutput)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_schemas",
		Description: "List the schema names known to the validation engine.",
	}, s.handleListSchemas)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "pass_rates",
		Description: "Per-schema pass/salvage/fail counts from stored runs. Optionally scoped to one run ID.",
	}, s.handlePassRates)
}

// --- Tool input/output types ---

type validateOutputInput struct {
	Schema string `json:"schema" jsonschema:"schema name (e.g. interview_chat, scoring)"`
	Output string `json:"output" jsonschema:"raw model output; prose-wrapped or fenced JSON is extracted"`
}

type validateOutputOutput struct {
	OK             bool     `json:"ok"`
	ErrorKind      string   `json:"error_kind,omitempty"`
	Detail         string   `json:"detail,omitempty"`
	SalvagedFields []string `json:"salvaged_fields,omitempty"`
}

type listSchemasInput struct{}

type listSchemasOutput struct {
	Schemas []string `json:"schemas"`
}

type passRatesInput struct {
	RunID string `json:"run_id,omitempty" jsonschema:"scope to one run; empty covers all stored runs"`
}

type passRateRow struct {
	Schema    string `json:"schema"`
	Total     int    `json:"total"`
	CleanPass int    `json:"clean_pass"`
	Salvaged  int    `json:"salvaged"`
	Failed    int    `json:"failed"`
}

type passRatesOutput struct {
	Rates []passRateRow `json:"rates"`
}

// --- Tool handlers ---

func (s *Server) handleValidateOutput(_ context.Context, _ *sdkmcp.CallToolRequest, input validateOutputInput) (*sdkmcp.CallToolResult, validateOutputOutput, error) {
	if strings.TrimSpace(input.Output) == "" {
		return nil, validateOutputOutput{}, fmt.Errorf("output is required")
	}

	candidate := input.Output
	if extracted, ok := validate.ExtractEmbedded(input.Output); ok {
		candidate = extracted
	}
	v := s.engine.Validate(validate.Context{Schema: input.Schema}, candidate)
	s.log.Debug("validate_output", "schema", input.Schema, "ok", v.OK, "kind", v.ErrorKind)

	return nil, validateOutputOutput{
		OK:             v.OK,
		ErrorKind:      string(v.ErrorKind),
		Detail:         v.Detail,
		SalvagedFields: v.SalvagedFields,
	}, nil
}

func (s *Server) handleListSchemas(_ context.Context, _ *sdkmcp.CallToolRequest, _ listSchemasInput) (*sdkmcp.CallToolResult, listSchemasOutput, error) {
	return nil, listSchemasOutput{Schemas: s.reg.Names()}, nil
}

func (s *Server) handlePassRates(_ context.Context, _ *sdkmcp.CallToolRequest, input passRatesInput) (*sdkmcp.CallToolResult, passRatesOutput, error) {
	if s.st == nil {
		return nil, passRatesOutput{}, fmt.Errorf("no result store configured")
	}
	rates, err := s.st.PassRates(input.RunID)
	if err != nil {
		return nil, passRatesOutput{}, fmt.Errorf("pass_rates: %w", err)
	}
	out := passRatesOutput{Rates: make([]passRateRow, 0, len(rates))}
	for _, r := range rates {
		out.Rates = append(out.Rates, passRateRow{
			Schema:    r.Schema,
			Total:     r.Total,
			CleanPass: r.CleanPass,
			Salvaged:  r.Salvaged,
			Failed:    r.Failed,
		})
	}
	return nil, out, nil
}
