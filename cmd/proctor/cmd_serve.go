package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"proctor/internal/eval"
	"proctor/internal/logging"
	mcpserver "proctor/internal/mcp"
	"proctor/internal/store"
)

var serveFlags struct {
	schemaDir string
	dbPath    string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing validate_output,
list_schemas, and pass_rates to agent tooling.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.schemaDir, "schemas", "", "Directory of schema JSON files overriding the builtins")
	f.StringVar(&serveFlags.dbPath, "db", "", "Result store DB path for pass_rates (empty = disabled)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	reg, eng, err := buildEngine(serveFlags.schemaDir, eval.DefaultConfig())
	if err != nil {
		return err
	}

	var st store.Store
	if serveFlags.dbPath != "" {
		if _, statErr := os.Stat(serveFlags.dbPath); statErr == nil {
			sq, err := store.Open(serveFlags.dbPath)
			if err != nil {
				return err
			}
			defer sq.Close()
			st = sq
		}
	}

	srv := mcpserver.NewServer(eng, reg, st)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	logging.New("mcp").Info("starting proctor MCP server over stdio")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
