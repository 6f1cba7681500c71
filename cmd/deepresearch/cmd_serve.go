package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"deepresearch/internal/logging"
	mcpserver "deepresearch/internal/mcp"
	"deepresearch/internal/research"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing start_research,
get_status, and get_report. An agent client connects over stdio and drives
research runs through tool calls.

The server monitors for parent process death and self-terminates when the
client disconnects, preventing zombie processes.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	factory := func(scenario string) (*research.Runner, error) {
		if scenario == "" {
			return nil, fmt.Errorf("a scenario is required (no live generator configured)")
		}
		gen, searcher, _, err := scenarioCollaborators(scenario)
		if err != nil {
			return nil, err
		}
		deps := research.Deps{
			Generator: gen,
			Searcher:  searcher,
			Logger:    logging.New("mcp-run"),
		}
		if st := openStore(cfg); st != nil {
			deps.Store = st
		}
		return research.NewRunner(runnerOptions(cfg), deps)
	}

	srv := mcpserver.NewServer(factory)
	defer srv.Shutdown()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting deepresearch MCP server over stdio (parent watchdog active)")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
