package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/alive/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Alive MCP server (stdio)",
	Long: `Start a Model Context Protocol (MCP) server that exposes your moments, the
public feed, stats, timeline and profile as MCP tools via STDIO.

The --db flag is optional. If not provided, a system-specific default location will be used:
- Windows: %USERPROFILE%\AppData\Roaming\alive\alive.db
- macOS: ~/Library/Application Support/alive/alive.db
- Linux: ~/.local/share/alive/alive.db

Example:
  alive mcp
  alive mcp --db alive.db --tz Europe/Berlin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		opts, err := storeOptions()
		if err != nil {
			return err
		}

		srv, err := mcp.NewAliveMCPServer(mcp.Options{
			DBPath:       cfg.Database.Path,
			WAL:          cfg.Database.WAL,
			Sync:         cfg.Database.Sync,
			Logger:       logger,
			StoreOptions: opts,
		})
		if err != nil {
			return err
		}
		defer srv.Close()

		srv.RegisterTools()

		// Log to stderr so we don't contaminate the JSON-RPC stream on stdout.
		fmt.Fprintf(os.Stderr, "Alive MCP server started. DB: %s (WAL: %t, Sync: %s)\n", srv.DbPath, cfg.Database.WAL, cfg.Database.Sync)
		fmt.Fprintln(os.Stderr, "Available tools: ping, list_moments, list_public_moments, save_moment, update_moment, delete_moment, send_sunshine, search_moments, get_stats, get_timeline, get_profile, save_profile, clear_profile, clear_all")
		fmt.Fprintln(os.Stderr, "Listening for MCP JSON-RPC on STDIN/STDOUT ... (Ctrl+C to quit)")

		return srv.Start()
	},
}
