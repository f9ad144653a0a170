package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
)

func newMCPCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the practice tools over MCP on stdin/stdout",
		Long: `Run a Model Context Protocol server on stdio so an assistant can generate
voice sessions, evaluate spoken answers and search the question banks.
Logs are written to stderr and never interleave with the protocol stream.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Shutdown(context.WithoutCancel(ctx))

			slog.Info("mcp server starting", "questions", a.Catalog().Len(), "version", version)
			return a.MCPServer(version).Run(ctx)
		},
	}
}
