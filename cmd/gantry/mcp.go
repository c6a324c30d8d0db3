package main

import (
	"github.com/aretw0/gantry"
	"github.com/aretw0/gantry/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Resumes the run and exposes it as MCP tools on Standard Input/Output, so an
agent can poll for ready slots and report its progress directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sess, err := a.resume(cmd)
			if err != nil {
				return err
			}
			a.logger.Info("starting MCP server (stdio)", "pipeline", sess.State().PipelineID)
			return mcp.NewServer(sess, gantry.Version).ServeStdio()
		},
	}
	addRunFlags(cmd)
	return cmd
}
