package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histree/pkg/mcp"
	"github.com/Sumatoshi-tech/histree/pkg/observability"
)

func newMCPCommand(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The history is loaded once and exposed through these tools:
  - histree_snapshot: file tree as of an instant, with optional filters
  - histree_contributors: contributors ranked by commits
  - histree_periods: commit counts per day, week or month
  - histree_diff: tree changes between two instants

Logs are written to stderr as JSON so stdout stays reserved for the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := global.open(cmd, observability.ModeMCP)
			if err != nil {
				return err
			}
			defer sess.close()

			svc, err := sess.service(cmd.Context())
			if err != nil {
				return err
			}

			red, err := observability.NewREDMetrics(sess.providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Service: svc,
				Logger:  sess.logger,
				Metrics: red,
				Tracer:  sess.providers.Tracer,
			})

			sess.logger.Info("mcp server starting", "tools", srv.ListToolNames(), "commits", svc.Len())

			return srv.Run(cmd.Context())
		},
	}
}
