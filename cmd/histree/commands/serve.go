package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histree/pkg/observability"
	"github.com/Sumatoshi-tech/histree/pkg/server"
)

func newServeCommand(global *GlobalOptions) *cobra.Command {
	var (
		addr string
		tz   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve snapshots over HTTP",
		Long: `Load the history once and answer snapshot queries over HTTP.

Routes:
  GET /api/v1/snapshot      tree as of ?at=, in ?format=json|yaml|gob
  GET /api/v1/contributors  contributor totals
  GET /api/v1/periods       commits per ?unit=day|week|month
  GET /api/v1/diff          tree changes between ?from= and ?to=
  GET /api/v1/info          history range and cache statistics
  GET /healthz, /readyz     probes
  GET /metrics              Prometheus scrape endpoint`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := global.open(cmd, observability.ModeServe)
			if err != nil {
				return err
			}
			defer sess.close()

			if cmd.Flags().Changed("addr") {
				sess.cfg.Server.Addr = addr
			}

			loc := time.Local

			if tz != "" {
				loc, err = time.LoadLocation(tz)
				if err != nil {
					return fmt.Errorf("load timezone: %w", err)
				}
			}

			svc, err := sess.service(cmd.Context())
			if err != nil {
				return err
			}

			red, err := observability.NewREDMetrics(sess.providers.Meter)
			if err != nil {
				return fmt.Errorf("red metrics: %w", err)
			}

			srv := server.New(svc, server.Options{
				Addr:           sess.cfg.Server.Addr,
				ReadTimeout:    sess.cfg.Server.ReadTimeout,
				WriteTimeout:   sess.cfg.Server.WriteTimeout,
				Logger:         sess.logger,
				Tracer:         sess.providers.Tracer,
				RED:            red,
				MetricsHandler: sess.providers.MetricsHandler,
				Location:       loc,
			})

			return srv.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, else 127.0.0.1:8080)")
	cmd.Flags().StringVar(&tz, "tz", "", "default IANA time zone for /api/v1/periods")

	return cmd
}
