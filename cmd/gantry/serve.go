package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/aretw0/gantry/pkg/adapters/http"
	"github.com/aretw0/gantry/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose a run over HTTP",
		Long: `Resumes the run and serves a JSON API for remote drivers:
GET /status, GET /slots/next, POST /slots/{id}/begin|complete|fail|skip,
POST /audit and GET /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics, err := observability.NewMetrics(reg)
			if err != nil {
				return err
			}

			sess, err := a.resume(cmd, metrics)
			if err != nil {
				return err
			}

			port, _ := cmd.Flags().GetString("port")
			srv := &http.Server{
				Addr:              ":" + port,
				Handler:           httpAdapter.NewHandler(sess, httpAdapter.WithLogger(a.logger), httpAdapter.WithMetrics(reg)),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			serverErrors := make(chan error, 1)
			go func() {
				a.logger.Info("serving run", "addr", srv.Addr, "pipeline", sess.State().PipelineID, "state", sess.StatePath())
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					_ = srv.Close()
					return fmt.Errorf("graceful shutdown did not complete: %w", err)
				}
				a.logger.Info("server stopped")
				return nil
			}
		},
	}
	addRunFlags(cmd)
	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	return cmd
}
