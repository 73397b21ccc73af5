package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jobsync-engine/internal/events"
	"jobsync-engine/internal/httpapi"
	"jobsync-engine/internal/ingest"
	"jobsync-engine/internal/logger"
	"jobsync-engine/internal/scheduler"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newRunCommand(f *rootFlags) *cobra.Command {
	var printReport bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every enabled source once and sync the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := bootstrap(ctx, f)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, runErr := a.newRunner(nil).RunOnce(ctx, "")
			if printReport {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&printReport, "report", false, "Print the run report as JSON")
	return cmd
}

func newServeCommand(f *rootFlags) *cobra.Command {
	var noSchedule bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the control API and run sources on the polling interval",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := bootstrap(ctx, f)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx = logger.ContextWithLogger(ctx, a.log)

			hub := events.NewHub()
			runner := a.newRunner(hub)

			if !noSchedule {
				go scheduler.Every(ctx, a.cfg.Interval(), "ingest", func(ctx context.Context) error {
					_, err := runner.RunOnce(ctx, "")
					if errors.Is(err, ingest.ErrRunInProgress) {
						return nil
					}
					return err
				})
			}

			var cfgVal atomic.Value
			cfgVal.Store(a.cfg)
			srv := &http.Server{
				Handler: httpapi.NewHandler(httpapi.Deps{
					DB:          a.db,
					Hub:         hub,
					Log:         a.log,
					Runner:      runner,
					CfgVal:      &cfgVal,
					UserCfgPath: a.cfgPath,
					BaseCtx:     ctx,
				}),
				ReadHeaderTimeout: 5 * time.Second,
				// SSE streams end with the process context
				BaseContext: func(net.Listener) context.Context { return ctx },
			}

			ln, err := net.Listen("tcp", a.cfg.Addr())
			if err != nil {
				return err
			}
			a.log.Info("engine listening", "addr", "http://"+ln.Addr().String())

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ln) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			a.log.Info("shutting down")
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			return srv.Shutdown(sctx)
		},
	}
	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "Only run on POST /runs")
	return cmd
}

func newMigrateCommand(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			// bootstrap migrates on open
			a, err := bootstrap(ctx, f)
			if err != nil {
				return err
			}
			defer a.Close()
			a.log.Info("migrations applied")
			return nil
		},
	}
}
