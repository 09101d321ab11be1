package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clipquiz/internal/httpapi"
	"clipquiz/internal/journal"
	"clipquiz/internal/logging"
	"clipquiz/internal/preflight"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bindFlag string
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			bind := strings.TrimSpace(bindFlag)
			if bind == "" {
				bind = cfg.Paths.APIBind
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !skipPreflight {
				if failed := preflight.Failed(preflight.RunAll(runCtx, cfg, preflight.Options{})); len(failed) > 0 {
					for _, r := range failed {
						logging.ErrorWithContext(logger, "preflight check failed", "preflight_failure",
							logging.String("check", r.Name),
							logging.String("detail", r.Detail),
						)
					}
					return fmt.Errorf("preflight: %d check(s) failed; run `clipquiz status` for details", len(failed))
				}
			}

			return ctx.withJournal(func(store *journal.Store) error {
				if n, err := store.MarkAbandoned(runCtx, cfg.JobTimeout(), ""); err != nil {
					logger.Warn("mark abandoned runs failed", logging.Error(err))
				} else if n > 0 {
					logger.Info("marked abandoned runs failed", logging.Int64("runs", n))
				}

				bundle, err := buildPipeline(cfg, logger, store)
				if err != nil {
					return err
				}
				defer bundle.Close()

				if age := cfg.StaleWorkspaceAge(); age > 0 {
					res := bundle.workspaces.CleanStale(runCtx, age)
					if len(res.Removed) > 0 || len(res.Errors) > 0 {
						logger.Info("stale workspaces swept",
							logging.Int("removed", len(res.Removed)),
							logging.Int("errors", len(res.Errors)),
							logging.String(logging.FieldEventType, "workspace_sweep"),
						)
					}
				}

				srv := &http.Server{
					Addr: bind,
					Handler: httpapi.Server{
						Converter: bundle.pipeline,
						Journal:   store,
						Logger:    logger,
					}.Router(),
					ReadHeaderTimeout: 10 * time.Second,
				}

				errCh := make(chan error, 1)
				go func() {
					logger.Info("http api listening", logging.String("bind", bind), logging.String(logging.FieldEventType, "server_start"))
					errCh <- srv.ListenAndServe()
				}()

				select {
				case err := <-errCh:
					if errors.Is(err, http.ErrServerClosed) {
						return nil
					}
					return fmt.Errorf("http api: %w", err)
				case <-runCtx.Done():
				}

				logger.Info("shutting down http api", logging.String(logging.FieldEventType, "server_stop"))
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("http api shutdown: %w", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&bindFlag, "bind", "", "Override the configured bind address")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Start without running preflight checks")
	return cmd
}
