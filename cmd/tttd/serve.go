package main

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/spf13/cobra"

    "github.com/jaminalder/ttt-engine/internal/app"
    "github.com/jaminalder/ttt-engine/internal/logging"
    "github.com/jaminalder/ttt-engine/internal/web"
)

func serveCmd() *cobra.Command {
    var addr string
    cmd := &cobra.Command{
        Use:   "serve",
        Short: "Run the HTTP server",
        RunE: func(cmd *cobra.Command, args []string) error {
            cfg, err := loadConfig()
            if err != nil {
                return err
            }
            if addr != "" {
                cfg.Addr = addr
            }
            log := logging.New(cfg.LogLevel, cfg.LogPretty, os.Stderr)

            ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
            defer stop()

            rec, err := openRecorder(ctx, cfg)
            if err != nil {
                return err
            }
            defer rec.Close()

            svc := app.NewService(
                app.WithRecorder(rec),
                app.WithLogger(log),
                app.WithRand(newRand(cfg.Seed)),
            )
            go svc.RunPruner(ctx, cfg.PruneInterval, cfg.GameTTL)

            srv := &http.Server{
                Addr: cfg.Addr,
                Handler: web.NewServer(svc,
                    web.WithLogger(log),
                    web.WithHeartbeat(cfg.HeartbeatInterval),
                    web.WithRequestTimeout(cfg.RequestTimeout),
                ),
                ReadHeaderTimeout: 5 * time.Second,
            }
            errCh := make(chan error, 1)
            go func() { errCh <- srv.ListenAndServe() }()
            log.Info().Str("addr", cfg.Addr).Str("stats_db", cfg.StatsDB).Msg("starting server")

            select {
            case err := <-errCh:
                if !errors.Is(err, http.ErrServerClosed) {
                    return err
                }
                return nil
            case <-ctx.Done():
            }
            log.Info().Msg("shutting down")
            shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
            defer cancel()
            return srv.Shutdown(shutdownCtx)
        },
    }
    cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
    return cmd
}
