package main

import (
    "context"
    "fmt"
    "math/rand/v2"
    "os"

    "github.com/spf13/cobra"

    "github.com/jaminalder/ttt-engine/internal/config"
    "github.com/jaminalder/ttt-engine/internal/stats"
)

var (
    configPath string
    dotenvPath string
)

func main() {
    root := &cobra.Command{
        Use:           "tttd",
        Short:         "Tic-tac-toe engine, server and terminal player",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
    root.PersistentFlags().StringVar(&dotenvPath, "env-file", ".env", "dotenv file loaded before environment overrides")
    root.AddCommand(serveCmd(), playCmd(), statsCmd())

    if err := root.Execute(); err != nil {
        fmt.Fprintln(os.Stderr, "error:", err)
        os.Exit(1)
    }
}

func loadConfig() (config.Config, error) {
    return config.Load(configPath, dotenvPath)
}

// openRecorder returns a SQLite recorder when a path is configured, else an
// in-memory one.
func openRecorder(ctx context.Context, cfg config.Config) (stats.Recorder, error) {
    if cfg.StatsDB == "" {
        return stats.NewMemory(), nil
    }
    return stats.OpenSQLite(ctx, cfg.StatsDB)
}

// newRand seeds the opponent's fallback picks. Zero seeds from the runtime.
func newRand(seed uint64) *rand.Rand {
    if seed == 0 {
        seed = rand.Uint64()
    }
    return rand.New(rand.NewPCG(seed, seed>>1|1))
}
