package main

import (
    "fmt"

    "github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
    return &cobra.Command{
        Use:   "stats",
        Short: "Print outcome tallies from the configured store",
        RunE: func(cmd *cobra.Command, args []string) error {
            cfg, err := loadConfig()
            if err != nil {
                return err
            }
            rec, err := openRecorder(cmd.Context(), cfg)
            if err != nil {
                return err
            }
            defer rec.Close()
            t, err := rec.Totals(cmd.Context())
            if err != nil {
                return err
            }
            out := cmd.OutOrStdout()
            fmt.Fprintf(out, "games:      %d\n", t.Games)
            fmt.Fprintf(out, "x wins:     %d\n", t.XWins)
            fmt.Fprintf(out, "o wins:     %d\n", t.OWins)
            fmt.Fprintf(out, "draws:      %d\n", t.Draws)
            fmt.Fprintf(out, "ai wins:    %d\n", t.AIWins)
            fmt.Fprintf(out, "human wins: %d\n", t.HumanWins)
            return nil
        },
    }
}
