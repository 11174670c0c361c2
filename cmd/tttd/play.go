package main

import (
    "bufio"
    "errors"
    "fmt"
    "io"
    "strconv"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/spf13/cobra"

    "github.com/jaminalder/ttt-engine/internal/domain"
    "github.com/jaminalder/ttt-engine/internal/stats"
)

func playCmd() *cobra.Command {
    var side string
    var seed uint64
    cmd := &cobra.Command{
        Use:   "play",
        Short: "Play against the computer in the terminal",
        RunE: func(cmd *cobra.Command, args []string) error {
            human, err := domain.ParseCell(side)
            if err != nil {
                return err
            }
            cfg, err := loadConfig()
            if err != nil {
                return err
            }
            if seed == 0 {
                seed = cfg.Seed
            }
            g, err := runPlay(cmd.InOrStdin(), cmd.OutOrStdout(), human, newRand(seed))
            if errors.Is(err, errQuit) {
                return nil
            }
            if err != nil {
                return err
            }
            rec, err := openRecorder(cmd.Context(), cfg)
            if err != nil {
                return err
            }
            defer rec.Close()
            res := stats.Result{
                GameID:   uuid.NewString(),
                Round:    1,
                Mode:     "ai",
                Outcome:  g.Outcome(),
                AISide:   human.Other(),
                Moves:    g.Moves(),
                Finished: time.Now(),
            }
            if err := rec.Record(cmd.Context(), res); err != nil {
                fmt.Fprintln(cmd.ErrOrStderr(), "warning: result not saved:", err)
            }
            return nil
        },
    }
    cmd.Flags().StringVar(&side, "side", "X", "your mark (X moves first)")
    cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for the computer's random picks")
    return cmd
}

var errQuit = errors.New("quit")

// runPlay drives one game on in/out. Cells are entered as 1-9, row by row.
func runPlay(in io.Reader, out io.Writer, human domain.Cell, rng domain.Rand) (domain.Game, error) {
    ai := human.Other()
    g := domain.New()
    sc := bufio.NewScanner(in)
    for !g.Over() {
        if g.Turn == ai {
            cell, err := domain.ChooseMove(g.Board, ai, human, rng)
            if err != nil {
                return g, err
            }
            if g, err = domain.ApplyMove(g, cell, ai); err != nil {
                return g, err
            }
            fmt.Fprintf(out, "computer plays %d\n", cell+1)
            continue
        }
        printBoard(out, g.Board)
        fmt.Fprintf(out, "%s> ", human)
        if !sc.Scan() {
            if err := sc.Err(); err != nil {
                return g, err
            }
            return g, errQuit
        }
        text := strings.TrimSpace(sc.Text())
        if text == "q" {
            return g, errQuit
        }
        n, err := strconv.Atoi(text)
        if err != nil {
            fmt.Fprintln(out, "enter a cell 1-9, or q to quit")
            continue
        }
        next, err := domain.ApplyMove(g, n-1, human)
        if err != nil {
            fmt.Fprintln(out, err)
            continue
        }
        g = next
    }
    printBoard(out, g.Board)
    res := g.Outcome()
    switch {
    case res.Kind == domain.Draw:
        fmt.Fprintln(out, "draw")
    case res.Winner == human:
        fmt.Fprintln(out, "you win")
    default:
        fmt.Fprintln(out, "computer wins")
    }
    return g, nil
}

func printBoard(w io.Writer, b domain.Board) {
    for r := 0; r < 3; r++ {
        cells := make([]string, 3)
        for c := 0; c < 3; c++ {
            i := r*3 + c
            if b[i] == domain.Empty {
                cells[c] = strconv.Itoa(i + 1)
            } else {
                cells[c] = b[i].String()
            }
        }
        fmt.Fprintf(w, " %s\n", strings.Join(cells, " | "))
    }
}
