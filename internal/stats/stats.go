// Package stats keeps outcome tallies for finished rounds. The session service
// receives a Recorder at construction time; the engine never sees it.
package stats

import (
    "context"
    "errors"
    "sync"
    "time"

    "github.com/jaminalder/ttt-engine/internal/domain"
)

// ErrNotFinished is returned when recording a round that is still in progress.
var ErrNotFinished = errors.New("round not finished")

// Result describes one finished round.
type Result struct {
    GameID   string
    Round    int
    Mode     string
    Outcome  domain.Outcome
    AISide   domain.Cell // Empty when both seats are human
    Moves    int
    Finished time.Time
}

// AIWon reports whether the automated opponent took the round.
func (r Result) AIWon() bool {
    return r.AISide != domain.Empty && r.Outcome.Kind == domain.Win && r.Outcome.Winner == r.AISide
}

// HumanWon reports whether a human beat the automated opponent.
func (r Result) HumanWon() bool {
    return r.AISide != domain.Empty && r.Outcome.Kind == domain.Win && r.Outcome.Winner != r.AISide
}

// Totals aggregates every recorded round.
type Totals struct {
    Games     int `json:"games"`
    XWins     int `json:"xWins"`
    OWins     int `json:"oWins"`
    Draws     int `json:"draws"`
    AIWins    int `json:"aiWins"`
    HumanWins int `json:"humanWins"`
}

func (t *Totals) add(r Result) {
    t.Games++
    switch {
    case r.Outcome.Kind == domain.Draw:
        t.Draws++
    case r.Outcome.Winner == domain.X:
        t.XWins++
    case r.Outcome.Winner == domain.O:
        t.OWins++
    }
    if r.AIWon() {
        t.AIWins++
    }
    if r.HumanWon() {
        t.HumanWins++
    }
}

// Recorder persists round results. Recording the same GameID and Round twice
// counts once.
type Recorder interface {
    Record(ctx context.Context, r Result) error
    Totals(ctx context.Context) (Totals, error)
    Close() error
}

type roundKey struct {
    id    string
    round int
}

// Memory is an in-process Recorder.
type Memory struct {
    mu     sync.Mutex
    seen   map[roundKey]struct{}
    totals Totals
}

// NewMemory returns an empty in-memory Recorder.
func NewMemory() *Memory {
    return &Memory{seen: make(map[roundKey]struct{})}
}

func (m *Memory) Record(ctx context.Context, r Result) error {
    if r.Outcome.Kind == domain.InProgress {
        return ErrNotFinished
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    k := roundKey{r.GameID, r.Round}
    if _, ok := m.seen[k]; ok {
        return nil
    }
    m.seen[k] = struct{}{}
    m.totals.add(r)
    return nil
}

func (m *Memory) Totals(ctx context.Context) (Totals, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.totals, nil
}

func (m *Memory) Close() error { return nil }

