package app

import (
    "context"
    "errors"
    "testing"
    "time"

    "go.uber.org/goleak"

    "github.com/jaminalder/ttt-engine/internal/domain"
    "github.com/jaminalder/ttt-engine/internal/stats"
)

// firstRand always picks the first remaining cell.
type firstRand struct{}

func (firstRand) IntN(int) int { return 0 }

func newTestService(opts ...Option) *Service {
    return NewService(append([]Option{WithRand(firstRand{})}, opts...)...)
}

func TestCreateAndGet(t *testing.T) {
    s := newTestService()
    gs, err := s.CreateGame(Options{})
    if err != nil {
        t.Fatalf("CreateGame error: %v", err)
    }
    if gs.ID == "" {
        t.Fatalf("expected non-empty game ID")
    }
    if gs.Mode != ModeAI || gs.HumanSide != domain.X {
        t.Fatalf("expected AI mode with human X, got %v/%v", gs.Mode, gs.HumanSide)
    }
    if gs.Game.Turn != domain.X || gs.Game.Moves() != 0 {
        t.Fatalf("expected fresh board with X to move")
    }
    if gs.Created.IsZero() || gs.Updated.IsZero() {
        t.Fatalf("expected timestamps to be set")
    }
    got, ok := s.Get(gs.ID)
    if !ok || got.ID != gs.ID {
        t.Fatalf("Get should find created game")
    }
    if _, ok := s.Get("nope"); ok {
        t.Fatalf("Get should miss unknown id")
    }
}

func TestCreateRejectsBadOptions(t *testing.T) {
    s := newTestService()
    if _, err := s.CreateGame(Options{Mode: "solo"}); !errors.Is(err, ErrBadOptions) {
        t.Fatalf("expected ErrBadOptions, got %v", err)
    }
    if _, err := s.CreateGame(Options{HumanSide: domain.Cell(7)}); !errors.Is(err, ErrBadOptions) {
        t.Fatalf("expected ErrBadOptions for side, got %v", err)
    }
}

func TestCreateWithHumanAsOLetsOpponentOpen(t *testing.T) {
    s := newTestService()
    gs, err := s.CreateGame(Options{HumanSide: domain.O})
    if err != nil {
        t.Fatal(err)
    }
    if gs.Game.Board[4] != domain.X || gs.Game.Turn != domain.O {
        t.Fatalf("expected opponent to open in the center, board=%v turn=%v", gs.Game.Board, gs.Game.Turn)
    }
}

func TestMoveAppliesOpponentReply(t *testing.T) {
    s := newTestService()
    gs, _ := s.CreateGame(Options{})
    st, err := s.Move(context.Background(), gs.ID, "p1", 0)
    if err != nil {
        t.Fatalf("move: %v", err)
    }
    if st.Game.Board[0] != domain.X || st.Game.Board[4] != domain.O {
        t.Fatalf("expected X at 0 and opponent at center, got %v", st.Game.Board)
    }
    if st.Game.Turn != domain.X {
        t.Fatalf("expected turn back to X, got %v", st.Game.Turn)
    }
    if st.X != "p1" {
        t.Fatalf("first mover should claim the human seat, got %q", st.X)
    }
    // A second player cannot take over the seat.
    if _, err := s.Move(context.Background(), gs.ID, "p2", 1); !errors.Is(err, ErrNotAPlayer) {
        t.Fatalf("expected ErrNotAPlayer, got %v", err)
    }
}

func TestMoveOpponentBlocksAndWins(t *testing.T) {
    s := newTestService()
    gs, _ := s.CreateGame(Options{})
    ctx := context.Background()
    st, _ := s.Move(ctx, gs.ID, "p1", 0)
    st, _ = s.Move(ctx, gs.ID, "p1", 1)
    if st.Game.Board[2] != domain.O {
        t.Fatalf("expected block at 2, got %v", st.Game.Board)
    }
    // O now has 2 and 4 and threatens 6.
    st, err := s.Move(ctx, gs.ID, "p1", 8)
    if err != nil {
        t.Fatal(err)
    }
    if st.Game.Board[6] != domain.O || st.Game.Outcome().Kind != domain.Win || st.Game.Winner() != domain.O {
        t.Fatalf("expected opponent to win on the anti-diagonal, got %v %+v", st.Game.Board, st.Game.Outcome())
    }
    if _, err := s.Move(ctx, gs.ID, "p1", 3); !errors.Is(err, domain.ErrGameOver) {
        t.Fatalf("expected ErrGameOver, got %v", err)
    }
}

func TestMoveErrorsLeaveSessionUnchanged(t *testing.T) {
    s := newTestService()
    gs, _ := s.CreateGame(Options{})
    ctx := context.Background()
    if _, err := s.Move(ctx, "missing", "p1", 0); !errors.Is(err, ErrNotFound) {
        t.Fatalf("expected ErrNotFound, got %v", err)
    }
    if _, err := s.Move(ctx, gs.ID, "p1", 9); !errors.Is(err, domain.ErrIllegalMove) {
        t.Fatalf("expected illegal move, got %v", err)
    }
    after, _ := s.Get(gs.ID)
    if after.X != "" || after.Game != gs.Game {
        t.Fatalf("rejected move changed session: %+v", after)
    }
    s.Move(ctx, gs.ID, "p1", 0)
    if _, err := s.Move(ctx, gs.ID, "p1", 4); !errors.Is(err, domain.ErrOccupied) {
        t.Fatalf("expected ErrOccupied, got %v", err)
    }
}

func TestJoinSeatsAndRejoin(t *testing.T) {
    s := newTestService()
    gs, _ := s.CreateGame(Options{Mode: ModeHuman})
    p1, p2, p3 := "p1", "p2", "p3"

    side, _, err := s.Join(gs.ID, p1)
    if err != nil || side != domain.X {
        t.Fatalf("p1 should claim X, got %v, err=%v", side, err)
    }
    side, _, err = s.Join(gs.ID, p2)
    if err != nil || side != domain.O {
        t.Fatalf("p2 should claim O, got %v, err=%v", side, err)
    }
    side, _, err = s.Join(gs.ID, p1)
    if err != nil || side != domain.X {
        t.Fatalf("p1 rejoin should keep X, got %v, err=%v", side, err)
    }
    side, _, err = s.Join(gs.ID, p3)
    if err != nil || side != domain.Empty {
        t.Fatalf("p3 should spectate (Empty), got %v, err=%v", side, err)
    }
    if _, _, err := s.Join("missing", p1); !errors.Is(err, ErrNotFound) {
        t.Fatalf("expected ErrNotFound, got %v", err)
    }
}

func TestJoinAIModeOnlyHumanSeat(t *testing.T) {
    s := newTestService()
    gs, _ := s.CreateGame(Options{HumanSide: domain.O})
    side, _, _ := s.Join(gs.ID, "p1")
    if side != domain.O {
        t.Fatalf("expected p1 to take O, got %v", side)
    }
    side, _, _ = s.Join(gs.ID, "p2")
    if side != domain.Empty {
        t.Fatalf("expected p2 to spectate, got %v", side)
    }
}

func TestPlayEnforcesTurnAndSpectatorBlocked(t *testing.T) {
    s := newTestService()
    ctx := context.Background()
    gs, _ := s.CreateGame(Options{Mode: ModeHuman})
    p1, p2, p3 := "p1", "p2", "p3"
    s.Join(gs.ID, p1) // X
    s.Join(gs.ID, p2) // O
    s.Join(gs.ID, p3) // spectator

    // O cannot play first
    if _, err := s.Play(ctx, gs.ID, p2, 0, 0); !errors.Is(err, ErrNotYourTurn) {
        t.Fatalf("expected ErrNotYourTurn, got %v", err)
    }
    // spectator cannot play
    if _, err := s.Play(ctx, gs.ID, p3, 0, 0); !errors.Is(err, ErrNotAPlayer) {
        t.Fatalf("expected ErrNotAPlayer, got %v", err)
    }
    // X plays
    st, err := s.Play(ctx, gs.ID, p1, 0, 0)
    if err != nil {
        t.Fatalf("X play failed: %v", err)
    }
    if st.Game.Board[0] != domain.X || st.Game.Turn != domain.O || st.Game.Moves() != 1 {
        t.Fatalf("unexpected state after X move: turn=%v moves=%d cell0=%v", st.Game.Turn, st.Game.Moves(), st.Game.Board[0])
    }
    // X cannot play again
    if _, err := s.Play(ctx, gs.ID, p1, 1, 1); !errors.Is(err, ErrNotYourTurn) {
        t.Fatalf("expected ErrNotYourTurn for X again, got %v", err)
    }
    if _, err := s.Play(ctx, gs.ID, p2, 0, 3); !errors.Is(err, domain.ErrOutOfBounds) {
        t.Fatalf("expected ErrOutOfBounds, got %v", err)
    }
}

func TestFinishedRoundsAreRecordedOnce(t *testing.T) {
    rec := stats.NewMemory()
    s := newTestService(WithRecorder(rec))
    ctx := context.Background()
    gs, _ := s.CreateGame(Options{Mode: ModeHuman})
    s.Join(gs.ID, "a")
    s.Join(gs.ID, "b")
    for i, m := range []struct {
        p    string
        cell int
    }{{"a", 0}, {"b", 3}, {"a", 1}, {"b", 4}, {"a", 2}} {
        if _, err := s.Move(ctx, gs.ID, m.p, m.cell); err != nil {
            t.Fatalf("move %d: %v", i, err)
        }
    }
    // rejected moves after the end must not be counted again
    s.Move(ctx, gs.ID, "b", 5)

    tot, _ := rec.Totals(ctx)
    if tot.Games != 1 || tot.XWins != 1 || tot.AIWins != 0 {
        t.Fatalf("unexpected totals %+v", tot)
    }

    if _, err := s.Reset(gs.ID, "stranger"); !errors.Is(err, ErrNotAPlayer) {
        t.Fatalf("expected ErrNotAPlayer for a stranger, got %v", err)
    }
    st, err := s.Reset(gs.ID, "b")
    if err != nil {
        t.Fatal(err)
    }
    if st.Round != 2 || st.Game.Moves() != 0 || st.X != "a" || st.O != "b" {
        t.Fatalf("reset should clear the board and keep seats: %+v", st)
    }
}

func TestResetUnknown(t *testing.T) {
    s := newTestService()
    if _, err := s.Reset("missing", "a"); !errors.Is(err, ErrNotFound) {
        t.Fatalf("expected ErrNotFound, got %v", err)
    }
}

func TestResetSeatRulesInAIMode(t *testing.T) {
    s := newTestService()
    gs, _ := s.CreateGame(Options{})
    ctx := context.Background()
    if _, err := s.Move(ctx, gs.ID, "", 0); err != nil {
        t.Fatal(err)
    }
    // anonymous play leaves the human seat open, so anyone may reset
    if _, err := s.Reset(gs.ID, ""); err != nil {
        t.Fatalf("reset with open seat: %v", err)
    }
    if _, err := s.Move(ctx, gs.ID, "a", 0); err != nil {
        t.Fatal(err)
    }
    for _, pid := range []string{"", "stranger", AIPlayer} {
        if _, err := s.Reset(gs.ID, pid); !errors.Is(err, ErrNotAPlayer) {
            t.Fatalf("reset by %q: expected ErrNotAPlayer, got %v", pid, err)
        }
    }
    st, err := s.Reset(gs.ID, "a")
    if err != nil {
        t.Fatal(err)
    }
    if st.Round != 3 || st.Game.Moves() != 0 {
        t.Fatalf("expected fresh third round, got %+v", st)
    }
}

func TestSubscribeAndBroadcast(t *testing.T) {
    defer goleak.VerifyNone(t)
    s := newTestService()
    gs, _ := s.CreateGame(Options{Mode: ModeHuman})
    p1, p2 := "p1", "p2"
    s.Join(gs.ID, p1)
    s.Join(gs.ID, p2)

    ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
    defer cancel()
    ch, unsub, err := s.Subscribe(ctx, gs.ID)
    if err != nil {
        t.Fatal(err)
    }
    defer unsub()

    // Trigger an update: X plays
    if _, err := s.Move(ctx, gs.ID, p1, 0); err != nil {
        t.Fatalf("play failed: %v", err)
    }

    select {
    case snap, ok := <-ch:
        if !ok {
            t.Fatalf("channel closed unexpectedly")
        }
        if snap.Game.Moves() != 1 || snap.Game.Board[0] != domain.X {
            t.Fatalf("unexpected broadcast snapshot: %+v", snap.Game)
        }
    case <-ctx.Done():
        t.Fatalf("timed out waiting for broadcast")
    }
}

func TestSubscribeUnknownGame(t *testing.T) {
    s := newTestService()
    if _, _, err := s.Subscribe(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
        t.Fatalf("expected ErrNotFound, got %v", err)
    }
}

func TestDropSlowSubscriber(t *testing.T) {
    defer goleak.VerifyNone(t)
    s := newTestService()
    gs, _ := s.CreateGame(Options{Mode: ModeHuman})
    p1, p2 := "p1", "p2"
    s.Join(gs.ID, p1)
    s.Join(gs.ID, p2)

    // Slow subscriber: never read
    ctxSlow, cancelSlow := context.WithCancel(context.Background())
    defer cancelSlow()
    slowCh, _, _ := s.Subscribe(ctxSlow, gs.ID)

    // Fast subscriber: will read
    ctxFast, cancelFast := context.WithTimeout(context.Background(), time.Second*2)
    defer cancelFast()
    fastCh, unsubFast, _ := s.Subscribe(ctxFast, gs.ID)
    defer unsubFast()

    ctx := context.Background()
    if _, err := s.Move(ctx, gs.ID, p1, 0); err != nil {
        t.Fatalf("play1: %v", err)
    }
    <-fastCh
    if _, err := s.Move(ctx, gs.ID, p2, 4); err != nil {
        t.Fatalf("play2: %v", err)
    }
    select {
    case <-fastCh:
    case <-ctxFast.Done():
        t.Fatalf("fast subscriber did not receive updates in time")
    }

    // Slow subscriber was dropped on the second update: its buffered snapshot
    // is still readable, then the channel is closed.
    <-slowCh
    if _, ok := <-slowCh; ok {
        t.Fatalf("expected slow subscriber channel to be closed")
    }
}

func TestPruneDropsIdleGames(t *testing.T) {
    defer goleak.VerifyNone(t)
    now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
    clock := func() time.Time { return now }
    s := newTestService(WithClock(clock))

    old, _ := s.CreateGame(Options{})
    ch, unsub, _ := s.Subscribe(context.Background(), old.ID)
    defer unsub()

    now = now.Add(time.Hour)
    fresh, _ := s.CreateGame(Options{})

    if n := s.Prune(now.Add(-30 * time.Minute)); n != 1 {
        t.Fatalf("expected 1 pruned game, got %d", n)
    }
    if _, ok := s.Get(old.ID); ok {
        t.Fatalf("old game should be gone")
    }
    if _, ok := s.Get(fresh.ID); !ok {
        t.Fatalf("fresh game should survive")
    }
    if _, ok := <-ch; ok {
        t.Fatalf("subscriber of pruned game should be closed")
    }
    if s.Len() != 1 {
        t.Fatalf("expected 1 live game, got %d", s.Len())
    }
}

func TestRunPrunerStopsOnCancel(t *testing.T) {
    defer goleak.VerifyNone(t)
    s := newTestService()
    ctx, cancel := context.WithCancel(context.Background())
    done := make(chan struct{})
    go func() {
        s.RunPruner(ctx, time.Millisecond, time.Hour)
        close(done)
    }()
    time.Sleep(5 * time.Millisecond)
    cancel()
    select {
    case <-done:
    case <-time.After(time.Second):
        t.Fatalf("pruner did not stop")
    }
}
