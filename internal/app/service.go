package app

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"

    "github.com/rs/zerolog"

    "github.com/jaminalder/ttt-engine/internal/domain"
    "github.com/jaminalder/ttt-engine/internal/stats"
)

// Errors exposed by the service layer.
var (
    ErrNotFound    = errors.New("game not found")
    ErrNotYourTurn = domain.ErrNotYourTurn
    ErrNotAPlayer  = errors.New("not a player")
    ErrBadOptions  = errors.New("invalid game options")
)

// Mode selects who sits in the second seat.
type Mode string

const (
    ModeAI    Mode = "ai"
    ModeHuman Mode = "human"
)

// Options configure a new game.
type Options struct {
    Mode      Mode
    HumanSide domain.Cell // AI mode only; defaults to X
}

func (o Options) normalize() (Options, error) {
    switch o.Mode {
    case "":
        o.Mode = ModeAI
    case ModeAI, ModeHuman:
    default:
        return o, fmt.Errorf("%w: mode %q", ErrBadOptions, o.Mode)
    }
    if o.Mode == ModeHuman {
        o.HumanSide = domain.Empty
        return o, nil
    }
    switch o.HumanSide {
    case domain.Empty:
        o.HumanSide = domain.X
    case domain.X, domain.O:
    default:
        return o, fmt.Errorf("%w: side %d", ErrBadOptions, o.HumanSide)
    }
    return o, nil
}

// Session is the in-memory state tracked per game.
type Session struct {
    ID        string
    Mode      Mode
    Game      domain.Game
    X         string
    O         string
    HumanSide domain.Cell
    Round     int
    Created   time.Time
    Updated   time.Time
}

// AISide returns the mark played by the opponent, or Empty in human mode.
func (s Session) AISide() domain.Cell {
    if s.Mode != ModeAI {
        return domain.Empty
    }
    return s.HumanSide.Other()
}

func (s *Session) seat(playerID string) domain.Cell {
    switch {
    case s.X != "" && s.X == playerID:
        return domain.X
    case s.O != "" && s.O == playerID:
        return domain.O
    }
    return domain.Empty
}

func (s *Session) claim(side domain.Cell, playerID string) {
    if side == domain.X {
        s.X = playerID
    } else {
        s.O = playerID
    }
}

func (s *Session) holder(side domain.Cell) string {
    if side == domain.X {
        return s.X
    }
    return s.O
}

func (s *Session) mayReset(playerID string) bool {
    if s.Mode == ModeAI {
        return s.holder(s.HumanSide) == "" || s.seat(playerID) == s.HumanSide
    }
    return s.seat(playerID) != domain.Empty
}

type subscriber struct {
    ch        chan Session
    closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Service manages games and subscribers. Every mutation of a session happens
// under mu, so moves on a game are applied one at a time.
type Service struct {
    mu    sync.Mutex
    games map[string]*Session
    subs  map[string]map[*subscriber]struct{}

    rng   domain.Rand
    now   func() time.Time
    stats stats.Recorder
    log   zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithRand sets the randomness used by the opponent's fallback step.
func WithRand(r domain.Rand) Option { return func(s *Service) { s.rng = r } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithRecorder sets where finished rounds are tallied.
func WithRecorder(r stats.Recorder) Option { return func(s *Service) { s.stats = r } }

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

// NewService creates a service. Without options it tallies in memory and logs
// nothing.
func NewService(opts ...Option) *Service {
    s := &Service{
        games: make(map[string]*Session),
        subs:  make(map[string]map[*subscriber]struct{}),
        now:   time.Now,
        stats: stats.NewMemory(),
        log:   zerolog.Nop(),
    }
    for _, o := range opts {
        o(s)
    }
    return s
}

// Stats returns the recorder finished rounds are sent to.
func (s *Service) Stats() stats.Recorder { return s.stats }

// CreateGame creates and registers a new game. When the opponent owns the
// first move it is played immediately.
func (s *Service) CreateGame(opts Options) (*Session, error) {
    opts, err := opts.normalize()
    if err != nil {
        return nil, err
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    now := s.now()
    gs := &Session{
        ID:        newID(),
        Mode:      opts.Mode,
        Game:      domain.New(),
        HumanSide: opts.HumanSide,
        Round:     1,
        Created:   now,
        Updated:   now,
    }
    if ai := gs.AISide(); ai != domain.Empty {
        gs.claim(ai, AIPlayer)
        if err := s.opponentLocked(gs); err != nil {
            return nil, err
        }
    }
    s.games[gs.ID] = gs
    s.log.Debug().Str("game", gs.ID).Str("mode", string(gs.Mode)).Msg("game created")
    cp := *gs
    return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*Session, bool) {
    s.mu.Lock()
    defer s.mu.Unlock()
    gs, ok := s.games[id]
    if !ok {
        return nil, false
    }
    cp := *gs
    return &cp, true
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
    s.mu.Lock()
    defer s.mu.Unlock()
    return len(s.games)
}

// Join assigns a seat to the player if available; returns Empty for spectators.
// In AI mode only the human seat can be claimed.
func (s *Service) Join(id, playerID string) (domain.Cell, *Session, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    gs, ok := s.games[id]
    if !ok {
        return domain.Empty, nil, ErrNotFound
    }
    side := s.joinLocked(gs, playerID)
    gs.Updated = s.now()
    cp := *gs
    return side, &cp, nil
}

func (s *Service) joinLocked(gs *Session, playerID string) domain.Cell {
    if side := gs.seat(playerID); side != domain.Empty {
        return side
    }
    if gs.Mode == ModeAI {
        if gs.holder(gs.HumanSide) == "" {
            gs.claim(gs.HumanSide, playerID)
            return gs.HumanSide
        }
        return domain.Empty
    }
    if gs.X == "" {
        gs.X = playerID
        return domain.X
    }
    if gs.O == "" {
        gs.O = playerID
        return domain.O
    }
    return domain.Empty
}

// Move validates seat and turn, applies a move, lets the opponent reply in AI
// mode, updates timestamps, and broadcasts. On error the session is unchanged.
func (s *Service) Move(ctx context.Context, id, playerID string, cell int) (*Session, error) {
    s.mu.Lock()
    gs, ok := s.games[id]
    if !ok {
        s.mu.Unlock()
        return nil, ErrNotFound
    }
    seat := gs.seat(playerID)
    // An unclaimed human seat in AI mode goes to the first mover.
    claim := gs.Mode == ModeAI && seat == domain.Empty && gs.holder(gs.HumanSide) == ""
    if claim {
        seat = gs.HumanSide
    }
    if seat == domain.Empty || (gs.Mode == ModeAI && seat != gs.HumanSide) {
        s.mu.Unlock()
        return nil, ErrNotAPlayer
    }
    next, err := domain.ApplyMove(gs.Game, cell, seat)
    if err != nil {
        s.mu.Unlock()
        return nil, err
    }
    prev := gs.Game
    gs.Game = next
    if err := s.opponentLocked(gs); err != nil {
        gs.Game = prev
        s.mu.Unlock()
        return nil, err
    }
    if claim {
        gs.claim(seat, playerID)
    }
    gs.Updated = s.now()
    cp := *gs
    s.publishLocked(id, cp)
    s.mu.Unlock()

    s.finish(ctx, cp)
    return &cp, nil
}

// Play addresses the cell by row and column.
func (s *Service) Play(ctx context.Context, id, playerID string, r, c int) (*Session, error) {
    if r < 0 || r > 2 || c < 0 || c > 2 {
        if _, ok := s.Get(id); !ok {
            return nil, ErrNotFound
        }
        return nil, domain.ErrOutOfBounds
    }
    return s.Move(ctx, id, playerID, r*3+c)
}

// Reset starts a new round on the same seats. Only a seated player may reset;
// in AI mode an unclaimed human seat lets anyone reset, as it lets anyone move.
func (s *Service) Reset(id, playerID string) (*Session, error) {
    s.mu.Lock()
    gs, ok := s.games[id]
    if !ok {
        s.mu.Unlock()
        return nil, ErrNotFound
    }
    if !gs.mayReset(playerID) {
        s.mu.Unlock()
        return nil, ErrNotAPlayer
    }
    prev := gs.Game
    gs.Game = domain.New()
    gs.Round++
    if err := s.opponentLocked(gs); err != nil {
        gs.Game = prev
        gs.Round--
        s.mu.Unlock()
        return nil, err
    }
    gs.Updated = s.now()
    cp := *gs
    s.publishLocked(id, cp)
    s.mu.Unlock()
    return &cp, nil
}

// opponentLocked plays the opponent's reply when it is on turn.
func (s *Service) opponentLocked(gs *Session) error {
    ai := gs.AISide()
    if ai == domain.Empty || gs.Game.Over() || gs.Game.Turn != ai {
        return nil
    }
    cell, err := domain.ChooseMove(gs.Game.Board, ai, gs.HumanSide, s.rng)
    if err != nil {
        return err
    }
    next, err := domain.ApplyMove(gs.Game, cell, ai)
    if err != nil {
        return fmt.Errorf("opponent move %d: %w", cell, err)
    }
    gs.Game = next
    return nil
}

// finish reports a terminal round to the recorder. Recorder failures are
// logged and never fail the move.
func (s *Service) finish(ctx context.Context, gs Session) {
    out := gs.Game.Outcome()
    if !out.Terminal() {
        return
    }
    res := stats.Result{
        GameID:   gs.ID,
        Round:    gs.Round,
        Mode:     string(gs.Mode),
        Outcome:  out,
        AISide:   gs.AISide(),
        Moves:    gs.Game.Moves(),
        Finished: gs.Updated,
    }
    if err := s.stats.Record(ctx, res); err != nil {
        s.log.Warn().Err(err).Str("game", gs.ID).Msg("record result")
    }
    s.log.Info().
        Str("game", gs.ID).
        Int("round", gs.Round).
        Str("outcome", out.Kind.String()).
        Str("winner", out.Winner.String()).
        Msg("game finished")
}

// Prune drops sessions not updated since before and closes their subscribers.
func (s *Service) Prune(before time.Time) int {
    s.mu.Lock()
    var dropped []*subscriber
    n := 0
    for id, gs := range s.games {
        if !gs.Updated.Before(before) {
            continue
        }
        delete(s.games, id)
        for sub := range s.subs[id] {
            dropped = append(dropped, sub)
        }
        delete(s.subs, id)
        n++
    }
    s.mu.Unlock()

    for _, sub := range dropped {
        sub.close()
    }
    if n > 0 {
        s.log.Info().Int("count", n).Msg("pruned idle games")
    }
    return n
}

// RunPruner calls Prune every interval with a cutoff of ttl ago until ctx is
// done.
func (s *Service) RunPruner(ctx context.Context, interval, ttl time.Duration) {
    ticker := time.NewTicker(interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            s.Prune(s.now().Add(-ttl))
        }
    }
}

// Subscribe registers a subscriber for a game. The channel is closed when ctx
// ends, the unsubscribe func runs, the subscriber falls behind, or the game is
// pruned.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan Session, func(), error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.games[id]; !ok {
        return nil, func() {}, ErrNotFound
    }
    set := s.subs[id]
    if set == nil {
        set = make(map[*subscriber]struct{})
        s.subs[id] = set
    }
    sub := &subscriber{ch: make(chan Session, 1)}
    set[sub] = struct{}{}

    stop := make(chan struct{})
    unsubOnce := &sync.Once{}
    unsub := func() {
        unsubOnce.Do(func() {
            s.mu.Lock()
            if set, ok := s.subs[id]; ok {
                delete(set, sub)
            }
            s.mu.Unlock()
            sub.close()
            close(stop)
        })
    }
    go func() {
        select {
        case <-ctx.Done():
            unsub()
        case <-stop:
        }
    }()
    return sub.ch, unsub, nil
}

// publishLocked fans out a snapshot; slow subscribers are closed and dropped.
// Sends never block, and a subscriber is only closed after it has left the
// set, so no send can hit a closed channel.
func (s *Service) publishLocked(id string, snap Session) {
    set := s.subs[id]
    for sub := range set {
        select {
        case sub.ch <- snap:
        default:
            delete(set, sub)
            sub.close()
        }
    }
}
