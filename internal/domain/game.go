package domain

import (
    "errors"
    "fmt"
)

// Cell represents a board cell state.
type Cell uint8

const (
    Empty Cell = iota
    X
    O
)

func (c Cell) String() string {
    switch c {
    case X:
        return "X"
    case O:
        return "O"
    default:
        return ""
    }
}

// Other returns the opposing mark. Empty has no opponent.
func (c Cell) Other() Cell {
    switch c {
    case X:
        return O
    case O:
        return X
    default:
        return Empty
    }
}

// ParseCell accepts "X" or "O" (either case).
func ParseCell(s string) (Cell, error) {
    switch s {
    case "X", "x":
        return X, nil
    case "O", "o":
        return O, nil
    }
    return Empty, fmt.Errorf("unknown mark %q", s)
}

// Board is a fixed 3x3 board stored row-major.
type Board [9]Cell

// EmptyCells lists empty indices in ascending order.
func (b Board) EmptyCells() []int {
    out := make([]int, 0, len(b))
    for i, c := range b {
        if c == Empty {
            out = append(out, i)
        }
    }
    return out
}

// Count returns how many cells hold c.
func (b Board) Count(c Cell) int {
    n := 0
    for _, v := range b {
        if v == c {
            n++
        }
    }
    return n
}

// Lines are the winning triples: rows, then columns, then diagonals.
var Lines = [8][3]int{
    // rows
    {0, 1, 2}, {3, 4, 5}, {6, 7, 8},
    // cols
    {0, 3, 6}, {1, 4, 7}, {2, 5, 8},
    // diags
    {0, 4, 8}, {2, 4, 6},
}

// OutcomeKind classifies a board.
type OutcomeKind uint8

const (
    InProgress OutcomeKind = iota
    Win
    Draw
)

func (k OutcomeKind) String() string {
    switch k {
    case Win:
        return "win"
    case Draw:
        return "draw"
    default:
        return "in_progress"
    }
}

// Outcome is the result of evaluating a board. Winner is set only for Win.
type Outcome struct {
    Kind   OutcomeKind
    Winner Cell
}

// Terminal reports whether no further moves are accepted.
func (o Outcome) Terminal() bool { return o.Kind != InProgress }

// Game holds the current state of a Tic-Tac-Toe match. The outcome is always
// derived from Board, never stored.
type Game struct {
    Board Board
    Turn  Cell
}

// Errors returned by domain operations. Every move rejection wraps
// ErrIllegalMove.
var (
    ErrIllegalMove  = errors.New("illegal move")
    ErrOutOfBounds  = fmt.Errorf("%w: out of bounds", ErrIllegalMove)
    ErrOccupied     = fmt.Errorf("%w: cell occupied", ErrIllegalMove)
    ErrNotYourTurn  = fmt.Errorf("%w: not your turn", ErrIllegalMove)
    ErrGameOver     = fmt.Errorf("%w: game over", ErrIllegalMove)
    ErrBadPlayer    = fmt.Errorf("%w: player must be X or O", ErrIllegalMove)
    ErrInvalidState = errors.New("invalid board state")
)

// New returns a new game with X to move.
func New() Game {
    return Game{Turn: X}
}

// NewWithFirst returns a new game where first moves first.
func NewWithFirst(first Cell) Game {
    if first != O {
        first = X
    }
    return Game{Turn: first}
}

// Outcome evaluates the current board.
func (g Game) Outcome() Outcome { return Evaluate(g.Board) }

// Over reports whether the game has reached a terminal outcome.
func (g Game) Over() bool { return g.Outcome().Terminal() }

// Winner returns the winning mark, or Empty when there is none.
func (g Game) Winner() Cell { return g.Outcome().Winner }

// Moves is the number of occupied cells.
func (g Game) Moves() int { return len(g.Board) - g.Board.Count(Empty) }

// ApplyMove places player at cell and returns the resulting game. On error the
// input game is returned as is.
func ApplyMove(g Game, cell int, player Cell) (Game, error) {
    if g.Over() {
        return g, ErrGameOver
    }
    if cell < 0 || cell >= len(g.Board) {
        return g, ErrOutOfBounds
    }
    if player != X && player != O {
        return g, ErrBadPlayer
    }
    if player != g.Turn {
        return g, ErrNotYourTurn
    }
    if g.Board[cell] != Empty {
        return g, ErrOccupied
    }

    next := g
    next.Board[cell] = player
    if !next.Over() {
        next.Turn = player.Other()
    }
    return next, nil
}

// Play attempts to play the current turn at row r, column c (0..2).
func (g *Game) Play(r, c int) error {
    if r < 0 || r > 2 || c < 0 || c > 2 {
        if g.Over() {
            return ErrGameOver
        }
        return ErrOutOfBounds
    }
    next, err := ApplyMove(*g, r*3+c, g.Turn)
    if err != nil {
        return err
    }
    *g = next
    return nil
}

// Evaluate returns Win for the first completed line in Lines order, Draw for a
// full board, InProgress otherwise.
func Evaluate(b Board) Outcome {
    for _, ln := range Lines {
        v := b[ln[0]]
        if v != Empty && b[ln[1]] == v && b[ln[2]] == v {
            return Outcome{Kind: Win, Winner: v}
        }
    }
    if b.Count(Empty) == 0 {
        return Outcome{Kind: Draw}
    }
    return Outcome{Kind: InProgress}
}

// Validate rejects boards that legal play from either first mover cannot
// produce.
func Validate(b Board) error {
    for _, c := range b {
        if c > O {
            return fmt.Errorf("%w: unknown cell value %d", ErrInvalidState, c)
        }
    }
    nx, no := b.Count(X), b.Count(O)
    if nx-no > 1 || no-nx > 1 {
        return fmt.Errorf("%w: mark counts X=%d O=%d", ErrInvalidState, nx, no)
    }
    if hasWin(b, X) && hasWin(b, O) {
        return fmt.Errorf("%w: both players completed a line", ErrInvalidState)
    }
    return nil
}

func hasWin(b Board, side Cell) bool {
    for _, ln := range Lines {
        if b[ln[0]] == side && b[ln[1]] == side && b[ln[2]] == side {
            return true
        }
    }
    return false
}
