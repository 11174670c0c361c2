package domain

import (
    "errors"
    "math/rand/v2"
)

// ErrNoMoves is returned when the board is full or already decided.
var ErrNoMoves = errors.New("no moves available")

const center = 4

// Rand is the randomness ChooseMove needs. *rand.Rand satisfies it.
type Rand interface {
    IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// ChooseMove picks a move for ai against human. In order: the lowest empty
// cell that wins for ai, the lowest empty cell that blocks a human win, the
// center, then a uniform pick among the remaining empty cells. A nil rng uses
// the math/rand/v2 global source.
//
// This is intentionally not minimax; the opponent can be beaten.
func ChooseMove(b Board, ai, human Cell, rng Rand) (int, error) {
    empty := b.EmptyCells()
    if len(empty) == 0 || Evaluate(b).Terminal() {
        return -1, ErrNoMoves
    }
    if i, ok := firstCompleting(b, empty, ai); ok {
        return i, nil
    }
    if i, ok := firstCompleting(b, empty, human); ok {
        return i, nil
    }
    if b[center] == Empty {
        return center, nil
    }
    if rng == nil {
        rng = globalRand{}
    }
    return empty[rng.IntN(len(empty))], nil
}

func firstCompleting(b Board, empty []int, side Cell) (int, bool) {
    for _, i := range empty {
        trial := b
        trial[i] = side
        if hasWin(trial, side) {
            return i, true
        }
    }
    return -1, false
}
