package app

import "github.com/google/uuid"

// AIPlayer is the seat id held by the automated opponent.
const AIPlayer = "ai"

// newID generates a UUIDv4 string for sessions.
func newID() string { return uuid.NewString() }

// NewPlayerID returns an id suitable for a player cookie.
func NewPlayerID() string { return "p-" + uuid.NewString() }
