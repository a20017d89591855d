// Package games holds the per-room mini-game state machines. Engines are not
// safe for concurrent use; the session manager serializes access per room.
package games

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gamerooms/models"
)

// ErrInvalidInput is returned for moves that are rejected without changing state
var ErrInvalidInput = errors.New("invalid input")

// Outcome is the result of one accepted move
type Outcome struct {
	Terminal bool   // the room should close
	Won      bool   // the terminal event was a win
	Points   int64  // points to credit for this move
	Message  string // short text for the player
	// BotMove is a follow-up line the house plays, if any
	BotMove string
}

// Engine is a single room's game state
type Engine interface {
	Key() models.GameKey
	// Apply validates and applies one move from actorID
	Apply(actorID, payload string) (Outcome, error)
	// Intro describes the starting state to the player
	Intro() string
}

// Settings configures engine defaults
type Settings struct {
	GuessMin       int
	GuessMax       int
	GuessPoints    int64
	HighLowPoints  int64
	CountingTarget int
	CountingPoints int64
	BotActorID     string
}

// Factory builds fresh engines with default parameters
type Factory struct {
	settings Settings
	newRand  func() *rand.Rand
}

// NewFactory creates an engine factory seeded from the runtime source
func NewFactory(settings Settings) *Factory {
	return &Factory{
		settings: settings,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
}

// NewFactoryWithRand creates a factory that uses the provided generator source, for tests
func NewFactoryWithRand(settings Settings, newRand func() *rand.Rand) *Factory {
	return &Factory{settings: settings, newRand: newRand}
}

// New creates an engine for the given game
func (f *Factory) New(key models.GameKey) (Engine, error) {
	rng := f.newRand()
	switch key {
	case models.GameGuess:
		return StartGuess(rng, f.settings.GuessMin, f.settings.GuessMax, f.settings.GuessPoints), nil
	case models.GameHighLow:
		return StartHighLow(rng, f.settings.HighLowPoints), nil
	case models.GameCounting:
		return NewCounting(f.settings.CountingTarget, f.settings.CountingPoints, f.settings.BotActorID), nil
	default:
		return nil, fmt.Errorf("unknown game %q", key)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
