package games

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"gamerooms/models"
)

// HighLow value domain
const (
	HighLowMin = 1
	HighLowMax = 100

	exactMultiplier = 5
)

// Direction is a high/low pick
type Direction string

const (
	DirectionHigher Direction = "higher"
	DirectionLower  Direction = "lower"
	DirectionExact  Direction = "exact"
)

// ParseDirection accepts the full word or its first letter
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "higher", "high", "h":
		return DirectionHigher, true
	case "lower", "low", "l":
		return DirectionLower, true
	case "exact", "same", "e":
		return DirectionExact, true
	}
	return "", false
}

// HighLow predicts whether the next draw is above, below or equal to the current one.
// A loss ends the room; each win pays out and keeps the streak going.
type HighLow struct {
	Current int
	Streak  int
	points  int64
	rng     *rand.Rand
}

// StartHighLow draws the opening value
func StartHighLow(rng *rand.Rand, points int64) *HighLow {
	return &HighLow{Current: draw(rng), points: points, rng: rng}
}

func draw(rng *rand.Rand) int {
	return HighLowMin + rng.IntN(HighLowMax-HighLowMin+1)
}

func (h *HighLow) Key() models.GameKey { return models.GameHighLow }

func (h *HighLow) Intro() string {
	return fmt.Sprintf("Current number is **%d** (%d-%d). Higher, lower or exact?", h.Current, HighLowMin, HighLowMax)
}

func (h *HighLow) Apply(_ string, payload string) (Outcome, error) {
	dir, ok := ParseDirection(payload)
	if !ok {
		return Outcome{}, invalid("pick higher, lower or exact")
	}
	return h.Pick(dir), nil
}

// Pick draws the next value; the round always advances
func (h *HighLow) Pick(dir Direction) Outcome {
	previous := h.Current
	next := draw(h.rng)
	h.Current = next

	won := (dir == DirectionHigher && next > previous) ||
		(dir == DirectionLower && next < previous) ||
		(dir == DirectionExact && next == previous)

	if !won {
		streak := h.Streak
		h.Streak = 0
		return Outcome{
			Terminal: true,
			Message:  fmt.Sprintf("%d → **%d**. Wrong call, game over after a streak of %d.", previous, next, streak),
		}
	}

	h.Streak++
	points := h.points
	if dir == DirectionExact {
		points *= exactMultiplier
	}
	return Outcome{
		Points:  points,
		Message: fmt.Sprintf("%d → **%d**. Correct! Streak %d.", previous, next, h.Streak),
	}
}
