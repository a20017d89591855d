package games

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"gamerooms/models"
)

// Guess is a number guessing game over a shrinking [Min, Max] window
type Guess struct {
	Min    int
	Max    int
	secret int
	points int64
	tries  int
}

// NewGuess creates a game with a fixed secret
func NewGuess(min, max, secret int, points int64) *Guess {
	return &Guess{Min: min, Max: max, secret: secret, points: points}
}

// StartGuess draws a secret uniformly from [min, max]
func StartGuess(rng *rand.Rand, min, max int, points int64) *Guess {
	return NewGuess(min, max, min+rng.IntN(max-min+1), points)
}

func (g *Guess) Key() models.GameKey { return models.GameGuess }

func (g *Guess) Intro() string {
	return fmt.Sprintf("I picked a number between %d and %d. Type your guess.", g.Min, g.Max)
}

func (g *Guess) Apply(_ string, payload string) (Outcome, error) {
	n, err := strconv.Atoi(strings.TrimSpace(payload))
	if err != nil {
		return Outcome{}, invalid("%q is not a number", payload)
	}
	return g.Try(n)
}

// Try checks a guess; out-of-window guesses are rejected without changing state
func (g *Guess) Try(n int) (Outcome, error) {
	if n < g.Min || n > g.Max {
		return Outcome{}, invalid("guess must be between %d and %d", g.Min, g.Max)
	}
	g.tries++

	if n == g.secret {
		return Outcome{
			Terminal: true,
			Won:      true,
			Points:   g.points,
			Message:  fmt.Sprintf("🎉 %d is correct! Found in %d tries.", n, g.tries),
		}, nil
	}

	hint := "higher"
	if n < g.secret {
		g.Min = max(g.Min, n+1)
	} else {
		g.Max = min(g.Max, n-1)
		hint = "lower"
	}

	if g.Min == g.Max {
		return Outcome{
			Terminal: true,
			Message:  fmt.Sprintf("Out of room to guess. The number was %d.", g.secret),
		}, nil
	}

	return Outcome{
		Message: fmt.Sprintf("Go %s. Range is now %d-%d.", hint, g.Min, g.Max),
	}, nil
}
