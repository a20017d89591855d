package games

import (
	"fmt"
	"strconv"
	"strings"

	"gamerooms/models"
)

// Counting advances a shared count one number at a time; no actor may count twice in a row.
// When a bot actor is configured the house answers every accepted number, and reaching
// the target together is a win for the player.
type Counting struct {
	Expected    int
	LastActorID string
	target      int
	points      int64
	botActorID  string
}

// NewCounting starts a count at 1
func NewCounting(target int, points int64, botActorID string) *Counting {
	return &Counting{Expected: 1, target: target, points: points, botActorID: botActorID}
}

func (c *Counting) Key() models.GameKey { return models.GameCounting }

func (c *Counting) Intro() string {
	return fmt.Sprintf("We take turns counting. Reach %d to win. Start with **1**.", c.target)
}

func (c *Counting) Apply(actorID, payload string) (Outcome, error) {
	n, err := strconv.Atoi(strings.TrimSpace(payload))
	if err != nil {
		return Outcome{}, invalid("%q is not a number", payload)
	}
	if err := c.Contribute(actorID, n); err != nil {
		return Outcome{}, err
	}

	if c.reached() {
		return c.win(), nil
	}

	if c.botActorID == "" {
		return Outcome{Message: fmt.Sprintf("Next is **%d**.", c.Expected)}, nil
	}

	botNumber := c.Expected
	if err := c.Contribute(c.botActorID, botNumber); err != nil {
		return Outcome{}, err
	}
	if c.reached() {
		out := c.win()
		out.BotMove = strconv.Itoa(botNumber)
		return out, nil
	}

	return Outcome{
		BotMove: strconv.Itoa(botNumber),
		Message: fmt.Sprintf("Your turn: **%d**.", c.Expected),
	}, nil
}

// Contribute accepts n from actorID if it is the expected number and the actor did not count last
func (c *Counting) Contribute(actorID string, n int) error {
	if actorID == c.LastActorID {
		return invalid("wait for someone else to count")
	}
	if n != c.Expected {
		return invalid("expected %d, got %d", c.Expected, n)
	}
	c.Expected++
	c.LastActorID = actorID
	return nil
}

func (c *Counting) reached() bool {
	return c.target > 0 && c.Expected > c.target
}

func (c *Counting) win() Outcome {
	return Outcome{
		Terminal: true,
		Won:      true,
		Points:   c.points,
		Message:  fmt.Sprintf("🎉 You reached %d!", c.target),
	}
}
