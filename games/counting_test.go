package games

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounting_Contribute(t *testing.T) {
	c := NewCounting(0, 0, "")

	require.NoError(t, c.Contribute("alice", 1))
	assert.Equal(t, 2, c.Expected)
	assert.Equal(t, "alice", c.LastActorID)

	// Same actor twice in a row
	err := c.Contribute("alice", 2)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 2, c.Expected)

	// Wrong value
	err = c.Contribute("bob", 3)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "alice", c.LastActorID)

	require.NoError(t, c.Contribute("bob", 2))
	assert.Equal(t, 3, c.Expected)
}

func TestCounting_BotAnswers(t *testing.T) {
	c := NewCounting(4, 10, "bot")

	out, err := c.Apply("alice", "1")
	require.NoError(t, err)
	assert.Equal(t, "2", out.BotMove)
	assert.False(t, out.Terminal)
	assert.Equal(t, 3, c.Expected)
	assert.Equal(t, "bot", c.LastActorID)

	_, err = c.Apply("alice", "4")
	assert.ErrorIs(t, err, ErrInvalidInput)

	out, err = c.Apply("alice", "3")
	require.NoError(t, err)
	assert.True(t, out.Terminal)
	assert.True(t, out.Won)
	assert.Equal(t, int64(10), out.Points)
	assert.Equal(t, "4", out.BotMove)
}

func TestCounting_PlayerReachesTarget(t *testing.T) {
	c := NewCounting(3, 7, "bot")

	_, err := c.Apply("alice", "1")
	require.NoError(t, err)

	out, err := c.Apply("alice", "3")
	require.NoError(t, err)
	assert.True(t, out.Won)
	assert.Empty(t, out.BotMove)
	assert.Equal(t, int64(7), out.Points)
}
