package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_AdvanceFiresInOrder(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFake(start)

	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() {
		fired = append(fired, "a")
		// scheduled from a callback, still inside the window
		c.AfterFunc(500*time.Millisecond, func() { fired = append(fired, "a2") })
	})
	c.AfterFunc(5*time.Second, func() { fired = append(fired, "late") })

	c.Advance(2 * time.Second)

	assert.Equal(t, []string{"a", "a2", "b"}, fired)
	assert.Equal(t, start.Add(2*time.Second), c.Now())
	assert.Equal(t, 1, c.Pending())
}

func TestFake_StopPreventsFire(t *testing.T) {
	c := NewFake(time.Unix(0, 0))

	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(time.Minute)
	assert.False(t, fired)
	assert.Zero(t, c.Pending())
}
