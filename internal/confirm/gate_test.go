package confirm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitPending(t *testing.T, g *Gate) Prompt {
	t.Helper()
	var p Prompt
	require.Eventually(t, func() bool {
		var ok bool
		p, ok = g.Pending()
		return ok
	}, time.Second, 5*time.Millisecond)
	return p
}

func TestGate_RequestResolvesWithAnswer(t *testing.T) {
	for _, answer := range []bool{true, false} {
		g := NewGate(nil)
		result := make(chan bool, 1)
		go func() {
			ok, err := g.Request(context.Background(), "Finalizar conta?")
			assert.NoError(t, err)
			result <- ok
		}()

		p := waitPending(t, g)
		assert.Equal(t, "Finalizar conta?", p.Message)
		require.NoError(t, g.Respond(answer))
		assert.Equal(t, answer, <-result)

		_, open := g.Pending()
		assert.False(t, open)
	}
}

func TestGate_SecondRequestIsRejected(t *testing.T) {
	g := NewGate(nil)
	result := make(chan bool, 1)
	go func() {
		ok, _ := g.Request(context.Background(), "first")
		result <- ok
	}()
	waitPending(t, g)

	_, err := g.Request(context.Background(), "second")
	assert.ErrorIs(t, err, ErrPending)

	p, _ := g.Pending()
	assert.Equal(t, "first", p.Message)

	require.NoError(t, g.Respond(true))
	assert.True(t, <-result)
}

func TestGate_RespondWithoutPending(t *testing.T) {
	assert.ErrorIs(t, NewGate(nil).Respond(true), ErrNoPending)
}

func TestGate_CancelReleasesSlot(t *testing.T) {
	var changes int
	g := NewGate(func() { changes++ })
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := g.Request(ctx, "abandoned")
		errs <- err
	}()
	waitPending(t, g)
	cancel()

	assert.ErrorIs(t, <-errs, context.Canceled)
	_, open := g.Pending()
	assert.False(t, open)
	assert.Equal(t, 2, changes)
}
