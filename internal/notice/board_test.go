package notice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_ActiveInPostingOrder(t *testing.T) {
	b := NewBoard(time.Minute)
	b.Success("Pedido salvo com sucesso!")
	b.Error("Selecione uma mesa primeiro.")

	active := b.Active()
	require.Len(t, active, 2)
	assert.Equal(t, KindSuccess, active[0].Kind)
	assert.Equal(t, "Pedido salvo com sucesso!", active[0].Message)
	assert.Equal(t, KindError, active[1].Kind)
}

func TestBoard_NoticesExpire(t *testing.T) {
	b := NewBoard(30 * time.Millisecond)
	b.Error("boom")
	require.Len(t, b.Active(), 1)

	assert.Eventually(t, func() bool { return len(b.Active()) == 0 }, time.Second, 10*time.Millisecond)
}

func TestBoard_Dismiss(t *testing.T) {
	b := NewBoard(0)
	n := b.Success("ok")
	b.Dismiss(n.ID)
	assert.Empty(t, b.Active())
}
