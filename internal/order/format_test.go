package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatter(t *testing.T) {
	br := NewFormatter("pt-BR")
	assert.Equal(t, "90,00", br.Amount(90))
	assert.Equal(t, "R$ 38,50", br.Money(38.5))

	us := NewFormatter("en-US")
	assert.Equal(t, "$ 7.00", us.Money(7))

	fallback := NewFormatter("not a locale!")
	assert.Equal(t, "R$ 0,00", fallback.Money(0))
}
