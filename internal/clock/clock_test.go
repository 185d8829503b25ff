package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixed_AlwaysSameInstant(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	c := Fixed(at)

	assert.True(t, c.Now().Equal(at))
	assert.True(t, c.Now().Equal(c.Now()))
}

func TestFunc_DelegatesToFunction(t *testing.T) {
	calls := 0
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Func(func() time.Time {
		calls++
		return at
	})

	assert.True(t, c.Now().Equal(at))
	assert.Equal(t, 1, calls)
}

func TestSystem_IsCloseToNow(t *testing.T) {
	got := System{}.Now()
	assert.WithinDuration(t, time.Now(), got, time.Second)
}
