package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedNow(t *testing.T) {
	now := FixedNow()
	assert.Equal(t, Epoch, now())
	assert.Equal(t, now(), now())
}

func TestSteppedNow(t *testing.T) {
	now := SteppedNow()
	first := now()
	second := now()
	assert.Equal(t, Epoch.Add(time.Second), first)
	assert.Equal(t, time.Second, second.Sub(first))

	// Independent sources do not share state.
	other := SteppedNow()
	assert.Equal(t, first, other())
}
