// Package testutil holds shared helpers for deterministic tests.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the fixed instant deterministic tests run at.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// FixedNow returns a timestamp source pinned to Epoch. Every call
// returns the same instant, so recorded traces carry no wall-clock
// noise.
func FixedNow() func() time.Time {
	return func() time.Time { return Epoch }
}

// SteppedNow returns a timestamp source that advances one second per
// call, starting one second after Epoch. Useful when a test needs
// distinct but reproducible instants.
func SteppedNow() func() time.Time {
	var mu sync.Mutex
	step := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		step++
		return Epoch.Add(time.Duration(step) * time.Second)
	}
}
