package presence

import "time"

// Backoff is an exponential reconnect delay with a floor and a ceiling.
type Backoff struct {
	floor   time.Duration
	ceiling time.Duration
	current time.Duration
}

// NewBackoff starts at floor.
func NewBackoff(floor, ceiling time.Duration) *Backoff {
	if ceiling < floor {
		ceiling = floor
	}
	return &Backoff{floor: floor, ceiling: ceiling, current: floor}
}

// Current is the delay before the next attempt.
func (b *Backoff) Current() time.Duration {
	return b.current
}

// Fail doubles the delay, capped at the ceiling.
func (b *Backoff) Fail() {
	b.current *= 2
	if b.current > b.ceiling {
		b.current = b.ceiling
	}
}

// Reset returns to the floor after a successful attempt.
func (b *Backoff) Reset() {
	b.current = b.floor
}
