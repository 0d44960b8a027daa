// Package ident generates idea identifiers and store timestamps.
package ident

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewID generates a new UUID v7 for idea IDs. UUID v7 embeds a millisecond
// timestamp, so IDs issued later sort later.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// v7 reads the clock; v4 only needs entropy.
		return uuid.New().String()
	}
	return id.String()
}

// Resolution is the precision of stored timestamps. JSON and Postgres
// timestamptz both round-trip microseconds exactly.
const Resolution = time.Microsecond

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// Stamper issues UTC timestamps truncated to Resolution that strictly
// increase across calls, even when the clock stalls or steps backwards.
// Safe for concurrent use.
type Stamper struct {
	clock Clock

	mu   sync.Mutex
	last time.Time
}

// NewStamper returns a Stamper over clock. A nil clock means SystemClock.
func NewStamper(clock Clock) *Stamper {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Stamper{clock: clock}
}

// Stamp returns the next timestamp.
func (s *Stamper) Stamp() time.Time {
	now := s.clock.Now().UTC().Truncate(Resolution)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !now.After(s.last) {
		now = s.last.Add(Resolution)
	}
	s.last = now
	return now
}

// StampAfter returns the next timestamp, but never one before floor. Used
// for UpdatedAt so a record loaded from another process cannot move back.
func (s *Stamper) StampAfter(floor time.Time) time.Time {
	ts := s.Stamp()
	if ts.Before(floor) {
		return floor
	}
	return ts
}
