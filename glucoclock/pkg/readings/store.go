// Package readings holds the latest glucose reading and the outcome of the
// most recent fetch attempt.
package readings

import (
	"sync"
	"time"

	"glucoclock/glucoclock/defs"
	"glucoclock/glucoclock/pkg/clock"
)

// Snapshot is a consistent view of the store.
type Snapshot struct {
	Reading    defs.Reading
	HasReading bool
	Err        error
	Age        time.Duration
}

// Store is written by the poller and read by everything else.
type Store struct {
	clock clock.Clock

	mu         sync.RWMutex
	reading    defs.Reading
	hasReading bool
	err        error
}

func New(c clock.Clock) *Store {
	return &Store{clock: c}
}

// Set replaces the current reading and clears the last error.
func (s *Store) Set(r defs.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reading = r
	s.hasReading = true
	s.err = nil
}

// SetError records a failed fetch. The last good reading is kept.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Record applies a fetch outcome.
func (s *Store) Record(o defs.Outcome) {
	if o.OK() {
		s.Set(o.Reading)
		return
	}
	s.SetError(o.Err)
}

func (s *Store) Snapshot() Snapshot {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Reading:    s.reading,
		HasReading: s.hasReading,
		Err:        s.err,
	}
	if s.hasReading {
		snap.Age = s.reading.Age(now)
	}
	return snap
}

func (s *Store) Current() (defs.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reading, s.hasReading
}

func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
