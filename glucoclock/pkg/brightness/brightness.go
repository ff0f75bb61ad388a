// Package brightness dims the display during the night window.
package brightness

import (
	"context"
	"sync"
	"time"

	"glucoclock/glucoclock/pkg/clock"
	"glucoclock/glucoclock/pkg/window"

	"go.uber.org/zap"
)

type Level int

const (
	Unset Level = iota
	Day
	Night
)

func (l Level) String() string {
	return [...]string{"unset", "day", "night"}[l]
}

// Device sets the display brightness as a percentage.
type Device interface {
	SetBrightness(percent int) error
}

type Config struct {
	Window       window.Window
	Location     *time.Location
	DayPercent   int
	NightPercent int
}

// LevelAt returns the level for t.
func (c Config) LevelAt(t time.Time) Level {
	if c.Window.Contains(t, c.Location) {
		return Night
	}
	return Day
}

func (c Config) Percent(l Level) int {
	if l == Night {
		return c.NightPercent
	}
	return c.DayPercent
}

type Scheduler struct {
	config Config
	device Device
	clock  clock.Clock
	logger *zap.Logger

	mu      sync.Mutex
	applied Level
}

func New(config Config, device Device, c clock.Clock, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		config: config,
		device: device,
		clock:  c,
		logger: logger,
	}
}

// Tick applies the level for the current time if it differs from the last
// applied one. A failed write leaves the applied level unchanged so the next
// tick retries.
func (s *Scheduler) Tick(_ context.Context) Level {
	level := s.config.LevelAt(s.clock.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if level == s.applied {
		return s.applied
	}

	percent := s.config.Percent(level)
	if err := s.device.SetBrightness(percent); err != nil {
		s.logger.Error("unable to apply brightness",
			zap.Stringer("level", level),
			zap.Int("percent", percent),
			zap.Error(err),
		)
		return s.applied
	}

	s.logger.Info("applied brightness",
		zap.Stringer("level", level),
		zap.Int("percent", percent),
	)
	s.applied = level
	return level
}

func (s *Scheduler) Applied() Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}
