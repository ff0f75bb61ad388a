// Package mute tracks a temporary, user-initiated suppression of alarms.
package mute

import (
	"fmt"
	"sync"
	"time"

	"glucoclock/glucoclock/defs"
	"glucoclock/glucoclock/pkg/clock"
)

// Controller holds an optional mute expiry. Expired mutes are cleared lazily on
// the next read.
type Controller struct {
	clock    clock.Clock
	duration time.Duration

	mu     sync.Mutex
	expiry time.Time
	set    bool
}

// New returns an unmuted controller. duration is what Toggle mutes for.
func New(c clock.Clock, duration time.Duration) *Controller {
	return &Controller{clock: c, duration: duration}
}

// Mute silences alarms for d from now, replacing any existing mute.
func (c *Controller) Mute(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("unable to mute for %s: %w", d, defs.ErrInvalidDuration)
	}

	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.expiry = now.Add(d)
	c.set = true
	return nil
}

func (c *Controller) Unmute() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expiry = time.Time{}
	c.set = false
}

// Toggle unmutes when muted, otherwise mutes for the configured duration.
// It reports whether alarms are muted afterwards.
func (c *Controller) Toggle() bool {
	if c.IsMuted(c.clock.Now()) {
		c.Unmute()
		return false
	}
	return c.Mute(c.duration) == nil
}

// IsMuted reports whether a mute expiring strictly after now is set.
func (c *Controller) IsMuted(now time.Time) bool {
	_, ok := c.Remaining(now)
	return ok
}

// Remaining returns the time left on the mute, or false when not muted.
func (c *Controller) Remaining(now time.Time) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.set {
		return 0, false
	}
	if !c.expiry.After(now) {
		c.expiry = time.Time{}
		c.set = false
		return 0, false
	}
	return c.expiry.Sub(now), true
}

// FormatRemaining renders a remaining duration as MM:SS.
func FormatRemaining(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
