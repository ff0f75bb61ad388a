// Package alarm decides, on every tick, whether the current reading should
// sound an alarm, and delivers the alarms it fires.
package alarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"glucoclock/glucoclock/defs"
	"glucoclock/glucoclock/pkg/clock"
	"glucoclock/glucoclock/pkg/window"

	"go.uber.org/zap"
)

// Sounder plays the audible cues.
type Sounder interface {
	PlayLow(ctx context.Context) error
	PlayHigh(ctx context.Context) error
}

// Notifier receives every fired alarm, e.g. a journal or a chat channel.
type Notifier interface {
	Notify(ctx context.Context, alert defs.Alert) error
}

type ReadingSource interface {
	Current() (defs.Reading, bool)
}

type MuteState interface {
	IsMuted(now time.Time) bool
}

// Policy holds the thresholds and timing an alarm decision is made against.
type Policy struct {
	Low      float64
	High     float64
	Cooldown time.Duration
	Window   window.Window
	Location *time.Location
}

// Decide returns the alarm to fire at now. last is when the previous alarm
// fired, the zero time if none has. Values equal to a threshold are out of
// range.
func (p Policy) Decide(now time.Time, muted bool, r defs.Reading, hasReading bool, last time.Time) defs.AlarmKind {
	if !p.Window.Contains(now, p.Location) || muted || !hasReading {
		return defs.NoAlarm
	}

	kind := defs.NoAlarm
	switch {
	case r.Mmol <= p.Low:
		kind = defs.LowAlarm
	case r.Mmol >= p.High:
		kind = defs.HighAlarm
	}

	// Suppressed alarms are dropped, not queued.
	if kind != defs.NoAlarm && !last.IsZero() && now.Sub(last) < p.Cooldown {
		return defs.NoAlarm
	}
	return kind
}

// Reason describes why kind fired for the value mmol.
func (p Policy) Reason(kind defs.AlarmKind, mmol float64) string {
	switch kind {
	case defs.LowAlarm:
		return fmt.Sprintf("current value: %.2f ≤ %.2f", mmol, p.Low)
	case defs.HighAlarm:
		return fmt.Sprintf("current value: %.2f ≥ %.2f", mmol, p.High)
	default:
		return ""
	}
}

type Engine struct {
	policy    Policy
	readings  ReadingSource
	mute      MuteState
	sounder   Sounder
	notifiers []Notifier
	clock     clock.Clock
	logger    *zap.Logger

	mu        sync.Mutex
	lastAlarm time.Time

	wg sync.WaitGroup
}

func New(policy Policy, readings ReadingSource, mute MuteState, sounder Sounder, c clock.Clock, logger *zap.Logger, notifiers ...Notifier) *Engine {
	return &Engine{
		policy:    policy,
		readings:  readings,
		mute:      mute,
		sounder:   sounder,
		notifiers: notifiers,
		clock:     c,
		logger:    logger,
	}
}

// Tick evaluates the current reading and fires the resulting alarm, if any.
// Sound and notifications are delivered in the background.
func (e *Engine) Tick(ctx context.Context) defs.AlarmKind {
	now := e.clock.Now()
	muted := e.mute.IsMuted(now)
	r, ok := e.readings.Current()

	e.mu.Lock()
	kind := e.policy.Decide(now, muted, r, ok, e.lastAlarm)
	if kind != defs.NoAlarm {
		e.lastAlarm = now
	}
	e.mu.Unlock()

	if kind == defs.NoAlarm {
		return kind
	}

	alert := defs.NewAlert(kind, e.policy.Reason(kind, r.Mmol), r.Mmol, now)
	e.logger.Info("alarm fired",
		zap.String("label", alert.Label),
		zap.String("reason", alert.Reason),
		zap.Duration("reading age", r.Age(now)),
	)
	e.deliver(ctx, kind, alert)

	return kind
}

// deliver sounds the alarm and passes alert to every notifier without waiting
// for either. Failures are logged.
func (e *Engine) deliver(ctx context.Context, kind defs.AlarmKind, alert defs.Alert) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.Play(ctx, kind); err != nil {
			e.logger.Error("unable to sound alarm", zap.Error(err))
		}
	}()

	for _, n := range e.notifiers {
		e.wg.Add(1)
		go func(n Notifier) {
			defer e.wg.Done()
			if err := n.Notify(ctx, alert); err != nil {
				e.logger.Error("unable to deliver alert",
					zap.String("id", alert.ID),
					zap.Error(err),
				)
			}
		}(n)
	}
}

// Play sounds the cue for kind once.
func (e *Engine) Play(ctx context.Context, kind defs.AlarmKind) error {
	switch kind {
	case defs.LowAlarm:
		return e.sounder.PlayLow(ctx)
	case defs.HighAlarm:
		return e.sounder.PlayHigh(ctx)
	default:
		return fmt.Errorf("%w: %s", defs.ErrUnknownAlarm, kind)
	}
}

// LastAlarm returns when the engine last fired, or false if it never has.
func (e *Engine) LastAlarm() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAlarm, !e.lastAlarm.IsZero()
}

// Wait blocks until background deliveries have finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}
