// Package poller fetches the latest reading on a self-adjusting countdown:
// the normal interval after a success, the short retry interval after a
// failure.
package poller

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"glucoclock/glucoclock/defs"
	"glucoclock/glucoclock/pkg/clock"

	"go.uber.org/zap"
)

// Fetcher is the remote sensor feed.
type Fetcher interface {
	FetchReading(ctx context.Context) (defs.Reading, error)
}

// Recorder receives each fetch outcome.
type Recorder interface {
	Record(o defs.Outcome)
}

var ErrInFlight = errors.New("fetch already in flight")

type State int

const (
	Idle State = iota
	Fetching
)

func (s State) String() string {
	return [...]string{"idle", "fetching"}[s]
}

type Config struct {
	Interval      time.Duration
	RetryInterval time.Duration
	Timeout       time.Duration
}

type Poller struct {
	fetcher Fetcher
	store   Recorder
	clock   clock.Clock
	config  Config
	logger  *zap.Logger

	trigger chan struct{}

	mu     sync.Mutex
	state  State
	nextAt time.Time
}

func New(fetcher Fetcher, store Recorder, c clock.Clock, config Config, logger *zap.Logger) *Poller {
	return &Poller{
		fetcher: fetcher,
		store:   store,
		clock:   c,
		config:  config,
		logger:  logger,
		trigger: make(chan struct{}, 1),
	}
}

// Run fetches immediately and then whenever the countdown expires or an
// update is requested, until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("starting poller",
		zap.Duration("interval", p.config.Interval),
		zap.Duration("retry interval", p.config.RetryInterval),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("stopping poller")
			return
		case <-timer.C:
		case <-p.trigger:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			p.logger.Debug("immediate update requested")
		}

		select {
		case <-p.trigger:
		default:
		}

		delay, err := p.Poll(ctx)
		switch {
		case errors.Is(err, ErrInFlight):
			delay = p.config.RetryInterval
		case err != nil:
			p.logger.Info("stopping poller")
			return
		}
		timer.Reset(delay)
	}
}

// Poll performs one fetch, records the outcome and returns the delay until
// the next attempt. It fails with ErrInFlight when another fetch is running,
// and with ctx's error when ctx ended first; nothing is recorded then.
func (p *Poller) Poll(ctx context.Context) (time.Duration, error) {
	if !p.begin() {
		return 0, ErrInFlight
	}

	outcome, ok := p.fetch(ctx)
	if !ok {
		p.finish(0)
		return 0, ctx.Err()
	}

	p.store.Record(outcome)
	delay := p.NextDelay(outcome)
	p.finish(delay)

	if outcome.OK() {
		p.logger.Debug("fetched reading",
			zap.Float64("mmol", outcome.Reading.Mmol),
			zap.Stringer("trend", outcome.Reading.Trend),
			zap.Time("sampled at", outcome.Reading.SampledAt),
			zap.Duration("next in", delay),
		)
	} else {
		p.logger.Error("unable to fetch reading",
			zap.Error(outcome.Err),
			zap.Duration("retry in", delay),
		)
	}

	return delay, nil
}

// NextDelay is the countdown length that follows an outcome.
func (p *Poller) NextDelay(o defs.Outcome) time.Duration {
	if o.OK() {
		return p.config.Interval
	}
	return p.config.RetryInterval
}

func (p *Poller) fetch(ctx context.Context) (defs.Outcome, bool) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	result := make(chan defs.Outcome, 1)
	go func() {
		r, err := p.fetcher.FetchReading(fetchCtx)
		if err != nil {
			result <- defs.Failure(wrapFetchError(err))
			return
		}
		result <- defs.Success(r)
	}()

	// A fetcher that ignores its context is abandoned once the timeout passes.
	select {
	case o := <-result:
		if ctx.Err() != nil {
			return defs.Outcome{}, false
		}
		return o, true
	case <-fetchCtx.Done():
		if ctx.Err() != nil {
			return defs.Outcome{}, false
		}
		return defs.Failure(&defs.FetchError{Err: defs.ErrTimeout}), true
	}
}

func wrapFetchError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = errors.Join(defs.ErrTimeout, err)
	}
	var fe *defs.FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &defs.FetchError{Err: err}
}

func (p *Poller) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Fetching {
		return false
	}
	p.state = Fetching
	return true
}

func (p *Poller) finish(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Idle
	p.nextAt = p.clock.Now().Add(delay)
}

// RequestImmediateUpdate cuts the countdown short. It is a no-op, returning
// false, while a fetch is in flight.
func (p *Poller) RequestImmediateUpdate() bool {
	if p.State() == Fetching {
		p.logger.Debug("fetch already in flight, ignoring update request")
		return false
	}

	select {
	case p.trigger <- struct{}{}:
	default:
		// A request is already pending.
	}
	return true
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SecondsUntilNextPoll rounds the countdown up to whole seconds. It is zero
// while fetching or before the first fetch is scheduled.
func (p *Poller) SecondsUntilNextPoll() int {
	now := p.clock.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Fetching || !p.nextAt.After(now) {
		return 0
	}
	return int(math.Ceil(p.nextAt.Sub(now).Seconds()))
}
