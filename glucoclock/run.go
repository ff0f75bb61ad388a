package glucoclock

import (
	"context"
	"fmt"
	"time"

	"glucoclock/glucoclock/defs"
	"glucoclock/glucoclock/pkg/brightness"
	"glucoclock/glucoclock/pkg/clock"
	"glucoclock/glucoclock/pkg/dexcom"
	"glucoclock/glucoclock/pkg/discgo"
	"glucoclock/glucoclock/pkg/http"
	"glucoclock/glucoclock/pkg/mg"
	"glucoclock/glucoclock/pkg/rpc"
	"glucoclock/glucoclock/pkg/sound"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const setupTimeout = 10 * time.Second

// Setup builds a server backed by the Dexcom Share API, the sysfs backlight
// and the configured sound player, plus the optional Mongo journal and
// Discord alerts channel.
func Setup(ctx context.Context, config defs.Config, logger *zap.Logger) (*Server, error) {
	loc, err := config.Location()
	if err != nil {
		return nil, fmt.Errorf("unable to load timezone: %w", err)
	}

	c := clock.Real{Location: loc}
	client, err := dexcom.New(config.Dexcom, c, logger.Named("dexcom"))
	if err != nil {
		return nil, err
	}

	deps := Deps{
		Clock:   c,
		Fetcher: client,
		Sounder: sound.New(config.Sound, logger.Named("sound")),
		Device: brightness.Backlight{
			Path:    config.Brightness.Path,
			MaxPath: config.Brightness.MaxPath,
		},
	}

	var closers []func(context.Context) error

	if config.Mongo.URI != "" {
		setupCtx, cancel := context.WithTimeout(ctx, setupTimeout)
		defer cancel()

		ms, err := mg.New(setupCtx, config.Mongo, logger.Named("mongo"))
		if err != nil {
			return nil, err
		}
		deps.Journal = ms
		deps.Notifiers = append(deps.Notifiers, ms)
		closers = append(closers, ms.Close)
	}

	if config.Discord.Token != "" {
		d, err := discgo.New(config.Discord.Token, config.Discord.Channel, logger.Named("discord"), loc)
		if err != nil {
			return nil, err
		}
		deps.Notifiers = append(deps.Notifiers, d)
	}

	s, err := New(config, deps, logger)
	if err != nil {
		return nil, err
	}

	for _, fn := range closers {
		s.AddCloser(fn)
	}

	logger.Debug("finished server setup", zap.Any("config", config.Redacted()))
	return s, nil
}

// Run starts the poller, the periodic alarm, brightness and health checks and
// the configured API surfaces, and blocks until ctx is done or a surface fails.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	tasks := []struct {
		name     string
		interval time.Duration
		task     func(context.Context)
	}{
		{"alarm", s.Config.Alarm.CheckInterval, func(ctx context.Context) { s.Alarm.Tick(ctx) }},
		{"brightness", s.Config.Brightness.CheckInterval, func(ctx context.Context) { s.Brightness.Tick(ctx) }},
		{"health", healthInterval, s.refreshHealth},
	}
	for _, t := range tasks {
		if err := s.Runner.Every(ctx, t.name, t.interval, t.task); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Poller.Run(ctx)
		return nil
	})
	g.Go(func() error {
		s.Runner.Run(ctx)
		return nil
	})

	if addr := s.Config.HTTP.Addr; addr != "" {
		hs := http.New(s, s.Journal, s.Logger.Named("http"))
		g.Go(func() error {
			return hs.Run(ctx, addr)
		})
	}

	if addr := s.Config.GRPC.Addr; addr != "" {
		rs := rpc.New(s, s.Health, s.Logger.Named("grpc"))
		g.Go(func() error {
			return rs.Run(ctx, addr)
		})
	}

	s.Logger.Info("glucoclock running",
		zap.Stringer("alarm window", s.Config.Alarm.Window),
		zap.Stringer("dim window", s.Config.Brightness.Window),
		zap.Float64("low", s.Config.Glucose.Low),
		zap.Float64("high", s.Config.Glucose.High),
	)

	err := g.Wait()
	s.Alarm.Wait()
	s.Logger.Info("glucoclock stopped")
	return err
}
