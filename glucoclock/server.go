package glucoclock

import (
	"context"
	"fmt"
	"time"

	"glucoclock/glucoclock/defs"
	"glucoclock/glucoclock/pkg/alarm"
	"glucoclock/glucoclock/pkg/brightness"
	"glucoclock/glucoclock/pkg/clock"
	"glucoclock/glucoclock/pkg/mg"
	"glucoclock/glucoclock/pkg/mute"
	"glucoclock/glucoclock/pkg/poller"
	"glucoclock/glucoclock/pkg/readings"
	"glucoclock/glucoclock/pkg/rpc"
	"glucoclock/glucoclock/pkg/schedule"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthInterval = 10 * time.Second

// Deps are the collaborators the core drives.
type Deps struct {
	Clock   clock.Clock
	Fetcher poller.Fetcher
	Sounder alarm.Sounder
	Device  brightness.Device

	// Journal is optional.
	Journal   mg.AlertStore
	Notifiers []alarm.Notifier
}

type Server struct {
	Config   defs.Config
	Logger   *zap.Logger
	Location *time.Location
	Clock    clock.Clock

	Readings   *readings.Store
	Mute       *mute.Controller
	Poller     *poller.Poller
	Alarm      *alarm.Engine
	Brightness *brightness.Scheduler
	Runner     *schedule.Runner
	Health     *health.Server
	Journal    mg.AlertStore

	closers []func(context.Context) error
}

func New(config defs.Config, deps Deps, logger *zap.Logger) (*Server, error) {
	loc, err := config.Location()
	if err != nil {
		return nil, fmt.Errorf("unable to load timezone: %w", err)
	}

	c := deps.Clock
	if c == nil {
		c = clock.Real{Location: loc}
	}

	store := readings.New(c)
	mc := mute.New(c, config.Mute.Duration)

	p := poller.New(deps.Fetcher, store, c, poller.Config{
		Interval:      config.Poll.Interval,
		RetryInterval: config.Poll.RetryInterval,
		Timeout:       config.Poll.Timeout,
	}, logger.Named("poller"))

	engine := alarm.New(alarm.Policy{
		Low:      config.Glucose.Low,
		High:     config.Glucose.High,
		Cooldown: config.Alarm.Cooldown,
		Window:   config.Alarm.Window,
		Location: loc,
	}, store, mc, deps.Sounder, c, logger.Named("alarm"), deps.Notifiers...)

	bs := brightness.New(brightness.Config{
		Window:       config.Brightness.Window,
		Location:     loc,
		DayPercent:   config.Brightness.DayPercent,
		NightPercent: config.Brightness.NightPercent,
	}, deps.Device, c, logger.Named("brightness"))

	hs := health.NewServer()
	hs.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		Config:     config,
		Logger:     logger,
		Location:   loc,
		Clock:      c,
		Readings:   store,
		Mute:       mc,
		Poller:     p,
		Alarm:      engine,
		Brightness: bs,
		Runner:     schedule.New(logger.Named("schedule")),
		Health:     hs,
		Journal:    deps.Journal,
	}, nil
}

func (s *Server) CurrentReading() (defs.Reading, bool) {
	return s.Readings.Current()
}

func (s *Server) LastFetchError() error {
	return s.Readings.LastError()
}

func (s *Server) SecondsUntilNextPoll() int {
	return s.Poller.SecondsUntilNextPoll()
}

// RequestImmediateUpdate reports whether a fetch was requested; it is false
// while one is already in flight.
func (s *Server) RequestImmediateUpdate() bool {
	return s.Poller.RequestImmediateUpdate()
}

func (s *Server) ToggleMute() bool {
	muted := s.Mute.Toggle()
	s.Logger.Info("toggled mute", zap.Bool("muted", muted))
	return muted
}

func (s *Server) IsMuted() bool {
	return s.Mute.IsMuted(s.Clock.Now())
}

func (s *Server) MuteRemaining() (time.Duration, bool) {
	return s.Mute.Remaining(s.Clock.Now())
}

func (s *Server) MuteStatus() defs.MuteStatus {
	left, ok := s.MuteRemaining()
	if !ok {
		return defs.MuteStatus{}
	}
	return defs.MuteStatus{Muted: true, Remaining: mute.FormatRemaining(left)}
}

// TestAlarm plays the "low" or "high" alarm sound once, regardless of mute
// and window.
func (s *Server) TestAlarm(ctx context.Context, kind string) error {
	k, err := defs.ParseAlarmKind(kind)
	if err != nil {
		return err
	}
	return s.Alarm.Play(ctx, k)
}

func (s *Server) Status() defs.Status {
	snap := s.Readings.Snapshot()
	st := defs.Status{
		HasReading:      snap.HasReading,
		Error:           defs.Reason(snap.Err),
		NextPollSeconds: s.SecondsUntilNextPoll(),
		Mute:            s.MuteStatus(),
	}
	if snap.HasReading {
		r := snap.Reading
		st.Mmol = r.Mmol
		st.Trend = r.Trend.String()
		st.Band = defs.Classify(r.Mmol, s.Config.Glucose.Low, s.Config.Glucose.High).String()
		st.SampledAt = r.SampledAt.In(s.Location)
		st.FetchedAt = r.FetchedAt.In(s.Location)
		st.AgeSeconds = int(snap.Age / time.Second)
	}
	return st
}

// refreshHealth reports SERVING while the last fetch succeeded.
func (s *Server) refreshHealth(_ context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if _, ok := s.Readings.Current(); !ok || s.Readings.LastError() != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.Health.SetServingStatus(rpc.ServiceName, status)
	s.Health.SetServingStatus("", status)
}

// AddCloser registers fn to run after Run returns.
func (s *Server) AddCloser(fn func(context.Context) error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, fn := range s.closers {
		if err := fn(ctx); err != nil {
			s.Logger.Error("unable to close resource", zap.Error(err))
		}
	}
}
