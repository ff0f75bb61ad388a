// Package rpc exposes the clock over gRPC, alongside the standard health
// service.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"glucoclock/glucoclock/defs"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type Clock interface {
	Status() defs.Status
	RequestImmediateUpdate() bool
	ToggleMute() bool
	MuteStatus() defs.MuteStatus
}

type Service struct {
	Clock  Clock
	Logger *zap.Logger
}

func (s *Service) Snapshot(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(statusFields(s.Clock.Status()))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "unable to encode status: %v", err)
	}
	return st, nil
}

func (s *Service) UpdateNow(_ context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(s.Clock.RequestImmediateUpdate()), nil
}

func (s *Service) ToggleMute(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.Clock.ToggleMute()
	st, err := structpb.NewStruct(muteFields(s.Clock.MuteStatus()))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "unable to encode mute status: %v", err)
	}
	return st, nil
}

func statusFields(st defs.Status) map[string]interface{} {
	fields := map[string]interface{}{
		"hasReading":      st.HasReading,
		"nextPollSeconds": st.NextPollSeconds,
		"mute":            muteFields(st.Mute),
	}
	if st.HasReading {
		fields["mmol"] = st.Mmol
		fields["trend"] = st.Trend
		fields["band"] = st.Band
		fields["sampledAt"] = st.SampledAt.Format(time.RFC3339)
		fields["fetchedAt"] = st.FetchedAt.Format(time.RFC3339)
		fields["ageSeconds"] = st.AgeSeconds
	}
	if st.Error != "" {
		fields["error"] = st.Error
	}
	return fields
}

func muteFields(m defs.MuteStatus) map[string]interface{} {
	fields := map[string]interface{}{"muted": m.Muted}
	if m.Muted {
		fields["remaining"] = m.Remaining
	}
	return fields
}

type Server struct {
	grpc   *grpc.Server
	logger *zap.Logger
}

// New registers the clock service and hs as the health service.
func New(c Clock, hs *health.Server, logger *zap.Logger) *Server {
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary(logger)))
	RegisterClockServer(gs, &Service{Clock: c, Logger: logger})
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{grpc: gs, logger: logger}
}

// Serve blocks serving lis until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		s.grpc.GracefulStop()
		close(done)
	}()

	s.logger.Info("grpc server listening", zap.Stringer("address", lis.Addr()))
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("unable to serve grpc: %w", err)
	}

	<-done
	s.logger.Info("grpc server stopped")
	return nil
}

// Run listens on addr and serves until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, lis)
}

func logUnary(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("handled rpc",
			zap.String("method", info.FullMethod),
			zap.Stringer("code", status.Code(err)),
			zap.Duration("latency", time.Since(start)),
		)
		return resp, err
	}
}
