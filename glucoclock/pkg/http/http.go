// Package http serves the clock's state and controls over a small JSON API.
package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"glucoclock/glucoclock/defs"
	"glucoclock/glucoclock/pkg/mg"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	readTimeout     = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Clock is the part of the server the handlers drive.
type Clock interface {
	Status() defs.Status
	RequestImmediateUpdate() bool
	ToggleMute() bool
	MuteStatus() defs.MuteStatus
	TestAlarm(ctx context.Context, kind string) error
}

type HttpServer struct {
	Clock  Clock
	Alerts mg.AlertStore
	Logger *zap.Logger

	router *gin.Engine
}

// New builds the router. alerts may be nil when no journal is configured.
func New(c Clock, alerts mg.AlertStore, logger *zap.Logger) *HttpServer {
	hs := &HttpServer{
		Clock:  c,
		Alerts: alerts,
		Logger: logger,
	}
	hs.router = hs.routes()
	return hs
}

func (s *HttpServer) Handler() http.Handler {
	return s.router
}

// Run listens on addr until ctx is done.
func (s *HttpServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("http server listening", zap.String("address", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.Logger.Info("http server stopped")
	return nil
}

func (s *HttpServer) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests)

	r.GET("/reading", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Clock.Status())
	})

	r.POST("/update", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"started": s.Clock.RequestImmediateUpdate()})
	})

	r.GET("/mute", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Clock.MuteStatus())
	})

	r.POST("/mute/toggle", func(c *gin.Context) {
		s.Clock.ToggleMute()
		c.JSON(http.StatusOK, s.Clock.MuteStatus())
	})

	r.POST("/alarm/test/:kind", func(c *gin.Context) {
		err := s.Clock.TestAlarm(c.Request.Context(), c.Param("kind"))
		switch {
		case errors.Is(err, defs.ErrUnknownAlarm):
			c.String(http.StatusBadRequest, "expected alarm kind low or high")
		case err != nil:
			c.String(http.StatusInternalServerError, "unable to play alarm: %v", err)
		default:
			c.Status(http.StatusNoContent)
		}
	})

	r.GET("/alerts", func(c *gin.Context) {
		if s.Alerts == nil {
			c.String(http.StatusNotFound, "alert journal disabled")
			return
		}

		endUnix, err := strconv.ParseInt(c.DefaultQuery("end", ""), 10, 64)
		if err != nil {
			c.String(http.StatusBadRequest, "expected unix timestamp for end")
			return
		}

		startUnix, err := strconv.ParseInt(c.DefaultQuery("start", ""), 10, 64)
		if err != nil {
			c.String(http.StatusBadRequest, "expected unix timestamp for start")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
		defer cancel()

		alerts, err := s.Alerts.ReadAlerts(ctx, time.Unix(startUnix, 0), time.Unix(endUnix, 0))
		if err != nil {
			c.String(http.StatusInternalServerError, "something went wrong reading alerts: %v", err)
			return
		}

		c.JSON(http.StatusOK, alerts)
	})

	return r
}

func (s *HttpServer) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.Logger.Debug("handled request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("latency", time.Since(start)),
	)
}
