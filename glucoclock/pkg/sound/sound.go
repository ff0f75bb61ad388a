// Package sound plays alarm cues through an external audio player.
package sound

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"glucoclock/glucoclock/defs"

	"go.uber.org/zap"
)

type Player struct {
	Command  string
	Args     []string
	LowFile  string
	HighFile string
	Timeout  time.Duration
	Logger   *zap.Logger
}

func New(cfg defs.SoundConfig, logger *zap.Logger) *Player {
	return &Player{
		Command:  cfg.Command,
		Args:     cfg.Args,
		LowFile:  cfg.LowFile,
		HighFile: cfg.HighFile,
		Timeout:  cfg.Timeout,
		Logger:   logger,
	}
}

func (p *Player) PlayLow(ctx context.Context) error {
	return p.play(ctx, p.LowFile)
}

func (p *Player) PlayHigh(ctx context.Context) error {
	return p.play(ctx, p.HighFile)
}

func (p *Player) play(ctx context.Context, file string) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), p.Args...), file)
	cmd := exec.CommandContext(ctx, p.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.Logger.Debug("playing sound",
		zap.String("command", p.Command),
		zap.String("file", file),
	)

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return &defs.PlaybackError{Err: err}
	}
	return nil
}
