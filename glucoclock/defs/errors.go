package defs

import (
	"context"
	"errors"
)

var (
	ErrNoData          = errors.New("no glucose data available")
	ErrAuth            = errors.New("authentication failed")
	ErrTimeout         = errors.New("fetch timed out")
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrUnknownAlarm    = errors.New("unknown alarm kind")
)

// FetchError wraps any failure of the remote feed. All fetch errors are
// retried on the short interval.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return "unable to fetch reading: " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DeviceError wraps a failed brightness write.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string {
	return "unable to set brightness: " + e.Err.Error()
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// PlaybackError wraps a failed alarm sound.
type PlaybackError struct {
	Err error
}

func (e *PlaybackError) Error() string {
	return "unable to play alarm: " + e.Err.Error()
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// Reason gives the short text shown to the user for a fetch error.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "Timed out"
	case errors.Is(err, ErrAuth):
		return "Authentication failed"
	case errors.Is(err, ErrNoData):
		return "No data"
	default:
		return "Connection error"
	}
}
