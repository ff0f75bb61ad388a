// Package window classifies instants against daily time-of-day windows.
package window

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const MinutesPerDay = 24 * 60

// MinuteOfDay is a time of day expressed as minutes since midnight, 0-1439.
type MinuteOfDay int

// At returns the minute of day of t in t's own location.
func At(t time.Time) MinuteOfDay {
	return MinuteOfDay(t.Hour()*60 + t.Minute())
}

// Parse reads an "HH:MM" clock time.
func Parse(s string) (MinuteOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}

	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}

	return MinuteOfDay(h*60 + m), nil
}

func (m MinuteOfDay) Valid() bool {
	return m >= 0 && m < MinutesPerDay
}

func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

func (m MinuteOfDay) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

func (m *MinuteOfDay) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := Parse(value.Value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// SetValue lets cleanenv decode the value from an environment variable.
func (m *MinuteOfDay) SetValue(s string) error {
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// InWindow reports whether now falls in [start, end). When start > end the
// window wraps midnight and membership is now >= start || now < end.
// A window with start == end is empty.
func InWindow(now, start, end MinuteOfDay) bool {
	if start <= end {
		return now >= start && now < end
	}
	return now >= start || now < end
}

// Window is a configured daily range such as the alarm or night-dimming window.
type Window struct {
	Start MinuteOfDay `yaml:"start" env:"START"`
	End   MinuteOfDay `yaml:"end" env:"END"`
}

// Contains classifies t using its wall clock in loc. A nil loc keeps t's location.
func (w Window) Contains(t time.Time, loc *time.Location) bool {
	if loc != nil {
		t = t.In(loc)
	}
	return InWindow(At(t), w.Start, w.End)
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}
