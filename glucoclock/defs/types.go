package defs

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Trend int

const (
	TrendUnknown Trend = iota
	DoubleUp
	SingleUp
	FortyFiveUp
	Flat
	FortyFiveDown
	SingleDown
	DoubleDown
)

var trendNames = [...]string{
	"Unknown", "DoubleUp", "SingleUp", "FortyFiveUp", "Flat", "FortyFiveDown", "SingleDown", "DoubleDown",
}

// ParseTrend maps a Share API trend name to a direction. Names outside the seven
// directions ("None", "NotComputable", "RateOutOfRange", ...) are TrendUnknown.
func ParseTrend(s string) Trend {
	for i := DoubleUp; i <= DoubleDown; i++ {
		if trendNames[i] == s {
			return i
		}
	}
	return TrendUnknown
}

func (t Trend) String() string {
	if t < TrendUnknown || t > DoubleDown {
		return trendNames[TrendUnknown]
	}
	return trendNames[t]
}

// Reading is one glucose measurement. Construct with NewReading.
type Reading struct {
	Mmol      float64
	Trend     Trend
	SampledAt time.Time
	FetchedAt time.Time
}

// NewReading builds a reading. A sample time later than the fetch time (sensor
// and local clocks disagree) is clamped to the fetch time.
func NewReading(mmol float64, trend Trend, sampledAt, fetchedAt time.Time) Reading {
	if sampledAt.After(fetchedAt) {
		sampledAt = fetchedAt
	}
	return Reading{
		Mmol:      mmol,
		Trend:     trend,
		SampledAt: sampledAt,
		FetchedAt: fetchedAt,
	}
}

// Age is the time elapsed between sampling and now.
func (r Reading) Age(now time.Time) time.Duration {
	if now.Before(r.SampledAt) {
		return 0
	}
	return now.Sub(r.SampledAt)
}

// Outcome is the result of one fetch attempt: a reading or a failure.
type Outcome struct {
	Reading Reading
	Err     error
}

func Success(r Reading) Outcome {
	return Outcome{Reading: r}
}

func Failure(err error) Outcome {
	return Outcome{Err: err}
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

type Band int

const (
	BandNormal Band = iota
	BandLow
	BandHigh
)

func (b Band) String() string {
	return [...]string{"normal", "low", "high"}[b]
}

// Classify gives the display band of a value: below low is low, at or above
// high is high.
func Classify(mmol, low, high float64) Band {
	switch {
	case mmol < low:
		return BandLow
	case mmol >= high:
		return BandHigh
	default:
		return BandNormal
	}
}

type AlarmKind int

const (
	NoAlarm AlarmKind = iota
	LowAlarm
	HighAlarm
)

func (k AlarmKind) String() string {
	return [...]string{"none", "low", "high"}[k]
}

// ParseAlarmKind accepts "low" or "high".
func ParseAlarmKind(s string) (AlarmKind, error) {
	switch strings.ToLower(s) {
	case "low":
		return LowAlarm, nil
	case "high":
		return HighAlarm, nil
	default:
		return NoAlarm, fmt.Errorf("%w %q", ErrUnknownAlarm, s)
	}
}

// Label is the human-readable alert title.
func (k AlarmKind) Label() string {
	return [...]string{"", "Low Glucose", "High Glucose"}[k]
}

// Alert records one fired alarm.
type Alert struct {
	ID     string    `bson:"_id" json:"id"`
	Time   time.Time `bson:"time" json:"time"`
	Kind   string    `bson:"kind" json:"kind"`
	Label  string    `bson:"label" json:"label"`
	Reason string    `bson:"reason" json:"reason"`
	Mmol   float64   `bson:"mmol" json:"mmol"`
}

func NewAlert(kind AlarmKind, reason string, mmol float64, at time.Time) Alert {
	return Alert{
		ID:     uuid.NewString(),
		Time:   at,
		Kind:   kind.String(),
		Label:  kind.Label(),
		Reason: reason,
		Mmol:   mmol,
	}
}

func (al *Alert) GetTime() time.Time {
	return al.Time
}

// Status is the view of the clock shown by the presentation surfaces.
type Status struct {
	HasReading      bool       `json:"hasReading"`
	Mmol            float64    `json:"mmol"`
	Trend           string     `json:"trend"`
	Band            string     `json:"band"`
	SampledAt       time.Time  `json:"sampledAt"`
	FetchedAt       time.Time  `json:"fetchedAt"`
	AgeSeconds      int        `json:"ageSeconds"`
	Error           string     `json:"error,omitempty"`
	NextPollSeconds int        `json:"nextPollSeconds"`
	Mute            MuteStatus `json:"mute"`
}

type MuteStatus struct {
	Muted     bool   `json:"muted"`
	Remaining string `json:"remaining,omitempty"`
}
