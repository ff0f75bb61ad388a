package defs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTrend(t *testing.T) {
	assert.Equal(t, DoubleUp, ParseTrend("DoubleUp"))
	assert.Equal(t, Flat, ParseTrend("Flat"))
	assert.Equal(t, DoubleDown, ParseTrend("DoubleDown"))
	assert.Equal(t, TrendUnknown, ParseTrend("NotComputable"))
	assert.Equal(t, TrendUnknown, ParseTrend("None"))
	assert.Equal(t, "FortyFiveDown", FortyFiveDown.String())
	assert.Equal(t, "Unknown", Trend(42).String())
}

func TestNewReadingClampsSampleTime(t *testing.T) {
	fetched := time.Date(2024, time.May, 1, 3, 0, 0, 0, time.UTC)

	r := NewReading(5.5, Flat, fetched.Add(time.Minute), fetched)
	assert.Equal(t, fetched, r.SampledAt)

	r = NewReading(5.5, Flat, fetched.Add(-4*time.Minute), fetched)
	assert.Equal(t, 4*time.Minute, r.Age(fetched))
	assert.Zero(t, r.Age(fetched.Add(-time.Hour)))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, BandLow, Classify(3.4, 3.5, 10))
	assert.Equal(t, BandNormal, Classify(3.5, 3.5, 10))
	assert.Equal(t, BandNormal, Classify(9.9, 3.5, 10))
	assert.Equal(t, BandHigh, Classify(10, 3.5, 10))
}

func TestNewAlert(t *testing.T) {
	at := time.Now()
	a := NewAlert(HighAlarm, "current value: 12.00 ≥ 10.00", 12, at)
	b := NewAlert(HighAlarm, "current value: 12.00 ≥ 10.00", 12, at)

	assert.Equal(t, "High Glucose", a.Label)
	assert.Equal(t, "high", a.Kind)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, at, a.GetTime())
}

func TestReason(t *testing.T) {
	assert.Empty(t, Reason(nil))
	assert.Equal(t, "Timed out", Reason(&FetchError{Err: context.DeadlineExceeded}))
	assert.Equal(t, "Authentication failed", Reason(&FetchError{Err: fmt.Errorf("login: %w", ErrAuth)}))
	assert.Equal(t, "No data", Reason(&FetchError{Err: ErrNoData}))
	assert.Equal(t, "Connection error", Reason(errors.New("dial tcp: refused")))

	var fe *FetchError
	assert.True(t, errors.As(fmt.Errorf("poll: %w", &FetchError{Err: ErrNoData}), &fe))
}

func TestParseAlarmKind(t *testing.T) {
	k, err := ParseAlarmKind("low")
	assert.NoError(t, err)
	assert.Equal(t, LowAlarm, k)

	k, err = ParseAlarmKind("HIGH")
	assert.NoError(t, err)
	assert.Equal(t, HighAlarm, k)

	_, err = ParseAlarmKind("none")
	assert.ErrorIs(t, err, ErrUnknownAlarm)
}
