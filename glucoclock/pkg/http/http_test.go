package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"glucoclock/glucoclock/defs"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type fakeClock struct {
	status   defs.Status
	fetching bool
	muted    bool
	played   []string
	playErr  error
}

func (c *fakeClock) Status() defs.Status { return c.status }

func (c *fakeClock) RequestImmediateUpdate() bool { return !c.fetching }

func (c *fakeClock) ToggleMute() bool {
	c.muted = !c.muted
	return c.muted
}

func (c *fakeClock) MuteStatus() defs.MuteStatus {
	if c.muted {
		return defs.MuteStatus{Muted: true, Remaining: "60:00"}
	}
	return defs.MuteStatus{}
}

func (c *fakeClock) TestAlarm(_ context.Context, kind string) error {
	if _, err := defs.ParseAlarmKind(kind); err != nil {
		return err
	}
	c.played = append(c.played, kind)
	return c.playErr
}

type fakeAlerts struct {
	alerts []defs.Alert
	start  time.Time
	end    time.Time
}

func (f *fakeAlerts) WriteAlert(context.Context, *defs.Alert) (*mongo.UpdateResult, error) {
	return &mongo.UpdateResult{}, nil
}

func (f *fakeAlerts) ReadAlerts(_ context.Context, start, end time.Time) ([]defs.Alert, error) {
	f.start, f.end = start, end
	return f.alerts, nil
}

type HttpTestSuite struct {
	suite.Suite
	clock  *fakeClock
	alerts *fakeAlerts
	server *HttpServer
}

func TestHttpTestSuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(HttpTestSuite))
}

func (suite *HttpTestSuite) SetupTest() {
	suite.clock = &fakeClock{}
	suite.alerts = &fakeAlerts{}
	suite.server = New(suite.clock, suite.alerts, zap.NewNop())
}

func (suite *HttpTestSuite) do(method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	suite.server.Handler().ServeHTTP(w, req)
	return w
}

func (suite *HttpTestSuite) TestReading() {
	sampled := time.Date(2024, time.May, 1, 23, 0, 0, 0, time.UTC)
	suite.clock.status = defs.Status{
		HasReading:      true,
		Mmol:            5.4,
		Trend:           "Flat",
		Band:            "normal",
		SampledAt:       sampled,
		FetchedAt:       sampled.Add(time.Minute),
		AgeSeconds:      75,
		Error:           "Timed out",
		NextPollSeconds: 25,
	}

	w := suite.do(http.MethodGet, "/reading")
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var got defs.Status
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(suite.T(), suite.clock.status.Mmol, got.Mmol)
	assert.Equal(suite.T(), "Timed out", got.Error)
	assert.Equal(suite.T(), 25, got.NextPollSeconds)
	assert.True(suite.T(), got.SampledAt.Equal(sampled))
}

func (suite *HttpTestSuite) TestUpdate() {
	w := suite.do(http.MethodPost, "/update")
	assert.JSONEq(suite.T(), `{"started":true}`, w.Body.String())

	suite.clock.fetching = true
	w = suite.do(http.MethodPost, "/update")
	assert.JSONEq(suite.T(), `{"started":false}`, w.Body.String())
}

func (suite *HttpTestSuite) TestMuteToggle() {
	w := suite.do(http.MethodGet, "/mute")
	assert.JSONEq(suite.T(), `{"muted":false}`, w.Body.String())

	w = suite.do(http.MethodPost, "/mute/toggle")
	assert.JSONEq(suite.T(), `{"muted":true,"remaining":"60:00"}`, w.Body.String())

	w = suite.do(http.MethodPost, "/mute/toggle")
	assert.JSONEq(suite.T(), `{"muted":false}`, w.Body.String())
}

func (suite *HttpTestSuite) TestAlarmTest() {
	assert.Equal(suite.T(), http.StatusNoContent, suite.do(http.MethodPost, "/alarm/test/low").Code)
	assert.Equal(suite.T(), http.StatusBadRequest, suite.do(http.MethodPost, "/alarm/test/loud").Code)

	suite.clock.playErr = &defs.PlaybackError{Err: errors.New("no device")}
	assert.Equal(suite.T(), http.StatusInternalServerError, suite.do(http.MethodPost, "/alarm/test/high").Code)

	assert.Equal(suite.T(), []string{"low", "high"}, suite.clock.played)
}

func (suite *HttpTestSuite) TestAlerts() {
	at := time.Date(2024, time.May, 1, 23, 0, 0, 0, time.UTC)
	suite.alerts.alerts = []defs.Alert{defs.NewAlert(defs.LowAlarm, "current value: 3.00 ≤ 3.50", 3.0, at)}

	w := suite.do(http.MethodGet, "/alerts?start=1714600000&end=1714700000")
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var got []defs.Alert
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(suite.T(), got, 1)
	assert.Equal(suite.T(), "Low Glucose", got[0].Label)
	assert.Equal(suite.T(), time.Unix(1714600000, 0), suite.alerts.start)
	assert.Equal(suite.T(), time.Unix(1714700000, 0), suite.alerts.end)

	assert.Equal(suite.T(), http.StatusBadRequest, suite.do(http.MethodGet, "/alerts?start=yesterday&end=1").Code)
}

func (suite *HttpTestSuite) TestAlertsDisabled() {
	s := New(suite.clock, nil, zap.NewNop())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/alerts?start=0&end=1", nil))
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}
