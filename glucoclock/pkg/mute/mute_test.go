package mute

import (
	"testing"
	"time"

	"glucoclock/glucoclock/defs"
	"glucoclock/glucoclock/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MuteTestSuite struct {
	suite.Suite
	clock *clock.Mock
	mute  *Controller
}

func TestMuteTestSuite(t *testing.T) {
	suite.Run(t, new(MuteTestSuite))
}

func (suite *MuteTestSuite) SetupTest() {
	suite.clock = clock.NewMock(time.Date(2024, time.May, 1, 23, 0, 0, 0, time.UTC))
	suite.mute = New(suite.clock, time.Hour)
}

func (suite *MuteTestSuite) TestMuteExpires() {
	start := suite.clock.Now()
	require.NoError(suite.T(), suite.mute.Mute(3600*time.Second))

	assert.True(suite.T(), suite.mute.IsMuted(start))
	assert.True(suite.T(), suite.mute.IsMuted(start.Add(3599*time.Second)))
	assert.False(suite.T(), suite.mute.IsMuted(start.Add(3600*time.Second)), "expiry is exclusive")
	// Cleared lazily, stays cleared.
	assert.False(suite.T(), suite.mute.IsMuted(start))
}

func (suite *MuteTestSuite) TestRemaining() {
	start := suite.clock.Now()
	_, ok := suite.mute.Remaining(start)
	assert.False(suite.T(), ok)

	require.NoError(suite.T(), suite.mute.Mute(10*time.Minute))
	left, ok := suite.mute.Remaining(start.Add(4 * time.Minute))
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), 6*time.Minute, left)
	assert.Equal(suite.T(), "06:00", FormatRemaining(left))
}

func (suite *MuteTestSuite) TestMuteOverwrites() {
	start := suite.clock.Now()
	require.NoError(suite.T(), suite.mute.Mute(time.Hour))
	require.NoError(suite.T(), suite.mute.Mute(time.Minute))

	assert.False(suite.T(), suite.mute.IsMuted(start.Add(2*time.Minute)))
}

func (suite *MuteTestSuite) TestInvalidDuration() {
	assert.ErrorIs(suite.T(), suite.mute.Mute(0), defs.ErrInvalidDuration)
	assert.ErrorIs(suite.T(), suite.mute.Mute(-time.Second), defs.ErrInvalidDuration)
	assert.False(suite.T(), suite.mute.IsMuted(suite.clock.Now()))
}

func (suite *MuteTestSuite) TestToggle() {
	assert.True(suite.T(), suite.mute.Toggle())
	assert.True(suite.T(), suite.mute.IsMuted(suite.clock.Now()))

	assert.False(suite.T(), suite.mute.Toggle())
	assert.False(suite.T(), suite.mute.IsMuted(suite.clock.Now()))

	// An expired mute toggles back on rather than off.
	suite.mute.Toggle()
	suite.clock.Advance(2 * time.Hour)
	assert.True(suite.T(), suite.mute.Toggle())
}

func (suite *MuteTestSuite) TestUnmute() {
	require.NoError(suite.T(), suite.mute.Mute(time.Hour))
	suite.mute.Unmute()
	assert.False(suite.T(), suite.mute.IsMuted(suite.clock.Now()))
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "59:59", FormatRemaining(time.Hour-time.Second))
	assert.Equal(t, "00:00", FormatRemaining(0))
	assert.Equal(t, "01:05", FormatRemaining(65*time.Second))
}
