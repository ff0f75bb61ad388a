package sound

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"glucoclock/glucoclock/defs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPlayPassesFile(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	out := filepath.Join(t.TempDir(), "played")
	p := New(defs.SoundConfig{
		Command:  sh,
		Args:     []string{"-c", `echo "$0" >> ` + out},
		LowFile:  "low.wav",
		HighFile: "high.wav",
		Timeout:  5 * time.Second,
	}, zap.NewNop())

	require.NoError(t, p.PlayLow(context.Background()))
	require.NoError(t, p.PlayHigh(context.Background()))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "low.wav\nhigh.wav\n", string(raw))
}

func TestPlayFailure(t *testing.T) {
	p := New(defs.SoundConfig{Command: "glucoclock-no-such-player", LowFile: "low.wav"}, zap.NewNop())

	var pe *defs.PlaybackError
	assert.ErrorAs(t, p.PlayLow(context.Background()), &pe)
}

func TestPlayTimeout(t *testing.T) {
	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}

	p := New(defs.SoundConfig{
		Command:  sleep,
		HighFile: "5",
		Timeout:  50 * time.Millisecond,
	}, zap.NewNop())

	start := time.Now()
	var pe *defs.PlaybackError
	assert.ErrorAs(t, p.PlayHigh(context.Background()), &pe)
	assert.Less(t, time.Since(start), 4*time.Second)
}
