package brightness

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"glucoclock/glucoclock/defs"
)

const defaultMaxBrightness = 255

// Backlight drives a sysfs backlight such as
// /sys/class/backlight/rpi_backlight.
type Backlight struct {
	Path    string
	MaxPath string
}

// Max reads max_brightness, falling back to 255 when it cannot be read.
func (b Backlight) Max() int {
	if b.MaxPath == "" {
		return defaultMaxBrightness
	}
	raw, err := os.ReadFile(b.MaxPath)
	if err != nil {
		return defaultMaxBrightness
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || n <= 0 {
		return defaultMaxBrightness
	}
	return n
}

// SetBrightness writes percent of the maximum, never less than 1 so the
// panel stays lit.
func (b Backlight) SetBrightness(percent int) error {
	if percent < 0 || percent > 100 {
		return &defs.DeviceError{Err: fmt.Errorf("percent %d out of range", percent)}
	}

	value := max(1, b.Max()*percent/100)
	if err := os.WriteFile(b.Path, []byte(strconv.Itoa(value)), 0o644); err != nil {
		return &defs.DeviceError{Err: err}
	}
	return nil
}
