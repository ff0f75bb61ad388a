package defs

import (
	"errors"
	"fmt"
	"time"

	"glucoclock/glucoclock/pkg/window"

	"github.com/ilyakaznacheev/cleanenv"
)

const DefaultConfigFile = "config.yaml"

const redacted = "<redacted>"

type Config struct {
	Dexcom     DexcomConfig     `yaml:"dexcom"`
	Glucose    GlucoseConfig    `yaml:"glucose"`
	Poll       PollConfig       `yaml:"poll"`
	Alarm      AlarmConfig      `yaml:"alarm"`
	Mute       MuteConfig       `yaml:"mute"`
	Brightness BrightnessConfig `yaml:"brightness"`
	Sound      SoundConfig      `yaml:"sound"`
	Discord    DiscordConfig    `yaml:"discord"`
	Mongo      MongoConfig      `yaml:"mongo"`
	HTTP       HTTPConfig       `yaml:"http"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	Logging    LoggingConfig    `yaml:"logging"`
	Timezone   string           `yaml:"timezone" env:"TIMEZONE"`
}

type DexcomConfig struct {
	Account  string `yaml:"account" env:"DEXCOM_ACCOUNT"`
	Password string `yaml:"password" env:"DEXCOM_PASSWORD"`
	Region   string `yaml:"region" env:"DEXCOM_REGION"`
}

type GlucoseConfig struct {
	Low  float64 `yaml:"low" env:"GLUCOSE_LOW"`
	High float64 `yaml:"high" env:"GLUCOSE_HIGH"`
}

type PollConfig struct {
	Interval      time.Duration `yaml:"interval" env:"POLL_INTERVAL"`
	RetryInterval time.Duration `yaml:"retryInterval" env:"POLL_RETRY_INTERVAL"`
	Timeout       time.Duration `yaml:"timeout" env:"POLL_TIMEOUT"`
}

type AlarmConfig struct {
	CheckInterval time.Duration `yaml:"checkInterval" env:"ALARM_CHECK_INTERVAL"`
	Cooldown      time.Duration `yaml:"cooldown" env:"ALARM_COOLDOWN"`
	Window        window.Window `yaml:"window" env-prefix:"ALARM_WINDOW_"`
}

type MuteConfig struct {
	Duration time.Duration `yaml:"duration" env:"MUTE_DURATION"`
}

type BrightnessConfig struct {
	CheckInterval time.Duration `yaml:"checkInterval" env:"BRIGHTNESS_CHECK_INTERVAL"`
	Window        window.Window `yaml:"window" env-prefix:"DIM_WINDOW_"`
	DayPercent    int           `yaml:"dayPercent" env:"BRIGHTNESS_DAY"`
	NightPercent  int           `yaml:"nightPercent" env:"BRIGHTNESS_NIGHT"`
	Path          string        `yaml:"path" env:"BACKLIGHT_PATH"`
	MaxPath       string        `yaml:"maxPath" env:"BACKLIGHT_MAX_PATH"`
}

type SoundConfig struct {
	Command  string        `yaml:"command" env:"SOUND_COMMAND"`
	Args     []string      `yaml:"args"`
	LowFile  string        `yaml:"lowFile" env:"SOUND_LOW_FILE"`
	HighFile string        `yaml:"highFile" env:"SOUND_HIGH_FILE"`
	Timeout  time.Duration `yaml:"timeout" env:"SOUND_TIMEOUT"`
}

type DiscordConfig struct {
	Token   string `yaml:"token" env:"DISCORD_TOKEN"`
	Channel string `yaml:"channel" env:"DISCORD_CHANNEL"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" env:"MONGO_URI"`
	Username string `yaml:"username" env:"MONGO_USERNAME"`
	Password string `yaml:"password" env:"MONGO_PASSWORD"`
	Database string `yaml:"database" env:"MONGO_DATABASE"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" env:"HTTP_ADDR"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr" env:"GRPC_ADDR"`
}

type LoggingConfig struct {
	Format string `yaml:"format" env:"LOG_FORMAT"`
	Level  string `yaml:"level" env:"LOG_LEVEL"`
}

// Default returns the settings of a bedside unit: alarms and dimming between
// 22:30 and 07:00, polling every five minutes.
func Default() Config {
	night := window.Window{Start: 22*60 + 30, End: 7 * 60}
	return Config{
		Dexcom:  DexcomConfig{Region: "ous"},
		Glucose: GlucoseConfig{Low: 3.5, High: 10.0},
		Poll: PollConfig{
			Interval:      300 * time.Second,
			RetryInterval: 30 * time.Second,
			Timeout:       15 * time.Second,
		},
		Alarm: AlarmConfig{
			CheckInterval: 10 * time.Second,
			Cooldown:      120 * time.Second,
			Window:        night,
		},
		Mute: MuteConfig{Duration: time.Hour},
		Brightness: BrightnessConfig{
			CheckInterval: time.Minute,
			Window:        night,
			DayPercent:    100,
			NightPercent:  10,
			Path:          "/sys/class/backlight/rpi_backlight/brightness",
			MaxPath:       "/sys/class/backlight/rpi_backlight/max_brightness",
		},
		Sound: SoundConfig{
			Command:  "aplay",
			Args:     []string{"-q"},
			LowFile:  "sounds/low.wav",
			HighFile: "sounds/high.wav",
			Timeout:  10 * time.Second,
		},
		Mongo:   MongoConfig{Database: "glucoclock"},
		Logging: LoggingConfig{Format: "console", Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	cfg := Default()
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Glucose.Low >= c.Glucose.High {
		errs = append(errs, fmt.Errorf("glucose.low (%.1f) must be below glucose.high (%.1f)", c.Glucose.Low, c.Glucose.High))
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"poll.interval", c.Poll.Interval},
		{"poll.retryInterval", c.Poll.RetryInterval},
		{"poll.timeout", c.Poll.Timeout},
		{"alarm.checkInterval", c.Alarm.CheckInterval},
		{"alarm.cooldown", c.Alarm.Cooldown},
		{"mute.duration", c.Mute.Duration},
		{"brightness.checkInterval", c.Brightness.CheckInterval},
	}
	for _, d := range durations {
		if d.d < time.Second {
			errs = append(errs, fmt.Errorf("%s must be at least 1s, got %s", d.name, d.d))
		}
	}

	for name, w := range map[string]window.Window{"alarm.window": c.Alarm.Window, "brightness.window": c.Brightness.Window} {
		if !w.Start.Valid() || !w.End.Valid() {
			errs = append(errs, fmt.Errorf("%s out of range: %d-%d", name, w.Start, w.End))
		}
	}

	for name, p := range map[string]int{"brightness.dayPercent": c.Brightness.DayPercent, "brightness.nightPercent": c.Brightness.NightPercent} {
		if p < 0 || p > 100 {
			errs = append(errs, fmt.Errorf("%s must be within 0-100, got %d", name, p))
		}
	}

	if _, ok := ShareRegions[c.Dexcom.Region]; !ok {
		errs = append(errs, fmt.Errorf("unknown dexcom.region %q", c.Dexcom.Region))
	}

	if c.Discord.Token != "" && c.Discord.Channel == "" {
		errs = append(errs, errors.New("discord.channel is required with discord.token"))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone: %w", err))
	}

	if err := validateLogging(&c.Logging); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location resolves Timezone, defaulting to the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Dexcom.Password != "" {
		c.Dexcom.Password = redacted
	}
	if c.Discord.Token != "" {
		c.Discord.Token = redacted
	}
	if c.Mongo.Password != "" {
		c.Mongo.Password = redacted
	}
	return c
}

// ShareRegions maps a region to its Share API host.
var ShareRegions = map[string]string{
	"us":  "https://share2.dexcom.com/ShareWebServices/Services",
	"ous": "https://shareous1.dexcom.com/ShareWebServices/Services",
	"jp":  "https://share.dexcom.jp/ShareWebServices/Services",
}
