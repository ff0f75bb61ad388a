package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"glucoclock/glucoclock/defs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestGenerate(t *testing.T) {
	cfg, env := generate(initOptions{
		dexcomAccount:  "patient",
		dexcomPassword: "hunter2",
		dexcomRegion:   "us",
		glucoseLow:     4,
		glucoseHigh:    9,
		mongoUsername:  "admin",
		mongoPassword:  "secret",
		timezone:       "America/Toronto",
	})

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "patient", cfg.Dexcom.Account)
	assert.Empty(t, cfg.Dexcom.Password)
	assert.Equal(t, 4.0, cfg.Glucose.Low)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Mongo.URI)
	assert.Equal(t, map[string]string{
		"DEXCOM_PASSWORD": "hunter2",
		"MONGO_USERNAME":  "admin",
		"MONGO_PASSWORD":  "secret",
	}, env)
	assert.Equal(t, "DEXCOM_PASSWORD=hunter2\nMONGO_PASSWORD=secret\nMONGO_USERNAME=admin\n", envString(env))
}

func TestGeneratedConfigLoads(t *testing.T) {
	cfg, _ := generate(initOptions{dexcomAccount: "patient", dexcomRegion: "jp", glucoseLow: 3.9, glucoseHigh: 10})
	data, err := yaml.Marshal(&cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeNew(path, data, 0o644, false))

	loaded, err := defs.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Dexcom, loaded.Dexcom)
	assert.Equal(t, cfg.Alarm, loaded.Alarm)
	assert.Equal(t, cfg.Poll, loaded.Poll)
}

func TestWriteNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeNew(path, []byte("a"), 0o644, false))
	assert.Error(t, writeNew(path, []byte("b"), 0o644, false))
	require.NoError(t, writeNew(path, []byte("c"), 0o644, true))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "c", string(raw))
}
