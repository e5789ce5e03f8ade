package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Strict)
	assert.Equal(t, ">>> ", cfg.Prompt)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logiface.LevelWarning, level)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(`
strict = true
log_level = "DEBUG"
module_paths = ["lib", "vendor/js"]
`)
	require.NoError(t, err)
	assert.True(t, cfg.Strict)
	assert.Equal(t, ">>> ", cfg.Prompt, "unset keys keep their defaults")
	assert.Equal(t, []string{"lib", "vendor/js"}, cfg.ModulePaths)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logiface.LevelDebug, level)
}

func TestParseConfig_Errors(t *testing.T) {
	for name, data := range map[string]string{
		"unknown key":   "strict = true\ncolour = \"red\"\n",
		"unknown table": "[server]\nport = 1\n",
		"bad level":     `log_level = "loud"`,
		"bad type":      `strict = "yes"`,
		"bad syntax":    `strict = `,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig(data)
			assert.Error(t, err)
		})
	}

	_, err := ParseConfig("colour = 1\nshade = 2\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys: colour, shade")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "gojabridge.toml")
	require.NoError(t, os.WriteFile(name, []byte("prompt = \"js> \"\nlog_level = \"error\"\n"), 0o600))

	cfg, err := LoadConfig(name)
	require.NoError(t, err)
	assert.Equal(t, "js> ", cfg.Prompt)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logiface.LevelError, level)

	_, err = LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}
