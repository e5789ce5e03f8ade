package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joeycumines/logiface"
)

// Config is the shell configuration, read from a TOML file.
//
//	strict = true
//	log_level = "debug"
//	prompt = "js> "
//	module_paths = ["./lib"]
type Config struct {
	// Strict compiles evaluated code in strict mode.
	Strict bool `toml:"strict"`
	// LogLevel is a logiface level name, e.g. "warning" or "debug".
	LogLevel string `toml:"log_level"`
	// Prompt is the REPL prefix.
	Prompt string `toml:"prompt"`
	// ModulePaths are searched by require() for non-relative module names.
	ModulePaths []string `toml:"module_paths"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		LogLevel: "warning",
		Prompt:   ">>> ",
	}
}

// LoadConfig reads the file at path over [DefaultConfig]. Unknown keys are
// an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig is [LoadConfig] for in-memory TOML.
func ParseConfig(data string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func checkUndecoded(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, len(undecoded))
	for i, k := range undecoded {
		keys[i] = k.String()
	}
	sort.Strings(keys)
	return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
}

var levels = map[string]logiface.Level{
	"disabled": logiface.LevelDisabled,
	"emerg":    logiface.LevelEmergency,
	"alert":    logiface.LevelAlert,
	"crit":     logiface.LevelCritical,
	"err":      logiface.LevelError,
	"error":    logiface.LevelError,
	"warning":  logiface.LevelWarning,
	"notice":   logiface.LevelNotice,
	"info":     logiface.LevelInformational,
	"debug":    logiface.LevelDebug,
	"trace":    logiface.LevelTrace,
}

// Level returns the parsed LogLevel. Names match [logiface.Level.String],
// and "error" is accepted as an alias of "err".
func (c Config) Level() (logiface.Level, error) {
	if level, ok := levels[strings.ToLower(c.LogLevel)]; ok {
		return level, nil
	}
	return logiface.LevelDisabled, fmt.Errorf("invalid log_level %q", c.LogLevel)
}
