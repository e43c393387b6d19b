// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the TraitScope configuration.
//
// Configuration is a single YAML file. All fields have working defaults;
// an absent file yields DefaultConfig(). Validation runs after defaults
// are applied, so a loaded config is always usable or the load fails.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MaxConfigFileSize caps the YAML file size to keep a corrupt or
// misdirected path from ballooning memory.
const MaxConfigFileSize = 1024 * 1024

// Sentinel errors for configuration loading.
var (
	// ErrConfigTooLarge indicates the YAML file exceeds MaxConfigFileSize.
	ErrConfigTooLarge = errors.New("config file too large")

	// ErrInvalidConfig indicates validation failed after defaults.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Duration wraps time.Duration with YAML support for strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Environment describes the compiler environment handed to spawned
// analyzer processes, merged over the client's own environment.
type Environment struct {
	// IncludePaths are extra header search directories, exported as
	// C_INCLUDE_PATH and CPLUS_INCLUDE_PATH.
	IncludePaths []string `yaml:"include_paths"`

	// Vars are additional variables set verbatim.
	Vars map[string]string `yaml:"vars"`
}

// Config is the complete TraitScope configuration.
type Config struct {
	// ServerPath is the analyzer executable, resolved via PATH when not
	// absolute.
	ServerPath string `yaml:"server_path" validate:"required"`

	// ServerArgs are extra arguments placed before the generated ones.
	ServerArgs []string `yaml:"server_args"`

	// Extensions are the artifact extensions the engine accepts.
	Extensions []string `yaml:"extensions" validate:"min=1,dive,startswith=."`

	// WorkDirName is the per-artifact working directory name, created
	// next to the artifact for sockets, session logs, and redirected
	// process output.
	WorkDirName string `yaml:"work_dir_name" validate:"required,excludesall=/"`

	// StartupTimeout bounds spawn plus handshake.
	StartupTimeout Duration `yaml:"startup_timeout" validate:"min=1000000"`

	// ShutdownTimeout bounds graceful process termination before kill.
	ShutdownTimeout Duration `yaml:"shutdown_timeout" validate:"min=1000000"`

	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// LogDir enables client-side file logging when set.
	LogDir string `yaml:"log_dir"`

	// Environment is the compiler environment for spawned processes.
	Environment Environment `yaml:"environment"`
}

// DefaultConfig returns working defaults for a C/C++ analyzer.
func DefaultConfig() Config {
	return Config{
		ServerPath:      "tsar-server",
		Extensions:      []string{".c", ".cpp", ".cc", ".cxx", ".h", ".hpp"},
		WorkDirName:     ".traitscope",
		StartupTimeout:  Duration(30 * time.Second),
		ShutdownTimeout: Duration(5 * time.Second),
		LogLevel:        "info",
	}
}

// ApplyDefaults fills zero-valued fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.ServerPath == "" {
		c.ServerPath = def.ServerPath
	}
	if len(c.Extensions) == 0 {
		c.Extensions = def.Extensions
	}
	if c.WorkDirName == "" {
		c.WorkDirName = def.WorkDirName
	}
	if c.StartupTimeout == 0 {
		c.StartupTimeout = def.StartupTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Recognizes reports whether ext (including the dot) is an accepted
// artifact extension.
func (c *Config) Recognizes(ext string) bool {
	for _, e := range c.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Load reads a YAML config file, applies defaults, and validates.
//
// Inputs:
//
//	path - YAML file path. Empty returns DefaultConfig() validated.
//
// Outputs:
//
//	*Config - The usable configuration.
//	error - Read, parse, or validation failure.
func Load(path string) (*Config, error) {
	cfg := Config{}
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat config: %w", err)
		}
		if info.Size() > MaxConfigFileSize {
			return nil, fmt.Errorf("%w: %d bytes", ErrConfigTooLarge, info.Size())
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
