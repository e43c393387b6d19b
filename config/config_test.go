// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "tsar-server", cfg.ServerPath)
	assert.Equal(t, ".traitscope", cfg.WorkDirName)
	assert.Equal(t, 30*time.Second, cfg.StartupTimeout.Std())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Recognizes(".c"))
	assert.True(t, cfg.Recognizes(".hpp"))
	assert.False(t, cfg.Recognizes(".go"))
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traitscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_path: /opt/tsar/bin/tsar-server
startup_timeout: 45s
log_level: debug
environment:
  include_paths:
    - /opt/tsar/include
  vars:
    TSAR_CACHE: /tmp/tsar
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/tsar/bin/tsar-server", cfg.ServerPath)
	assert.Equal(t, 45*time.Second, cfg.StartupTimeout.Std())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"/opt/tsar/include"}, cfg.Environment.IncludePaths)
	assert.Equal(t, "/tmp/tsar", cfg.Environment.Vars["TSAR_CACHE"])

	// Untouched fields stay at their defaults.
	assert.Equal(t, ".traitscope", cfg.WorkDirName)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout.Std())
}

func TestLoad_Failures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server_path: [unclosed"), 0o600))
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dur.yaml")
		require.NoError(t, os.WriteFile(path, []byte("startup_timeout: soonish"), 0o600))
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("invalid after defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "inv.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log_level: loud"), 0o600))
		_, err := Load(path)
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"extension without dot", func(c *Config) { c.Extensions = []string{"c"} }},
		{"empty extensions", func(c *Config) { c.Extensions = nil }},
		{"workdir with separator", func(c *Config) { c.WorkDirName = "a/b" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"zero timeout", func(c *Config) { c.StartupTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("defaults validate", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.NoError(t, cfg.Validate())
	})
}
