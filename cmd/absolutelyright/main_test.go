// ABOUTME: Tests for CLI helpers of the absolutelyright binary
// ABOUTME: Covers init file creation, config path resolution, and address handling

package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/absolutelyright/internal/config"
)

func TestRunInit_WritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	var out bytes.Buffer

	require.NoError(t, runInit(path, &out))
	assert.Contains(t, out.String(), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultYAML, string(data))
}

func TestRunInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keep me"), 0644))

	err := runInit(path, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv(config.EnvConfig, "/etc/absolutelyright.yaml")
	assert.Equal(t, "/etc/absolutelyright.yaml", getConfigPath())

	t.Setenv(config.EnvConfig, "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "absolutelyright", "config.yaml"), getConfigPath())
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"0.0.0.0:3003", "http://127.0.0.1:3003"},
		{":3003", "http://127.0.0.1:3003"},
		{"[::]:3003", "http://127.0.0.1:3003"},
		{"localhost:8080", "http://localhost:8080"},
		{"10.0.0.5:80", "http://10.0.0.5:80"},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, baseURL(tt.addr))
		})
	}
}

func TestColorHandler(t *testing.T) {
	var buf bytes.Buffer
	h := &colorHandler{out: &buf, mu: &sync.Mutex{}, level: slog.LevelInfo}
	logger := slog.New(h).With("component", "server")

	logger.Debug("hidden")
	logger.Info("counter updated", "day", "2024-01-15")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "counter updated")
	assert.Contains(t, buf.String(), "2024-01-15")
	assert.Contains(t, buf.String(), "server")
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
}
