package config

import (
	"testing"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "GL4ES", cfg.Renderer.Name)
	assert.Equal(t, "SYSTEM_DEFAULT", cfg.Renderer.VulkanDriver)
	assert.Equal(t, 2*time.Second, cfg.Runtime.ReadyTimeout)
	assert.True(t, cfg.Runtime.UsePTY)
	assert.Equal(t, uint64(300), cfg.Monitor.LowMemoryMB)
	assert.Equal(t, 30*time.Second, cfg.Monitor.WarnInterval)
	assert.Equal(t, "AAUDIO", cfg.Audio.API)
	assert.False(t, cfg.API.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"ZOMDROID_HOME":               "/data/user/0/com.zomdroid/files",
		"ZOMDROID_RENDERER":           "ZINK_ZFA",
		"ZOMDROID_VULKAN_DRIVER_NAME": "FREEDRENO",
		"ZOMDROID_HEAP_MB":            "3072",
		"ZOMDROID_READY_TIMEOUT":      "500ms",
		"ZOMDROID_MOUSE_SENSITIVITY":  "1.5",
		"ZOMDROID_AUDIO_API":          "OPENSL",
		"ZOMDROID_API_ENABLED":        "true",
		"LOG_LEVEL":                   "debug",
		"LOG_DEV":                     "true",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/user/0/com.zomdroid/files", cfg.Storage.Home)
	assert.Equal(t, 3072, cfg.Runtime.HeapMB)
	assert.Equal(t, 500*time.Millisecond, cfg.Runtime.ReadyTimeout)
	assert.Equal(t, 1.5, cfg.Input.MouseSensitivity)
	assert.True(t, cfg.API.Enabled)
	assert.True(t, cfg.Logging.Development)

	r, d, err := cfg.RendererSelection()
	require.NoError(t, err)
	assert.Equal(t, types.RendererZinkZFA, r)
	assert.Equal(t, types.VulkanFreedreno, d)
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("ZOMDROID_HEAP_MB", "lots")
	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, 0, cfg.Runtime.HeapMB)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown renderer", func(c *Config) { c.Renderer.Name = "SOFTPIPE" }},
		{"unknown vulkan driver", func(c *Config) { c.Renderer.VulkanDriver = "MALI" }},
		{"unknown audio api", func(c *Config) { c.Audio.API = "PULSE" }},
		{"render scale too small", func(c *Config) { c.Renderer.Scale = 0.1 }},
		{"render scale too large", func(c *Config) { c.Renderer.Scale = 1.5 }},
		{"zero sensitivity", func(c *Config) { c.Input.MouseSensitivity = 0 }},
		{"negative heap", func(c *Config) { c.Runtime.HeapMB = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
