package config

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/types"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all bridge configuration.
type Config struct {
	Storage  StorageConfig
	Renderer RendererConfig
	Runtime  RuntimeConfig
	Input    InputConfig
	Audio    AudioConfig
	Monitor  MonitorConfig
	API      APIConfig
	Logging  LogConfig
}

// StorageConfig holds on-device directory roots.
type StorageConfig struct {
	Home       string `envconfig:"ZOMDROID_HOME" default:"/data/local/tmp/zomdroid"`
	Cache      string `envconfig:"ZOMDROID_CACHE_DIR" default:"/data/local/tmp/zomdroid/cache"`
	LibraryDir string `envconfig:"ZOMDROID_LIBRARY_DIR" default:"/data/local/tmp/zomdroid/lib"`
	BundlesDir string `envconfig:"ZOMDROID_BUNDLES_DIR" default:"/data/local/tmp/zomdroid/bundles"`
}

// RendererConfig holds GL renderer selection.
type RendererConfig struct {
	Name         string  `envconfig:"ZOMDROID_RENDERER" default:"GL4ES"`
	VulkanDriver string  `envconfig:"ZOMDROID_VULKAN_DRIVER_NAME" default:"SYSTEM_DEFAULT"`
	Scale        float64 `envconfig:"ZOMDROID_RENDER_SCALE" default:"1"`
}

// RuntimeConfig holds hosted runtime launch settings.
type RuntimeConfig struct {
	HeapMB       int           `envconfig:"ZOMDROID_HEAP_MB" default:"0"`
	ReadyTimeout time.Duration `envconfig:"ZOMDROID_READY_TIMEOUT" default:"2s"`
	UsePTY       bool          `envconfig:"ZOMDROID_USE_PTY" default:"true"`
	JavaBinary   string        `envconfig:"ZOMDROID_JAVA_BINARY" default:"bin/java"`
}

// InputConfig holds input translation settings.
type InputConfig struct {
	MouseSensitivity float64 `envconfig:"ZOMDROID_MOUSE_SENSITIVITY" default:"1"`
	PixelScale       float64 `envconfig:"ZOMDROID_PIXEL_SCALE" default:"1"`
	LayoutFile       string  `envconfig:"ZOMDROID_LAYOUT" default:""`
	TapToClick       bool    `envconfig:"ZOMDROID_TAP_TO_CLICK" default:"false"`
}

// AudioConfig holds audio bridge settings.
type AudioConfig struct {
	API string `envconfig:"ZOMDROID_AUDIO_API" default:"AAUDIO"`
}

// MonitorConfig holds resource monitor settings.
type MonitorConfig struct {
	LowMemoryMB  uint64        `envconfig:"ZOMDROID_LOW_MEMORY_MB" default:"300"`
	PollInterval time.Duration `envconfig:"ZOMDROID_MONITOR_INTERVAL" default:"1s"`
	WarnInterval time.Duration `envconfig:"ZOMDROID_MONITOR_WARN_INTERVAL" default:"30s"`
}

// APIConfig holds the diagnostic control API configuration.
type APIConfig struct {
	Addr              string `envconfig:"ZOMDROID_API_ADDR" default:"127.0.0.1:7845"`
	Enabled           bool   `envconfig:"ZOMDROID_API_ENABLED" default:"false"`
	RequestsPerSecond int    `envconfig:"ZOMDROID_API_RPS" default:"50"`
	Burst             int    `envconfig:"ZOMDROID_API_BURST" default:"100"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Home:       "/data/local/tmp/zomdroid",
			Cache:      "/data/local/tmp/zomdroid/cache",
			LibraryDir: "/data/local/tmp/zomdroid/lib",
			BundlesDir: "/data/local/tmp/zomdroid/bundles",
		},
		Renderer: RendererConfig{
			Name:         string(types.RendererGL4ES),
			VulkanDriver: string(types.VulkanSystemDefault),
			Scale:        1,
		},
		Runtime: RuntimeConfig{
			ReadyTimeout: 2 * time.Second,
			UsePTY:       true,
			JavaBinary:   "bin/java",
		},
		Input: InputConfig{
			MouseSensitivity: 1,
			PixelScale:       1,
		},
		Audio: AudioConfig{
			API: string(types.AudioAAudio),
		},
		Monitor: MonitorConfig{
			LowMemoryMB:  300,
			PollInterval: time.Second,
			WarnInterval: 30 * time.Second,
		},
		API: APIConfig{
			Addr:              "127.0.0.1:7845",
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	if _, err := types.ParseRenderer(c.Renderer.Name); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := types.ParseVulkanDriver(c.Renderer.VulkanDriver); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := types.ParseAudioAPI(c.Audio.API); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Renderer.Scale < 0.25 || c.Renderer.Scale > 1 {
		return fmt.Errorf("invalid config: render scale %.2f outside [0.25, 1]", c.Renderer.Scale)
	}
	if c.Input.MouseSensitivity <= 0 {
		return fmt.Errorf("invalid config: mouse sensitivity must be positive")
	}
	if c.Input.PixelScale <= 0 {
		return fmt.Errorf("invalid config: pixel scale must be positive")
	}
	if c.Runtime.HeapMB < 0 {
		return fmt.Errorf("invalid config: heap size cannot be negative")
	}
	return nil
}

// RendererSelection returns the parsed renderer and driver.
func (c *Config) RendererSelection() (types.Renderer, types.VulkanDriver, error) {
	r, err := types.ParseRenderer(c.Renderer.Name)
	if err != nil {
		return "", "", err
	}
	d, err := types.ParseVulkanDriver(c.Renderer.VulkanDriver)
	if err != nil {
		return "", "", err
	}
	return r, d, nil
}
