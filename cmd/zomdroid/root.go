package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/host"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "zomdroid",
	Short: "Host Project Zomboid on Android",
	Long: `zomdroid provisions the game runtime, preflights its native libraries
and supervises the game process. Settings come from ZOMDROID_* environment
variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug logging")
	rootCmd.PersistentFlags().String("home", "", "Override ZOMDROID_HOME")
}

// env is what every subcommand needs
type env struct {
	cfg      *config.Config
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	registry *prometheus.Registry
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Development = true
	}
	if home, _ := cmd.Flags().GetString("home"); home != "" {
		cfg.Storage.Home = home
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	reg := prometheus.NewRegistry()
	return &env{
		cfg:      cfg,
		logger:   logger,
		metrics:  monitoring.NewMetrics(reg),
		registry: reg,
	}, nil
}

func (e *env) host(opts ...host.Option) (*host.Host, error) {
	h, err := host.New(e.cfg, e.logger, e.metrics, opts...)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureDirs(); err != nil {
		return nil, err
	}
	return h, nil
}
