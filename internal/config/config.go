package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const (
	defaultInputDir = "/g/data/hj10/admin/cpol_level_1a/v2019/ppi/"
	maxWorkers      = 1024
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	InputDir          string
	OutputDir         string
	ScanPattern       string
	ReflectivityField string
	Workers           int
	FileTimeout       time.Duration

	HTTPAddr        string
	KafkaBrokers    []string
	KafkaTopic      string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	workers, err := parseWorkers()
	if err != nil {
		return nil, err
	}

	fileTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FILE_TIMEOUT", "0s"))
	if err != nil || fileTimeout < 0 {
		return nil, errors.New("invalid FILE_TIMEOUT")
	}

	outputDir := os.Getenv("OUTPUT_DIR")
	if outputDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("OUTPUT_DIR unset and no home directory: %w", err)
		}
		outputDir = home
	}

	var brokers []string
	if s := os.Getenv("KAFKA_BROKERS"); s != "" {
		brokers = sharedcfg.ParseBrokers(s)
	}

	cfg := &Config{
		InputDir:          sharedcfg.EnvOrDefault("INPUT_DIR", defaultInputDir),
		OutputDir:         outputDir,
		ScanPattern:       sharedcfg.EnvOrDefault("SCAN_PATTERN", "*.nc"),
		ReflectivityField: sharedcfg.EnvOrDefault("REFLECTIVITY_FIELD", "DBZ"),
		Workers:           workers,
		FileTimeout:       fileTimeout,
		HTTPAddr:          os.Getenv("HTTP_ADDR"),
		KafkaBrokers:      brokers,
		KafkaTopic:        sharedcfg.EnvOrDefault("KAFKA_TOPIC", "radar-clutter-stats"),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that command-line flags may have overridden.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return errors.New("INPUT_DIR is required")
	}
	if c.OutputDir == "" {
		return errors.New("OUTPUT_DIR is required")
	}
	if c.ReflectivityField == "" {
		return errors.New("REFLECTIVITY_FIELD is required")
	}
	if c.Workers < 1 || c.Workers > maxWorkers {
		return fmt.Errorf("WORKERS must be between 1 and %d", maxWorkers)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// NotificationsEnabled reports whether run summaries are published to Kafka.
func (c *Config) NotificationsEnabled() bool { return len(c.KafkaBrokers) > 0 }

func parseWorkers() (int, error) {
	s := os.Getenv("WORKERS")
	if s == "" {
		return min(runtime.NumCPU(), maxWorkers), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxWorkers {
		return 0, fmt.Errorf("invalid WORKERS: must be between 1 and %d", maxWorkers)
	}
	return n, nil
}
