// Package config provides configuration management for Visage
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Audio      AudioConfig      `mapstructure:"audio"`
	Viseme     VisemeConfig     `mapstructure:"viseme"`
	Expression ExpressionConfig `mapstructure:"expression"`
	Motion     MotionConfig     `mapstructure:"motion"`
	Model      ModelConfig      `mapstructure:"model"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// AudioConfig configures the signal sampler
type AudioConfig struct {
	SampleRate   int     `mapstructure:"sample_rate"`
	FFTSize      int     `mapstructure:"fft_size"`
	VADThreshold float64 `mapstructure:"vad_threshold"`
	// Band edges in Hz; tuning parameters, not constants.
	BandEdgesHz [5][2]float64 `mapstructure:"band_edges_hz"`
}

// VisemeConfig configures the mouth-shape mapper
type VisemeConfig struct {
	SmoothingFactor float32 `mapstructure:"smoothing_factor"`
	NoiseFloor      float32 `mapstructure:"noise_floor"`
}

// ExpressionConfig configures the expression engine
type ExpressionConfig struct {
	TransitionDuration time.Duration `mapstructure:"transition_duration"`
	BlinkInterval      time.Duration `mapstructure:"blink_interval"`
	AutoBlink          bool          `mapstructure:"auto_blink"`
}

// MotionConfig configures the gesture engine
type MotionConfig struct {
	IdleEnabled   bool    `mapstructure:"idle_enabled"`
	IdleIntensity float32 `mapstructure:"idle_intensity"`
}

// ModelConfig configures model loading
type ModelConfig struct {
	Path      string `mapstructure:"path"`
	WatchFile bool   `mapstructure:"watch_file"`
}

// SyncConfig configures the websocket state broadcaster
type SyncConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig configures log output
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:   48000,
			FFTSize:      2048,
			VADThreshold: 0.01,
			BandEdgesHz: [5][2]float64{
				{0, 500},
				{500, 1500},
				{1500, 3000},
				{3000, 5000},
				{5000, 8000},
			},
		},
		Viseme: VisemeConfig{
			SmoothingFactor: 0.15,
			NoiseFloor:      0.1,
		},
		Expression: ExpressionConfig{
			TransitionDuration: 300 * time.Millisecond,
			BlinkInterval:      3 * time.Second,
			AutoBlink:          true,
		},
		Motion: MotionConfig{
			IdleEnabled:   true,
			IdleIntensity: 1.0,
		},
		Model: ModelConfig{
			Path:      "assets/models/avatar.glb",
			WatchFile: false,
		},
		Sync: SyncConfig{
			Enabled:    false,
			ListenAddr: "localhost:8765",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return cfg, err
	}

	configDir := filepath.Join(homeDir, ".visage")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("VISAGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// Config file not found, use defaults and create one
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(homeDir, ".visage")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("audio", cfg.Audio)
	viper.Set("viseme", cfg.Viseme)
	viper.Set("expression", cfg.Expression)
	viper.Set("motion", cfg.Motion)
	viper.Set("model", cfg.Model)
	viper.Set("sync", cfg.Sync)
	viper.Set("logging", cfg.Logging)

	configPath := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configPath)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".visage"), nil
}
