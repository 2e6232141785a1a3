package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the organism runtime. Values come from an
// optional YAML file overridden by environment variables. The empirical
// constants (noise floor, automation gate) stay configurable rather than
// derived.
type Config struct {
	Port     int    `yaml:"port"`
	APIKey   string `yaml:"apiKey"`
	DBPath   string `yaml:"dbPath"`
	LogLevel string `yaml:"logLevel"`

	// Tick loop
	TickInterval     time.Duration `yaml:"tickInterval"`
	EventQueueSize   int           `yaml:"eventQueueSize"`
	ConsolidateEvery uint64        `yaml:"consolidateEvery"` // ticks
	SnapshotEvery    uint64        `yaml:"snapshotEvery"`    // ticks

	// Sensory tier
	SensoryCapacity     int     `yaml:"sensoryCapacity"`
	SalienceThreshold   float64 `yaml:"salienceThreshold"`
	RepetitionThreshold int     `yaml:"repetitionThreshold"`

	// Semantic tier
	SemanticOccurrence int     `yaml:"semanticOccurrence"`
	SemanticSmoothing  float64 `yaml:"semanticSmoothing"`
	EpisodicWindow     int     `yaml:"episodicWindow"`

	// Procedural tier
	MinAutomation float64 `yaml:"minAutomation"`

	// Feedback attribution
	NoiseFloor      float64 `yaml:"noiseFloor"`
	FeedbackTimeout uint64  `yaml:"feedbackTimeout"` // ticks

	// Adaptation history
	AdaptationHistory int `yaml:"adaptationHistory"`

	// Async log queue
	LogQueueSize int `yaml:"logQueueSize"`
}

// Load builds the config in strict precedence order: defaults, then the
// YAML file named by ANIMUS_CONFIG (if set), then env overrides for every
// key, then validation.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                8640,
		DBPath:              "/data/animus.db",
		LogLevel:            "info",
		TickInterval:        100 * time.Millisecond,
		EventQueueSize:      256,
		ConsolidateEvery:    10,
		SnapshotEvery:       50,
		SensoryCapacity:     100,
		SalienceThreshold:   0.8,
		RepetitionThreshold: 3,
		SemanticOccurrence:  3,
		SemanticSmoothing:   0.3,
		EpisodicWindow:      50,
		MinAutomation:       0.8,
		NoiseFloor:          0.001,
		FeedbackTimeout:     20,
		AdaptationHistory:   100,
		LogQueueSize:        1024,
	}

	if path := os.Getenv("ANIMUS_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// applyEnv layers environment variables over whatever the defaults and the
// config file produced. An env var set in the environment always wins.
func (c *Config) applyEnv() error {
	c.Port = envInt("PORT", c.Port)
	c.DBPath = envStr("ANIMUS_DB_PATH", c.DBPath)
	c.APIKey = envStr("ANIMUS_API_KEY", c.APIKey)
	c.LogLevel = envStr("LOG_LEVEL", c.LogLevel)
	c.EventQueueSize = envInt("EVENT_QUEUE_SIZE", c.EventQueueSize)
	c.ConsolidateEvery = envUint("CONSOLIDATE_EVERY", c.ConsolidateEvery)
	c.SnapshotEvery = envUint("SNAPSHOT_EVERY", c.SnapshotEvery)
	c.SensoryCapacity = envInt("SENSORY_CAPACITY", c.SensoryCapacity)
	c.SalienceThreshold = envFloat("SALIENCE_THRESHOLD", c.SalienceThreshold)
	c.RepetitionThreshold = envInt("REPETITION_THRESHOLD", c.RepetitionThreshold)
	c.SemanticOccurrence = envInt("SEMANTIC_OCCURRENCE", c.SemanticOccurrence)
	c.SemanticSmoothing = envFloat("SEMANTIC_SMOOTHING", c.SemanticSmoothing)
	c.EpisodicWindow = envInt("EPISODIC_WINDOW", c.EpisodicWindow)
	c.MinAutomation = envFloat("MIN_AUTOMATION", c.MinAutomation)
	c.NoiseFloor = envFloat("NOISE_FLOOR", c.NoiseFloor)
	c.FeedbackTimeout = envUint("FEEDBACK_TIMEOUT_TICKS", c.FeedbackTimeout)
	c.AdaptationHistory = envInt("ADAPTATION_HISTORY", c.AdaptationHistory)
	c.LogQueueSize = envInt("LOG_QUEUE_SIZE", c.LogQueueSize)

	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse TICK_INTERVAL: %w", err)
		}
		c.TickInterval = d
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db path must not be empty")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.SensoryCapacity < 1 {
		return fmt.Errorf("sensory capacity must be positive, got %d", c.SensoryCapacity)
	}
	if c.SalienceThreshold < 0 || c.SalienceThreshold > 1 {
		return fmt.Errorf("salience threshold must be in [0,1], got %f", c.SalienceThreshold)
	}
	if c.MinAutomation < 0 || c.MinAutomation > 1 {
		return fmt.Errorf("min automation must be in [0,1], got %f", c.MinAutomation)
	}
	if c.NoiseFloor < 0 {
		return fmt.Errorf("noise floor must be non-negative, got %f", c.NoiseFloor)
	}
	if c.ConsolidateEvery == 0 {
		return fmt.Errorf("consolidate interval must be at least 1 tick")
	}
	if lvl := strings.ToLower(c.LogLevel); lvl != "debug" && lvl != "info" && lvl != "warn" && lvl != "error" {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envUint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			return u
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
