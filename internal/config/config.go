// Package config loads the training configuration from YAML and merges CLI
// overrides into it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime knobs for training and prediction.
type Config struct {
	HiddenLayers    []int   `yaml:"hidden_layers"`
	Classes         int     `yaml:"classes"`
	ImageSize       int     `yaml:"image_size"`
	LearningRate    float64 `yaml:"learning_rate"`
	Iterations      int     `yaml:"iterations"`
	BatchSize       int     `yaml:"batch_size"`
	InitRange       float64 `yaml:"init_range"`
	Seed            int64   `yaml:"seed"`
	LogEvery        int     `yaml:"log_every"`
	CheckpointEvery int     `yaml:"checkpoint_every"`
	CheckpointPath  string  `yaml:"checkpoint_path"`
	Debug           bool    `yaml:"debug"`
	NumWorkers      int     `yaml:"num_workers"`
	Threshold       float64 `yaml:"threshold"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	Iterations     int
	BatchSize      int
	LearningRate   float64
	Seed           int64
	Debug          bool
	NumWorkers     int
	LogEvery       int
	CheckpointPath string
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		HiddenLayers:    []int{128, 64, 32},
		Classes:         10,
		ImageSize:       24,
		LearningRate:    0.1,
		Iterations:      10000,
		BatchSize:       10,
		InitRange:       0.1,
		LogEvery:        100,
		CheckpointEvery: 500,
		CheckpointPath:  "./BACKUP_SAVED",
		NumWorkers:      4,
		Threshold:       0.3,
	}
}

// Load reads a Config from YAML on top of Default and validates it. Keys
// absent from the file keep their default; unknown keys are rejected.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	cfg, err := parseYAML(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Iterations > 0 {
		c.Iterations = o.Iterations
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.Debug {
		c.Debug = true
	}
	if o.NumWorkers > 0 {
		c.NumWorkers = o.NumWorkers
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.CheckpointPath != "" {
		c.CheckpointPath = o.CheckpointPath
	}
}

// Validate verifies the config is runnable. Periods and worker counts that
// are unset fall back to their defaults.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	for i, n := range c.HiddenLayers {
		if n <= 0 {
			return fmt.Errorf("hidden_layers[%d] must be > 0 (got %d)", i, n)
		}
	}
	if c.Classes < 2 {
		return fmt.Errorf("classes must be >= 2 (got %d)", c.Classes)
	}
	if c.Classes > 16 {
		return fmt.Errorf("classes must be <= 16 (got %d)", c.Classes)
	}
	if c.ImageSize <= 0 {
		return fmt.Errorf("image_size must be > 0 (got %d)", c.ImageSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be > 0 (got %d)", c.Iterations)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.InitRange <= 0 {
		return fmt.Errorf("init_range must be > 0 (got %g)", c.InitRange)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0,1] (got %g)", c.Threshold)
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 100
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = 500
	}
	if c.CheckpointPath == "" {
		c.CheckpointPath = "./BACKUP_SAVED"
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = 4
	}
	return nil
}

// InputSize is the number of features per image.
func (c *Config) InputSize() int { return c.ImageSize * c.ImageSize }

// LayerSizes lists the neuron count of every layer, output layer included.
func (c *Config) LayerSizes() []int {
	sizes := append([]int(nil), c.HiddenLayers...)
	return append(sizes, c.Classes)
}

func parseYAML(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}
