package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/molsim/internal/molecule"
)

const (
	DefaultPreset      = "water"
	DefaultSteps       = 2000
	DefaultSampleEvery = 20
	DefaultTolerance   = 0.0
	DefaultJitter      = 0.01
	DefaultDataDir     = ".molsim"
	DefaultLogLevel    = "info"
	DefaultFrameRate   = 30
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Preset      string          `yaml:"preset"`
	Steps       int             `yaml:"steps"`
	Tolerance   float64         `yaml:"tolerance"`
	SampleEvery int             `yaml:"sample_every"`
	Seed        int64           `yaml:"seed"`
	Jitter      float64         `yaml:"jitter"`
	DataDir     string          `yaml:"data_dir"`
	LogLevel    string          `yaml:"log_level"`
	FrameRate   int             `yaml:"frame_rate"`
	Params      molecule.Params `yaml:"params"`
	Molecule    *MoleculeSpec   `yaml:"molecule,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Preset:      DefaultPreset,
		Steps:       DefaultSteps,
		Tolerance:   DefaultTolerance,
		SampleEvery: DefaultSampleEvery,
		Seed:        1,
		Jitter:      DefaultJitter,
		DataDir:     DefaultDataDir,
		LogLevel:    DefaultLogLevel,
		FrameRate:   DefaultFrameRate,
		Params:      molecule.DefaultParams(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidConfig, c.Steps)
	}
	if c.SampleEvery <= 0 {
		return fmt.Errorf("%w: sample_every must be positive, got %d", ErrInvalidConfig, c.SampleEvery)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance must not be negative, got %g", ErrInvalidConfig, c.Tolerance)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("%w: frame_rate must be positive, got %d", ErrInvalidConfig, c.FrameRate)
	}
	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Molecule != nil {
		if err := c.Molecule.Validate(); err != nil {
			return err
		}
	} else if GetPreset(c.Preset) == nil {
		return fmt.Errorf("%w: unknown preset %q (available: %v)", ErrInvalidConfig, c.Preset, ListPresets())
	}
	return nil
}

// MoleculeSpec returns the inline molecule if one is configured, otherwise
// the named preset.
func (c *Config) MoleculeSpec() *MoleculeSpec {
	if c.Molecule != nil {
		return c.Molecule
	}
	return GetPreset(c.Preset)
}
