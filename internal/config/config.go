// Package config loads shapeid settings from an optional YAML file and
// SHAPEID_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ironsheep/shapeid/internal/featuredb"
	"github.com/ironsheep/shapeid/internal/features"
	"github.com/ironsheep/shapeid/internal/imaging"
	"github.com/ironsheep/shapeid/internal/logging"
	"github.com/ironsheep/shapeid/internal/pipeline"
)

// EnvPrefix prefixes every environment override, e.g. SHAPEID_DATABASE_PATH.
const EnvPrefix = "SHAPEID"

// Config is the complete shapeid configuration.
type Config struct {
	LogLevel   string                    `mapstructure:"log_level"`
	Database   DatabaseConfig            `mapstructure:"database"`
	Classifier ClassifierConfig          `mapstructure:"classifier"`
	Features   FeaturesConfig            `mapstructure:"features"`
	Preprocess imaging.PreprocessOptions `mapstructure:"preprocess"`
	Render     RenderConfig              `mapstructure:"render"`
}

// DatabaseConfig selects the feature database backend and its location.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// ClassifierConfig chooses 1-NN or k-NN and the k-NN rejection settings.
type ClassifierConfig struct {
	Method        string  `mapstructure:"method"`
	K             int     `mapstructure:"k"`
	StdMultiplier float64 `mapstructure:"std_multiplier"`
}

// FeaturesConfig controls how the object mask is measured.
type FeaturesConfig struct {
	Extent     string `mapstructure:"extent"`
	Foreground int    `mapstructure:"foreground"`
}

// RenderConfig holds display and image cache settings.
type RenderConfig struct {
	OverlayColor string `mapstructure:"overlay_color"`
	CacheSize    int    `mapstructure:"cache_size"`
}

// Load reads the configuration like Read and validates it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Read reads the YAML file at path, if any, over the defaults and applies
// environment overrides. An empty path skips the file. The result is not
// validated, so callers can apply further overrides first.
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("database.driver", featuredb.DriverText)
	v.SetDefault("database.path", "db.txt")

	v.SetDefault("classifier.method", string(pipeline.MethodKNearest))
	v.SetDefault("classifier.k", 2)
	v.SetDefault("classifier.std_multiplier", 1.0)

	v.SetDefault("features.extent", features.ExtentOriented.String())
	v.SetDefault("features.foreground", 255)

	v.SetDefault("preprocess.max_dimension", 640)
	v.SetDefault("preprocess.blur_sigma", 1.5)
	v.SetDefault("preprocess.threshold", imaging.OtsuThreshold)
	v.SetDefault("preprocess.invert", true)
	v.SetDefault("preprocess.cleanup", []map[string]interface{}{
		{"op": "dilate", "radius": 4},
		{"op": "erode", "radius": 2},
		{"op": "dilate", "radius": 4},
		{"op": "erode", "radius": 6},
	})

	v.SetDefault("render.overlay_color", "#00FF00")
	v.SetDefault("render.cache_size", 16)
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Database.Driver {
	case featuredb.DriverText, featuredb.DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q",
			featuredb.DriverText, featuredb.DriverSQLite, c.Database.Driver)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Render.CacheSize < 0 {
		return fmt.Errorf("render.cache_size must not be negative, got %d", c.Render.CacheSize)
	}
	_, err := c.Pipeline()
	return err
}

// Pipeline converts the recognition settings into a validated pipeline.Config.
func (c *Config) Pipeline() (pipeline.Config, error) {
	extent, err := features.ParseExtent(c.Features.Extent)
	if err != nil {
		return pipeline.Config{}, err
	}
	if c.Features.Foreground < 0 || c.Features.Foreground > 255 {
		return pipeline.Config{}, fmt.Errorf("features.foreground must be 0-255, got %d", c.Features.Foreground)
	}

	pc := pipeline.Config{
		Preprocess:    c.Preprocess,
		Foreground:    uint8(c.Features.Foreground),
		Extent:        extent,
		Method:        pipeline.Method(strings.ToLower(c.Classifier.Method)),
		K:             c.Classifier.K,
		StdMultiplier: c.Classifier.StdMultiplier,
		OverlayColor:  c.Render.OverlayColor,
	}
	if err := pc.Validate(); err != nil {
		return pipeline.Config{}, err
	}
	return pc, nil
}
