// Package config loads and validates the generator configuration.
package config

import (
	"fmt"
	"time"

	"github.com/TFMV/fabrica/pkg/core"
	"github.com/TFMV/fabrica/pkg/synth"
	"github.com/spf13/viper"
)

// --- Configuration Structs ---

// Range is an inclusive integer range for per-unit row counts.
type Range struct {
	Min int `yaml:"min" mapstructure:"min"`
	Max int `yaml:"max" mapstructure:"max"`
}

type StorageConfig struct {
	Backend  string `yaml:"backend" mapstructure:"backend"` // "local" or "s3"
	DataDir  string `yaml:"data_dir" mapstructure:"data_dir"`
	Bucket   string `yaml:"bucket,omitempty" mapstructure:"bucket"`
	Region   string `yaml:"region,omitempty" mapstructure:"region"`
	Endpoint string `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	Prefix   string `yaml:"prefix,omitempty" mapstructure:"prefix"`

	// DeltaOnly persists only new rows per dataset instead of rewriting the
	// full snapshot; consumers merge deltas out-of-band.
	DeltaOnly bool `yaml:"delta_only" mapstructure:"delta_only"`
}

type GenerationConfig struct {
	// Seed drives the random source; 0 means seed from the current time.
	Seed int64 `yaml:"seed" mapstructure:"seed"`

	// Epoch is the fallback watermark date for empty datasets (YYYY-MM-DD).
	Epoch string `yaml:"epoch" mapstructure:"epoch"`

	CustomersPerDay Range `yaml:"customers_per_day" mapstructure:"customers_per_day"`
	OrdersPerDay    Range `yaml:"orders_per_day" mapstructure:"orders_per_day"`
	LinesPerOrder   Range `yaml:"lines_per_order" mapstructure:"lines_per_order"`

	// ReturnProbability is the chance an eligible order line gets a return.
	ReturnProbability float64 `yaml:"return_probability" mapstructure:"return_probability"`

	// OrdersWatermark selects the authority for the orders watermark:
	// "marker" (side-channel file) or "derived" (scanned from order_date).
	OrdersWatermark string `yaml:"orders_watermark" mapstructure:"orders_watermark"`
}

type ReportConfig struct {
	// Path is where the JSON run report is written; empty disables it.
	Path string `yaml:"path,omitempty" mapstructure:"path"`
}

type Config struct {
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Generation GenerationConfig `yaml:"generation" mapstructure:"generation"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
}

// --- Load Configuration ---

// LoadConfig reads the YAML config at configPath, applying defaults and env
// overrides (FABRICA_ prefix). An empty path yields the defaults only.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("FABRICA")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.delta_only", false)
	v.SetDefault("generation.seed", 0)
	v.SetDefault("generation.epoch", "2024-01-01")
	v.SetDefault("generation.customers_per_day.min", 5)
	v.SetDefault("generation.customers_per_day.max", 10)
	v.SetDefault("generation.orders_per_day.min", 80)
	v.SetDefault("generation.orders_per_day.max", 120)
	v.SetDefault("generation.lines_per_order.min", 1)
	v.SetDefault("generation.lines_per_order.max", 3)
	v.SetDefault("generation.return_probability", 0.4)
	v.SetDefault("generation.orders_watermark", "marker")
}

// --- Validation Functions ---

// validate is a helper function to reduce repetition.
func validate(condition bool, format string, a ...any) error {
	if !condition {
		return fmt.Errorf(format, a...)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage validation failed: %w", err)
	}
	if err := c.Generation.Validate(); err != nil {
		return fmt.Errorf("generation validation failed: %w", err)
	}
	return nil
}

func (sc *StorageConfig) Validate() error {
	if err := validate(sc.Backend == "local" || sc.Backend == "s3",
		"backend must be local or s3, got %q", sc.Backend); err != nil {
		return err
	}
	if sc.Backend == "local" {
		return validate(sc.DataDir != "", "data_dir is required for local backend")
	}
	return validate(sc.Bucket != "", "bucket is required for s3 backend")
}

func (gc *GenerationConfig) Validate() error {
	if _, err := time.Parse(core.DateLayout, gc.Epoch); err != nil {
		return fmt.Errorf("epoch must be YYYY-MM-DD: %w", err)
	}
	for name, r := range map[string]Range{
		"customers_per_day": gc.CustomersPerDay,
		"orders_per_day":    gc.OrdersPerDay,
		"lines_per_order":   gc.LinesPerOrder,
	} {
		if err := validate(r.Min > 0 && r.Max >= r.Min,
			"%s range must satisfy 0 < min <= max", name); err != nil {
			return err
		}
	}
	if err := validate(gc.ReturnProbability >= 0 && gc.ReturnProbability <= 1,
		"return_probability must be between 0 and 1"); err != nil {
		return err
	}
	return validate(gc.OrdersWatermark == "marker" || gc.OrdersWatermark == "derived",
		"orders_watermark must be marker or derived, got %q", gc.OrdersWatermark)
}

// --- Derived Views ---

// GatewayConfig maps the storage section onto the gateway configuration.
func (c *Config) GatewayConfig() core.GatewayConfig {
	return core.GatewayConfig{
		Backend:  c.Storage.Backend,
		DataDir:  c.Storage.DataDir,
		Bucket:   c.Storage.Bucket,
		Region:   c.Storage.Region,
		Endpoint: c.Storage.Endpoint,
		Prefix:   c.Storage.Prefix,
	}
}

// Params maps the generation section onto synthesizer parameters.
func (c *Config) Params() synth.Params {
	epoch, _ := time.Parse(core.DateLayout, c.Generation.Epoch)
	return synth.Params{
		Epoch:             epoch,
		CustomersPerDay:   [2]int{c.Generation.CustomersPerDay.Min, c.Generation.CustomersPerDay.Max},
		OrdersPerDay:      [2]int{c.Generation.OrdersPerDay.Min, c.Generation.OrdersPerDay.Max},
		LinesPerOrder:     [2]int{c.Generation.LinesPerOrder.Min, c.Generation.LinesPerOrder.Max},
		ReturnProbability: c.Generation.ReturnProbability,
	}
}
