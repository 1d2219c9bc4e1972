// Package config loads the engine configuration from a YAML file, with
// defaults matching the reference dataset (15 suppliers, 600 POs, one year).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Generator controls the synthetic dataset stage.
type Generator struct {
	Seed       int64 `yaml:"seed"`
	NSuppliers int   `yaml:"n_suppliers"`
	NPOs       int   `yaml:"n_pos"`

	StartDate string `yaml:"start_date"` // inclusive, YYYY-MM-DD
	EndDate   string `yaml:"end_date"`   // inclusive

	LeadTimeMinDays int `yaml:"lead_time_min_days"`
	LeadTimeMaxDays int `yaml:"lead_time_max_days"`

	LateProb     float64 `yaml:"late_prob"`
	EarlyProb    float64 `yaml:"early_prob"`
	LateMinDays  int     `yaml:"late_min_days"`
	LateMaxDays  int     `yaml:"late_max_days"`
	EarlyMinDays int     `yaml:"early_min_days"`
	EarlyMaxDays int     `yaml:"early_max_days"`

	QtyMin               int     `yaml:"qty_min"`
	QtyMax               int     `yaml:"qty_max"`
	PartialDeliveryProb  float64 `yaml:"partial_delivery_prob"`
	PartialMinRatio      float64 `yaml:"partial_min_ratio"`
	PartialMaxRatio      float64 `yaml:"partial_max_ratio"`
	BaseQualityIssueProb float64 `yaml:"base_quality_issue_prob"`
}

// Duration wraps time.Duration so YAML values like "5s" or "2m" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Pipeline controls stage sequencing and retry behavior.
type Pipeline struct {
	Retries    int      `yaml:"retries"`
	RetryDelay Duration `yaml:"retry_delay"`
}

// Config is the full engine configuration.
type Config struct {
	DBPath    string    `yaml:"db_path"`
	DataDir   string    `yaml:"data_dir"`
	Port      int       `yaml:"port"`
	Generator Generator `yaml:"generator"`
	Pipeline  Pipeline  `yaml:"pipeline"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:  "warehouse.db",
		DataDir: "data",
		Port:    9000,
		Generator: Generator{
			Seed:                 42,
			NSuppliers:           15,
			NPOs:                 600,
			StartDate:            "2024-01-01",
			EndDate:              "2024-12-31",
			LeadTimeMinDays:      3,
			LeadTimeMaxDays:      21,
			LateProb:             0.22,
			EarlyProb:            0.08,
			LateMinDays:          1,
			LateMaxDays:          14,
			EarlyMinDays:         1,
			EarlyMaxDays:         4,
			QtyMin:               10,
			QtyMax:               500,
			PartialDeliveryProb:  0.18,
			PartialMinRatio:      0.6,
			PartialMaxRatio:      0.95,
			BaseQualityIssueProb: 0.04,
		},
		Pipeline: Pipeline{
			Retries:    2,
			RetryDelay: Duration(5 * time.Second),
		},
	}
}

// Load reads the configuration file at path, layered over the defaults.
// A missing file is not an error: the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
