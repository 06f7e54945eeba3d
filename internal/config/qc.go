package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/osprey/internal/qc"
)

const (
	EnvQCLease         = "OSPREY_QC_LEASE"
	EnvQCHistoryWindow = "OSPREY_QC_HISTORY_WINDOW"
	EnvQCSampleSeed    = "OSPREY_QC_SAMPLE_SEED"
)

// QCConfig holds claim, sampling, and level-switching settings.
type QCConfig struct {
	Lease         string           `toml:"lease"`
	HistoryWindow int              `toml:"history_window"`
	SampleSeed    uint64           `toml:"sample_seed"`
	Defaults      QCDefaultsConfig `toml:"defaults"`
}

// QCDefaultsConfig seeds the settings of projects entering QC for the first time.
// Threshold pointers distinguish an explicit zero from an unset value.
type QCDefaultsConfig struct {
	Level             string   `toml:"level"`
	NormalPercent     float64  `toml:"normal_percent"`
	ReducedPercent    float64  `toml:"reduced_percent"`
	TightenedPercent  float64  `toml:"tightened_percent"`
	ThresholdCritical *float64 `toml:"threshold_critical"`
	ThresholdMajor    *float64 `toml:"threshold_major"`
	ThresholdMinor    *float64 `toml:"threshold_minor"`
	Filenames         string   `toml:"filenames"`
}

// LeaseDuration returns Lease as a time.Duration.
func (c *QCConfig) LeaseDuration() time.Duration {
	d, _ := time.ParseDuration(c.Lease)
	return d
}

// Settings converts the defaults into qc.Settings. The active percent
// follows the default level.
func (c *QCConfig) Settings() qc.Settings {
	d := c.Defaults
	s := qc.Settings{
		Level:             qc.Level(d.Level),
		NormalPercent:     d.NormalPercent,
		ReducedPercent:    d.ReducedPercent,
		TightenedPercent:  d.TightenedPercent,
		ThresholdCritical: *d.ThresholdCritical,
		ThresholdMajor:    *d.ThresholdMajor,
		ThresholdMinor:    *d.ThresholdMinor,
	}
	s.Percent = s.PercentFor(s.Level)
	if d.Filenames != "" {
		filter := d.Filenames
		s.Filenames = &filter
	}
	return s
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *QCConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *QCConfig) Merge(overlay *QCConfig) {
	if overlay.Lease != "" {
		c.Lease = overlay.Lease
	}
	if overlay.HistoryWindow != 0 {
		c.HistoryWindow = overlay.HistoryWindow
	}
	if overlay.SampleSeed != 0 {
		c.SampleSeed = overlay.SampleSeed
	}

	d, o := &c.Defaults, &overlay.Defaults
	if o.Level != "" {
		d.Level = o.Level
	}
	if o.NormalPercent != 0 {
		d.NormalPercent = o.NormalPercent
	}
	if o.ReducedPercent != 0 {
		d.ReducedPercent = o.ReducedPercent
	}
	if o.TightenedPercent != 0 {
		d.TightenedPercent = o.TightenedPercent
	}
	if o.ThresholdCritical != nil {
		d.ThresholdCritical = o.ThresholdCritical
	}
	if o.ThresholdMajor != nil {
		d.ThresholdMajor = o.ThresholdMajor
	}
	if o.ThresholdMinor != nil {
		d.ThresholdMinor = o.ThresholdMinor
	}
	if o.Filenames != "" {
		d.Filenames = o.Filenames
	}
}

func (c *QCConfig) loadDefaults() {
	if c.Lease == "" {
		c.Lease = "4h"
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = qc.DefaultWindow
	}

	def := qc.DefaultSettings()
	d := &c.Defaults
	if d.Level == "" {
		d.Level = string(def.Level)
	}
	if d.NormalPercent == 0 {
		d.NormalPercent = def.NormalPercent
	}
	if d.ReducedPercent == 0 {
		d.ReducedPercent = def.ReducedPercent
	}
	if d.TightenedPercent == 0 {
		d.TightenedPercent = def.TightenedPercent
	}
	if d.ThresholdCritical == nil {
		d.ThresholdCritical = &def.ThresholdCritical
	}
	if d.ThresholdMajor == nil {
		d.ThresholdMajor = &def.ThresholdMajor
	}
	if d.ThresholdMinor == nil {
		d.ThresholdMinor = &def.ThresholdMinor
	}
}

func (c *QCConfig) loadEnv() {
	if v := os.Getenv(EnvQCLease); v != "" {
		c.Lease = v
	}
	if v := os.Getenv(EnvQCHistoryWindow); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HistoryWindow = n
		}
	}
	if v := os.Getenv(EnvQCSampleSeed); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.SampleSeed = n
		}
	}
}

func (c *QCConfig) validate() error {
	lease, err := time.ParseDuration(c.Lease)
	if err != nil {
		return fmt.Errorf("invalid lease: %w", err)
	}
	if lease <= 0 {
		return fmt.Errorf("lease must be positive")
	}

	if !qc.Level(c.Defaults.Level).Valid() {
		return fmt.Errorf("invalid default level: %s", c.Defaults.Level)
	}

	d := c.Defaults
	for name, pct := range map[string]float64{
		"normal_percent":     d.NormalPercent,
		"reduced_percent":    d.ReducedPercent,
		"tightened_percent":  d.TightenedPercent,
		"threshold_critical": *d.ThresholdCritical,
		"threshold_major":    *d.ThresholdMajor,
		"threshold_minor":    *d.ThresholdMinor,
	} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%s must be between 0 and 100", name)
		}
	}

	if _, err := qc.CompileFilter(&d.Filenames); err != nil {
		return err
	}
	return nil
}
