// Package config loads and validates kvlens configuration from YAML.
package config

import (
	"fmt"
	"time"

	"github.com/kvlens/kvlens/pkg/collector"
	"github.com/kvlens/kvlens/pkg/detect"
	"github.com/kvlens/kvlens/pkg/recommend"
	"github.com/kvlens/kvlens/pkg/sink"
)

// Config is the top-level kvlens configuration.
type Config struct {
	Collector CollectorConfig  `yaml:"collector"`
	Detect    detect.Tuning    `yaml:"detect"`
	Recommend recommend.Tuning `yaml:"recommend"`
	Sink      sink.Config      `yaml:"sink"`
	Metrics   MetricsConfig    `yaml:"metrics"`
}

// CollectorConfig is the YAML-facing collector section. Enabled and
// SampleRate are pointers to distinguish unset from zero: a missing
// `enabled` means true, a missing `sample_rate` means 1.0, but an explicit
// `sample_rate: 0` is honored (and admits nothing).
type CollectorConfig struct {
	Enabled    *bool                `yaml:"enabled"`
	SampleRate *float64             `yaml:"sample_rate"`
	Thresholds collector.Thresholds `yaml:"thresholds"`
}

// CollectorSettings converts the section into the collector's config type.
func (c CollectorConfig) CollectorSettings() collector.Config {
	cfg := collector.DefaultConfig()
	if c.Enabled != nil {
		cfg.Enabled = *c.Enabled
	}
	if c.SampleRate != nil {
		cfg.SampleRate = *c.SampleRate
	}
	cfg.Thresholds = c.Thresholds
	return cfg
}

// MetricsConfig configures the Prometheus metrics and health endpoint.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"` // pointer to distinguish unset from false; default false
	Addr    string `yaml:"addr"`    // listen address; default ":9090"
}

// MetricsEnabled reports whether the metrics server should run.
func (m MetricsConfig) MetricsEnabled() bool {
	if m.Enabled == nil {
		return false
	}
	return *m.Enabled
}

func (c *Config) applyDefaults() {
	t := &c.Collector.Thresholds
	d := collector.DefaultThresholds()
	if t.SlowQueryMs == 0 {
		t.SlowQueryMs = d.SlowQueryMs
	}
	if t.HighReadUnits == 0 {
		t.HighReadUnits = d.HighReadUnits
	}
	if t.HighWriteUnits == 0 {
		t.HighWriteUnits = d.HighWriteUnits
	}

	applyDetectDefaults(&c.Detect)
	applyRecommendDefaults(&c.Recommend)

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.Sink.Type == "" {
		c.Sink.Type = "nop"
	}
}

// applyDetectDefaults fills zeroed detection thresholds field by field, so a
// partial `detect:` section only overrides what it names.
func applyDetectDefaults(t *detect.Tuning) {
	d := detect.DefaultTuning()
	if t.HotPartitionShare == 0 {
		t.HotPartitionShare = d.HotPartitionShare
	}
	if t.ScanEfficiencyMin == 0 {
		t.ScanEfficiencyMin = d.ScanEfficiencyMin
	}
	if t.UnusedIndexAge == 0 {
		t.UnusedIndexAge = d.UnusedIndexAge
	}
	if t.KeyDesignMinEvents == 0 {
		t.KeyDesignMinEvents = d.KeyDesignMinEvents
	}
	if t.OversizedItemBytes == 0 {
		t.OversizedItemBytes = d.OversizedItemBytes
	}
	if t.OversizedWarnBytes == 0 {
		t.OversizedWarnBytes = d.OversizedWarnBytes
	}
	if t.MissingIndexMinScans == 0 {
		t.MissingIndexMinScans = d.MissingIndexMinScans
	}
	if t.MissingIndexTableScans == 0 {
		t.MissingIndexTableScans = d.MissingIndexTableScans
	}
	if t.ReadBeforeWriteWindow == 0 {
		t.ReadBeforeWriteWindow = d.ReadBeforeWriteWindow
	}
	if t.ReadBeforeWriteMinPairs == 0 {
		t.ReadBeforeWriteMinPairs = d.ReadBeforeWriteMinPairs
	}
}

func applyRecommendDefaults(t *recommend.Tuning) {
	d := recommend.DefaultTuning()
	if t.BatchWindow == 0 {
		t.BatchWindow = d.BatchWindow
	}
	if t.BatchMinReads == 0 {
		t.BatchMinReads = d.BatchMinReads
	}
	if t.BatchMinWrites == 0 {
		t.BatchMinWrites = d.BatchMinWrites
	}
	if t.ReadBatchPage == 0 {
		t.ReadBatchPage = d.ReadBatchPage
	}
	if t.WriteBatchPage == 0 {
		t.WriteBatchPage = d.WriteBatchPage
	}
	if t.ProjectionMinRate == 0 {
		t.ProjectionMinRate = d.ProjectionMinRate
	}
	if t.ProjectionMinPoint == 0 {
		t.ProjectionMinPoint = d.ProjectionMinPoint
	}
	if t.ProjectionMinScan == 0 {
		t.ProjectionMinScan = d.ProjectionMinScan
	}
	if t.FilterEfficiency == 0 {
		t.FilterEfficiency = d.FilterEfficiency
	}
	if t.FilterWarnAt == 0 {
		t.FilterWarnAt = d.FilterWarnAt
	}
	if t.FilterMinEvents == 0 {
		t.FilterMinEvents = d.FilterMinEvents
	}
	if t.CVHigh == 0 {
		t.CVHigh = d.CVHigh
	}
	if t.CVLow == 0 {
		t.CVLow = d.CVLow
	}
	if t.IdleFraction == 0 {
		t.IdleFraction = d.IdleFraction
	}
	if t.SteadyMinMean == 0 {
		t.SteadyMinMean = d.SteadyMinMean
	}
}

// Validate checks the configuration for logical errors.
func (c *Config) Validate() error {
	if c.Collector.SampleRate != nil {
		if r := *c.Collector.SampleRate; r < 0 || r > 1 {
			return fmt.Errorf("config: sample_rate must be in [0,1], got %v", r)
		}
	}
	if c.Detect.HotPartitionShare <= 0 || c.Detect.HotPartitionShare >= 1 {
		return fmt.Errorf("config: hot_partition_share must be in (0,1), got %v", c.Detect.HotPartitionShare)
	}
	if c.Detect.OversizedWarnBytes < c.Detect.OversizedItemBytes {
		return fmt.Errorf("config: oversized_warn_bytes (%d) must be at least oversized_item_bytes (%d)",
			c.Detect.OversizedWarnBytes, c.Detect.OversizedItemBytes)
	}
	if c.Detect.UnusedIndexAge < time.Minute {
		return fmt.Errorf("config: unused_index_age must be at least one minute, got %v", c.Detect.UnusedIndexAge)
	}
	if c.Recommend.ReadBatchPage <= 0 || c.Recommend.WriteBatchPage <= 0 {
		return fmt.Errorf("config: batch page sizes must be positive")
	}
	switch c.Sink.Type {
	case "stdout", "file", "badger", "remote", "nop":
	default:
		return fmt.Errorf("config: unknown sink type %q", c.Sink.Type)
	}
	return nil
}
