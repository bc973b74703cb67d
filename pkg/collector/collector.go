// Package collector ingests operation events with probabilistic sampling and
// serves aggregated views of the retained buffer on demand.
package collector

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/kvlens/kvlens/pkg/event"
	"github.com/kvlens/kvlens/pkg/metrics"
)

// Thresholds are consumed by the analysis layers, not enforced on ingestion.
type Thresholds struct {
	SlowQueryMs    float64 `yaml:"slow_query_ms"`
	HighReadUnits  float64 `yaml:"high_read_units"`
	HighWriteUnits float64 `yaml:"high_write_units"`
}

// DefaultThresholds returns the stock analysis thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SlowQueryMs:    1000,
		HighReadUnits:  100,
		HighWriteUnits: 100,
	}
}

// Config configures event admission.
type Config struct {
	Enabled    bool       `yaml:"enabled"`
	SampleRate float64    `yaml:"sample_rate"` // fraction of events admitted, [0,1]
	Thresholds Thresholds `yaml:"thresholds"`
}

// DefaultConfig returns a config that admits every event.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		SampleRate: 1.0,
		Thresholds: DefaultThresholds(),
	}
}

// Collector owns the in-memory event buffer. All methods are safe for
// concurrent use; a single mutex serializes buffer access.
type Collector struct {
	cfg Config
	rng *rand.Rand

	mu     sync.Mutex
	events []event.Event
}

// New creates a collector with a time-seeded sampling source.
// It fails fast on an invalid SampleRate; the rate is never clamped.
func New(cfg Config) (*Collector, error) {
	return NewWithSource(cfg, rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource creates a collector drawing sampling decisions from src,
// letting tests pin the admission sequence.
func NewWithSource(cfg Config, src rand.Source) (*Collector, error) {
	if cfg.SampleRate < 0 || cfg.SampleRate > 1 {
		return nil, fmt.Errorf("collector.New: sample_rate must be in [0,1], got %v", cfg.SampleRate)
	}
	return &Collector{
		cfg: cfg,
		rng: rand.New(src),
	}, nil
}

// IsEnabled reports whether Record admits events at all.
func (c *Collector) IsEnabled() bool { return c.cfg.Enabled }

// Thresholds returns the analysis thresholds the collector was built with.
func (c *Collector) Thresholds() Thresholds { return c.cfg.Thresholds }

// Record ingests one observed operation. It never fails: when the collector
// is disabled or the sampling draw rejects the event it is silently dropped,
// and malformed input is stored as-is. Admitted events are normalized
// (table name defaulted, nil ItemCount treated as 0) and never mutated again.
func (c *Collector) Record(ev event.Event) {
	if !c.cfg.Enabled {
		return
	}

	c.mu.Lock()
	if c.rng.Float64() > c.cfg.SampleRate {
		c.mu.Unlock()
		metrics.EventsSampledOut.Inc()
		return
	}

	stored := ev.Clone()
	if stored.TableName == "" {
		stored.TableName = event.DefaultTable
	}
	if stored.ItemCount == nil {
		stored.ItemCount = event.Int(0)
	}
	c.events = append(c.events, stored)
	n := len(c.events)
	c.mu.Unlock()

	metrics.EventsRecorded.WithLabelValues(string(ev.Kind)).Inc()
	metrics.BufferEvents.Set(float64(n))
}

// Export returns a defensive copy of the retained events in insertion order.
// Mutating the returned slice or its events does not affect the buffer or
// any later export.
func (c *Collector) Export() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.Event, 0, len(c.events))
	for i := range c.events {
		out = append(out, c.events[i].Clone())
	}
	return out
}

// Events implements the analysis packages' event source. Identical to Export.
func (c *Collector) Events() []event.Event { return c.Export() }

// Len returns the number of retained events.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// Reset empties the buffer. This is the only operation that drops admitted
// events; callers are responsible for periodic export+reset to bound memory.
func (c *Collector) Reset() {
	c.mu.Lock()
	n := len(c.events)
	c.events = nil
	c.mu.Unlock()

	metrics.BufferResets.Inc()
	metrics.BufferEvents.Set(0)
	slog.Debug("collector buffer reset", "dropped", n)
}

// OperationsByKind returns copies of the retained events of the given kind.
func (c *Collector) OperationsByKind(k event.Kind) []event.Event {
	return c.filter(func(ev *event.Event) bool { return ev.Kind == k })
}

// OperationsByPattern returns copies of the retained events carrying the
// given access-pattern label.
func (c *Collector) OperationsByPattern(name string) []event.Event {
	return c.filter(func(ev *event.Event) bool { return ev.AccessPattern == name })
}

// OperationsInRange returns copies of the retained events whose timestamps
// fall in [start, end], bounds inclusive.
func (c *Collector) OperationsInRange(start, end time.Time) []event.Event {
	return c.filter(func(ev *event.Event) bool {
		return !ev.Timestamp.Before(start) && !ev.Timestamp.After(end)
	})
}

func (c *Collector) filter(keep func(*event.Event) bool) []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []event.Event
	for i := range c.events {
		if keep(&c.events[i]) {
			out = append(out, c.events[i].Clone())
		}
	}
	return out
}
