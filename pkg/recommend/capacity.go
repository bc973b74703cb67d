package recommend

import (
	"fmt"
	"math"

	"github.com/kvlens/kvlens/pkg/detect"
	"github.com/kvlens/kvlens/pkg/event"
	"github.com/kvlens/kvlens/pkg/metrics"
)

// DetectSlowOperations reports, as one aggregate finding, the events whose
// latency exceeded the collector's slow-query threshold.
func (e *Engine) DetectSlowOperations() []detect.Recommendation {
	return e.slowOperations(e.src.Events())
}

func (e *Engine) slowOperations(events []event.Event) []detect.Recommendation {
	var (
		count   int
		totalMs float64
	)
	for i := range events {
		if events[i].LatencyMs > e.thresholds.SlowQueryMs {
			count++
			totalMs += events[i].LatencyMs
		}
	}
	if count == 0 {
		return nil
	}
	avg := totalMs / float64(count)

	metrics.FindingsEmitted.WithLabelValues(CategorySlowOperations).Inc()
	return []detect.Recommendation{detect.NewRecommendation(
		CategorySlowOperations,
		detect.SeverityWarning,
		fmt.Sprintf("%d operations exceeded %.0fms (avg %.1fms); inspect key distribution and item sizes on the slow paths", count, e.thresholds.SlowQueryMs, avg),
		map[string]string{
			"count":          fmt.Sprintf("%d", count),
			"avg_latency_ms": fmt.Sprintf("%.1f", avg),
		},
	)}
}

// DetectHighCapacityUsage reports events consuming read or write units above
// the collector's thresholds, one aggregate finding per unit family.
func (e *Engine) DetectHighCapacityUsage() []detect.Recommendation {
	return e.highCapacity(e.src.Events())
}

func (e *Engine) highCapacity(events []event.Event) []detect.Recommendation {
	var out []detect.Recommendation

	if rec := e.highUnits(events, CategoryHighReadUnits, "read", e.thresholds.HighReadUnits,
		func(ev *event.Event) *float64 { return ev.ReadUnits }); rec != nil {
		out = append(out, *rec)
	}
	if rec := e.highUnits(events, CategoryHighWriteUnits, "write", e.thresholds.HighWriteUnits,
		func(ev *event.Event) *float64 { return ev.WriteUnits }); rec != nil {
		out = append(out, *rec)
	}

	metrics.FindingsEmitted.WithLabelValues("high_capacity").Add(float64(len(out)))
	return out
}

func (e *Engine) highUnits(events []event.Event, category, family string, limit float64, units func(*event.Event) *float64) *detect.Recommendation {
	var (
		count int
		total float64
	)
	for i := range events {
		u := units(&events[i])
		if u != nil && *u > limit {
			count++
			total += *u
		}
	}
	if count == 0 {
		return nil
	}
	rec := detect.NewRecommendation(
		category,
		detect.SeverityWarning,
		fmt.Sprintf("%d operations consumed more than %.0f %s units (avg %.1f); check for unbounded queries or oversized items", count, limit, family, total/float64(count)),
		map[string]string{
			"count":     fmt.Sprintf("%d", count),
			"avg_units": fmt.Sprintf("%.1f", total/float64(count)),
		},
	)
	return &rec
}

// CapacityMode is a provisioning strategy inferred from traffic variability.
type CapacityMode string

const (
	ModeProvisioned CapacityMode = "provisioned"
	ModeOnDemand    CapacityMode = "on_demand"
)

// CapacitySuggestion is the single output of the capacity-mode decision tree.
type CapacitySuggestion struct {
	Mode        CapacityMode `json:"mode"`
	Reason      string       `json:"reason"`
	Hours       int          `json:"hours"`       // distinct hourly bins observed
	MeanHourly  float64      `json:"mean_hourly"` // mean events per observed hour
	MinHourly   int          `json:"min_hourly"`  // smallest observed hourly count
	Variability float64      `json:"variability"` // coefficient of variation, stddev/mean
}

// SuggestCapacityMode buckets the buffer into hourly bins and walks a fixed
// decision tree over the per-hour counts: highly variable or gappy traffic
// suggests on-demand, steady sustained traffic suggests provisioned
// throughput. It is a heuristic, not a cost model.
func (e *Engine) SuggestCapacityMode() CapacitySuggestion {
	events := e.src.Events()
	if len(events) == 0 {
		return CapacitySuggestion{Mode: ModeOnDemand, Reason: "no traffic data recorded"}
	}

	bins := make(map[int64]int)
	for i := range events {
		bins[events[i].Timestamp.UnixMilli()/3_600_000]++
	}

	var (
		total int
		min   = math.MaxInt
	)
	for _, n := range bins {
		total += n
		if n < min {
			min = n
		}
	}
	mean := float64(total) / float64(len(bins))

	var variance float64
	for _, n := range bins {
		d := float64(n) - mean
		variance += d * d
	}
	variance /= float64(len(bins))
	cv := 0.0
	if mean > 0 {
		cv = math.Sqrt(variance) / mean
	}

	s := CapacitySuggestion{
		Hours:       len(bins),
		MeanHourly:  mean,
		MinHourly:   min,
		Variability: cv,
	}
	switch {
	case cv > e.tuning.CVHigh:
		s.Mode = ModeOnDemand
		s.Reason = "hourly traffic is highly variable"
	case float64(min) < e.tuning.IdleFraction*mean:
		s.Mode = ModeOnDemand
		s.Reason = "idle periods present between traffic peaks"
	case cv < e.tuning.CVLow && mean > e.tuning.SteadyMinMean:
		s.Mode = ModeProvisioned
		s.Reason = "traffic is steady and predictable"
	default:
		s.Mode = ModeOnDemand
		s.Reason = "traffic pattern is moderate or ambiguous"
	}
	return s
}
