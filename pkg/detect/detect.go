// Package detect scans a collector's event buffer for known data-access
// anti-patterns: hot partitions, inefficient scans, unused indexes, oversized
// items, missing secondary indexes, and read-before-write races.
//
// Every detector is a pure function of the buffer at call time. An empty or
// unqualified buffer yields an empty result, never an error.
package detect

import (
	"time"

	"github.com/kvlens/kvlens/pkg/event"
)

// Source supplies the events to analyze. *collector.Collector satisfies it.
type Source interface {
	Events() []event.Event
}

// Tuning holds the detection thresholds. Zero values are not meaningful;
// start from DefaultTuning and override fields as needed.
type Tuning struct {
	HotPartitionShare       float64       `yaml:"hot_partition_share"`         // flag groups above this traffic share
	ScanEfficiencyMin       float64       `yaml:"scan_efficiency_min"`         // flag scans below this items/scanned ratio
	UnusedIndexAge          time.Duration `yaml:"unused_index_age"`            // flag indexes idle longer than this
	KeyDesignMinEvents      int           `yaml:"key_design_min_events"`       // index-use count that triggers the key hint
	OversizedItemBytes      int64         `yaml:"oversized_item_bytes"`        // items above this are oversized
	OversizedWarnBytes      int64         `yaml:"oversized_warn_bytes"`        // any item above this escalates to warning
	MissingIndexMinScans    int           `yaml:"missing_index_min_scans"`     // total scans before the check applies
	MissingIndexTableScans  int           `yaml:"missing_index_table_scans"`   // per-table scans that trigger the finding
	ReadBeforeWriteWindow   time.Duration `yaml:"read_before_write_window"`    // write must land within this after a read
	ReadBeforeWriteMinPairs int           `yaml:"read_before_write_min_pairs"` // matched pairs before flagging a key
}

// DefaultTuning returns the stock thresholds.
func DefaultTuning() Tuning {
	return Tuning{
		HotPartitionShare:       0.10,
		ScanEfficiencyMin:       0.20,
		UnusedIndexAge:          7 * 24 * time.Hour,
		KeyDesignMinEvents:      10,
		OversizedItemBytes:      100 * 1024,
		OversizedWarnBytes:      300 * 1024,
		MissingIndexMinScans:    10,
		MissingIndexTableScans:  5,
		ReadBeforeWriteWindow:   5 * time.Second,
		ReadBeforeWriteMinPairs: 3,
	}
}

// Detector runs the heuristic pattern checks against a Source.
type Detector struct {
	src    Source
	tuning Tuning
}

// New creates a detector with default tuning.
func New(src Source) *Detector {
	return NewWithTuning(src, DefaultTuning())
}

// NewWithTuning creates a detector with custom thresholds.
func NewWithTuning(src Source, tuning Tuning) *Detector {
	return &Detector{src: src, tuning: tuning}
}

// Report bundles the output of every detector for one pass over the buffer.
type Report struct {
	HotPartitions    []HotPartition    `json:"hot_partitions,omitempty"`
	InefficientScans []InefficientScan `json:"inefficient_scans,omitempty"`
	UnusedIndexes    []IndexUsage      `json:"unused_indexes,omitempty"`
	Recommendations  []Recommendation  `json:"recommendations,omitempty"`
}

// DetectAll runs every detector over one export of the buffer.
func (d *Detector) DetectAll() Report {
	events := d.src.Events()
	now := time.Now()

	var rep Report
	rep.HotPartitions = d.hotPartitions(events)
	rep.InefficientScans = d.inefficientScans(events)
	rep.UnusedIndexes = d.unusedIndexes(events, now)
	rep.Recommendations = append(rep.Recommendations, d.keyDesignHints(events)...)
	rep.Recommendations = append(rep.Recommendations, d.oversizedItems(events)...)
	rep.Recommendations = append(rep.Recommendations, d.missingIndexes(events)...)
	rep.Recommendations = append(rep.Recommendations, d.readBeforeWrite(events)...)
	return rep
}
