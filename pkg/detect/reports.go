package detect

import (
	"time"

	"github.com/google/uuid"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Finding categories, shared with the recommendation engine.
const (
	CategoryKeyDesign       = "key_design"
	CategoryOversizedItems  = "oversized_items"
	CategoryMissingIndex    = "missing_index"
	CategoryReadBeforeWrite = "read_before_write"
)

// HotPartition reports one partition group receiving a disproportionate
// share of traffic.
type HotPartition struct {
	Key   string  `json:"key"`   // partition key, or table:index fallback
	Count int     `json:"count"` // events attributed to the group
	Share float64 `json:"share"` // fraction of all grouped events, 0-1
}

// InefficientScan reports one scan whose server-side filtering discarded
// most of the examined items.
type InefficientScan struct {
	Table        string    `json:"table"`
	Timestamp    time.Time `json:"ts"`
	ItemCount    int       `json:"item_count"`
	ScannedCount int       `json:"scanned_count"`
	Efficiency   float64   `json:"efficiency"` // items returned / items examined
}

// IndexUsage reports one table:index group and when it was last touched.
type IndexUsage struct {
	Table      string    `json:"table"`
	Index      string    `json:"index"`
	EventCount int       `json:"event_count"`
	LastUsed   time.Time `json:"last_used"`
}

// Recommendation is a generic actionable finding.
type Recommendation struct {
	ID       string            `json:"id"`
	Category string            `json:"category"`
	Severity Severity          `json:"severity"`
	Message  string            `json:"message"`
	Details  map[string]string `json:"details,omitempty"`
}

// NewRecommendation builds a finding with a fresh correlation id.
func NewRecommendation(category string, sev Severity, msg string, details map[string]string) Recommendation {
	return Recommendation{
		ID:       uuid.NewString(),
		Category: category,
		Severity: sev,
		Message:  msg,
		Details:  details,
	}
}
