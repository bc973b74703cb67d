// Package event defines the operation event model shared by the collector,
// the pattern detectors, and the recommendation engine.
package event

import (
	"fmt"
	"time"
)

// Kind classifies one observed data-access operation.
type Kind string

const (
	KindRead       Kind = "read"        // single-item point read
	KindWrite      Kind = "write"       // single-item put
	KindUpdate     Kind = "update"      // in-place update
	KindDelete     Kind = "delete"      // single-item delete
	KindQuery      Kind = "query"       // key-condition query
	KindScan       Kind = "scan"        // full table scan
	KindBatchRead  Kind = "batch_read"  // multi-item batched read
	KindBatchWrite Kind = "batch_write" // multi-item batched write
	KindTxRead     Kind = "tx_read"     // transactional read
	KindTxWrite    Kind = "tx_write"    // transactional write
)

// DefaultTable is the table name assigned to events recorded without one.
const DefaultTable = "default"

var kinds = map[Kind]bool{
	KindRead: true, KindWrite: true, KindUpdate: true, KindDelete: true,
	KindQuery: true, KindScan: true, KindBatchRead: true, KindBatchWrite: true,
	KindTxRead: true, KindTxWrite: true,
}

// Valid reports whether k is a member of the closed Kind enumeration.
func (k Kind) Valid() bool { return kinds[k] }

// Event records a single completed operation against the store.
//
// Pointer fields distinguish "not reported" from zero: a collaborator that
// cannot measure payload size leaves ItemSizeBytes nil rather than zero.
// Events are never mutated after being handed to the collector.
type Event struct {
	Kind           Kind              `json:"kind"`
	Timestamp      time.Time         `json:"ts"`
	LatencyMs      float64           `json:"latency_ms"`
	ReadUnits      *float64          `json:"read_units,omitempty"`
	WriteUnits     *float64          `json:"write_units,omitempty"`
	ItemCount      *int              `json:"item_count,omitempty"`
	ScannedCount   *int              `json:"scanned_count,omitempty"`
	IndexName      string            `json:"index,omitempty"`
	AccessPattern  string            `json:"access_pattern,omitempty"`
	PartitionKey   string            `json:"pk,omitempty"`
	SortKey        string            `json:"sk,omitempty"`
	ItemSizeBytes  *int64            `json:"item_size_bytes,omitempty"`
	UsedProjection *bool             `json:"used_projection,omitempty"`
	TableName      string            `json:"table,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Items returns ItemCount, or 0 when unreported.
func (e *Event) Items() int {
	if e.ItemCount == nil {
		return 0
	}
	return *e.ItemCount
}

// Table returns the table name, substituting DefaultTable when unset.
func (e *Event) Table() string {
	if e.TableName == "" {
		return DefaultTable
	}
	return e.TableName
}

// IndexKey returns the "table:index" grouping key used by index-oriented
// detectors.
func (e *Event) IndexKey() string {
	return fmt.Sprintf("%s:%s", e.Table(), e.IndexName)
}

// ItemKey returns the "pk#sk" grouping key identifying a single logical item.
func (e *Event) ItemKey() string {
	return fmt.Sprintf("%s#%s", e.PartitionKey, e.SortKey)
}

// IsReadKind reports whether k fetches data (and so can carry a projection).
func IsReadKind(k Kind) bool {
	switch k {
	case KindRead, KindQuery, KindScan, KindBatchRead, KindTxRead:
		return true
	}
	return false
}

// Clone returns a deep copy of the event. Pointer fields and the metadata
// map are duplicated so the copy shares no memory with the original.
func (e *Event) Clone() Event {
	out := *e
	out.ReadUnits = cloneF64(e.ReadUnits)
	out.WriteUnits = cloneF64(e.WriteUnits)
	out.ItemCount = cloneInt(e.ItemCount)
	out.ScannedCount = cloneInt(e.ScannedCount)
	out.ItemSizeBytes = cloneI64(e.ItemSizeBytes)
	out.UsedProjection = cloneBool(e.UsedProjection)
	if e.Metadata != nil {
		out.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func cloneF64(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneI64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr helpers for building events at call sites and in tests.

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
