package event

import (
	"encoding/json"
	"testing"
	"time"
)

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindRead, KindWrite, KindUpdate, KindDelete, KindQuery, KindScan, KindBatchRead, KindBatchWrite, KindTxRead, KindTxWrite} {
		if !k.Valid() {
			t.Errorf("expected %q to be valid", k)
		}
	}
	if Kind("get_item").Valid() {
		t.Error("expected unknown kind to be invalid")
	}
}

func TestTableDefault(t *testing.T) {
	ev := Event{Kind: KindRead}
	if got := ev.Table(); got != DefaultTable {
		t.Errorf("expected %q, got %q", DefaultTable, got)
	}
	ev.TableName = "orders"
	if got := ev.Table(); got != "orders" {
		t.Errorf("expected orders, got %q", got)
	}
}

func TestGroupingKeys(t *testing.T) {
	ev := Event{Kind: KindQuery, TableName: "orders", IndexName: "by-date", PartitionKey: "cust-1", SortKey: "2026-08"}
	if got := ev.IndexKey(); got != "orders:by-date" {
		t.Errorf("IndexKey = %q", got)
	}
	if got := ev.ItemKey(); got != "cust-1#2026-08" {
		t.Errorf("ItemKey = %q", got)
	}
}

func TestIsReadKind(t *testing.T) {
	reads := []Kind{KindRead, KindQuery, KindScan, KindBatchRead, KindTxRead}
	for _, k := range reads {
		if !IsReadKind(k) {
			t.Errorf("expected %q to be a read kind", k)
		}
	}
	for _, k := range []Kind{KindWrite, KindUpdate, KindDelete, KindBatchWrite, KindTxWrite} {
		if IsReadKind(k) {
			t.Errorf("expected %q not to be a read kind", k)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Event{
		Kind:           KindRead,
		Timestamp:      time.Now(),
		ReadUnits:      Float64(2.5),
		ItemCount:      Int(3),
		ItemSizeBytes:  Int64(4096),
		UsedProjection: Bool(true),
		Metadata:       map[string]string{"caller": "orm"},
	}

	cp := orig.Clone()
	*cp.ReadUnits = 99
	*cp.ItemCount = 99
	cp.Metadata["caller"] = "mutated"

	if *orig.ReadUnits != 2.5 || *orig.ItemCount != 3 {
		t.Error("clone shared pointer fields with original")
	}
	if orig.Metadata["caller"] != "orm" {
		t.Error("clone shared metadata map with original")
	}
}

func TestJSONOmitsAbsentFields(t *testing.T) {
	ev := Event{Kind: KindWrite, Timestamp: time.Unix(0, 0).UTC(), LatencyMs: 1.5}
	data, err := json.Marshal(&ev)
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"read_units", "scanned_count", "used_projection", "item_size_bytes"} {
		if containsField(data, field) {
			t.Errorf("expected %q to be omitted: %s", field, data)
		}
	}

	var back Event
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.ReadUnits != nil {
		t.Error("expected absent read units to stay nil after round trip")
	}
}

func containsField(data []byte, field string) bool {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return false
	}
	_, ok := m[field]
	return ok
}
