// Package main provides a synthetic workload generator that emits JSONL
// operation-event streams for exercising the kvlens analyzers.
//
// Usage:
//
//	kvlens-gen --out events.jsonl --count 10000 --keys 500 --hot-share 0.3 --scan-ratio 0.05 --bursty --seed 42
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/kvlens/kvlens/pkg/event"
)

func main() {
	out := flag.String("out", "events.jsonl", "Output JSONL file")
	count := flag.Int("count", 10000, "Number of events to generate")
	keys := flag.Int("keys", 500, "Distinct partition keys")
	hotShare := flag.Float64("hot-share", 0.0, "Fraction of traffic sent to a single hot key")
	scanRatio := flag.Float64("scan-ratio", 0.02, "Fraction of events that are full scans")
	bursty := flag.Bool("bursty", false, "Cluster traffic into bursts with idle hours")
	hours := flag.Int("hours", 3, "Hours of traffic to simulate")
	seed := flag.Int64("seed", time.Now().UnixNano(), "RNG seed")
	flag.Parse()

	if *count <= 0 || *keys <= 0 || *hours <= 0 {
		fmt.Fprintln(os.Stderr, "Error: --count, --keys and --hours must be positive")
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", *out, err)
		os.Exit(1)
	}
	defer f.Close()

	rng := rand.New(rand.NewSource(*seed))
	enc := json.NewEncoder(f)
	start := time.Now().Add(-time.Duration(*hours) * time.Hour)

	for i := 0; i < *count; i++ {
		ev := makeEvent(rng, i, *count, *keys, *hotShare, *scanRatio, *bursty, *hours, start)
		if err := enc.Encode(&ev); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing event: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Wrote %d events to %s (seed %d)\n", *count, *out, *seed)
}

func makeEvent(rng *rand.Rand, i, count, keys int, hotShare, scanRatio float64, bursty bool, hours int, start time.Time) event.Event {
	ts := eventTime(rng, i, count, bursty, hours, start)

	if rng.Float64() < scanRatio {
		scanned := 500 + rng.Intn(5000)
		kept := rng.Intn(scanned / 10) // scans keep little of what they examine
		return event.Event{
			Kind:         event.KindScan,
			Timestamp:    ts,
			LatencyMs:    50 + rng.Float64()*400,
			ItemCount:    event.Int(kept),
			ScannedCount: event.Int(scanned),
			ReadUnits:    event.Float64(float64(scanned) / 8),
			TableName:    "orders",
		}
	}

	key := fmt.Sprintf("key-%04d", rng.Intn(keys))
	if hotShare > 0 && rng.Float64() < hotShare {
		key = "key-hot"
	}

	if rng.Float64() < 0.3 {
		return event.Event{
			Kind:         event.KindWrite,
			Timestamp:    ts,
			LatencyMs:    2 + rng.Float64()*20,
			WriteUnits:   event.Float64(1 + rng.Float64()*3),
			PartitionKey: key,
			TableName:    "orders",
		}
	}

	return event.Event{
		Kind:           event.KindRead,
		Timestamp:      ts,
		LatencyMs:      1 + rng.Float64()*10,
		ReadUnits:      event.Float64(0.5 + rng.Float64()),
		ItemCount:      event.Int(1),
		PartitionKey:   key,
		AccessPattern:  "order-by-id",
		UsedProjection: event.Bool(rng.Float64() < 0.2),
		TableName:      "orders",
	}
}

// eventTime spreads events across the simulated hours. In bursty mode the
// middle hour goes nearly idle so capacity analysis sees gappy traffic.
func eventTime(rng *rand.Rand, i, count int, bursty bool, hours int, start time.Time) time.Time {
	if !bursty {
		frac := float64(i) / float64(count)
		return start.Add(time.Duration(frac * float64(hours) * float64(time.Hour)))
	}
	hour := rng.Intn(hours)
	if hours >= 3 && hour == hours/2 && rng.Float64() < 0.95 {
		hour = 0 // drain the middle hour
	}
	offset := time.Duration(rng.Float64() * float64(time.Hour))
	return start.Add(time.Duration(hour)*time.Hour + offset)
}
