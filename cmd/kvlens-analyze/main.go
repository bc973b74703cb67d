// Package main provides the kvlens-analyze CLI for offline analysis of
// recorded operation-event streams.
//
// Usage:
//
//	kvlens-analyze stats --events <file.jsonl> [--config <file>]
//	kvlens-analyze detect --events <file.jsonl> [--config <file>]
//	kvlens-analyze recommend --events <file.jsonl> [--config <file>]
//	kvlens-analyze capacity --events <file.jsonl> [--config <file>]
//	kvlens-analyze export --events <file.jsonl> --config <file>
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/kvlens/kvlens/pkg/collector"
	"github.com/kvlens/kvlens/pkg/config"
	"github.com/kvlens/kvlens/pkg/detect"
	"github.com/kvlens/kvlens/pkg/event"
	"github.com/kvlens/kvlens/pkg/recommend"
	"github.com/kvlens/kvlens/pkg/sink"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "stats":
		runStats(os.Args[2:])
	case "detect":
		runDetect(os.Args[2:])
	case "recommend":
		runRecommend(os.Args[2:])
	case "capacity":
		runCapacity(os.Args[2:])
	case "export":
		runExport(os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, "kvlens-analyze — offline access-pattern analysis\n\n")
	fmt.Fprint(os.Stderr, "Usage:\n")
	fmt.Fprint(os.Stderr, "  kvlens-analyze <command> [flags]\n\n")
	fmt.Fprint(os.Stderr, "Commands:\n")
	fmt.Fprint(os.Stderr, "  stats      Aggregate per-kind and per-pattern statistics\n")
	fmt.Fprint(os.Stderr, "  detect     Run the anti-pattern detectors\n")
	fmt.Fprint(os.Stderr, "  recommend  Run the recommendation engine\n")
	fmt.Fprint(os.Stderr, "  capacity   Suggest a capacity provisioning mode\n")
	fmt.Fprint(os.Stderr, "  export     Re-emit the event stream through the configured sink\n\n")
	fmt.Fprint(os.Stderr, "Use \"kvlens-analyze <command> --help\" for more information about a command.\n")
}

// commonFlags registers the flags shared by every subcommand.
func commonFlags(fs *flag.FlagSet) (events, cfgPath *string) {
	events = fs.String("events", "", "JSONL event stream to analyze (required)")
	cfgPath = fs.String("config", "", "kvlens config file (optional; defaults apply)")
	return
}

// loadStack parses flags, loads config, and replays the event file into a
// fresh collector. Replay admits every event regardless of the configured
// sample rate; sampling already happened when the stream was recorded.
func loadStack(name string, args []string) (*config.Config, *collector.Collector) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	eventsPath, cfgPath := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *eventsPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --events is required")
		fs.Usage()
		os.Exit(1)
	}

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			slog.Error("failed to load config", "path", *cfgPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	ccfg := cfg.Collector.CollectorSettings()
	ccfg.Enabled = true
	ccfg.SampleRate = 1.0
	col, err := collector.New(ccfg)
	if err != nil {
		slog.Error("failed to create collector", "error", err)
		os.Exit(1)
	}

	n, skipped, err := replay(*eventsPath, col)
	if err != nil {
		slog.Error("failed to read events", "path", *eventsPath, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d events from %s", n, *eventsPath)
	if skipped > 0 {
		fmt.Printf(" (%d malformed lines skipped)", skipped)
	}
	fmt.Println()
	fmt.Println()

	return cfg, col
}

// replay feeds a JSONL stream into the collector. Malformed lines are
// counted and skipped rather than aborting the run.
func replay(path string, col *collector.Collector) (loaded, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev event.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			skipped++
			continue
		}
		col.Record(ev)
		loaded++
	}
	return loaded, skipped, scanner.Err()
}

func runStats(args []string) {
	_, col := loadStack("stats", args)
	stats := col.Stats()

	fmt.Println("Operations by kind")
	fmt.Println("──────────────────────────────────────────────────────────")
	kinds := make([]event.Kind, 0, len(stats.ByKind))
	for k := range stats.ByKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		s := stats.ByKind[k]
		fmt.Printf("%-12s count=%-6d avg=%.1fms total=%.0fms ru=%.1f wu=%.1f\n",
			k, s.Count, s.AvgLatencyMs, s.TotalLatencyMs, s.TotalReadUnits, s.TotalWriteUnits)
	}

	if len(stats.ByPattern) > 0 {
		fmt.Println()
		fmt.Println("Access patterns")
		fmt.Println("──────────────────────────────────────────────────────────")
		names := make([]string, 0, len(stats.ByPattern))
		for name := range stats.ByPattern {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := stats.ByPattern[name]
			fmt.Printf("%-24s count=%-6d avg=%.1fms items/op=%.1f\n",
				name, p.Count, p.AvgLatencyMs, p.AvgItemsReturned)
		}
	}
}

func runDetect(args []string) {
	cfg, col := loadStack("detect", args)
	det := detect.NewWithTuning(col, cfg.Detect)
	rep := det.DetectAll()

	if len(rep.HotPartitions) > 0 {
		fmt.Println("Hot partitions")
		for _, hp := range rep.HotPartitions {
			fmt.Printf("  %-32s %5.1f%% of traffic (%d events)\n", hp.Key, hp.Share*100, hp.Count)
		}
		fmt.Println()
	}
	if len(rep.InefficientScans) > 0 {
		fmt.Println("Inefficient scans")
		for _, s := range rep.InefficientScans {
			fmt.Printf("  %-16s %d/%d items kept (%.1f%%)\n", s.Table, s.ItemCount, s.ScannedCount, s.Efficiency*100)
		}
		fmt.Println()
	}
	if len(rep.UnusedIndexes) > 0 {
		fmt.Println("Unused indexes")
		for _, iu := range rep.UnusedIndexes {
			fmt.Printf("  %s:%s last used %s (%d events)\n", iu.Table, iu.Index, iu.LastUsed.Format("2006-01-02"), iu.EventCount)
		}
		fmt.Println()
	}
	printRecommendations(rep.Recommendations)
	if len(rep.HotPartitions)+len(rep.InefficientScans)+len(rep.UnusedIndexes)+len(rep.Recommendations) == 0 {
		fmt.Println("No anti-patterns detected.")
	}
}

func runRecommend(args []string) {
	cfg, col := loadStack("recommend", args)
	eng := recommend.NewWithTuning(col, col.Thresholds(), cfg.Recommend)
	recs := eng.Recommend()
	if len(recs) == 0 {
		fmt.Println("No recommendations.")
		return
	}
	printRecommendations(recs)
}

func runCapacity(args []string) {
	cfg, col := loadStack("capacity", args)
	eng := recommend.NewWithTuning(col, col.Thresholds(), cfg.Recommend)
	s := eng.SuggestCapacityMode()

	fmt.Printf("Suggested capacity mode: %s\n", s.Mode)
	fmt.Printf("Reason: %s\n", s.Reason)
	if s.Hours > 0 {
		fmt.Printf("Observed: %d hourly bins, mean %.1f events/hour (min %d), variability %.2f\n",
			s.Hours, s.MeanHourly, s.MinHourly, s.Variability)
	}
}

func runExport(args []string) {
	cfg, col := loadStack("export", args)

	em, err := sink.New(cfg.Sink)
	if err != nil {
		slog.Error("failed to create sink", "type", cfg.Sink.Type, "error", err)
		os.Exit(1)
	}
	defer em.Close()

	events := col.Export()
	if err := em.Emit(events); err != nil {
		slog.Error("export failed", "type", cfg.Sink.Type, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d events via %s sink\n", len(events), cfg.Sink.Type)
}

func printRecommendations(recs []detect.Recommendation) {
	if len(recs) == 0 {
		return
	}
	fmt.Println("Recommendations")
	for _, r := range recs {
		fmt.Printf("  [%-7s] %-18s %s\n", r.Severity, r.Category, r.Message)
	}
}
