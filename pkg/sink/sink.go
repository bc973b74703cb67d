// Package sink provides export destinations for collector event snapshots:
// stdout and file JSONL streams, an in-memory sink for tests, a Badger-backed
// local archive, and an rclone-backed remote uploader.
package sink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/kvlens/kvlens/pkg/event"
	"github.com/kvlens/kvlens/pkg/metrics"
)

// Emitter writes batches of exported events to a destination.
type Emitter interface {
	Emit(events []event.Event) error
	Close() error
}

// Config selects and configures an emitter.
type Config struct {
	Type   string       `yaml:"type"` // "stdout", "file", "badger", "remote", "nop"
	Path   string       `yaml:"path"` // file path or badger directory
	Remote RemoteConfig `yaml:"remote"`
}

// New builds an emitter from config. Unknown types get the nop emitter.
func New(cfg Config) (Emitter, error) {
	switch cfg.Type {
	case "stdout":
		return NewStdoutEmitter(), nil
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sink.New: file sink requires a path")
		}
		return NewFileEmitter(cfg.Path)
	case "badger":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sink.New: badger sink requires a path")
		}
		return NewBadgerEmitter(cfg.Path)
	case "remote":
		return NewRemoteEmitter(cfg.Remote)
	default:
		return NewNopEmitter(), nil
	}
}

// StdoutEmitter writes JSON lines to stdout (for log aggregation).
type StdoutEmitter struct {
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewStdoutEmitter creates a stdout emitter.
func NewStdoutEmitter() *StdoutEmitter {
	return &StdoutEmitter{
		encoder: json.NewEncoder(os.Stdout),
	}
}

// Emit writes events as JSON lines to stdout.
func (e *StdoutEmitter) Emit(events []event.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range events {
		if err := e.encoder.Encode(&events[i]); err != nil {
			metrics.SinkEmits.WithLabelValues("stdout", "error").Inc()
			return fmt.Errorf("sink.StdoutEmitter: %w", err)
		}
	}
	metrics.SinkEmits.WithLabelValues("stdout", "ok").Inc()
	metrics.SinkEvents.WithLabelValues("stdout").Add(float64(len(events)))
	return nil
}

// Close is a no-op for stdout.
func (e *StdoutEmitter) Close() error {
	return nil
}

// FileEmitter appends JSON lines to a file.
type FileEmitter struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewFileEmitter creates a file emitter that writes JSONL to the given path.
func NewFileEmitter(path string) (*FileEmitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sink.NewFileEmitter: %w", err)
	}
	return &FileEmitter{
		file:    f,
		encoder: json.NewEncoder(f),
	}, nil
}

// Emit writes events as JSON lines to the file.
func (e *FileEmitter) Emit(events []event.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range events {
		if err := e.encoder.Encode(&events[i]); err != nil {
			metrics.SinkEmits.WithLabelValues("file", "error").Inc()
			return fmt.Errorf("sink.FileEmitter: %w", err)
		}
	}
	metrics.SinkEmits.WithLabelValues("file", "ok").Inc()
	metrics.SinkEvents.WithLabelValues("file").Add(float64(len(events)))
	return nil
}

// Close closes the file.
func (e *FileEmitter) Close() error {
	return e.file.Close()
}

// NopEmitter discards all events.
type NopEmitter struct{}

// NewNopEmitter creates a no-op emitter.
func NewNopEmitter() *NopEmitter {
	return &NopEmitter{}
}

// Emit discards events.
func (e *NopEmitter) Emit(events []event.Event) error {
	return nil
}

// Close is a no-op.
func (e *NopEmitter) Close() error {
	return nil
}

// MemoryEmitter stores events in memory (for testing).
type MemoryEmitter struct {
	mu     sync.Mutex
	events []event.Event
}

// NewMemoryEmitter creates a memory-backed emitter.
func NewMemoryEmitter() *MemoryEmitter {
	return &MemoryEmitter{}
}

// Emit stores events.
func (e *MemoryEmitter) Emit(events []event.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, events...)
	return nil
}

// Close is a no-op.
func (e *MemoryEmitter) Close() error {
	return nil
}

// Events returns all stored events.
func (e *MemoryEmitter) Events() []event.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]event.Event, len(e.events))
	copy(out, e.events)
	return out
}

// Len returns the number of stored events.
func (e *MemoryEmitter) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

// encodeJSONL renders events as one JSON object per line.
func encodeJSONL(events []event.Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
