package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoSummary is returned by Sink.Load when nothing has been stored yet.
var ErrNoSummary = errors.New("no summary stored")

// Sink stores the most recent summary record.
type Sink interface {
	Load() (Summary, error)
	Save(Summary) error
}

// FileSink keeps the summary as an indented JSON file, rewritten in full on
// every save.
type FileSink struct {
	mu   sync.Mutex
	path string
}

// NewFileSink returns a sink backed by the file at path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Path returns the backing file.
func (s *FileSink) Path() string {
	return s.path
}

// Load reads the stored summary. A missing or empty file is ErrNoSummary.
func (s *FileSink) Load() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Summary{}, ErrNoSummary
		}
		return Summary{}, fmt.Errorf("failed to read summary: %w", err)
	}
	if len(data) == 0 {
		return Summary{}, ErrNoSummary
	}

	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return Summary{}, fmt.Errorf("failed to parse summary %s: %w", s.path, err)
	}
	return summary, nil
}

// Save overwrites the file with summary.
func (s *FileSink) Save(summary Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create summary directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// MemorySink holds the summary in memory.
type MemorySink struct {
	mu      sync.Mutex
	summary *Summary
}

// Load returns the stored summary or ErrNoSummary.
func (m *MemorySink) Load() (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.summary == nil {
		return Summary{}, ErrNoSummary
	}
	return *m.summary, nil
}

// Save replaces the stored summary.
func (m *MemorySink) Save(summary Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary = &summary
	return nil
}
