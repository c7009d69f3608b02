package qiw

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	similarLookback      = 50
	DefaultSimilarWindow = 60 * time.Minute
)

type eventsFile struct {
	Events      []Record `json:"events"`
	EventCount  int      `json:"event_count"`
	LastUpdated string   `json:"last_updated"`
}

// Store is the append-only incident log. Writers in one process are
// serialised; each write replaces the file atomically.
type Store struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

func (s *Store) read() (*eventsFile, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &eventsFile{Events: []Record{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("qiw events: %w", err)
	}
	var f eventsFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("qiw events %s: %w", s.path, err)
	}
	if f.Events == nil {
		f.Events = []Record{}
	}
	return &f, nil
}

func (s *Store) write(f *eventsFile) error {
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("qiw events: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("qiw events: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".qiw-events-*")
	if err != nil {
		return fmt.Errorf("qiw events: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("qiw events: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("qiw events: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("qiw events: rename: %w", err)
	}
	return nil
}

// Record appends incidents and returns their ids in order.
func (s *Store) Record(incidents ...Incident) ([]string, error) {
	if len(incidents) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	now := s.now()
	ids := make([]string, 0, len(incidents))
	for _, inc := range incidents {
		rec := newRecord(inc, now)
		f.Events = append(f.Events, rec)
		ids = append(ids, rec.ID)
	}
	f.EventCount = len(f.Events)
	f.LastUpdated = now.UTC().Format(time.RFC3339Nano)
	if err := s.write(f); err != nil {
		return nil, err
	}
	return ids, nil
}

// Recent returns up to n of the newest records for channel, oldest first.
func (s *Store) Recent(channel string, n int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.read()
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range f.Events {
		if r.Channel == channel {
			out = append(out, r)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

// HasSimilar reports whether an incident with the same title and severity
// was recorded on the channel within window.
func (s *Store) HasSimilar(inc Incident, window time.Duration) (bool, error) {
	if window <= 0 {
		window = DefaultSimilarWindow
	}
	recent, err := s.Recent(inc.Channel, similarLookback)
	if err != nil {
		return false, err
	}
	cutoff := s.now().Add(-window)
	for _, r := range recent {
		ts, err := time.Parse(time.RFC3339Nano, r.Timestamp)
		if err != nil {
			continue
		}
		if ts.After(cutoff) && r.Title == inc.Title && r.Severity == inc.Severity {
			return true, nil
		}
	}
	return false, nil
}
