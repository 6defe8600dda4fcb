package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"sprintboard/internal/jira"

	"github.com/natefinch/atomic"
	"github.com/rs/zerolog/log"
)

const (
	filePrefix = "jira-cache-"
	fileSuffix = ".json"
)

// Store reads and writes month partitions under a single directory.
// Writes and cleanup are serialized so cleanup never removes a file mid-write.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a store rooted at dir. The directory is created lazily on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file location of a partition.
func (s *Store) Path(p Partition) string {
	return filepath.Join(s.dir, filePrefix+p.String()+fileSuffix)
}

// Read loads a partition file. A missing, unreadable or malformed file is reported as absent.
func (s *Store) Read(path string) (*Snapshot, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug().Str("path", path).Msg("Cache miss")
		} else {
			log.Warn().Err(err).Str("path", path).Msg("Unreadable cache file, treating as miss")
		}
		return nil, false
	}

	var raw struct {
		Data      *[]jira.Issue `json:"data"`
		Timestamp int64         `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Corrupt cache file, treating as miss")
		return nil, false
	}
	if raw.Data == nil || raw.Timestamp <= 0 {
		log.Warn().Str("path", path).Msg("Incomplete cache file, treating as miss")
		return nil, false
	}

	log.Debug().Str("path", path).Int("count", len(*raw.Data)).Msg("Cache hit")
	return &Snapshot{Data: *raw.Data, Timestamp: raw.Timestamp}, true
}

// Write persists a snapshot through a temporary file and rename.
func (s *Store) Write(path string, snap Snapshot) error {
	if snap.Data == nil {
		snap.Data = []jira.Issue{}
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode cache snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	log.Info().Str("path", path).Int("count", len(snap.Data)).Msg("Partition saved to cache")
	return nil
}

// List returns every partition present on disk, newest first.
func (s *Store) List() ([]Partition, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list cache directory: %w", err)
	}

	var parts []Partition
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if p, ok := parseFileName(e.Name()); ok {
			parts = append(parts, p)
		}
	}

	slices.SortFunc(parts, func(a, b Partition) int {
		return b.Compare(a)
	})
	return parts, nil
}

// Cleanup keeps the newest retain partitions and deletes the rest. It is best-effort:
// failures are logged and never returned.
func (s *Store) Cleanup(retain int) {
	if retain < 0 {
		retain = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parts, err := s.List()
	if err != nil {
		log.Warn().Err(err).Msg("Cache cleanup skipped")
		return
	}

	for i := retain; i < len(parts); i++ {
		path := s.Path(parts[i])
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("Failed to delete old cache file")
			continue
		}
		log.Info().Str("path", path).Msg("Deleted old cache file")
	}
}

func parseFileName(name string) (Partition, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return Partition{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	t, err := time.Parse("2006-01", stamp)
	if err != nil {
		return Partition{}, false
	}
	return PartitionOf(t), true
}
