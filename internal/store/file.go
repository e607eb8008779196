// Package store implements the per-user flat-file stores. Each call loads the
// whole file, mutates it in memory and rewrites it. There is no locking and no
// atomic rename: concurrent writers for the same user race and the last write
// wins.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// Directory and file names under the data root.
const (
	MemoryDir   = "memory"
	TrackingDir = "tracking"
	RiskDir     = "risk_assessments"
	AlertsDir   = "emergency_alerts_history"
	ThreadsDir  = "user_threads"

	UsersFile    = "users.json"
	SessionsFile = "sessions.json"
)

// Record ids are derived from wall-clock seconds and can collide for rapid
// writes.
const idLayout = "20060102_150405"

const dateLayout = "2006-01-02"

// Clock returns the current time. Stores default to time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// readJSON decodes path into v. A missing file leaves v untouched and reports
// false. Decode and I/O failures are logged and also report false.
func readJSON(path string, v interface{}) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("store read failed")
		}
		return false
	}
	if len(data) == 0 {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("store file is not valid JSON")
		return false
	}
	return true
}

// readMap decodes a keyed store file. A file holding null or null entries
// reads as if those records were absent.
func readMap[V any](path string) map[string]*V {
	m := map[string]*V{}
	readJSON(path, &m)
	if m == nil {
		return map[string]*V{}
	}
	for k, v := range m {
		if v == nil {
			delete(m, k)
		}
	}
	return m
}

// writeJSON rewrites path with the indented encoding of v, creating the parent
// directory on first use.
func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// userFile is the JSON file holding one user's records in dir.
func userFile(dir, userID string) string {
	return filepath.Join(dir, safeName(userID)+".json")
}

// safeName keeps user ids from escaping the store directory.
func safeName(id string) string {
	name := filepath.Base(filepath.Clean("/" + id))
	if name == "/" || name == "." {
		return "_"
	}
	return name
}

// within keeps the records newer than now-days. days <= 0 keeps everything.
func within[T any](items []T, days int, now time.Time, ts func(T) time.Time) []T {
	if days <= 0 {
		return items
	}
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	out := make([]T, 0, len(items))
	for _, it := range items {
		if ts(it).After(cutoff) {
			out = append(out, it)
		}
	}
	return out
}

// newest returns up to n items ordered by timestamp, most recent first.
func newest[T any](items []T, n int, ts func(T) time.Time) []T {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return ts(sorted[i]).After(ts(sorted[j])) })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
