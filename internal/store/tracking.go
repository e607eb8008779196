package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"healthassist/pkg"
)

// summaryEntries caps how many window entries the tracking summary renders.
const summaryEntries = 10

// TrackingStore keeps daily check-ins in tracking/<user>.json.
type TrackingStore struct {
	dir   string
	Clock Clock
}

// NewTrackingStore returns the store rooted at root/tracking.
func NewTrackingStore(root string) *TrackingStore {
	return &TrackingStore{dir: filepath.Join(root, TrackingDir)}
}

// Save appends a new entry stamped with the current time.
func (s *TrackingStore) Save(userID string, in pkg.TrackingInput) (pkg.TrackingEntry, error) {
	now := s.Clock.now()
	entries := s.History(userID, 0)
	entry := pkg.TrackingEntry{
		EntryID:       now.Format(idLayout),
		Timestamp:     now,
		Date:          now.Format(dateLayout),
		TrackingInput: in,
	}
	entries = append(entries, entry)
	if err := writeJSON(userFile(s.dir, userID), entries); err != nil {
		return pkg.TrackingEntry{}, err
	}
	return entry, nil
}

// History returns the entries from the last days days, or all of them when
// days <= 0.
func (s *TrackingStore) History(userID string, days int) []pkg.TrackingEntry {
	var entries []pkg.TrackingEntry
	if !readJSON(userFile(s.dir, userID), &entries) {
		return []pkg.TrackingEntry{}
	}
	return within(entries, days, s.Clock.now(), func(e pkg.TrackingEntry) time.Time { return e.Timestamp })
}

// Summary renders the recent window for the model context. It is "" when the
// window holds no entries.
func (s *TrackingStore) Summary(userID string, days int) string {
	entries := s.History(userID, days)
	if len(entries) == 0 {
		return ""
	}
	if len(entries) > summaryEntries {
		entries = entries[len(entries)-summaryEntries:]
	}

	lines := []string{fmt.Sprintf("Recent %d-day health tracking:", days)}
	for _, e := range entries {
		date := e.Date
		if date == "" {
			date = "Unknown date"
		}
		parts := []string{"- " + date + ":"}
		if e.Mood != "" {
			parts = append(parts, "Mood: "+e.Mood)
		}
		if e.Energy != "" {
			parts = append(parts, "Energy: "+e.Energy)
		}
		if len(e.Symptoms) > 0 {
			parts = append(parts, "Symptoms: "+strings.Join(e.Symptoms, ", "))
		}
		if len(e.Medications) > 0 {
			parts = append(parts, "Medications: "+strings.Join(e.Medications, ", "))
		}
		if e.Notes != "" {
			parts = append(parts, "Notes: "+e.Notes)
		}
		lines = append(lines, strings.Join(parts, " | "))
	}
	return strings.Join(lines, "\n")
}
