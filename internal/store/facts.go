package store

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"healthassist/pkg"
)

// FactStore keeps long-term facts as one line of text per fact in
// memory/<user>.txt. Facts are append-only: no dedup, no retraction.
type FactStore struct {
	dir string
}

// NewFactStore returns the store rooted at root/memory.
func NewFactStore(root string) *FactStore {
	return &FactStore{dir: filepath.Join(root, MemoryDir)}
}

func (s *FactStore) path(userID string) string {
	return filepath.Join(s.dir, safeName(userID)+".txt")
}

// Append adds fact as a new line. Blank facts are ignored.
func (s *FactStore) Append(userID, fact string) error {
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	f, err := os.OpenFile(s.path(userID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open memory file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(fact + "\n"); err != nil {
		return fmt.Errorf("append fact: %w", err)
	}
	return nil
}

// Facts returns every stored fact in append order.
func (s *FactStore) Facts(userID string) []string {
	f, err := os.Open(s.path(userID))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("user_id", userID).Msg("loading facts failed")
		}
		return nil
	}
	defer f.Close()

	var facts []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			facts = append(facts, line)
		}
	}
	if err := sc.Err(); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("reading facts failed")
	}
	return facts
}

// Text returns the facts joined by newline, or "" when there are none.
func (s *FactStore) Text(userID string) string {
	return strings.Join(s.Facts(userID), "\n")
}

// Delete removes all memory for the user.
func (s *FactStore) Delete(userID string) error {
	err := os.Remove(s.path(userID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete memory: %w", err)
	}
	return nil
}

// Users lists every user that has a memory file, most recently updated first.
func (s *FactStore) Users() []pkg.UserMemory {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Msg("listing memory users failed")
		}
		return []pkg.UserMemory{}
	}

	users := make([]pkg.UserMemory, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		userID := strings.TrimSuffix(e.Name(), ".txt")
		users = append(users, pkg.UserMemory{
			UserID:      userID,
			LastUpdated: info.ModTime(),
			Preview:     s.preview(userID),
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].LastUpdated.After(users[j].LastUpdated) })
	return users
}

func (s *FactStore) preview(userID string) string {
	facts := s.Facts(userID)
	if len(facts) == 0 {
		return "No content"
	}
	return truncate(facts[0], 100)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
