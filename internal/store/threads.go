package store

import (
	"path/filepath"
	"sort"

	"healthassist/pkg"
)

// ThreadStore keeps per-user thread metadata in
// user_threads/<user>_threads.json, keyed by thread id.
type ThreadStore struct {
	dir   string
	Clock Clock
}

// NewThreadStore returns the store rooted at root/user_threads.
func NewThreadStore(root string) *ThreadStore {
	return &ThreadStore{dir: filepath.Join(root, ThreadsDir)}
}

func (s *ThreadStore) path(userID string) string {
	return filepath.Join(s.dir, safeName(userID)+"_threads.json")
}

func (s *ThreadStore) load(userID string) map[string]*pkg.ThreadMeta {
	return readMap[pkg.ThreadMeta](s.path(userID))
}

// Save creates the thread on first sight, otherwise refreshes its
// last_updated and, when given, last_message.
func (s *ThreadStore) Save(userID, threadID, title, lastMessage string) error {
	now := s.Clock.now()
	threads := s.load(userID)
	if t, ok := threads[threadID]; ok {
		t.LastUpdated = now
		if lastMessage != "" {
			t.LastMessage = truncate(lastMessage, 200)
		}
	} else {
		threads[threadID] = &pkg.ThreadMeta{
			ThreadID:     threadID,
			Title:        truncate(title, 100),
			CreatedAt:    now,
			LastUpdated:  now,
			LastMessage:  truncate(lastMessage, 200),
			MessageCount: 1,
		}
	}
	return writeJSON(s.path(userID), threads)
}

// Increment bumps the thread's message count. Unknown threads are ignored.
func (s *ThreadStore) Increment(userID, threadID string) error {
	threads := s.load(userID)
	t, ok := threads[threadID]
	if !ok {
		return nil
	}
	t.MessageCount++
	t.LastUpdated = s.Clock.now()
	return writeJSON(s.path(userID), threads)
}

// Delete drops the thread's metadata and reports whether it existed.
func (s *ThreadStore) Delete(userID, threadID string) (bool, error) {
	threads := s.load(userID)
	if _, ok := threads[threadID]; !ok {
		return false, nil
	}
	delete(threads, threadID)
	return true, writeJSON(s.path(userID), threads)
}

// Get returns the thread metadata, or nil when unknown.
func (s *ThreadStore) Get(userID, threadID string) *pkg.ThreadMeta {
	return s.load(userID)[threadID]
}

// Recent returns up to limit threads, most recently updated first.
func (s *ThreadStore) Recent(userID string, limit int) []pkg.ThreadMeta {
	threads := s.load(userID)
	out := make([]pkg.ThreadMeta, 0, len(threads))
	for _, t := range threads {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
