// Package memory keeps a bounded, scored record of what each user has said.
//
// The store is a plain JSON snapshot on disk: a map from user id to a list of
// facts. Writes go through a dirty flag and a periodic flush so chat handling
// never waits on the filesystem.
package memory

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	// MinUtteranceLen is the shortest text worth remembering.
	MinUtteranceLen = 20
	// MaxFactText caps how much of one utterance is stored.
	MaxFactText = 160
	// MaxFactsPerUser bounds each user's list; oldest entries fall off.
	MaxFactsPerUser = 20
	// DefaultRecentLimit is how many facts a prompt digest includes.
	DefaultRecentLimit = 5
)

type Fact struct {
	Text  string  `json:"text"`
	Score int     `json:"score"`
	TS    float64 `json:"ts"`
}

// UnmarshalJSON tolerates the legacy format where a fact was a bare string.
func (f *Fact) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Text = s
		f.Score = 1
		f.TS = 0
		return nil
	}

	type fact Fact
	var v fact
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Score == 0 {
		v.Score = 1
	}
	*f = Fact(v)
	return nil
}

type userFacts struct {
	Facts []Fact `json:"facts"`
}

// FactStore is safe for concurrent use; all access to the map and the dirty
// flag runs under one mutex.
type FactStore struct {
	path string

	mu    sync.Mutex
	data  map[string]*userFacts
	dirty bool

	now func() time.Time
}

func NewFactStore(path string) *FactStore {
	s := &FactStore{
		path: path,
		data: make(map[string]*userFacts),
		now:  time.Now,
	}
	s.load()
	return s
}

// load reads the snapshot if one exists. A missing file is a fresh start; a
// malformed file is logged and treated as empty rather than refusing to boot.
func (s *FactStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[memory] load %s: %v", s.path, err)
		}
		return
	}
	if err := json.Unmarshal(data, &s.data); err != nil {
		log.Printf("[memory] load %s: %v", s.path, err)
		s.data = make(map[string]*userFacts)
	}
}

func scoreUtterance(text string) int {
	score := 1
	if strings.Contains(text, "?") {
		score++
	}
	if utf8.RuneCountInString(text) > 80 {
		score++
	}
	return score
}

// RecordUtterance remembers one user utterance. Short texts are ignored.
// Lengths count runes, not bytes; most traffic is Cyrillic.
func (s *FactStore) RecordUtterance(userID, text string) {
	if utf8.RuneCountInString(text) < MinUtteranceLen {
		return
	}

	fact := Fact{
		Text:  truncate(text, MaxFactText),
		Score: scoreUtterance(text),
		TS:    float64(s.now().UnixNano()) / float64(time.Second),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uf, ok := s.data[userID]
	if !ok {
		uf = &userFacts{}
		s.data[userID] = uf
	}
	uf.Facts = append(uf.Facts, fact)
	if len(uf.Facts) > MaxFactsPerUser {
		uf.Facts = uf.Facts[len(uf.Facts)-MaxFactsPerUser:]
	}
	s.dirty = true
}

// RecentFactsText returns the user's highest-scored facts, newline-joined.
// Ties keep insertion order. Empty string when nothing is stored.
func (s *FactStore) RecentFactsText(userID string, limit int) string {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	s.mu.Lock()
	uf, ok := s.data[userID]
	var facts []Fact
	if ok {
		facts = append(facts, uf.Facts...)
	}
	s.mu.Unlock()

	if len(facts) == 0 {
		return ""
	}

	sort.SliceStable(facts, func(i, j int) bool {
		return facts[i].Score > facts[j].Score
	})
	if len(facts) > limit {
		facts = facts[:limit]
	}

	lines := make([]string, len(facts))
	for i, f := range facts {
		lines[i] = f.Text
	}
	return strings.Join(lines, "\n")
}

// FlushIfDirty writes the whole snapshot when something changed since the
// last flush. Write failures are logged and swallowed; memory stays
// authoritative until the next successful write.
func (s *FactStore) FlushIfDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return
	}
	if err := s.writeSnapshotLocked(); err != nil {
		log.Printf("[memory] save %s: %v", s.path, err)
		return
	}
	s.dirty = false
}

func (s *FactStore) writeSnapshotLocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
