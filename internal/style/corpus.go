// Package style maintains the rolling corpus of reference lines used to
// steer the tone of generated replies.
package style

import (
	"bufio"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	MinLineLen = 8
	MaxLineLen = 320
	// MaxLines bounds the in-memory corpus; oldest lines fall off.
	MaxLines = 500
	// DefaultSampleSize is how many lines a prompt embeds.
	DefaultSampleSize = 6
	// FallbackExamples stands in when the corpus is empty.
	FallbackExamples = "пиши естественно."

	commandPrefix = "/"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Corpus holds accepted lines in memory and mirrors them to an append-only
// log file. The log is the source of truth on restart; a crash between the
// in-memory append and the disk append loses at most that one line.
type Corpus struct {
	path string

	mu    sync.Mutex
	lines []string
	seen  map[string]struct{}
	rng   *rand.Rand
}

func NewCorpus(path string, rng *rand.Rand) *Corpus {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	c := &Corpus{
		path: path,
		seen: make(map[string]struct{}),
		rng:  rng,
	}
	c.load()
	return c
}

func (c *Corpus) load() {
	f, err := os.Open(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[style] load %s: %v", c.path, err)
		}
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if _, dup := c.seen[line]; dup {
			continue
		}
		c.append(line)
	}
	if err := sc.Err(); err != nil {
		log.Printf("[style] read %s: %v", c.path, err)
	}
}

// append adds a line in memory, enforcing the cap. Caller holds no lock yet
// during load; TryRecord takes the mutex itself.
func (c *Corpus) append(line string) {
	c.lines = append(c.lines, line)
	if len(c.lines) > MaxLines {
		evicted := c.lines[:len(c.lines)-MaxLines]
		for _, old := range evicted {
			delete(c.seen, old)
		}
		c.lines = c.lines[len(c.lines)-MaxLines:]
	}
	c.seen[line] = struct{}{}
}

// TryRecord offers a line to the corpus. Rejection reasons, first match wins:
// bad length, command prefix, URL, duplicate.
func (c *Corpus) TryRecord(text string) bool {
	n := utf8.RuneCountInString(text)
	if n < MinLineLen || n > MaxLineLen {
		return false
	}
	if strings.HasPrefix(text, commandPrefix) {
		return false
	}
	if urlPattern.MatchString(text) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.seen[text]; dup {
		return false
	}
	c.append(text)

	if err := c.appendToLog(text); err != nil {
		log.Printf("[style] save %s: %v", c.path, err)
	}
	return true
}

func (c *Corpus) appendToLog(text string) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(text + "\n")
	return err
}

// SampleExamples returns up to n distinct lines chosen at random,
// newline-joined. An empty corpus yields the fixed fallback instruction.
func (c *Corpus) SampleExamples(n int) string {
	if n <= 0 {
		n = DefaultSampleSize
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.lines) == 0 {
		return FallbackExamples
	}
	if n > len(c.lines) {
		n = len(c.lines)
	}

	idx := c.rng.Perm(len(c.lines))[:n]
	picked := make([]string, n)
	for i, j := range idx {
		picked[i] = c.lines[j]
	}
	return strings.Join(picked, "\n")
}

// Len reports the current corpus size.
func (c *Corpus) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}
