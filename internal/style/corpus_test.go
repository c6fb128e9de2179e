package style

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestCorpus(t *testing.T) *Corpus {
	t.Helper()
	return NewCorpus(filepath.Join(t.TempDir(), "style.txt"), rand.New(rand.NewSource(1)))
}

func TestTryRecord_Rejections(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"too short", "пять"},
		{"too long", strings.Repeat("ж", 400)},
		{"command prefix", "/start and some trailing words"},
		{"contains url", "посмотри вот тут https://example.com интересно"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCorpus(t)
			if c.TryRecord(tt.text) {
				t.Errorf("TryRecord(%q) accepted, want rejected", tt.text)
			}
			if c.Len() != 0 {
				t.Errorf("corpus grew to %d after rejection", c.Len())
			}
		})
	}
}

func TestTryRecord_AcceptThenDuplicate(t *testing.T) {
	c := newTestCorpus(t)
	line := strings.Repeat("x", 50)

	if !c.TryRecord(line) {
		t.Fatal("clean 50-char line rejected")
	}
	if c.TryRecord(line) {
		t.Error("exact duplicate accepted")
	}
	if c.Len() != 1 {
		t.Errorf("corpus size = %d, want 1", c.Len())
	}
}

func TestTryRecord_CapEvictsOldest(t *testing.T) {
	c := newTestCorpus(t)
	for i := 0; i <= MaxLines; i++ {
		if !c.TryRecord(fmt.Sprintf("строка номер %04d для проверки лимита", i)) {
			t.Fatalf("line %d rejected", i)
		}
	}

	if c.Len() != MaxLines {
		t.Fatalf("corpus size = %d, want %d", c.Len(), MaxLines)
	}
	c.mu.Lock()
	first := c.lines[0]
	c.mu.Unlock()
	if strings.Contains(first, "0000") {
		t.Error("oldest line survived overflow")
	}

	// The evicted line is acceptable again.
	if !c.TryRecord("строка номер 0000 для проверки лимита") {
		t.Error("evicted line still counted as duplicate")
	}
}

func TestTryRecord_AppendsToLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.txt")
	c := NewCorpus(path, rand.New(rand.NewSource(1)))

	c.TryRecord("первая строка достаточной длины")
	c.TryRecord("вторая строка достаточной длины")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	want := "первая строка достаточной длины\nвторая строка достаточной длины\n"
	if string(data) != want {
		t.Errorf("log = %q, want %q", data, want)
	}
}

func TestLoad_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.txt")
	content := "первая строка\n\n  \nвторая строка\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	c := NewCorpus(path, rand.New(rand.NewSource(1)))
	if c.Len() != 2 {
		t.Errorf("loaded %d lines, want 2", c.Len())
	}
}

func TestSampleExamples(t *testing.T) {
	c := newTestCorpus(t)
	if got := c.SampleExamples(6); got != FallbackExamples {
		t.Errorf("empty corpus sample = %q, want fallback", got)
	}

	for i := 0; i < 10; i++ {
		c.TryRecord(fmt.Sprintf("пример стиля номер %d для выборки", i))
	}

	sample := strings.Split(c.SampleExamples(6), "\n")
	if len(sample) != 6 {
		t.Fatalf("sample has %d lines, want 6", len(sample))
	}
	seen := make(map[string]bool)
	for _, line := range sample {
		if seen[line] {
			t.Errorf("duplicate line in sample: %q", line)
		}
		seen[line] = true
	}

	// Asking for more than exists returns everything.
	if got := strings.Split(c.SampleExamples(50), "\n"); len(got) != 10 {
		t.Errorf("oversized sample has %d lines, want 10", len(got))
	}
}
