package reader

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func collect(t *testing.T, b *Backward) []string {
	t.Helper()
	var lines []string
	for b.Scan() {
		lines = append(lines, b.Text())
	}
	if err := b.Err(); err != nil {
		t.Fatal(err)
	}
	return lines
}

func TestReverseOrder(t *testing.T) {
	path := writeFile(t, "first\nsecond\nthird\n")
	b, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	got := collect(t, b)
	// The trailing newline produces one empty final segment.
	want := []string{"", "third", "second", "first"}
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestNoTrailingNewline(t *testing.T) {
	path := writeFile(t, "first\nsecond")
	b, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	got := collect(t, b)
	if len(got) != 2 || got[0] != "second" || got[1] != "first" {
		t.Errorf("expected [second first], got %v", got)
	}
}

func TestLinesSpanChunkBoundaries(t *testing.T) {
	// A 3-byte chunk forces every line across a boundary.
	path := writeFile(t, "alpha\nbravo\ncharlie\n")
	b, err := OpenSize(path, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	got := collect(t, b)
	want := []string{"", "charlie", "bravo", "alpha"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestEmptyFile(t *testing.T) {
	path := writeFile(t, "")
	b, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if b.Scan() {
		t.Errorf("expected no lines, got %q", b.Text())
	}
}

func TestSingleLineNoNewline(t *testing.T) {
	path := writeFile(t, "only")
	b, err := OpenSize(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	got := collect(t, b)
	if len(got) != 1 || got[0] != "only" {
		t.Errorf("expected [only], got %v", got)
	}
}

func TestInvalidUTF8Substituted(t *testing.T) {
	path := writeFile(t, "ok\n\xff\xfe\n")
	b, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	got := collect(t, b)
	// got[0] is the empty trailing segment, got[1] the invalid bytes.
	if len(got) != 3 {
		t.Fatalf("expected 3 segments, got %v", got)
	}
	for _, r := range got[1] {
		if r != '�' {
			t.Errorf("expected replacement runes, got %q", got[1])
		}
	}
}
