package tailer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Free-Guy-IR/monitoring-user-web/internal/broadcast"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/index"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/ring"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/scanner"
)

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()
}

// waitFor polls until cond is true or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return cond()
}

func TestSkipsPreexistingContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	appendLine(t, path, "2024-05-01 09:00:00 | old | a.com")

	ix := index.New()
	rg := ring.New(10)
	bc := broadcast.New()
	sub := bc.Subscribe()
	defer bc.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go New(path, ix, rg, bc, nil).Start(ctx)

	// Give the tailer a moment to open and seek to end.
	time.Sleep(300 * time.Millisecond)

	appendLine(t, path, "2024-05-01 10:00:00 | ali | b.com")

	select {
	case msg := <-sub.C():
		if msg.User != "ali" || msg.Base != "ali" {
			t.Errorf("expected live message for ali, got %+v", msg)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for live message")
	}

	if n := ix.Len(); n != 1 {
		t.Errorf("pre-existing line must be skipped, expected 1 user, got %d", n)
	}
	if len(ix.Snapshot("old", "", 0)) != 0 {
		t.Error("pre-existing line leaked into the index")
	}
	if rg.Len() != 1 {
		t.Errorf("expected 1 ring entry, got %d", rg.Len())
	}
}

func TestRotationReadsNewFileFromStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	appendLine(t, path, "2024-05-01 09:00:00 | before | a.com")

	ix := index.New()
	rg := ring.New(10)
	bc := broadcast.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go New(path, ix, rg, bc, nil).Start(ctx)

	time.Sleep(300 * time.Millisecond)

	appendLine(t, path, "2024-05-01 10:00:00 | live | b.com")
	if !waitFor(t, 3*time.Second, func() bool { return ix.Len() == 1 }) {
		t.Fatal("tailer never picked up the appended line")
	}

	// Rotate: replace the file with a fresh one at the same path.
	if err := os.Rename(path, path+".1"); err != nil {
		t.Fatal(err)
	}
	appendLine(t, path, "2024-05-01 11:00:00 | fresh | c.com")

	if !waitFor(t, 5*time.Second, func() bool {
		return len(ix.Snapshot("fresh", "", 0)) == 1
	}) {
		t.Fatal("tailer did not read the rotated file from offset 0")
	}

	// Nothing re-emitted: one live line plus one post-rotation line.
	if got := ix.Snapshot("", "", 0); len(got) != 2 {
		t.Errorf("expected exactly 2 users after rotation, got %d", len(got))
	}
	if len(ix.Snapshot("before", "", 0)) != 0 {
		t.Error("pre-rotation history must not be re-read")
	}
}

func TestPrimeBoundsBackfillAtTailStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	line1 := "2024-05-01 09:00:00 | old | a.com"
	appendLine(t, path, line1)

	ix := index.New()
	rg := ring.New(10)
	bc := broadcast.New()

	tail := New(path, ix, rg, bc, nil)
	off, ok := tail.Prime()
	if !ok {
		t.Fatal("Prime failed on an existing file")
	}
	if want := int64(len(line1) + 1); off != want {
		t.Fatalf("Prime offset = %d, want %d", off, want)
	}

	// Appended after the tail position was fixed but before the
	// backfill starts; it belongs to the tailer, not the backfill.
	appendLine(t, path, "2024-05-01 10:00:00 | ali | b.com")

	scan := scanner.New(path, ix)
	scan.Sleep = 0
	scan.RunBounded(off)

	if p := scan.Progress(); !p.Done || p.Error != "" {
		t.Fatalf("backfill did not finish cleanly: %+v", p)
	}
	if got := ix.Snapshot("old", "", 0); len(got) != 1 || got[0].Count != 1 {
		t.Fatalf("backfill missed the pre-tail line: %+v", got)
	}
	if len(ix.Snapshot("ali", "", 0)) != 0 {
		t.Fatal("backfill read past the tail start position")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tail.Start(ctx)

	if !waitFor(t, 3*time.Second, func() bool {
		got := ix.Snapshot("ali", "", 0)
		return len(got) == 1 && got[0].Count == 1
	}) {
		t.Fatal("tailer did not deliver the line appended after Prime")
	}
	if got := ix.Snapshot("old", "", 0); len(got) != 1 || got[0].Count != 1 {
		t.Errorf("pre-tail line counted more than once: %+v", got)
	}
}

func TestMissingFileRecovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	ix := index.New()
	bc := broadcast.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go New(path, ix, ring.New(10), bc, nil).Start(ctx)

	// File does not exist yet; the tailer waits. The first successful
	// open seeks to EOF, so write the file first, then append.
	time.Sleep(300 * time.Millisecond)
	appendLine(t, path, "2024-05-01 09:00:00 | seed | a.com")
	time.Sleep(700 * time.Millisecond)
	appendLine(t, path, "2024-05-01 10:00:00 | ali | b.com")

	if !waitFor(t, 3*time.Second, func() bool {
		return len(ix.Snapshot("ali", "", 0)) == 1
	}) {
		t.Fatal("tailer did not recover once the file appeared")
	}
}
