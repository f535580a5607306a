// Package tailer follows the connection log for newly appended lines,
// surviving rotation and temporary disappearance of the file.
package tailer

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/Free-Guy-IR/monitoring-user-web/internal/broadcast"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/index"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/model"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/parser"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/ring"
)

const (
	idleDelay    = 200 * time.Millisecond
	missingDelay = 500 * time.Millisecond
	errorDelay   = time.Second
)

// fileID identifies the underlying file independent of its path, so a
// rotated replacement at the same path is distinguishable.
type fileID struct {
	dev uint64
	ino uint64
}

func idOf(fi os.FileInfo) (fileID, bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return fileID{}, false
	}
	return fileID{dev: uint64(st.Dev), ino: uint64(st.Ino)}, true
}

// Tailer streams newly appended log lines into the index, the recent
// ring, and the broadcaster. It runs for the life of the process and is
// never fatal: every I/O error is absorbed with a backoff retry.
type Tailer struct {
	path  string
	idx   *index.Index
	ring  *ring.Ring
	bcast *broadcast.Broadcaster
	wake  <-chan struct{} // optional watcher signal; may be nil

	file      *os.File
	rd        *bufio.Reader
	id        fileID
	hasID     bool
	pending   string // partial line not yet terminated by '\n'
	firstOpen bool
}

// New creates a Tailer for the file at path. wake, when non-nil, lets
// the idle loop react to filesystem events ahead of the poll timer.
func New(path string, idx *index.Index, rg *ring.Ring, bc *broadcast.Broadcaster, wake <-chan struct{}) *Tailer {
	return &Tailer{
		path:      path,
		idx:       idx,
		ring:      rg,
		bcast:     bc,
		wake:      wake,
		firstOpen: true,
	}
}

// Prime performs the first open and EOF seek eagerly, before Start is
// launched, and reports the offset where live tailing begins. The
// backfill scanner uses that offset as its stop bound so a line
// appended between the scanner's size snapshot and the tailer's seek
// can be neither lost nor counted twice. Returns ok=false when the
// file cannot be opened yet; Start retries and seeks to EOF on its
// first successful open as usual.
func (t *Tailer) Prime() (int64, bool) {
	if !t.firstOpen || t.file != nil {
		return 0, false
	}
	if !t.open() {
		return 0, false
	}
	off, err := t.file.Seek(0, io.SeekCurrent)
	if err != nil {
		log.Printf("tailer: seek failed on %s: %v", t.path, err)
		t.closeFile()
		t.firstOpen = true
		return 0, false
	}
	return off, true
}

// Start runs the tail loop until the context is cancelled. The file
// handle is released on every exit path.
func (t *Tailer) Start(ctx context.Context) {
	defer t.closeFile()

	for {
		if ctx.Err() != nil {
			return
		}

		if t.file == nil {
			if !t.open() {
				if !t.sleep(ctx, missingDelay) {
					return
				}
				continue
			}
		}

		line, err := t.rd.ReadString('\n')
		switch {
		case err == nil:
			t.emit(t.pending + line)
			t.pending = ""

		case err == io.EOF:
			// No complete line available; keep the fragment and check
			// whether the file was rotated or removed under us.
			t.pending += line
			if !t.checkFile(ctx) {
				return
			}

		default:
			log.Printf("tailer: read error on %s: %v", t.path, err)
			t.closeFile()
			if !t.sleep(ctx, errorDelay) {
				return
			}
		}
	}
}

// open opens the log file and records its identity. The very first open
// of the process seeks to EOF (history is the scanner's job); a reopen
// after rotation reads the fresh file from the beginning.
func (t *Tailer) open() bool {
	f, err := os.Open(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("tailer: cannot open %s: %v", t.path, err)
		}
		return false
	}

	fi, err := f.Stat()
	if err != nil {
		log.Printf("tailer: cannot stat %s: %v", t.path, err)
		f.Close()
		return false
	}
	t.id, t.hasID = idOf(fi)

	if t.firstOpen {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			log.Printf("tailer: seek failed on %s: %v", t.path, err)
			f.Close()
			return false
		}
		t.firstOpen = false
	}

	t.file = f
	t.rd = bufio.NewReader(f)
	t.pending = ""
	log.Printf("tailer: following %s (dev=%d ino=%d)", t.path, t.id.dev, t.id.ino)
	return true
}

// checkFile re-stats the path after hitting EOF. A changed identity
// means rotation (close and reopen from offset 0); a missing path means
// wait longer; otherwise idle briefly. Returns false only when the
// context is done.
func (t *Tailer) checkFile(ctx context.Context) bool {
	fi, err := os.Stat(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("tailer: %s missing; waiting", t.path)
			t.closeFile()
			return t.sleep(ctx, missingDelay)
		}
		log.Printf("tailer: stat error on %s: %v", t.path, err)
		t.closeFile()
		return t.sleep(ctx, errorDelay)
	}

	if cur, ok := idOf(fi); ok && t.hasID && cur != t.id {
		log.Printf("tailer: %s rotated; reopening", t.path)
		t.closeFile()
		return true // reopen immediately, no delay
	}

	return t.sleep(ctx, idleDelay)
}

// emit parses one complete line and feeds the pipeline.
func (t *Tailer) emit(raw string) {
	ev, ok := parser.Parse(strings.TrimRight(raw, "\r\n"))
	if !ok {
		return
	}
	t.idx.Apply(ev)
	t.ring.Add(ev)
	t.bcast.Publish(model.LiveMessage{
		TS:   ev.TS,
		User: ev.User,
		Base: parser.BaseKey(ev.User),
		Host: ev.Host,
	})
}

// sleep waits for the delay, a wake signal, or cancellation. Returns
// false when the context is done.
func (t *Tailer) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	if t.wake != nil {
		select {
		case <-ctx.Done():
			return false
		case <-t.wake:
			return true
		case <-timer.C:
			return true
		}
	}
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (t *Tailer) closeFile() {
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
	t.rd = nil
	t.hasID = false
	t.pending = ""
}
