// Package scanner backfills the index from the beginning of the log
// file, bounded to the file's size at scan start so lines the tailer
// will deliver are never counted twice.
package scanner

import (
	"bufio"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Free-Guy-IR/monitoring-user-web/internal/index"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/parser"
)

// Throttle defaults, overridable per Scanner.
const (
	DefaultSleepEvery = 3000                 // applied lines between pauses
	DefaultSleep      = 5 * time.Millisecond // pause duration
	DefaultLogChunk   = 100000               // applied lines between progress logs
)

// Progress is the externally visible state of the one-shot scan.
type Progress struct {
	TotalBytes int64   `json:"total_bytes"`
	ReadBytes  int64   `json:"read_bytes"`
	Percent    float64 `json:"percent"`
	Done       bool    `json:"done"`
	Error      string  `json:"error,omitempty"`
}

// Scanner reads the log file once, from offset 0 up to the size
// snapshotted when Run begins, applying every valid line to the index.
// It never touches the ring buffer or the broadcaster: backfill is
// silent. Failure is recorded in Progress, never fatal to the process.
type Scanner struct {
	path string
	idx  *index.Index

	SleepEvery int
	Sleep      time.Duration
	LogChunk   int

	mu     sync.Mutex
	total  int64
	read   int64
	done   bool
	errMsg string
}

// New creates a Scanner for the log file at path.
func New(path string, idx *index.Index) *Scanner {
	return &Scanner{
		path:       path,
		idx:        idx,
		SleepEvery: DefaultSleepEvery,
		Sleep:      DefaultSleep,
		LogChunk:   DefaultLogChunk,
	}
}

// Progress returns a consistent snapshot of the scan state.
func (s *Scanner) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Progress{
		TotalBytes: s.total,
		ReadBytes:  s.read,
		Done:       s.done,
		Error:      s.errMsg,
	}
	if p.TotalBytes > 0 {
		p.Percent = float64(p.ReadBytes) / float64(p.TotalBytes) * 100
		if p.Percent > 100 {
			p.Percent = 100
		}
	}
	return p
}

// Run executes the scan to completion, bounded to the file's size at
// this instant. Intended to be started once, in its own goroutine,
// alongside the tailer. When the tailer has already opened the file,
// prefer RunBounded with its reported offset: the bound then matches
// exactly where live tailing begins.
func (s *Scanner) Run() {
	fi, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("scanner: %s not found", s.path)
			s.finish("log not found")
			return
		}
		log.Printf("scanner: stat %s: %v", s.path, err)
		s.finish(err.Error())
		return
	}
	s.RunBounded(fi.Size())
}

// RunBounded executes the scan to completion with an explicit stop
// offset instead of statting the file.
func (s *Scanner) RunBounded(stopOffset int64) {
	s.mu.Lock()
	s.total = stopOffset
	s.mu.Unlock()

	if err := s.scan(stopOffset); err != nil {
		log.Printf("scanner: %v", err)
		s.finish(err.Error())
		return
	}

	s.mu.Lock()
	s.read = stopOffset
	s.mu.Unlock()
	s.finish("")
}

// scan reads from offset 0 until the byte position reaches stopOffset.
// Lines appended past the snapshot are intentionally left to the tailer.
func (s *Scanner) scan(stopOffset int64) error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	rd := bufio.NewReader(f)
	var pos int64
	var applied, lastLogged int

	for pos < stopOffset {
		line, err := rd.ReadString('\n')
		pos += int64(len(line))

		if err == io.EOF && line == "" {
			// The file shrank below the snapshot; give it a moment.
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if err != nil && err != io.EOF {
			return err
		}

		s.mu.Lock()
		if pos < stopOffset {
			s.read = pos
		} else {
			s.read = stopOffset
		}
		s.mu.Unlock()

		if ev, ok := parser.Parse(strings.TrimRight(line, "\r\n")); ok {
			s.idx.Apply(ev)
			applied++
			if s.SleepEvery > 0 && applied%s.SleepEvery == 0 {
				time.Sleep(s.Sleep)
			}
		}

		if s.LogChunk > 0 && applied-lastLogged >= s.LogChunk {
			lastLogged = applied
			log.Printf("scanner: applied %d lines, %d/%d bytes", applied, pos, stopOffset)
		}
	}

	log.Printf("scanner: completed, %d lines applied", applied)
	return nil
}

// finish marks the scan done exactly once, recording errMsg on failure.
func (s *Scanner) finish(errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.errMsg = errMsg
}
