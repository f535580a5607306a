// Package reader provides a constant-memory reverse line iterator over a
// file: the last line comes out first, regardless of file size.
package reader

import (
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is how many bytes are read per backward step.
const DefaultChunkSize = 1 << 16

// Backward iterates a file's lines from the end toward the beginning.
// It reads fixed-size chunks walking backward from EOF, carrying over
// any line that spans a chunk boundary. Usage mirrors bufio.Scanner:
//
//	b, err := reader.Open(path)
//	defer b.Close()
//	for b.Scan() {
//		line := b.Text()
//	}
//
// The sequence is finite and non-restartable. Invalid UTF-8 is replaced
// with U+FFFD rather than surfaced as an error.
type Backward struct {
	f         *os.File
	pos       int64  // next read position (bytes before pos are unread)
	carry     []byte // partial line preceding the last emitted chunk
	pending   []string
	line      string
	chunkSize int
	err       error
	done      bool
}

// Open prepares a backward iterator over the file at path.
func Open(path string) (*Backward, error) {
	return OpenSize(path, DefaultChunkSize)
}

// OpenSize is Open with an explicit chunk size (used by tests to force
// lines across chunk boundaries).
func OpenSize(path string, chunkSize int) (*Backward, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, err
	}
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	return &Backward{f: f, pos: end, chunkSize: chunkSize}, nil
}

// Scan advances to the next line (moving toward the start of the file).
// It returns false at the beginning of the file or on a read error.
func (b *Backward) Scan() bool {
	for {
		if len(b.pending) > 0 {
			b.line = b.pending[len(b.pending)-1]
			b.pending = b.pending[:len(b.pending)-1]
			return true
		}
		if b.done || b.err != nil {
			return false
		}
		if b.pos == 0 {
			// Whatever is carried is the first line of the file.
			b.done = true
			if len(b.carry) > 0 {
				b.line = decode(b.carry)
				b.carry = nil
				return true
			}
			return false
		}
		b.fill()
	}
}

// fill reads one chunk ending at b.pos and splits it into lines. The
// leading fragment (which may continue into the previous chunk) stays in
// carry; complete lines are queued for emission, newest first.
func (b *Backward) fill() {
	size := int64(b.chunkSize)
	if size > b.pos {
		size = b.pos
	}
	b.pos -= size

	chunk := make([]byte, size, size+int64(len(b.carry)))
	if _, err := b.f.ReadAt(chunk, b.pos); err != nil {
		b.err = err
		return
	}
	chunk = append(chunk, b.carry...)

	parts := strings.Split(string(chunk), "\n")
	b.carry = []byte(parts[0])
	for _, p := range parts[1:] {
		b.pending = append(b.pending, decode([]byte(p)))
	}
}

// Text returns the line produced by the last successful Scan.
func (b *Backward) Text() string { return b.line }

// Err returns the first read error encountered, if any.
func (b *Backward) Err() error { return b.err }

// Close releases the underlying file handle.
func (b *Backward) Close() error { return b.f.Close() }

func decode(p []byte) string {
	return strings.ToValidUTF8(string(p), string(utf8.RuneError))
}
