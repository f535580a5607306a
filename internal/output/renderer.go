package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/Free-Guy-IR/monitoring-user-web/internal/model"
)

// Renderer writes live messages to an output stream.
type Renderer interface {
	Render(msg model.LiveMessage) error
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleTS      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))              // gray
	styleUser    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)    // cyan bold
	styleHost    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))              // light gray
	styleFlagged = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)   // red bold
	styleVariant = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
)

// TextRenderer prints live activity to the terminal, highlighting
// flagged hosts.
type TextRenderer struct {
	w       io.Writer
	flagged func(string) bool
}

// NewTextRenderer returns a Renderer that writes colorized text to
// stdout. flagged marks hosts to highlight; nil highlights nothing.
func NewTextRenderer(flagged func(string) bool) *TextRenderer {
	if flagged == nil {
		flagged = func(string) bool { return false }
	}
	return &TextRenderer{w: os.Stdout, flagged: flagged}
}

func (r *TextRenderer) Render(msg model.LiveMessage) error {
	host := styleHost.Render(msg.Host)
	if r.flagged(msg.Host) {
		host = styleFlagged.Render(msg.Host)
	}

	user := styleUser.Render(msg.Base)
	if msg.User != msg.Base {
		user += styleVariant.Render(" (" + msg.User + ")")
	}

	line := fmt.Sprintf("%s %s %s", styleTS.Render(msg.TS), user, host)
	_, err := fmt.Fprintln(r.w, line)
	return err
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each live message as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to stdout.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(os.Stdout)}
}

func (r *JSONRenderer) Render(msg model.LiveMessage) error {
	return r.enc.Encode(msg)
}
