package parser

import "testing"

func TestParseValidLine(t *testing.T) {
	ev, ok := Parse("2024-05-01 13:37:00 | 5823.mohammad | example.com")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if ev.TS != "2024-05-01 13:37:00" {
		t.Errorf("expected timestamp '2024-05-01 13:37:00', got %q", ev.TS)
	}
	if ev.User != "5823.mohammad" {
		t.Errorf("expected user '5823.mohammad', got %q", ev.User)
	}
	if ev.Host != "example.com" {
		t.Errorf("expected host 'example.com', got %q", ev.Host)
	}
}

func TestParseLeadingWhitespace(t *testing.T) {
	ev, ok := Parse("   2024-05-01 13:37:00 | ali | site.org")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if ev.User != "ali" {
		t.Errorf("expected user 'ali', got %q", ev.User)
	}
}

func TestParseEmptyHostBecomesUnknown(t *testing.T) {
	ev, ok := Parse("2024-05-01 13:37:00 | ali |  ")
	if !ok {
		t.Fatal("expected line to parse")
	}
	if ev.Host != "UNKNOWN" {
		t.Errorf("expected host UNKNOWN, got %q", ev.Host)
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"garbage", "not a log line"},
		{"missing fields", "2024-05-01 13:37:00 | ali"},
		{"bad timestamp", "2024-5-1 13:37:00 | ali | site.org"},
		{"empty user", "2024-05-01 13:37:00 |  | site.org"},
		{"no host field", "2024-05-01 13:37:00 | ali |"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := Parse(tc.line); ok {
				t.Errorf("expected %q to be rejected", tc.line)
			}
		})
	}
}

func TestBaseKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"5823.mohammad", "mohammad"},
		{"mohammad", "mohammad"},
		{"58a3.mohammad", "58a3.mohammad"}, // prefix not all digits
		{".mohammad", ".mohammad"},         // dot at index 0
		{"5823.", ""},                      // numeric prefix, empty suffix
		{"12.34.user", "34.user"},          // only the first dot splits
		{"", ""},
	}
	for _, tc := range cases {
		if got := BaseKey(tc.in); got != tc.want {
			t.Errorf("BaseKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
