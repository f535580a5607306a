package model

// LogEvent is a single parsed connection-log line.
// Timestamps are "YYYY-MM-DD HH:MM:SS" strings: fixed-width and
// zero-padded, so lexicographic order is chronological order.
type LogEvent struct {
	TS   string `json:"ts"`
	User string `json:"user"` // raw username as logged, session prefix included
	Host string `json:"host"` // "UNKNOWN" when the log line had no host
}

// LiveMessage is the payload pushed to live subscribers. It carries the
// normalized base identity alongside the raw username.
type LiveMessage struct {
	TS   string `json:"ts"`
	User string `json:"user"`
	Base string `json:"base"`
	Host string `json:"host"`
}
