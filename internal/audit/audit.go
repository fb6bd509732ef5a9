// Package audit appends one self-contained JSON record per searched
// turn to a shared log file. Writes are fire-and-forget: a broken log
// must never break the conversation, so failures are noted on the
// diagnostic channel and dropped.
package audit

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HitRef is a (path, score) pair from the search stage.
type HitRef struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// Record captures one preflight attempt that reached the search stage.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	SessionID string    `json:"sessionId,omitempty"`
	Prompt    string    `json:"prompt"`   // truncated normalized prompt
	Terms     []string  `json:"terms"`    // null when extraction failed
	Query     string    `json:"query"`    // effective search query
	Fallback  bool      `json:"fallback"` // terms came from the stop-word path
	Stage     string    `json:"stage"`    // backend that produced the hits
	Hits      []HitRef  `json:"hits"`
	ExtractMS int64     `json:"extractMs"`
	SearchMS  int64     `json:"searchMs"`
	TotalMS   int64     `json:"totalMs"`
}

// Logger appends records to a line-delimited log file.
type Logger struct {
	path      string
	promptLen int
	mu        sync.Mutex
}

// NewLogger creates a logger writing to path. promptLen bounds the
// prompt copy kept per record.
func NewLogger(path string, promptLen int) *Logger {
	if promptLen <= 0 {
		promptLen = 200
	}
	return &Logger{path: path, promptLen: promptLen}
}

// Write appends one record. It never returns an error: I/O failures
// are logged and swallowed.
func (l *Logger) Write(rec Record) {
	if l == nil || l.path == "" {
		return
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	rec.Prompt = truncate(rec.Prompt, l.promptLen)

	data, err := json.Marshal(rec)
	if err != nil {
		slog.Warn("audit: marshal failed", "error", err)
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		slog.Warn("audit: log dir unavailable", "error", err)
		return
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Warn("audit: open failed", "path", l.path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		slog.Warn("audit: write failed", "path", l.path, "error", err)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back off to a rune boundary.
	cut := max
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
