// Package audit is the append-only activity log. Every request that reaches
// the validator produces exactly one record, whatever its outcome. Records
// are JSON lines; redaction happens before a record gets here.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// DefaultMaxBytes triggers rotation once the log file exceeds it.
	DefaultMaxBytes = 10 * 1024 * 1024

	// backupCount is how many rotated log files are kept.
	backupCount = 3

	// OutputExcerptLimit caps the stored command output.
	OutputExcerptLimit = 8000

	// RedactedPlaceholder replaces sensitive fields in privacy mode.
	RedactedPlaceholder = "[REDACTED]"
)

// Record is one activity log entry.
type Record struct {
	ID       string
	Prompt   string
	Command  string
	RiskTier string
	Verdict  string
	Outcome  string
	Model    string
	Output   string
}

// Redacted returns a copy with the user-content fields replaced. Redaction
// is the caller's responsibility before Append, not the logger's.
func (r Record) Redacted() Record {
	r.Prompt = RedactedPlaceholder
	r.Command = RedactedPlaceholder
	r.Output = RedactedPlaceholder
	return r
}

// Truncate caps text at the output excerpt limit, backing up to a rune
// boundary so a multi-byte sequence is never cut in half.
func Truncate(text string) string {
	if len(text) <= OutputExcerptLimit {
		return text
	}
	cut := OutputExcerptLimit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n...[truncated]"
}

// Logger appends JSON-line records to a size-rotated file.
type Logger struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	file     *os.File
	slog     *slog.Logger
}

// NewLogger opens (or creates) the activity log at path.
func NewLogger(path string, maxBytes int64) (*Logger, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	l := &Logger{path: path, maxBytes: maxBytes}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Logger) open() error {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("audit: failed to open log file: %w", err)
	}
	l.file = file
	l.slog = slog.New(slog.NewJSONHandler(file, nil))
	return nil
}

// Append writes one record. It is fire-and-forget for callers: failures are
// swallowed after a best-effort stderr note, since a logging problem must
// never abort the request that produced the record.
func (l *Logger) Append(rec Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	if err := l.rotateIfNeeded(); err != nil {
		fmt.Fprintf(os.Stderr, "audit: rotation failed: %v\n", err)
	}

	l.slog.LogAttrs(context.Background(), slog.LevelInfo, "activity",
		slog.String("id", rec.ID),
		slog.String("prompt", rec.Prompt),
		slog.String("command", rec.Command),
		slog.String("risk_tier", rec.RiskTier),
		slog.String("verdict", rec.Verdict),
		slog.String("outcome", rec.Outcome),
		slog.String("model", rec.Model),
		slog.String("output", Truncate(rec.Output)),
	)
}

// SizeBytes returns the current log file size, 0 when absent.
func (l *Logger) SizeBytes() int64 {
	info, err := os.Stat(l.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Close releases the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// rotateIfNeeded shifts activity.log -> .1 -> .2 -> .3 once the size limit
// is exceeded, dropping the oldest.
func (l *Logger) rotateIfNeeded() error {
	info, err := os.Stat(l.path)
	if err != nil {
		// Nothing on disk to rotate.
		return nil
	}
	if info.Size() < l.maxBytes {
		return nil
	}

	if l.file != nil {
		if err := l.file.Close(); err != nil {
			return err
		}
		l.file = nil
	}

	for i := backupCount - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", l.path, i)
		to := fmt.Sprintf("%s.%d", l.path, i+1)
		if _, err := os.Stat(from); err == nil {
			if err := os.Rename(from, to); err != nil {
				return err
			}
		}
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return err
	}
	return l.open()
}
