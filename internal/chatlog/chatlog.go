// Package chatlog writes an append-only per-session exchange log.
// Writes are asynchronous and best-effort: a failed or dropped record
// must never interrupt the user-visible flow.
package chatlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const defaultQueueSize = 1000

// Config controls the session exchange log.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

type record struct {
	sessionID string
	question  string
	answer    string
}

// Logger appends one "User:/Bot:" record per completed exchange to a
// file keyed by session UUID.
type Logger struct {
	cfg   Config
	queue chan record
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New creates the logger and starts its writer goroutine. A disabled
// config yields a logger whose methods are no-ops.
func New(cfg Config) (*Logger, error) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	l := &Logger{cfg: cfg}
	if !cfg.Enabled {
		return l, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chat log directory: %w", err)
	}

	l.queue = make(chan record, cfg.QueueSize)
	l.wg.Add(1)
	go l.run()
	return l, nil
}

// LogExchange queues one question/answer record for the session. The
// record is dropped when the queue is full or the logger is closed.
func (l *Logger) LogExchange(sessionID, question, answer string) {
	if !l.cfg.Enabled {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- record{sessionID: sessionID, question: question, answer: answer}:
	default:
		slog.Warn("chat log queue full, dropping record", "session_id", sessionID)
	}
}

// Close stops accepting records and flushes the queue.
func (l *Logger) Close() error {
	if !l.cfg.Enabled {
		return nil
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	l.wg.Wait()
	return nil
}

func (l *Logger) run() {
	defer l.wg.Done()
	for rec := range l.queue {
		l.append(rec)
	}
}

// append writes one record. Failures are logged and swallowed.
func (l *Logger) append(rec record) {
	path := filepath.Join(l.cfg.Dir, rec.sessionID+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Warn("failed to open chat log file", "path", path, "error", err)
		return
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close chat log file", "path", path, "error", closeErr)
		}
	}()

	if _, err := fmt.Fprintf(f, "User: %s\nBot: %s\n", rec.question, rec.answer); err != nil {
		slog.Warn("failed to write chat log record", "path", path, "error", err)
	}
}
