package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// stdoutLogger writes each entry as a JSON line to standard output.
type stdoutLogger struct {
	mu sync.Mutex
}

func newStdoutLogger() *stdoutLogger { return &stdoutLogger{} }

func (l *stdoutLogger) Log(_ context.Context, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	fmt.Println("[audit]", string(data))
	return nil
}

func (l *stdoutLogger) Close() error { return nil }

// fileLogger appends JSON lines to a file through a buffered writer,
// flushing after every write so the ledger survives a crash between
// commits.
type fileLogger struct {
	mu  sync.Mutex
	f   *os.File
	buf *bufio.Writer
}

func newFileLogger(path string) (*fileLogger, error) {
	if path == "" {
		path = "logs/audit.log"
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	return &fileLogger{f: f, buf: bufio.NewWriter(f)}, nil
}

func (l *fileLogger) Log(_ context.Context, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := l.buf.Write(data); err != nil {
		return err
	}
	if err := l.buf.WriteByte('\n'); err != nil {
		return err
	}
	return l.buf.Flush()
}

func (l *fileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.buf.Flush(); err != nil {
		return err
	}
	return l.f.Close()
}
