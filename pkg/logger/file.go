package logger

import (
	"log"
	"os"
	"sync"
)

// FileLogger appends timestamped messages, debug included, to a log file.
type FileLogger struct {
	*StandardLogger
	f    *os.File
	once sync.Once
	err  error
}

// NewFileLogger opens (or creates) path in append mode.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	l := log.New(f, "", log.LstdFlags|log.Lmicroseconds)
	return &FileLogger{
		StandardLogger: NewDebugLogger(l),
		f:              f,
	}, nil
}

// Close closes the underlying file. Safe to call multiple times.
func (fl *FileLogger) Close() error {
	fl.once.Do(func() {
		fl.err = fl.f.Close()
	})
	return fl.err
}

var _ Logger = (*FileLogger)(nil)
