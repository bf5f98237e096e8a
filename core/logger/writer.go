package logger

import (
	"errors"
	"io"
	"sync"
)

var errSinkClosed = errors.New("logger: output closed")

// lineSink writes each log line to stdout and the optional log file. It owns
// the files it closes on shutdown.
type lineSink struct {
	mu      sync.Mutex
	outs    []io.Writer
	closers []io.Closer
	closed  bool
}

func newLineSink(outs []io.Writer, closers []io.Closer) *lineSink {
	return &lineSink{outs: outs, closers: closers}
}

// Write writes line to every output. A failing output does not stop the
// others.
func (s *lineSink) Write(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSinkClosed
	}
	var errs []error
	for _, w := range s.outs {
		if _, err := w.Write(line); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes the owned files. Later writes fail with errSinkClosed.
func (s *lineSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
