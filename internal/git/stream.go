package git

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// LineStream is a finite, lazily produced sequence of text lines without
// their terminators. Next returns io.EOF once exhausted. Close releases the
// underlying resource and may be called at any time, more than once.
type LineStream interface {
	Next() (string, error)
	Close() error
}

// LineReader splits an io.Reader on "\n", dropping a trailing "\r".
// Invalid UTF-8 is passed through untouched.
type LineReader struct {
	r      *bufio.Reader
	closer io.Closer
	err    error
}

// NewLineReader wraps r. If r is an io.Closer, Close closes it.
func NewLineReader(r io.Reader) *LineReader {
	lr := &LineReader{r: bufio.NewReaderSize(r, 64*1024)}
	if c, ok := r.(io.Closer); ok {
		lr.closer = c
	}
	return lr
}

// OpenLogFile opens a previously captured git log for reading.
func OpenLogFile(path string) (*LineReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return NewLineReader(f), nil
}

// Next returns the next line.
func (l *LineReader) Next() (string, error) {
	if l.err != nil {
		return "", l.err
	}
	line, err := l.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			l.err = io.EOF
			return strings.TrimSuffix(line, "\r"), nil
		}
		l.err = err
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// Close closes the wrapped reader when it is closable.
func (l *LineReader) Close() error {
	if l.err == nil {
		l.err = io.EOF
	}
	if l.closer == nil {
		return nil
	}
	c := l.closer
	l.closer = nil
	return c.Close()
}

// sliceStream serves lines from memory.
type sliceStream struct {
	lines []string
	pos   int
}

// NewSliceStream returns a LineStream over lines.
func NewSliceStream(lines []string) LineStream {
	return &sliceStream{lines: lines}
}

func (s *sliceStream) Next() (string, error) {
	if s.pos >= len(s.lines) {
		return "", io.EOF
	}
	s.pos++
	return s.lines[s.pos-1], nil
}

func (s *sliceStream) Close() error {
	s.pos = len(s.lines)
	return nil
}

// ReadAll drains s and closes it.
func ReadAll(s LineStream) ([]string, error) {
	defer s.Close()
	var out []string
	for {
		line, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, line)
	}
}
