package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	stdinPath  = "-"
	fileScheme = "file://"
)

// ObjectOpener opens an archived object, addressed by URI, for reading.
type ObjectOpener func(ctx context.Context, uri string) (io.ReadCloser, error)

// ReaderSource splits a byte stream on newlines.
type ReaderSource struct {
	reader *bufio.Reader
	closer io.Closer
	line   int
	done   bool
}

// NewReaderSource wraps r. If r is an io.Closer it is closed by Close.
func NewReaderSource(r io.Reader) *ReaderSource {
	s := &ReaderSource{reader: bufio.NewReaderSize(r, 64*1024)}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenPath opens a local path or file:// URI, stdin for "-", or any other
// object URI (gs://, memory://) via opener. The URIs returned by the fetch
// job's blob stores are all accepted here.
func OpenPath(ctx context.Context, path string, opener ObjectOpener) (*ReaderSource, error) {
	switch {
	case path == "":
		return nil, errors.New("input path is required")
	case path == stdinPath:
		return &ReaderSource{reader: bufio.NewReaderSize(os.Stdin, 64*1024)}, nil
	case strings.HasPrefix(path, fileScheme):
		return openFile(strings.TrimPrefix(path, fileScheme))
	case strings.Contains(path, "://"):
		if opener == nil {
			return nil, fmt.Errorf("no object store configured for %s", path)
		}
		rc, err := opener(ctx, path)
		if err != nil {
			return nil, err
		}
		return NewReaderSource(rc), nil
	default:
		return openFile(path)
	}
}

func openFile(path string) (*ReaderSource, error) {
	// #nosec G304 -- input path is operator supplied.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return NewReaderSource(f), nil
}

// Next returns the next line without its trailing newline. A final line
// without a newline is still returned.
func (s *ReaderSource) Next(ctx context.Context) (Line, error) {
	if err := ctx.Err(); err != nil {
		return Line{}, err
	}
	if s.done {
		return Line{}, io.EOF
	}
	data, err := s.reader.ReadBytes('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return Line{}, fmt.Errorf("read line %d: %w", s.line+1, err)
		}
		s.done = true
		if len(data) == 0 {
			return Line{}, io.EOF
		}
	}
	s.line++
	data = bytes.TrimRight(data, "\r\n")
	return Line{Number: s.line, Data: data}, nil
}

// Close releases the underlying reader.
func (s *ReaderSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
