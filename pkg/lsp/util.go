package lsp

import (
	"bufio"
	"io"
	"net/url"
	"path/filepath"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/qlikls/pkg/position"
)

// ReadWriteCloser combines an io.ReadCloser and io.WriteCloser into a single io.ReadWriteCloser
type ReadWriteCloser struct {
	reader *bufio.Reader
	writer *bufio.Writer
	closer multiCloser
	mu     sync.Mutex
}

type multiCloser struct {
	closers []io.Closer
}

func (mc multiCloser) Close() error {
	var firstErr error
	for _, c := range mc.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewReadWriteCloser creates a new ReadWriteCloser from separate read and write closers
func NewReadWriteCloser(r io.ReadCloser, w io.WriteCloser) *ReadWriteCloser {
	return &ReadWriteCloser{
		reader: bufio.NewReader(r),
		writer: bufio.NewWriter(w),
		closer: multiCloser{closers: []io.Closer{r, w}},
	}
}

// Read reads data from the underlying reader
func (rwc *ReadWriteCloser) Read(p []byte) (int, error) {
	rwc.mu.Lock()
	defer rwc.mu.Unlock()
	return rwc.reader.Read(p)
}

// Write writes data to the underlying writer
func (rwc *ReadWriteCloser) Write(p []byte) (int, error) {
	rwc.mu.Lock()
	defer rwc.mu.Unlock()
	n, err := rwc.writer.Write(p)
	if err != nil {
		return n, err
	}
	err = rwc.writer.Flush()
	if err != nil {
		return n, err
	}
	return n, nil
}

// Close closes both the reader and writer
func (rwc *ReadWriteCloser) Close() error {
	rwc.mu.Lock()
	defer rwc.mu.Unlock()
	return rwc.closer.Close()
}

func uriToPath(uri string) (string, error) {
	if uri == "" {
		return "", nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", errors.Errorf("parsing uri %q: %w", uri, err)
	}
	if u.Scheme != "" && u.Scheme != "file" {
		return "", errors.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	if u.Scheme == "" {
		return uri, nil
	}
	return filepath.FromSlash(u.Path), nil
}

// toPlace converts an LSP position (UTF-16 columns) to a byte place in text.
func toPlace(text string, pos Position) position.Place {
	line, _ := position.LineAt(text, pos.Line)
	return position.Place{Line: pos.Line, Character: position.ByteColumn(line, pos.Character)}
}

// fromRange converts a byte range over lines to an LSP range.
func fromRange(lines []string, r position.Range) Range {
	return Range{
		Start: fromPlace(lines, r.Start),
		End:   fromPlace(lines, r.End),
	}
}

func fromPlace(lines []string, p position.Place) Position {
	line := ""
	if p.Line >= 0 && p.Line < len(lines) {
		line = lines[p.Line]
	}
	return Position{Line: p.Line, Character: position.UTF16Column(line, p.Character)}
}
