package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Body is a request payload that can be replayed for every request. File
// bodies are reopened per request so large payloads are never held in
// memory.
type Body struct {
	inline []byte
	path   string
	size   int64
}

// NewBody accepts at most one of an inline payload or a file path.
func NewBody(inline, path string) (Body, error) {
	path = strings.TrimSpace(path)
	switch {
	case inline != "" && path != "":
		return Body{}, errors.New("body and body file cannot both be provided")
	case inline != "":
		return Body{inline: []byte(inline), size: int64(len(inline))}, nil
	case path == "":
		return Body{}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return Body{}, fmt.Errorf("body file: %w", err)
	}
	if info.IsDir() {
		return Body{}, fmt.Errorf("body file %q is a directory", path)
	}
	return Body{path: path, size: info.Size()}, nil
}

// Len is the number of bytes Open yields.
func (b Body) Len() int64 { return b.size }

// Empty reports whether there is no payload at all.
func (b Body) Empty() bool { return b.path == "" && len(b.inline) == 0 }

// Open returns a fresh reader positioned at the start of the payload.
func (b Body) Open() (io.ReadCloser, error) {
	switch {
	case b.path != "":
		return os.Open(b.path)
	case len(b.inline) > 0:
		return io.NopCloser(bytes.NewReader(b.inline)), nil
	default:
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
}
