package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
)

// JSONLSink appends one JSON object per line to a writer. This is the
// canonical audit entry shape consumed by compliance tooling.
type JSONLSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONLSink wraps an arbitrary writer, usually a file opened append-only.
func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{w: w}
}

// OpenJSONLFile opens (or creates) the audit log file in append-only mode.
func OpenJSONLFile(path string) (*JSONLSink, *os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return NewJSONLSink(f), f, nil
}

func (s *JSONLSink) Append(_ context.Context, event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(line)
	return err
}
