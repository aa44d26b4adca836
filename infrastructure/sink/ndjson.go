package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/isectech/banking-log-generator/domain/entity"
	"github.com/isectech/banking-log-generator/shared/common"
)

// NDJSONSink writes one JSON object per line
type NDJSONSink struct {
	name    string
	buf     *bufio.Writer
	encoder *json.Encoder
	closer  io.Closer
	closed  bool
}

// NewNDJSONSink writes to w. Closing the sink flushes but does not close w.
func NewNDJSONSink(w io.Writer) *NDJSONSink {
	return newNDJSONSink(NameWriter, w, nil)
}

// NewStdoutSink writes records to standard output
func NewStdoutSink() *NDJSONSink {
	return newNDJSONSink(NameStdout, os.Stdout, nil)
}

// NewFileSink truncates or creates path, creating parent directories as needed
func NewFileSink(path string) (*NDJSONSink, error) {
	if path == "" {
		return nil, common.NewAppError(common.ErrCodeInvalidInput, "output path is required")
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, common.NewAppErrorWithCause(common.ErrCodeSinkWrite,
				fmt.Sprintf("failed to create output directory %s", dir), err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, common.NewAppErrorWithCause(common.ErrCodeSinkWrite,
			fmt.Sprintf("failed to open output file %s", path), err)
	}

	return newNDJSONSink(NameFile, f, f), nil
}

func newNDJSONSink(name string, w io.Writer, closer io.Closer) *NDJSONSink {
	buf := bufio.NewWriterSize(w, 64*1024)
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)

	return &NDJSONSink{
		name:    name,
		buf:     buf,
		encoder: encoder,
		closer:  closer,
	}
}

// Name returns the sink kind
func (s *NDJSONSink) Name() string {
	return s.name
}

// Write appends rec followed by a newline
func (s *NDJSONSink) Write(ctx context.Context, rec entity.Record) error {
	if s.closed {
		return common.NewAppError(common.ErrCodeSinkWrite, "sink is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.encoder.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode %s record: %w", rec.RecordType(), err)
	}
	return nil
}

// Flush pushes buffered lines to the underlying writer
func (s *NDJSONSink) Flush() error {
	return s.buf.Flush()
}

// Close flushes and releases the underlying file, if any
func (s *NDJSONSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	flushErr := s.buf.Flush()
	if s.closer != nil {
		if err := s.closer.Close(); err != nil && flushErr == nil {
			return err
		}
	}
	return flushErr
}
