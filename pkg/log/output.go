package log

import (
	"io"
	"os"
)

// WriterOutput writes formatted entries to an io.Writer.
type WriterOutput struct {
	w io.Writer
}

// NewWriterOutput wraps w.
func NewWriterOutput(w io.Writer) *WriterOutput { return &WriterOutput{w: w} }

// NewConsoleOutput writes to stderr so stdout stays free for command output.
func NewConsoleOutput() *WriterOutput { return &WriterOutput{w: os.Stderr} }

func (o *WriterOutput) Write(_ *Entry, formatted []byte) error {
	_, err := o.w.Write(formatted)
	return err
}

// Close closes the writer when it is an io.Closer other than stdout/stderr.
func (o *WriterOutput) Close() error {
	if o.w == os.Stderr || o.w == os.Stdout {
		return nil
	}
	if c, ok := o.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NullOutput drops everything.
type NullOutput struct{}

func (NullOutput) Write(*Entry, []byte) error { return nil }
func (NullOutput) Close() error               { return nil }
