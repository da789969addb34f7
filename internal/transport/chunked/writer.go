package chunked

import (
	"fmt"
	"io"
)

// NewWriter frames everything written to it as chunks on w. Close writes
// the zero-chunk terminator; it does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{wire: w}
}

type Writer struct {
	wire io.Writer
}

func (cw *Writer) Write(data []byte) (n int, err error) {
	// A 0-length chunk would look like EOF to the receiver.
	if len(data) == 0 {
		return 0, nil
	}
	if _, err = fmt.Fprintf(cw.wire, "%x\r\n", len(data)); err != nil {
		return 0, err
	}
	if n, err = cw.wire.Write(data); err != nil {
		return
	}
	if n != len(data) {
		return n, io.ErrShortWrite
	}
	if _, err = io.WriteString(cw.wire, "\r\n"); err != nil {
		return
	}
	return
}

func (cw *Writer) Close() error {
	n, err := io.WriteString(cw.wire, "0\r\n\r\n")
	if err == nil && n != 5 {
		return io.ErrShortWrite
	}
	return err
}
