// Package chunked implements Transfer-Encoding: chunked framing: each chunk
// is a hex size line, the data, and a CRLF; a zero-size chunk followed by an
// optional trailer section terminates the body.
package chunked

import (
	"bufio"
	"errors"
	"io"
)

var (
	ErrBadChunkSize = errors.New("invalid byte in chunk length")
	ErrChunkTooBig  = errors.New("http chunk length too large")
	ErrBadFraming   = errors.New("malformed chunked encoding")
)

// NewReader decodes a chunked body from r. Trailer headers after the
// terminating zero chunk are consumed and discarded.
func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{br: br}
}

type Reader struct {
	br            *bufio.Reader
	chunk         io.Reader
	count, size   int64
	sawTerminator bool
}

// SawTerminator reports whether the zero-size chunk and its trailer section
// were fully consumed, i.e. the stream is positioned exactly past the body.
func (c *Reader) SawTerminator() bool { return c.sawTerminator }

func (c *Reader) readChunkSize() (size uint64, err error) {
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	cnt := 0
	for _, b := range line {
		if b == ';' || b == ' ' || b == '\t' {
			break // chunk extensions are ignored
		}
		switch {
		case '0' <= b && b <= '9':
			b = b - '0'
		case 'a' <= b && b <= 'f':
			b = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			b = b - 'A' + 10
		default:
			return 0, ErrBadChunkSize
		}
		if cnt++; cnt > 16 {
			return 0, ErrChunkTooBig
		}
		size <<= 4
		size |= uint64(b)
	}
	if cnt == 0 {
		return 0, ErrBadChunkSize
	}
	return size, nil
}

func (c *Reader) readLine() ([]byte, error) {
	var line []byte
	for {
		part, isPrefix, err := c.br.ReadLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = append(line, part...)
		if !isPrefix {
			return line, nil
		}
	}
}

// readTerminator consumes the trailer section after the zero-size chunk:
// zero or more trailer lines, then an empty line.
func (c *Reader) readTerminator() error {
	for {
		line, err := c.readLine()
		if err != nil {
			return err
		}
		if len(line) == 0 {
			c.sawTerminator = true
			return nil
		}
	}
}

func (c *Reader) Read(p []byte) (n int, err error) {
	if c.sawTerminator {
		return 0, io.EOF
	}
	if c.chunk == nil {
		size, err := c.readChunkSize()
		if err != nil {
			return 0, err
		}
		if size == 0 {
			if err := c.readTerminator(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		c.chunk = io.LimitReader(c.br, int64(size))
		c.size = int64(size)
		c.count = 0
	}
	n, err = c.chunk.Read(p)
	c.count += int64(n)
	if err == io.EOF {
		if c.count != c.size {
			return n, io.ErrUnexpectedEOF
		}
		err = nil
		cr, _ := c.br.ReadByte()
		lf, rerr := c.br.ReadByte()
		if rerr != nil {
			if rerr == io.EOF {
				rerr = io.ErrUnexpectedEOF
			}
			return n, rerr
		}
		if cr != '\r' || lf != '\n' {
			return n, ErrBadFraming
		}
		c.chunk = nil
	}
	return
}
