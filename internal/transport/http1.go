// Package transport implements the HTTP/1.1 wire codec: serializing a
// compiled Unit onto a stream and decoding a Response from one.
package transport

import (
	"bufio"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/tinyreq/tinyreq/internal/model"
	"github.com/tinyreq/tinyreq/internal/transport/chunked"
)

// WriteRequest writes one hop: request line, header block, body.
//
//	GET /p?q=1 HTTP/1.1\r\n
//	Host: example.com\r\n
//	Content-Length: 5\r\n
//	X-My-Header: v\r\n
//	\r\n
//	hello
func WriteRequest(w io.Writer, u *model.Unit) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(u.Method)
	bw.WriteByte(' ')
	bw.WriteString(u.U.RequestURI())
	bw.WriteString(" HTTP/1.1\r\n")

	// The engine owns Host and the body framing headers; everything else
	// is emitted exactly as the caller set it, in order.
	bw.WriteString("Host: ")
	bw.WriteString(u.Host)
	bw.WriteString("\r\n")
	switch {
	case u.Chunked:
		bw.WriteString("Transfer-Encoding: chunked\r\n")
	case u.ContentLength >= 0:
		bw.WriteString("Content-Length: ")
		bw.WriteString(strconv.FormatInt(u.ContentLength, 10))
		bw.WriteString("\r\n")
	}
	if u.CloseAfter && !u.Header.Has("Connection") {
		bw.WriteString("Connection: close\r\n")
	}
	for _, h := range u.Header {
		bw.WriteString(h.Name)
		bw.WriteString(": ")
		bw.WriteString(h.Value)
		bw.WriteString("\r\n")
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return err
	}

	body, err := u.GetBody()
	if err != nil {
		return err
	}
	if rc, ok := body.(io.Closer); ok {
		defer rc.Close() // request body is always closed
	}
	switch {
	case u.Chunked:
		cw := chunked.NewWriter(bw)
		if body != nil {
			if _, err := io.Copy(cw, body); err != nil {
				return err
			}
		}
		if err := cw.Close(); err != nil {
			return err
		}
	case body != nil && u.HasBody:
		if _, err := io.Copy(bw, body); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadResponse parses the status line, header block and body framing of one
// response from br. wasHead suppresses the body for responses to HEAD. The
// response body reads from br lazily; resp.Body tracks framing completion
// for the engine's pool-safety decision.
func ReadResponse(br *bufio.Reader, wasHead bool, resp *model.Response) error {
	tp := textproto.NewReader(br)

	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return model.Classify("read status line", err)
	}
	proto, rest, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return &model.Error{Kind: model.ProtocolError, Op: "malformed status line " + strconv.Quote(line)}
	}
	rest = strings.TrimLeft(rest, " ")
	code, reason, _ := strings.Cut(rest, " ")
	if len(code) != 3 {
		return &model.Error{Kind: model.ProtocolError, Op: "malformed status code " + strconv.Quote(code)}
	}
	n, err := strconv.Atoi(code)
	if err != nil || n < 100 {
		return &model.Error{Kind: model.ProtocolError, Op: "malformed status code " + strconv.Quote(code)}
	}
	resp.Proto = proto
	resp.StatusCode = n
	resp.Status = strings.TrimSpace(reason)

	// Header block: name: value lines until the empty line, order and
	// duplicates preserved.
	for {
		line, err := tp.ReadLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return model.Classify("read header block", err)
		}
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return &model.Error{Kind: model.ProtocolError, Op: "malformed header line " + strconv.Quote(line)}
		}
		resp.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	return readTransfer(br, wasHead, resp)
}

// readTransfer picks the body framing: chunked wins, then Content-Length,
// then read-to-connection-close. HEAD responses and 1xx/204/304 statuses
// never have a body regardless of headers.
func readTransfer(br *bufio.Reader, wasHead bool, resp *model.Response) error {
	resp.ContentLength = -1

	if wasHead || resp.StatusCode/100 == 1 || resp.StatusCode == 204 || resp.StatusCode == 304 {
		resp.ContentLength = 0
		resp.Body = model.NewBody(nil, nil)
		return nil
	}

	for _, te := range resp.Header.GetAll("Transfer-Encoding") {
		if strings.Contains(strings.ToLower(te), "chunked") {
			cr := chunked.NewReader(br)
			resp.Body = model.NewBody(chunkedBody{cr}, cr.SawTerminator)
			return nil
		}
	}

	// Hardening against response smuggling, after the standard library:
	// multiple Content-Length headers are accepted only when identical.
	cls := resp.Header.GetAll("Content-Length")
	if len(cls) > 1 {
		first := textproto.TrimString(cls[0])
		for _, cl := range cls[1:] {
			if textproto.TrimString(cl) != first {
				return &model.Error{Kind: model.ProtocolError, Op: "conflicting content-length headers"}
			}
		}
		cls = cls[:1]
	}
	if len(cls) == 1 {
		if n, err := strconv.ParseUint(textproto.TrimString(cls[0]), 10, 63); err == nil {
			resp.ContentLength = int64(n)
			if n == 0 {
				resp.Body = model.NewBody(nil, nil)
				return nil
			}
			lr := &io.LimitedReader{R: br, N: int64(n)}
			resp.Body = model.NewBody(lr, func() bool { return lr.N == 0 })
			return nil
		}
		// Unparsable length: fall through to EOF framing, like a
		// missing header.
	}

	resp.Body = model.NewUnframedBody(br)
	return nil
}

// chunkedBody lifts the codec's framing sentinels into the error taxonomy:
// a malformed chunk is a protocol violation by the peer, not a socket
// failure.
type chunkedBody struct {
	cr *chunked.Reader
}

func (b chunkedBody) Read(p []byte) (int, error) {
	n, err := b.cr.Read(p)
	switch err {
	case chunked.ErrBadChunkSize, chunked.ErrChunkTooBig, chunked.ErrBadFraming:
		err = &model.Error{Kind: model.ProtocolError, Op: "decode chunked body", Err: err}
	}
	return n, err
}
