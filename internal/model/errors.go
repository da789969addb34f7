package model

import (
	"context"
	"errors"
	"net"
)

// Kind classifies terminal request errors. Server statuses, including 4xx
// and 5xx, are not errors; callers always get a Response for those.
type Kind int

const (
	// BadURL marks an unparsable or unresolvable target.
	BadURL Kind = iota + 1
	// ConnectFailed marks DNS, socket or TLS handshake failure.
	ConnectFailed
	// Timeout marks a connect, read or write deadline exceeded.
	Timeout
	// IO marks a mid-transfer socket failure.
	IO
	// ProtocolError marks a malformed status line, header block or chunk
	// framing.
	ProtocolError
)

func (k Kind) String() string {
	switch k {
	case BadURL:
		return "bad url"
	case ConnectFailed:
		return "connect failed"
	case Timeout:
		return "timeout"
	case IO:
		return "io error"
	case ProtocolError:
		return "protocol error"
	}
	return "unknown error"
}

// Error is the single error type surfaced by the engine.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Op != "" {
		s += ": " + e.Op
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout makes *Error satisfy net.Error style checks.
func (e *Error) Timeout() bool { return e.Kind == Timeout }

// ErrorKind returns the Kind carried by err, or 0 when err is not an engine
// error.
func ErrorKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsTimeout reports whether err is a deadline-exceeded engine error.
func IsTimeout(err error) bool { return ErrorKind(err) == Timeout }

// Classify wraps a transfer error, distinguishing deadline expiry from
// other socket failures. Engine errors pass through unchanged.
func Classify(op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: Timeout, Op: op, Err: err}
	}
	return &Error{Kind: IO, Op: op, Err: err}
}

// ClassifyConnect is Classify for connection establishment, where
// non-deadline failures are connect errors rather than mid-transfer ones.
func ClassifyConnect(op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: Timeout, Op: op, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: Timeout, Op: op, Err: err}
	}
	return &Error{Kind: ConnectFailed, Op: op, Err: err}
}
