package model

import (
	"mime"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// CharsetFromContentType extracts the charset parameter of a Content-Type
// value. Empty means the caller should assume utf-8.
func CharsetFromContentType(ct string) string {
	if ct == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(ct); err == nil {
		return params["charset"]
	}
	return ""
}

func isUTF8(charset string) bool {
	return charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8")
}

// encodeText converts s to the declared charset. Any failure, including an
// unknown charset name, silently falls back to the utf-8 bytes.
func encodeText(s, charset string) []byte {
	if isUTF8(charset) {
		return []byte(s)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return []byte(s)
	}
	out, _, err := transform.String(enc.NewEncoder(), s)
	if err != nil {
		return []byte(s)
	}
	return []byte(out)
}

// decodeText converts wire bytes in the given charset to a utf-8 string,
// falling back to the raw bytes on any failure.
func decodeText(b []byte, charset string) string {
	if isUTF8(charset) {
		return string(b)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(b)
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
