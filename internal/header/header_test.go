package header_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tinyreq/tinyreq/internal/header"
)

func TestLookupIsCaseInsensitive(t *testing.T) {
	var hs header.Headers
	hs.Add("X-Api-Key", "foobar")

	v, ok := hs.Get("x-api-key")
	assert.True(t, ok)
	assert.Equal(t, "foobar", v)
	assert.True(t, hs.Has("X-API-KEY"))
	assert.False(t, hs.Has("x-api"))
}

func TestDuplicatesKeepOrder(t *testing.T) {
	var hs header.Headers
	hs.Add("X-Forwarded-For", "1.2.3.4")
	hs.Add("Accept", "text/plain")
	hs.Add("x-forwarded-for", "2.3.4.5")

	assert.Equal(t, []string{"1.2.3.4", "2.3.4.5"}, hs.GetAll("X-Forwarded-For"))

	// Get returns the first match, never a merged value
	v, _ := hs.Get("X-Forwarded-For")
	assert.Equal(t, "1.2.3.4", v)
}

func TestValuesAreNotNormalized(t *testing.T) {
	var hs header.Headers
	hs.Add("x-123-vv", "  spaced  ")

	assert.Equal(t, header.Header{Name: "x-123-vv", Value: "  spaced  "}, hs[0])
}

func TestCloneIsIndependent(t *testing.T) {
	var hs header.Headers
	hs.Add("A", "1")

	dup := hs.Clone()
	dup.Add("B", "2")

	assert.Len(t, hs, 1)
	assert.Len(t, dup, 2)
}

func TestWithout(t *testing.T) {
	var hs header.Headers
	hs.Add("Host", "x")
	hs.Add("Accept", "*/*")
	hs.Add("content-length", "5")

	got := hs.Without("Host", "Content-Length")
	assert.Equal(t, header.Headers{{Name: "Accept", Value: "*/*"}}, got)
}
