package model

import (
	"net/http"
	"strings"
)

// Head holds the headers of an HTTP response keyed by lower-case header name.
// Only the first value of a repeated header is kept.
type Head map[string]string

// Header names used when classifying resources and building records.
const (
	HeaderContentType   = "content-type"
	HeaderContentLength = "content-length"
	HeaderLastModified  = "last-modified"
)

// HeadFromHeader converts an http.Header into a Head.
func HeadFromHeader(h http.Header) Head {
	head := make(Head, len(h))
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		head[strings.ToLower(name)] = values[0]
	}
	return head
}

// Get returns the value for name, matching case-insensitively.
func (h Head) Get(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	v, ok := h[strings.ToLower(name)]
	return v, ok
}

// Has reports whether the header is present.
func (h Head) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}
