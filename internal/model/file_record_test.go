package model

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

// TestURLToFilename tests filename extraction from URLs.
func TestURLToFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "last segment", url: "http://h/a/b/c.txt", want: "c.txt"},
		{name: "trailing slash falls back to index.html", url: "http://h/", want: DefaultFilename},
		{name: "percent-encoded segment is decoded", url: "http://h/a/a%20b.txt", want: "a b.txt"},
		{name: "plus sign is kept", url: "http://h/a+b.txt", want: "a+b.txt"},
		{name: "malformed escape is kept verbatim", url: "http://h/100%.txt", want: "100%.txt"},
		{name: "no slash at all", url: "file.txt", want: "file.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := URLToFilename(tt.url); got != tt.want {
				t.Errorf("URLToFilename(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

// TestURLToDomain tests domain extraction from URLs.
func TestURLToDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "with scheme", url: "http://example.com/a/b", want: "example.com"},
		{name: "without scheme", url: "example.com/a", want: "example.com"},
		{name: "without path", url: "https://example.com", want: "example.com"},
		{name: "with port", url: "http://127.0.0.1:8080/files/", want: "127.0.0.1:8080"},
		{name: "bare host", url: "example.com", want: "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := URLToDomain(tt.url); got != tt.want {
				t.Errorf("URLToDomain(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

// TestCleanDateModified tests Last-Modified parsing.
func TestCleanDateModified(t *testing.T) {
	t.Parallel()

	t.Run("parses RFC 1123 date as UTC", func(t *testing.T) {
		t.Parallel()

		got := CleanDateModified(Head{HeaderLastModified: "Tue, 15 Nov 1994 08:12:31 GMT"})
		if got == nil {
			t.Fatal("expected a timestamp, got nil")
		}
		want := time.Date(1994, time.November, 15, 8, 12, 31, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
		if got.Location() != time.UTC {
			t.Errorf("expected UTC location, got %v", got.Location())
		}
	})

	t.Run("missing header returns nil", func(t *testing.T) {
		t.Parallel()
		if got := CleanDateModified(Head{}); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("nil head returns nil", func(t *testing.T) {
		t.Parallel()
		if got := CleanDateModified(nil); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("garbage returns nil", func(t *testing.T) {
		t.Parallel()
		if got := CleanDateModified(Head{HeaderLastModified: "garbage"}); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("ParseDateModified exposes ParseError", func(t *testing.T) {
		t.Parallel()

		_, err := ParseDateModified(Head{HeaderLastModified: "garbage"})
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("expected *ParseError, got %v", err)
		}
		if parseErr.Value != "garbage" {
			t.Errorf("expected value 'garbage', got %q", parseErr.Value)
		}
	})
}

// TestNewFileRecord tests building records from classified heads.
func TestNewFileRecord(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.FixedZone("JST", 9*60*60))

	t.Run("copies head metadata", func(t *testing.T) {
		t.Parallel()

		head := HeadFromHeader(http.Header{
			"Content-Type":   []string{"text/plain"},
			"Content-Length": []string{"42"},
			"Last-Modified":  []string{"Tue, 15 Nov 1994 08:12:31 GMT"},
		})
		record := NewFileRecord("http://example.com/pub/file%201.txt", head, now)

		if record.URL != "http://example.com/pub/file%201.txt" {
			t.Errorf("unexpected URL %q", record.URL)
		}
		if record.Name != "file 1.txt" {
			t.Errorf("expected name 'file 1.txt', got %q", record.Name)
		}
		if record.Domain != "example.com" {
			t.Errorf("expected domain 'example.com', got %q", record.Domain)
		}
		if record.ContentType == nil || *record.ContentType != "text/plain" {
			t.Errorf("unexpected content type %v", record.ContentType)
		}
		if record.ContentLength == nil || *record.ContentLength != 42 {
			t.Errorf("unexpected content length %v", record.ContentLength)
		}
		if record.LastModified == nil {
			t.Error("expected last modified to be set")
		}
		if !record.LastIndexed.Equal(now) || record.LastIndexed.Location() != time.UTC {
			t.Errorf("expected last indexed %v in UTC, got %v", now, record.LastIndexed)
		}
	})

	t.Run("empty head leaves optional fields nil", func(t *testing.T) {
		t.Parallel()

		record := NewFileRecord("http://h/b.txt", nil, now)
		if record.ContentType != nil || record.ContentLength != nil || record.LastModified != nil {
			t.Errorf("expected nil optional fields, got %+v", record)
		}
		if record.Name != "b.txt" || record.Domain != "h" {
			t.Errorf("unexpected URL-derived fields: %+v", record)
		}
	})

	t.Run("invalid content length is dropped", func(t *testing.T) {
		t.Parallel()

		record := NewFileRecord("http://h/b.txt", Head{HeaderContentLength: "lots"}, now)
		if record.ContentLength != nil {
			t.Errorf("expected nil content length, got %d", *record.ContentLength)
		}
	})
}
