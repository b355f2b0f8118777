package database

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/opendir/internal/model"
)

// mapRegistry is a Registry backed by a map.
type mapRegistry map[string]Source

func (m mapRegistry) Lookup(name string) (Source, bool) {
	src, ok := m[name]
	return src, ok
}

// storeBytes builds a store with one record and returns its file contents.
func storeBytes(t *testing.T) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "published.db")
	store, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	rec := sampleRecord("http://example.com/pub/shared.iso")
	if err := store.AddFile(context.Background(), &rec); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func assertOneFile(t *testing.T, store *Store) {
	t.Helper()

	count, err := store.CountFiles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 file, got %d", count)
	}
}

// TestResolverParse tests descriptor parsing.
func TestResolverParse(t *testing.T) {
	t.Parallel()

	resolver := &Resolver{
		DefaultPath: "/tmp/default.db",
		Registry:    mapRegistry{"mirror": PathSource("/srv/mirror.db")},
	}

	tests := []struct {
		descriptor string
		want       Source
	}{
		{"", DefaultSource()},
		{"   ", DefaultSource()},
		{"http://example.com/index.db", URLSource("http://example.com/index.db")},
		{"https://example.com/index.db", URLSource("https://example.com/index.db")},
		{"mirror", AliasSource("mirror")},
		{"unknown", PathSource("unknown")},
		{"./local.db", PathSource("./local.db")},
	}

	for _, tt := range tests {
		t.Run(tt.descriptor, func(t *testing.T) {
			t.Parallel()

			got := resolver.Parse(tt.descriptor)
			if got.Kind != tt.want.Kind || got.Value != tt.want.Value {
				t.Errorf("Parse(%q) = %v, want %v", tt.descriptor, got, tt.want)
			}
		})
	}

	t.Run("nil registry", func(t *testing.T) {
		t.Parallel()

		got := (&Resolver{}).Parse("mirror")
		if got.Kind != SourcePath {
			t.Errorf("expected path source, got %v", got)
		}
	})
}

// TestResolverOpen tests opening stores from every source kind.
func TestResolverOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("default", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "data", "default.db")
		resolver := &Resolver{DefaultPath: path, Options: DefaultOptions()}

		store, err := resolver.Open(ctx, DefaultSource())
		if err != nil {
			t.Fatalf("failed to open default store: %v", err)
		}
		defer store.Close()

		if store.Path() != path {
			t.Errorf("expected %s, got %s", path, store.Path())
		}
	})

	t.Run("default without path", func(t *testing.T) {
		t.Parallel()

		_, err := (&Resolver{}).Open(ctx, DefaultSource())
		var cfgErr *model.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("expected ConfigurationError, got %v", err)
		}
	})

	t.Run("path", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "index.db")
		store, err := (&Resolver{Options: DefaultOptions()}).OpenDescriptor(ctx, path)
		if err != nil {
			t.Fatal(err)
		}
		if store.Temporary() {
			t.Error("path store must not be temporary")
		}
		if err := store.Close(); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("path store must survive Close: %v", err)
		}
	})

	t.Run("data", func(t *testing.T) {
		t.Parallel()

		store, err := (&Resolver{}).Open(ctx, DataSource(storeBytes(t)))
		if err != nil {
			t.Fatalf("failed to open data store: %v", err)
		}
		assertOneFile(t, store)
		if !store.Temporary() {
			t.Error("data store must be temporary")
		}

		path := store.Path()
		if err := store.Close(); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("expected temporary store %s to be removed", path)
		}
	})

	t.Run("empty data is a new store", func(t *testing.T) {
		t.Parallel()

		store, err := (&Resolver{}).Open(ctx, DataSource(nil))
		if err != nil {
			t.Fatalf("failed to open empty data store: %v", err)
		}
		defer store.Close()

		count, err := store.CountFiles(ctx)
		if err != nil || count != 0 {
			t.Errorf("expected empty store, got %d (%v)", count, err)
		}
	})

	t.Run("corrupt data", func(t *testing.T) {
		t.Parallel()

		garbage := make([]byte, 4096)
		for i := range garbage {
			garbage[i] = 'x'
		}
		_, err := (&Resolver{}).Open(ctx, DataSource(garbage))
		var openErr *model.StoreOpenError
		if !errors.As(err, &openErr) {
			t.Errorf("expected StoreOpenError, got %v", err)
		}
	})

	t.Run("url", func(t *testing.T) {
		t.Parallel()

		data := storeBytes(t)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/index.db" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write(data) //nolint:errcheck // test server
		}))
		defer server.Close()

		resolver := &Resolver{Client: server.Client()}

		store, err := resolver.OpenDescriptor(ctx, server.URL+"/index.db")
		if err != nil {
			t.Fatalf("failed to open url store: %v", err)
		}
		assertOneFile(t, store)
		path := store.Path()
		if err := store.Close(); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("expected snapshot %s to be removed", path)
		}

		_, err = resolver.OpenDescriptor(ctx, server.URL+"/missing.db")
		var netErr *model.NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected NetworkError, got %v", err)
		}
		if netErr.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", netErr.StatusCode)
		}
	})

	t.Run("unreachable url", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		target := server.URL + "/index.db"
		server.Close()

		_, err := (&Resolver{}).Open(ctx, URLSource(target))
		var netErr *model.NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected NetworkError, got %v", err)
		}
		if netErr.URL != target {
			t.Errorf("expected error to name %s, got %s", target, netErr.URL)
		}
	})

	t.Run("alias chain", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "mirror.db")
		resolver := &Resolver{
			Registry: mapRegistry{
				"mirror": PathSource(path),
				"m":      AliasSource("mirror"),
			},
			Options: DefaultOptions(),
		}

		store, err := resolver.OpenDescriptor(ctx, "m")
		if err != nil {
			t.Fatalf("failed to open alias: %v", err)
		}
		defer store.Close()

		if store.Path() != path {
			t.Errorf("expected %s, got %s", path, store.Path())
		}
	})

	t.Run("missing alias", func(t *testing.T) {
		t.Parallel()

		_, err := (&Resolver{Registry: mapRegistry{}}).Open(ctx, AliasSource("nowhere"))
		var cfgErr *model.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigurationError, got %v", err)
		}
		if cfgErr.Name != "nowhere" {
			t.Errorf("expected error to name the alias, got %q", cfgErr.Name)
		}
	})

	t.Run("alias cycle", func(t *testing.T) {
		t.Parallel()

		resolver := &Resolver{Registry: mapRegistry{
			"a": AliasSource("b"),
			"b": AliasSource("a"),
		}}
		_, err := resolver.Open(ctx, AliasSource("a"))
		var cfgErr *model.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("expected ConfigurationError, got %v", err)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()

		_, err := (&Resolver{}).Open(ctx, Source{Kind: SourceKind(99)})
		var verr *model.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})
}

// TestSourceString tests source descriptions.
func TestSourceString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  Source
		want string
	}{
		{DefaultSource(), "default"},
		{PathSource("/a.db"), "filesystem:/a.db"},
		{URLSource("http://h/a.db"), "url:http://h/a.db"},
		{AliasSource("m"), "alias:m"},
		{DataSource([]byte("abc")), "data (3 bytes)"},
	}

	for _, tt := range tests {
		if got := tt.src.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
