package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/opendir/internal/database"
	"github.com/nao1215/opendir/internal/model"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadConfigFile tests reading the configuration file.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("valid file", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, `
databases:
  mirror:
    type: url
    resource: https://example.com/index.db
  local:
    type: filesystem
    resource: /srv/index.db
  m:
    type: alias
    resource: mirror
defaults:
  concurrency: 4
  depth: 2
  timeout: 45s
  ignorePatterns:
    - "*.iso"
`)

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if !slices.Equal(cf.Names(), []string{"local", "m", "mirror"}) {
			t.Errorf("unexpected names %v", cf.Names())
		}
		if cf.Defaults.Concurrency != 4 || cf.Defaults.Depth != 2 || cf.Defaults.Timeout != 45*time.Second {
			t.Errorf("unexpected defaults %+v", cf.Defaults)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "none.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile(writeFile(t, ""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Databases == nil {
			t.Error("expected Databases to be initialized")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadConfigFile(writeFile(t, "databases: [")); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("invalid database type", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(writeFile(t, "databases:\n  x:\n    type: ftp\n    resource: ftp://h/db\n"))
		var verr *model.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if verr.Value != "ftp" {
			t.Errorf("expected the rejected type in the error, got %+v", verr)
		}
	})

	t.Run("missing resource", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(writeFile(t, "databases:\n  x:\n    type: url\n"))
		var verr *model.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("reserved name", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(writeFile(t, "databases:\n  default:\n    type: filesystem\n    resource: /a.db\n"))
		var verr *model.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("negative default", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(writeFile(t, "defaults:\n  depth: -1\n"))
		var verr *model.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

// TestFileSave tests that a saved file loads back.
func TestFileSave(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cf := NewFile()
	if err := cf.CreateDatabase("mirror", "url", "https://example.com/index.db"); err != nil {
		t.Fatal(err)
	}
	if err := cf.Save(path); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if loaded.Databases["mirror"] != cf.Databases["mirror"] {
		t.Errorf("expected %+v, got %+v", cf.Databases["mirror"], loaded.Databases["mirror"])
	}
}

// TestFindConfigFile tests config file discovery with an explicit path.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "")
	if got := FindConfigFile(path); got != path {
		t.Errorf("expected %s, got %s", path, got)
	}
	if got := FindConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); got != "" {
		t.Errorf("expected empty path for a missing explicit file, got %s", got)
	}
}

// TestCreateDatabase tests adding database definitions.
func TestCreateDatabase(t *testing.T) {
	t.Parallel()

	t.Run("invalid type", func(t *testing.T) {
		t.Parallel()

		err := NewFile().CreateDatabase("x", "bogus", "r")
		want := "Database type must be one of: 'url', 'filesystem', 'alias'. Got type 'bogus'."
		if err == nil || err.Error() != want {
			t.Errorf("expected %q, got %v", want, err)
		}
	})

	t.Run("alias to missing database", func(t *testing.T) {
		t.Parallel()

		err := NewFile().CreateDatabase("alias_name", "alias", "not_a_real_db")
		want := "Cannot create alias to database- no database named 'not_a_real_db'."
		if err == nil || err.Error() != want {
			t.Errorf("expected %q, got %v", want, err)
		}
	})

	t.Run("alias to default", func(t *testing.T) {
		t.Parallel()

		cf := NewFile()
		if err := cf.CreateDatabase("main", "alias", "default"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("filesystem paths are absolute", func(t *testing.T) {
		t.Parallel()

		cf := NewFile()
		if err := cf.CreateDatabase("local", "filesystem", "index.db"); err != nil {
			t.Fatal(err)
		}
		if !filepath.IsAbs(cf.Databases["local"].Resource) {
			t.Errorf("expected absolute path, got %s", cf.Databases["local"].Resource)
		}
	})

	t.Run("reserved name", func(t *testing.T) {
		t.Parallel()

		var verr *model.ValidationError
		if err := NewFile().CreateDatabase("default", "url", "http://h/db"); !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})

	t.Run("empty resource", func(t *testing.T) {
		t.Parallel()

		var verr *model.ValidationError
		if err := NewFile().CreateDatabase("x", "url", ""); !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})
}

// TestDeleteDatabase tests removing database definitions.
func TestDeleteDatabase(t *testing.T) {
	t.Parallel()

	cf := NewFile()
	if err := cf.CreateDatabase("mirror", "url", "https://example.com/index.db"); err != nil {
		t.Fatal(err)
	}

	if err := cf.DeleteDatabase("mirror"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cf.Databases["mirror"]; ok {
		t.Error("expected mirror to be deleted")
	}

	var cfgErr *model.ConfigurationError
	if err := cf.DeleteDatabase("mirror"); !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}

	var verr *model.ValidationError
	if err := cf.DeleteDatabase("default"); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

// TestLookup tests that the file works as a store registry.
func TestLookup(t *testing.T) {
	t.Parallel()

	cf := &File{Databases: map[string]Database{
		"web":   {Type: "url", Resource: "https://example.com/index.db"},
		"local": {Type: "filesystem", Resource: "/srv/index.db"},
		"w":     {Type: "alias", Resource: "web"},
	}}

	var registry database.Registry = cf

	tests := []struct {
		name string
		want database.Source
		ok   bool
	}{
		{"default", database.DefaultSource(), true},
		{"web", database.URLSource("https://example.com/index.db"), true},
		{"local", database.PathSource("/srv/index.db"), true},
		{"w", database.AliasSource("web"), true},
		{"nope", database.Source{}, false},
	}

	for _, tt := range tests {
		got, ok := registry.Lookup(tt.name)
		if ok != tt.ok || got.Kind != tt.want.Kind || got.Value != tt.want.Value {
			t.Errorf("Lookup(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}
