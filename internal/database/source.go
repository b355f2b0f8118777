package database

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/nao1215/opendir/internal/model"
)

// maxAliasDepth bounds alias chains so that a cycle in the registry fails
// instead of looping.
const maxAliasDepth = 8

// SourceKind identifies where an index store comes from.
type SourceKind int

const (
	// SourceDefault is the store at Resolver.DefaultPath.
	SourceDefault SourceKind = iota

	// SourcePath is a store file on the local filesystem.
	SourcePath

	// SourceURL is a store file published over HTTP. It is downloaded into
	// a private snapshot; writes to the snapshot are discarded on Close.
	SourceURL

	// SourceData is a store held in memory as raw database bytes.
	SourceData

	// SourceAlias is a name looked up in the Registry.
	SourceAlias
)

// String returns a human-readable name of the kind.
func (k SourceKind) String() string {
	switch k {
	case SourceDefault:
		return "default"
	case SourcePath:
		return "filesystem"
	case SourceURL:
		return "url"
	case SourceData:
		return "data"
	case SourceAlias:
		return "alias"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// Source describes an index store to open.
// Exactly one of Value and Data is meaningful, depending on Kind.
type Source struct {
	Kind SourceKind

	// Value is the path, URL or alias name.
	Value string

	// Data holds the database bytes for SourceData.
	Data []byte
}

// DefaultSource returns the descriptor of the default store.
func DefaultSource() Source {
	return Source{Kind: SourceDefault}
}

// PathSource returns a descriptor for a store file.
func PathSource(path string) Source {
	return Source{Kind: SourcePath, Value: path}
}

// URLSource returns a descriptor for a store published at rawURL.
func URLSource(rawURL string) Source {
	return Source{Kind: SourceURL, Value: rawURL}
}

// DataSource returns a descriptor for database bytes held in memory.
func DataSource(data []byte) Source {
	return Source{Kind: SourceData, Data: data}
}

// AliasSource returns a descriptor for a registered database name.
func AliasSource(name string) Source {
	return Source{Kind: SourceAlias, Value: name}
}

// String returns a short description suitable for logs.
func (s Source) String() string {
	switch s.Kind {
	case SourceDefault:
		return "default"
	case SourceData:
		return fmt.Sprintf("data (%d bytes)", len(s.Data))
	default:
		return s.Kind.String() + ":" + s.Value
	}
}

// Registry resolves database names to sources.
// config.File implements it for the databases defined in the config file.
type Registry interface {
	Lookup(name string) (Source, bool)
}

// Resolver opens index stores from source descriptors.
// All of its inputs are explicit; it reads no global state.
type Resolver struct {
	// DefaultPath is the store used for SourceDefault.
	DefaultPath string

	// Registry resolves alias names. May be nil when no aliases exist.
	Registry Registry

	// Client is used for SourceURL. nil means http.DefaultClient.
	Client *http.Client

	// Options are applied to path and default stores.
	Options Options
}

// Parse turns a command-line descriptor into a Source:
//   - empty selects the default store
//   - an http:// or https:// prefix selects a URL snapshot
//   - a name known to the Registry selects that alias
//   - anything else is a filesystem path
func (r *Resolver) Parse(descriptor string) Source {
	descriptor = strings.TrimSpace(descriptor)

	switch {
	case descriptor == "":
		return DefaultSource()
	case strings.HasPrefix(descriptor, "http://"), strings.HasPrefix(descriptor, "https://"):
		return URLSource(descriptor)
	}

	if r.Registry != nil {
		if _, ok := r.Registry.Lookup(descriptor); ok {
			return AliasSource(descriptor)
		}
	}
	return PathSource(descriptor)
}

// OpenDescriptor parses descriptor and opens the store it names.
func (r *Resolver) OpenDescriptor(ctx context.Context, descriptor string) (*Store, error) {
	return r.Open(ctx, r.Parse(descriptor))
}

// Open opens the store described by src.
// URL and data sources are copied into a private temporary file which the
// returned Store removes on Close.
func (r *Resolver) Open(ctx context.Context, src Source) (*Store, error) {
	for depth := 0; ; depth++ {
		switch src.Kind {
		case SourceDefault:
			if r.DefaultPath == "" {
				return nil, &model.ConfigurationError{Name: "default", Reason: "no default database path configured"}
			}
			return Open(r.DefaultPath, r.Options)

		case SourcePath:
			if src.Value == "" {
				return nil, &model.ValidationError{Field: "database path", Reason: "must not be empty"}
			}
			return Open(src.Value, r.Options)

		case SourceURL:
			return r.openURL(ctx, src.Value)

		case SourceData:
			return openSnapshot(bytes.NewReader(src.Data))

		case SourceAlias:
			if depth >= maxAliasDepth {
				return nil, &model.ConfigurationError{Name: src.Value, Reason: "alias chain is too deep"}
			}
			if r.Registry == nil {
				return nil, &model.ConfigurationError{Name: src.Value, Reason: "no database with that name"}
			}
			target, ok := r.Registry.Lookup(src.Value)
			if !ok {
				return nil, &model.ConfigurationError{Name: src.Value, Reason: "no database with that name"}
			}
			src = target

		default:
			return nil, &model.ValidationError{Field: "source kind", Value: src.Kind.String(), Reason: "unknown source kind"}
		}
	}
}

// openURL downloads the store at rawURL into a snapshot.
func (r *Resolver) openURL(ctx context.Context, rawURL string) (*Store, error) {
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &model.NetworkError{URL: rawURL, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &model.NetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.NetworkError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	store, err := openSnapshot(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to load store from %s: %w", rawURL, err)
	}
	return store, nil
}

// openSnapshot copies r into a new temporary file and opens it.
func openSnapshot(r io.Reader) (*Store, error) {
	f, err := os.CreateTemp("", "opendir-*.db")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary store: %w", err)
	}
	path := f.Name()

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write temporary store: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write temporary store: %w", err)
	}

	store, err := Open(path, Options{CreateIfNotExists: false})
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	store.temporary = true
	return store, nil
}
