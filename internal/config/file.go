package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/opendir/internal/database"
	"github.com/nao1215/opendir/internal/model"
)

// Database types accepted in the configuration file.
const (
	DatabaseTypeURL        = "url"
	DatabaseTypeFilesystem = "filesystem"
	DatabaseTypeAlias      = "alias"
)

// LocalConfigFile is looked up in the working directory before the XDG
// config directory.
const LocalConfigFile = ".opendir.yaml"

// Database is a named index store defined in the configuration file.
type Database struct {
	// Type is one of "url", "filesystem" or "alias".
	Type string `yaml:"type" validate:"required,oneof=url filesystem alias"`

	// Resource is the URL, the file path, or the aliased database name.
	Resource string `yaml:"resource" validate:"required"`
}

// CrawlDefaults are index options applied when the matching flag is not set.
type CrawlDefaults struct {
	Concurrency    int           `yaml:"concurrency,omitempty" validate:"gte=0"`
	Depth          int           `yaml:"depth,omitempty" validate:"gte=0"`
	Quick          bool          `yaml:"quick,omitempty"`
	UserAgent      string        `yaml:"userAgent,omitempty"`
	Timeout        time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
	IgnorePatterns []string      `yaml:"ignorePatterns,omitempty" validate:"dive,required"`
}

// File represents the structure of the configuration file.
type File struct {
	// Databases maps names to index store definitions.
	// The name "default" is reserved for the store in the data directory.
	Databases map[string]Database `yaml:"databases,omitempty"`

	// Defaults contains crawl options for the index command.
	Defaults CrawlDefaults `yaml:"defaults,omitempty"`
}

// NewFile returns an empty configuration.
func NewFile() *File {
	return &File{Databases: make(map[string]Database)}
}

// LoadConfigFile loads the configuration from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cf.Databases == nil {
		cf.Databases = make(map[string]Database)
	}

	if err := cf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration file %s: %w", path, err)
	}

	return &cf, nil
}

// Save writes the configuration to path, creating its directory.
func (cf *File) Save(path string) error {
	data, err := yaml.Marshal(cf)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .opendir.yaml in the current directory
// 3. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, LocalConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	if _, err := os.Stat(DefaultConfigFilePath()); err == nil {
		return DefaultConfigFilePath()
	}

	return ""
}

// Validate checks every database definition and the crawl defaults.
// Definitions are checked in name order so that the reported error is stable.
func (cf *File) Validate() error {
	validate := validator.New()

	if err := validate.Struct(cf.Defaults); err != nil {
		return toValidationError("defaults", err)
	}

	for _, name := range cf.Names() {
		if name == DefaultDatabaseName {
			return &model.ValidationError{Field: "database name", Value: name, Reason: "the name is reserved"}
		}
		if err := validate.Struct(cf.Databases[name]); err != nil {
			return toValidationError("database "+name, err)
		}
	}
	return nil
}

// toValidationError converts the first validator failure into a
// *model.ValidationError.
func toValidationError(prefix string, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	reason := "failed " + fe.Tag()
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "oneof":
		reason = "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gte":
		reason = "must be at least " + fe.Param()
	}

	return &model.ValidationError{
		Field:  prefix + " " + strings.ToLower(fe.Field()),
		Value:  fmt.Sprint(fe.Value()),
		Reason: reason,
	}
}

// Names returns the defined database names in sorted order.
// The implicit default database is not included.
func (cf *File) Names() []string {
	names := make([]string, 0, len(cf.Databases))
	for name := range cf.Databases {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup resolves a database name to a store source.
// "default" always resolves to the default store.
// It implements database.Registry.
func (cf *File) Lookup(name string) (database.Source, bool) {
	if name == DefaultDatabaseName {
		return database.DefaultSource(), true
	}

	db, ok := cf.Databases[name]
	if !ok {
		return database.Source{}, false
	}

	switch db.Type {
	case DatabaseTypeURL:
		return database.URLSource(db.Resource), true
	case DatabaseTypeFilesystem:
		return database.PathSource(db.Resource), true
	case DatabaseTypeAlias:
		return database.AliasSource(db.Resource), true
	default:
		return database.Source{}, false
	}
}

// CreateDatabase adds a named database definition.
// Filesystem resources are stored as absolute paths. An alias must point to
// a database that already exists.
func (cf *File) CreateDatabase(name, dbType, resource string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &model.ValidationError{Field: "database name", Reason: "must not be empty"}
	}
	if name == DefaultDatabaseName {
		return &model.ValidationError{Field: "database name", Value: name, Reason: "the name is reserved"}
	}

	switch dbType {
	case DatabaseTypeURL, DatabaseTypeFilesystem, DatabaseTypeAlias:
	default:
		return fmt.Errorf("Database type must be one of: 'url', 'filesystem', 'alias'. Got type '%s'.", dbType) //nolint:staticcheck // user-facing message
	}

	if dbType == DatabaseTypeAlias {
		if _, ok := cf.Lookup(resource); !ok {
			return fmt.Errorf("Cannot create alias to database- no database named '%s'.", resource) //nolint:staticcheck // user-facing message
		}
	}

	if dbType == DatabaseTypeFilesystem && resource != "" {
		abs, err := filepath.Abs(resource)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", resource, err)
		}
		resource = abs
	}

	db := Database{Type: dbType, Resource: resource}
	if err := validator.New().Struct(db); err != nil {
		return toValidationError("database "+name, err)
	}

	if cf.Databases == nil {
		cf.Databases = make(map[string]Database)
	}
	cf.Databases[name] = db
	return nil
}

// DeleteDatabase removes a named database definition. The store file itself
// is left in place.
func (cf *File) DeleteDatabase(name string) error {
	if name == DefaultDatabaseName {
		return &model.ValidationError{Field: "database name", Value: name, Reason: "the default database cannot be deleted"}
	}
	if _, ok := cf.Databases[name]; !ok {
		return &model.ConfigurationError{Name: name, Reason: "no database with that name"}
	}
	delete(cf.Databases, name)
	return nil
}
