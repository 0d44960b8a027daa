package types

import "errors"

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// DefaultPageSize is the number of ideas per page when none is configured.
const DefaultPageSize = 10

// IdeasKey is the fixed key under which the local collection is stored.
const IdeasKey = "ideas_storage"

// Config holds backend selection and parameters for backend.Open.
type Config struct {
	Backend     string `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir     string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	PageSize    int    `json:"page_size" yaml:"page_size" mapstructure:"page_size"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty" mapstructure:"database_url"`
	OwnerID     string `json:"owner_id,omitempty" yaml:"owner_id,omitempty" mapstructure:"owner_id"`
}

// Config validation errors.
var (
	ErrBackendEmpty     = errors.New("backend must not be empty")
	ErrBackendUnknown   = errors.New("unknown backend")
	ErrPageSizeInvalid  = errors.New("page size must be positive")
	ErrDatabaseURLEmpty = errors.New("postgres backend requires database_url")
	ErrOwnerEmpty       = errors.New("postgres backend requires owner_id")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendFile:     true,
	BackendMemory:   true,
	BackendPostgres: true,
}

// EffectivePageSize returns PageSize, or DefaultPageSize when unset.
func (c Config) EffectivePageSize() int {
	if c.PageSize == 0 {
		return DefaultPageSize
	}
	return c.PageSize
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.PageSize < 0 {
		return ErrPageSizeInvalid
	}
	if c.Backend == BackendPostgres {
		if c.DatabaseURL == "" {
			return ErrDatabaseURLEmpty
		}
		if c.OwnerID == "" {
			return ErrOwnerEmpty
		}
	}
	return nil
}
