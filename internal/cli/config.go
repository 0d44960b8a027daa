package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/ideas/internal/paths"
	"github.com/mesh-intelligence/ideas/pkg/types"
)

// Config keys in config.yaml.
const (
	cfgKeyBackend     = "backend"
	cfgKeyDataDir     = "data_dir"
	cfgKeyPageSize    = "page_size"
	cfgKeyLogFile     = "log_file"
	cfgKeyLogLevel    = "log_level"
	cfgKeyDatabaseURL = "database_url"
	cfgKeyOwnerID     = "owner_id"
)

// envPrefix maps config keys to environment variables, for example
// page_size to IDEAS_PAGE_SIZE.
const envPrefix = "IDEAS"

// envFiles are loaded from the working directory before config is read.
// Earlier files win because godotenv never overrides a variable that is
// already set.
var envFiles = []string{".env.local", ".env"}

// defaultLogFileName is created in the config dir when log_file is unset.
const defaultLogFileName = "ideas.log"

// fileConfig is the shape of config.yaml.
type fileConfig struct {
	Backend     string `yaml:"backend"`
	DataDir     string `yaml:"data_dir,omitempty"`
	PageSize    int    `yaml:"page_size"`
	LogFile     string `yaml:"log_file,omitempty"`
	LogLevel    string `yaml:"log_level"`
	DatabaseURL string `yaml:"database_url,omitempty"`
	OwnerID     string `yaml:"owner_id,omitempty"`
}

// settings is the resolved configuration for one invocation.
type settings struct {
	ConfigDir string
	Store     types.Config
	LogFile   string
	LogLevel  string
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Backend:  types.BackendSQLite,
		PageSize: types.DefaultPageSize,
		LogLevel: "info",
	}
}

// loadSettings resolves directories, creates config.yaml on first run, and
// reads it through viper with IDEAS_* environment overrides.
func loadSettings(f rootFlags) (settings, error) {
	if err := loadEnvFiles(); err != nil {
		return settings{}, err
	}

	configDir, err := paths.ResolveConfigDir(f.configDir)
	if err != nil {
		return settings{}, &sysError{fmt.Errorf("resolve config dir: %w", err)}
	}
	if err := ensureConfigFile(configDir); err != nil {
		return settings{}, &sysError{err}
	}

	v, err := readConfig(configDir)
	if err != nil {
		return settings{}, err
	}

	dataDir, err := paths.ResolveDataDir(f.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, &sysError{fmt.Errorf("resolve data dir: %w", err)}
	}

	backendName := v.GetString(cfgKeyBackend)
	if f.backend != "" {
		backendName = f.backend
	}

	logFile := v.GetString(cfgKeyLogFile)
	if logFile == "" {
		logFile = filepath.Join(configDir, defaultLogFileName)
	}

	s := settings{
		ConfigDir: configDir,
		Store: types.Config{
			Backend:     backendName,
			DataDir:     dataDir,
			PageSize:    v.GetInt(cfgKeyPageSize),
			DatabaseURL: v.GetString(cfgKeyDatabaseURL),
			OwnerID:     v.GetString(cfgKeyOwnerID),
		},
		LogFile:  logFile,
		LogLevel: v.GetString(cfgKeyLogLevel),
	}
	if err := s.Store.Validate(); err != nil {
		return settings{}, fmt.Errorf("config %s: %w", paths.ConfigFile(configDir), err)
	}
	return s, nil
}

// readConfig reads config.yaml from configDir. A missing file is not an
// error. data_dir is not bound to the environment because IDEAS_DATA_DIR
// ranks below the config file.
func readConfig(configDir string) (*viper.Viper, error) {
	def := defaultFileConfig()

	v := viper.New()
	v.SetDefault(cfgKeyBackend, def.Backend)
	v.SetDefault(cfgKeyPageSize, def.PageSize)
	v.SetDefault(cfgKeyLogLevel, def.LogLevel)
	v.SetConfigFile(paths.ConfigFile(configDir))
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{cfgKeyBackend, cfgKeyPageSize, cfgKeyLogFile, cfgKeyLogLevel, cfgKeyDatabaseURL, cfgKeyOwnerID} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureConfigFile creates configDir and writes a default config.yaml if
// none exists. An existing file is left untouched.
func ensureConfigFile(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	path := paths.ConfigFile(configDir)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	cfg := defaultFileConfig()
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# ideas configuration. IDEAS_<KEY> environment variables override these values.\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}

// loadEnvFiles loads .env files from the working directory. Missing files
// are skipped.
func loadEnvFiles() error {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}
