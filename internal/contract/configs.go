package contract

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/buildwatch/schema"
	"github.com/spf13/viper"
)

// Default values for configuration.
const (
	DefaultSampleSize     = 100
	DefaultMaxMakefiles   = 50
	DefaultSeed           = 19260817
	DefaultPrefixSegments = 4
	DefaultReposDir       = "test_compile"
	DefaultDBConfigPath   = "./database-config.json"
	DefaultReportFile     = "repo_samples.csv"
)

// Config holds the runtime configuration for an analysis run.
// This struct is the "final, validated" config.
type Config struct {
	LogFile        string
	ReposDir       string
	SampleSize     int
	MaxMakefiles   int
	Seed           uint64
	PrefixSegments int
	Output         schema.OutputMode
	OutputFile     string
	Width          int // Terminal width override (0 = auto-detect)
	UseColors      bool
	MetricsFile    string
	DBConfigPath   string
	NoStore        bool // Reconcile against an empty store instead of connecting
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	LogFile string

	ReposDir       string `mapstructure:"repos-dir"`
	SampleSize     int    `mapstructure:"sample-size"`
	MaxMakefiles   int    `mapstructure:"max-makefiles"`
	Seed           uint64 `mapstructure:"seed"`
	PrefixSegments int    `mapstructure:"prefix-segments"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Width          int    `mapstructure:"width"`
	Color          string `mapstructure:"color"`
	MetricsFile    string `mapstructure:"metrics-file"`
	DBConfig       string `mapstructure:"db-config"`
	NoStore        bool   `mapstructure:"no-store"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// ProcessAndValidate validates raw input and populates cfg.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if input.SampleSize <= 0 {
		return fmt.Errorf("sample-size must be greater than 0 (received %d)", input.SampleSize)
	}
	if input.MaxMakefiles < 0 {
		return fmt.Errorf("max-makefiles cannot be negative (received %d)", input.MaxMakefiles)
	}
	if input.PrefixSegments < 0 {
		return fmt.Errorf("prefix-segments cannot be negative (received %d)", input.PrefixSegments)
	}

	output := schema.OutputMode(strings.ToLower(strings.TrimSpace(input.Output)))
	if output == "" {
		output = schema.CSVOut
	}
	if _, ok := schema.ValidOutputModes[output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be csv, text, json", input.Output)
	}

	useColors := true
	if input.Color != "" {
		v, err := ParseBoolString(input.Color)
		if err != nil {
			return fmt.Errorf("invalid --color value: %w", err)
		}
		useColors = v
	}

	if input.LogFile != "" {
		info, err := os.Stat(input.LogFile)
		if err != nil {
			return fmt.Errorf("cannot read log file %q: %w", input.LogFile, err)
		}
		if info.IsDir() {
			return fmt.Errorf("log file %q is a directory", input.LogFile)
		}
	}

	cfg.LogFile = input.LogFile
	cfg.ReposDir = input.ReposDir
	if cfg.ReposDir == "" {
		cfg.ReposDir = DefaultReposDir
	}
	cfg.SampleSize = input.SampleSize
	cfg.MaxMakefiles = input.MaxMakefiles
	cfg.Seed = input.Seed
	cfg.PrefixSegments = input.PrefixSegments
	cfg.Output = output
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.UseColors = useColors
	cfg.MetricsFile = input.MetricsFile
	cfg.DBConfigPath = input.DBConfig
	if cfg.DBConfigPath == "" {
		cfg.DBConfigPath = DefaultDBConfigPath
	}
	cfg.NoStore = input.NoStore
	return nil
}

// StoreConfig is the connection configuration of the repository store.
type StoreConfig struct {
	Backend        schema.DatabaseBackend
	Host           string
	Port           int
	AuthDBName     string
	DBName         string
	CollectionName string
	Username       string
	Password       string // Please use env var as this is plaintext
}

// Store config keys.
const (
	KeyBackend        = "backend"
	KeyHost           = "host"
	KeyPort           = "port"
	KeyAuthDBName     = "auth_db_name"
	KeyDBName         = "db_name"
	KeyCollectionName = "collection_name"
	KeyUsername       = "username"
	KeyPassword       = "password"
)

// RequiredStoreKeys returns the keys a store config must define for the backend.
func RequiredStoreKeys(backend schema.DatabaseBackend) []string {
	switch backend {
	case schema.MemoryBackend:
		return nil
	case schema.SQLiteBackend:
		return []string{KeyDBName, KeyCollectionName}
	default:
		return []string{KeyHost, KeyPort, KeyAuthDBName, KeyDBName, KeyCollectionName, KeyUsername, KeyPassword}
	}
}

// LoadStoreConfig reads the store config file at path. Values can be
// overridden with BUILDWATCH_DB_<KEY> environment variables.
func LoadStoreConfig(path string) (StoreConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return StoreConfig{}, fmt.Errorf("%w at %q. Please refer to database-config-example.json for the format", ErrConfigNotFound, path)
		}
		return StoreConfig{}, fmt.Errorf("cannot access store config %q: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	v.SetEnvPrefix("BUILDWATCH_DB")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return StoreConfig{}, fmt.Errorf("error reading store config %q: %w", path, err)
	}

	backend := schema.MongoBackend
	if b := strings.ToLower(strings.TrimSpace(v.GetString(KeyBackend))); b != "" {
		backend = schema.DatabaseBackend(b)
	}
	if _, ok := schema.ValidBackends[backend]; !ok {
		return StoreConfig{}, fmt.Errorf("invalid store backend '%s'. must be mongodb, mysql, postgresql, sqlite, memory", backend)
	}

	var missing []string
	for _, key := range RequiredStoreKeys(backend) {
		if !v.IsSet(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return StoreConfig{}, fmt.Errorf("%w %v in %q. Please refer to database-config-example.json for the format", ErrMissingConfigKeys, missing, path)
	}

	sc := StoreConfig{
		Backend:        backend,
		Host:           v.GetString(KeyHost),
		Port:           v.GetInt(KeyPort),
		AuthDBName:     v.GetString(KeyAuthDBName),
		DBName:         v.GetString(KeyDBName),
		CollectionName: v.GetString(KeyCollectionName),
		Username:       v.GetString(KeyUsername),
		Password:       v.GetString(KeyPassword),
	}
	if backend != schema.MemoryBackend && backend != schema.SQLiteBackend && sc.Port <= 0 {
		return StoreConfig{}, fmt.Errorf("store port must be a positive integer (received %q)", v.GetString(KeyPort))
	}
	return sc, nil
}

// Target describes where records live, for status output.
func (sc StoreConfig) Target() string {
	switch sc.Backend {
	case schema.MemoryBackend:
		return "in-memory"
	case schema.SQLiteBackend:
		return fmt.Sprintf("%s (table %s)", sc.DBName, sc.CollectionName)
	default:
		return fmt.Sprintf("%s:%d/%s.%s", sc.Host, sc.Port, sc.DBName, sc.CollectionName)
	}
}
