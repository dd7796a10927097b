package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"restic-backup-service/src/discovery"
	"restic-backup-service/src/repository"
)

const (
	KeyResticPassword  = "RESTIC_PASSWORD"
	KeyRepoBase        = "RESTIC_REPO_BASE"
	KeyAccessKeyID     = "AWS_ACCESS_KEY_ID"
	KeySecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	KeyRegion          = "AWS_DEFAULT_REGION"
	KeyEndpoint        = "AWS_S3_ENDPOINT"
	KeyBackupPaths     = "BACKUP_PATHS"
	KeyHostname        = "BACKUP_HOSTNAME"
	KeyHomeRoot        = "HOME_ROOT"
	KeyDockerRoot      = "DOCKER_VOLUMES_ROOT"
	KeyConcurrency     = "CONCURRENCY"
	KeyStagingDir      = "RESTORE_STAGING_DIR"
	KeyLogLevel        = "LOG_LEVEL"
	KeyLogFile         = "LOG_FILE"
	KeyLogMaxSize      = "LOG_MAX_SIZE_MB"
	KeyLogMaxBackups   = "LOG_MAX_BACKUPS"
	KeyLogMaxAge       = "LOG_MAX_AGE_DAYS"
	KeyLogCompress     = "LOG_COMPRESS"
)

const (
	DefaultEnvFile    = ".env"
	DefaultRegion     = "auto"
	DefaultStagingDir = "/tmp/restic/interactive"
)

// Logging configures the logging package.
type Logging struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Config is the resolved service configuration.
type Config struct {
	ResticPassword   string
	RepoBase         string
	AccessKeyID      string
	SecretAccessKey  string
	Region           string
	Endpoint         string
	BackupPaths      []string
	Hostname         string
	HomeRoot         string
	DockerVolumeRoot string
	Concurrency      int
	StagingDir       string
	Logging          Logging
}

// Options select the sources Load reads.
type Options struct {
	// EnvFile is loaded into the process environment; a missing file is
	// ignored. Variables that are already set win.
	EnvFile string
	// ConfigFile is an optional YAML file with the same keys.
	ConfigFile string
}

var hostname = os.Hostname

// Load resolves the configuration. The environment (including variables from
// the env file) wins over the config file, which wins over defaults.
func Load(opts Options) (Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(KeyRegion, DefaultRegion)
	v.SetDefault(KeyHomeRoot, repository.DefaultHomeRoot)
	v.SetDefault(KeyDockerRoot, repository.DefaultDockerVolumeRoot)
	v.SetDefault(KeyConcurrency, discovery.DefaultConcurrency)
	v.SetDefault(KeyStagingDir, DefaultStagingDir)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogMaxSize, 10)
	v.SetDefault(KeyLogMaxBackups, 3)
	v.SetDefault(KeyLogMaxAge, 28)
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", opts.ConfigFile, err)
		}
	}

	cfg := Config{
		ResticPassword:   v.GetString(KeyResticPassword),
		RepoBase:         strings.TrimSpace(v.GetString(KeyRepoBase)),
		AccessKeyID:      v.GetString(KeyAccessKeyID),
		SecretAccessKey:  v.GetString(KeySecretAccessKey),
		Region:           v.GetString(KeyRegion),
		Endpoint:         v.GetString(KeyEndpoint),
		BackupPaths:      splitList(v.GetString(KeyBackupPaths)),
		Hostname:         strings.TrimSpace(v.GetString(KeyHostname)),
		HomeRoot:         v.GetString(KeyHomeRoot),
		DockerVolumeRoot: v.GetString(KeyDockerRoot),
		Concurrency:      v.GetInt(KeyConcurrency),
		StagingDir:       v.GetString(KeyStagingDir),
		Logging: Logging{
			Level:      v.GetString(KeyLogLevel),
			File:       v.GetString(KeyLogFile),
			MaxSizeMB:  v.GetInt(KeyLogMaxSize),
			MaxBackups: v.GetInt(KeyLogMaxBackups),
			MaxAgeDays: v.GetInt(KeyLogMaxAge),
			Compress:   v.GetBool(KeyLogCompress),
		},
	}
	if cfg.Hostname == "" {
		h, err := hostname()
		if err != nil {
			return Config{}, fmt.Errorf("config: %s is unset and the hostname is unavailable: %w", KeyHostname, err)
		}
		cfg.Hostname = h
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return cfg, nil
}

// MissingKeyError names a required setting that is empty.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("config: %s is required (set it in the environment or the .env file)", e.Key)
}

// Validate checks the settings every repository operation needs.
func (c Config) Validate() error {
	switch {
	case c.ResticPassword == "":
		return &MissingKeyError{Key: KeyResticPassword}
	case c.RepoBase == "":
		return &MissingKeyError{Key: KeyRepoBase}
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("config: %s and %s must be set together", KeyAccessKeyID, KeySecretAccessKey)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SetHostnameForTest overrides the OS hostname lookup.
func SetHostnameForTest(fn func() (string, error)) (restore func()) {
	prev := hostname
	hostname = fn
	return func() { hostname = prev }
}
