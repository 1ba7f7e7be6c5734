package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Name     string `koanf:"name"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Debug    bool   `koanf:"debug"`
}

// Addr returns the host:port the database listens on.
func (d DatabaseConfig) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type UploadsConfig struct {
	Dir string `koanf:"dir"`
}

type Config struct {
	Environment string         `koanf:"environment"`
	Server      ServerConfig   `koanf:"server"`
	Database    DatabaseConfig `koanf:"db"`
	Uploads     UploadsConfig  `koanf:"uploads"`

	DatabaseConnectRetryCount int           `koanf:"-"`
	DatabaseConnectRetryDelay time.Duration `koanf:"-"`
	Hostname                  string        `koanf:"-"`
}

const configFileENV = "CONFIG_FILE"

// envPrefixes are the only environment variables that map onto config keys;
// the rest of the process environment is ignored.
var envPrefixes = []string{"ENVIRONMENT", "SERVER_", "DB_", "UPLOADS_"}

// New reads configuration once at startup: defaults, then an optional YAML
// file named by CONFIG_FILE, then environment variables (DB_HOST, DB_PORT,
// DB_NAME, DB_USER, DB_PASSWORD, SERVER_HOST, SERVER_PORT, UPLOADS_DIR,
// ENVIRONMENT). A .env file in the working directory is loaded first if
// present.
func New() (*Config, error) {
	_ = godotenv.Load()

	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Database: DatabaseConfig{
			Host: "localhost",
			Port: 5432,
			Name: "books",
			User: "postgres",
		},
		Uploads: UploadsConfig{
			Dir: "uploads",
		},
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		Hostname:                  hostname,
	}

	k := koanf.New(".")

	if path := os.Getenv(configFileENV); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	err = k.Load(env.Provider("", ".", func(s string) string {
		for _, prefix := range envPrefixes {
			if strings.HasPrefix(s, prefix) {
				return strings.ReplaceAll(strings.ToLower(s), "_", ".")
			}
		}
		return ""
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	if cfg.Environment == "development" {
		cfg.Database.Debug = true
	}

	return cfg, nil
}
