package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	envVarPrefix = "RSFS"
	appName      = "rsfs"
)

type Config struct {
	Image     string `envconfig:"IMAGE"      yaml:"image"`
	Raw       bool   `envconfig:"RAW"        yaml:"raw"`
	Label     string `envconfig:"LABEL"      yaml:"label"`
	LogLevel  string `envconfig:"LOG_LEVEL"  yaml:"logLevel"`
	LogFormat string `envconfig:"LOG_FORMAT" yaml:"logFormat"`
}

func defaultConfig() Config {
	return Config{
		Image:     "rsfs.img",
		LogLevel:  "warn",
		LogFormat: "text",
	}
}

// LoadConfig reads the optional config file and overlays the environment variables.
// The file is taken from RSFS_CONFIG_FILE or $HOME/.config/rsfs.yaml.
func LoadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		configFile = os.Getenv(envVarPrefix + "_CONFIG_FILE")
	}
	if configFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configFile = filepath.Join(home, ".config", appName+".yaml")
		}
	}

	c := defaultConfig()
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file `%s`: %w", configFile, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &c); err != nil {
				return nil, fmt.Errorf("unmarshaling config file `%s`: %w", configFile, err)
			}
		}
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	return &c, nil
}

func (c *Config) Validate() error {
	if c.Image == "" {
		return fmt.Errorf("missing required config: image (%s_IMAGE)", envVarPrefix)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid logLevel `%s`: %w", c.LogLevel, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid logFormat `%s`: expected `text` or `json`", c.LogFormat)
	}
	return nil
}

// Logger creates the logger described by the config.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
