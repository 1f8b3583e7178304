// Package config loads the settings shared by the Jira commands.
//
// Settings are merged from, in increasing precedence:
// built-in defaults, the YAML file $XDG_CONFIG_HOME/atlassian/jira.yaml
// (or the file named by --config), the legacy credentials file
// $XDG_CONFIG_HOME/atlassian/jira holding "username:password",
// environment variables prefixed JIRA_, and command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"olowe.co/issues/jira"
)

type Config struct {
	Server        string        `mapstructure:"server" yaml:"server"`
	User          string        `mapstructure:"user" yaml:"user,omitempty"`
	Password      string        `mapstructure:"password" yaml:"password,omitempty"`
	Token         string        `mapstructure:"token" yaml:"token,omitempty"`
	Cloud         bool          `mapstructure:"cloud" yaml:"cloud,omitempty"`
	MaxRetries    int           `mapstructure:"max-retries" yaml:"max-retries,omitempty"`
	MaxRetryDelay time.Duration `mapstructure:"max-retry-delay" yaml:"max-retry-delay,omitempty"`
	Autofix       string        `mapstructure:"autofix" yaml:"autofix,omitempty"`
	Output        string        `mapstructure:"output" yaml:"output,omitempty"`
	Debug         bool          `mapstructure:"debug" yaml:"-"`
}

var defaults = map[string]any{
	"server":          "",
	"user":            "",
	"password":        "",
	"token":           "",
	"cloud":           false,
	"max-retries":     jira.DefaultMaxRetries,
	"max-retry-delay": jira.DefaultMaxRetryDelay,
	"autofix":         "",
	"output":          "text",
	"debug":           false,
}

// Dir returns the directory holding Jira configuration files.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "atlassian"), nil
}

// Path returns the default location of the configuration file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "jira.yaml"), nil
}

// Load reads the configuration. If name is empty, the default file
// is read if it exists. Flags, which may be nil, are bound by name.
func Load(flags *pflag.FlagSet, name string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigType("yaml")

	explicit := name != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		name = p
	}
	v.SetConfigFile(name)
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", name, err)
		}
	}

	user, pass, err := readLegacy()
	if err == nil {
		legacy := map[string]any{"user": user, "password": pass}
		if err := v.MergeConfigMap(legacy); err != nil {
			return nil, fmt.Errorf("merge credentials: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v.SetEnvPrefix("jira")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &c, nil
}

func readLegacy() (user, pass string, err error) {
	dir, err := Dir()
	if err != nil {
		return "", "", err
	}
	name := filepath.Join(dir, "jira")
	b, err := os.ReadFile(name)
	if err != nil {
		return "", "", err
	}
	b = bytes.TrimSpace(b)
	u, p, ok := strings.Cut(string(b), ":")
	if !ok {
		return "", "", fmt.Errorf(`%s: missing ":" between username and password`, name)
	}
	return u, p, nil
}

// Write stores c as YAML in the named file, creating its directory.
// The file may hold secrets so is only readable by its owner.
func Write(name string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o700); err != nil {
		return err
	}
	return os.WriteFile(name, b, 0o600)
}

// Client returns a Jira client configured by c.
// Logger may be nil.
func (c *Config) Client(logger *log.Logger) (*jira.Client, error) {
	if c.Server == "" {
		return nil, errors.New("no server configured")
	}
	u, err := url.Parse(c.Server)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q: need scheme and host", c.Server)
	}
	retries := c.MaxRetries
	if retries == 0 {
		// zero in the client means the default
		retries = -1
	}
	delay := c.MaxRetryDelay
	if delay == 0 {
		delay = -1
	}
	return &jira.Client{
		Server:        u,
		Username:      c.User,
		Password:      c.Password,
		Token:         c.Token,
		Cloud:         c.Cloud,
		MaxRetries:    retries,
		MaxRetryDelay: delay,
		Autofix:       c.Autofix,
		Logger:        logger,
	}, nil
}
