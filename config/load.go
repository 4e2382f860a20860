package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/bio-mcp/bio-mcp-blast/errors"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "BIO_MCP"

// ProjectFileName is searched for from the working directory upward
const ProjectFileName = "blast.toml"

// Load reads configuration from every source in precedence order:
// defaults < system file < user file < project file < environment.
func Load() (*Config, error) {
	return LoadWithViper(NewViper())
}

// NewViper builds a viper instance with defaults, env binding and merged files
func NewViper() *viper.Viper {
	return newViper(SearchPaths())
}

func newViper(paths []string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindEnvVars(v)
	SetDefaults(v)
	mergeConfigFiles(v, paths)
	return v
}

// LoadWithViper decodes configuration from a prepared viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}

// LoadFromFile loads defaults overlaid with a single file. Environment
// variables are not consulted.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "config file %s", path)
	}
	return cfg, nil
}

// UserConfigPath is ~/.bio-mcp/blast.toml, or empty without a home directory
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bio-mcp", ProjectFileName)
}

// SearchPaths lists candidate config files, lowest precedence first
func SearchPaths() []string {
	paths := []string{"/etc/bio-mcp/" + ProjectFileName}
	if p := UserConfigPath(); p != "" {
		paths = append(paths, p)
	}
	if wd, err := os.Getwd(); err == nil {
		if p := findProjectConfig(wd); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// findProjectConfig walks up from dir looking for blast.toml
func findProjectConfig(dir string) string {
	for {
		p := filepath.Join(dir, ProjectFileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeConfigFiles merges each readable file in order, later files winning.
// Values are merged rather than Set so environment variables keep priority.
func mergeConfigFiles(v *viper.Viper, paths []string) {
	v.SetConfigType("toml")
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		// A broken file is skipped; `blastmcp doctor` reports it.
		_ = v.MergeConfig(f)
		f.Close()
	}
}

// ParseErrors returns a read error for every existing config file that does
// not parse
func ParseErrors(paths []string) []error {
	var errs []error
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		t := viper.New()
		t.SetConfigFile(p)
		t.SetConfigType("toml")
		if err := t.ReadInConfig(); err != nil {
			errs = append(errs, errors.Wrapf(err, "config file %s", p))
		}
	}
	return errs
}
