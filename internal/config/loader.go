package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".gatecrawl"

// ErrConfigNotFound is returned when the configuration file does not
// exist. Callers decide whether that matters: an explicitly requested
// file must exist, a searched-for one may not.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the parsed .gatecrawl configuration file.
type File struct {
	// Defaults apply to every target unless overridden per site.
	Defaults SiteConfig `yaml:"defaults"`

	// Sites maps a target hostname to its overrides.
	Sites map[string]SiteConfig `yaml:"sites"`
}

// SiteConfig holds per-target settings from the configuration file.
// Zero values mean "not set" and fall back to the file defaults.
type SiteConfig struct {
	// Username and Password are the login credentials for this site.
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// Prefix overrides the in-scope path prefix.
	Prefix string `yaml:"prefix,omitempty"`

	// LoginPath overrides the login form endpoint.
	LoginPath string `yaml:"loginPath,omitempty"`

	// Workers overrides the concurrent worker count.
	Workers int `yaml:"workers,omitempty"`
}

// LoadConfigFile loads the YAML configuration from path.
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
		return nil, err
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file:
//  1. the explicit path, if given
//  2. .gatecrawl in the current directory
//  3. the XDG config directory
//  4. .gatecrawl in the home directory
//
// Returns the path if found, or empty string.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	p := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// SiteFor returns the merged site configuration for a hostname,
// falling back to the file defaults for unset fields.
func (f *File) SiteFor(host string) SiteConfig {
	if f == nil {
		return SiteConfig{}
	}
	site, ok := f.Sites[host]
	if !ok {
		return f.Defaults
	}
	return mergeSiteConfig(f.Defaults, site)
}

// mergeSiteConfig overlays non-zero override fields on the defaults.
func mergeSiteConfig(defaults, override SiteConfig) SiteConfig {
	result := defaults
	if override.Username != "" {
		result.Username = override.Username
	}
	if override.Password != "" {
		result.Password = override.Password
	}
	if override.Prefix != "" {
		result.Prefix = override.Prefix
	}
	if override.LoginPath != "" {
		result.LoginPath = override.LoginPath
	}
	if override.Workers > 0 {
		result.Workers = override.Workers
	}
	return result
}
