package config

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Media kinds accepted for a configured library path.
const (
	KindMovies  = "movies"
	KindTVShows = "tvshows"
)

// Genre handling modes.
const (
	GenresPrimary = "primary"
	GenresAll     = "all"
)

var DefaultVideoExtensions = []string{
	"mp4", "mkv", "avi", "mov", "wmv", "flv", "webm", "m4v",
	"mpeg", "mpg", "ts", "m2ts", "mts", "vob",
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	WebDAV   WebDAVConfig   `yaml:"webdav"`
	Database DatabaseConfig `yaml:"database"`
	Sync     SyncConfig     `yaml:"sync"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PublicURL    string        `yaml:"public_url"` // used to build stream URLs handed to clients
}

// WebDAVConfig describes the remote server and the library folders on it.
type WebDAVConfig struct {
	Host            string      `yaml:"host"`
	Port            int         `yaml:"port"`
	SSL             bool        `yaml:"ssl"`
	Username        string      `yaml:"username"`
	Password        string      `yaml:"password"`
	MediaPaths      []MediaPath `yaml:"media_paths"`
	ScanRecursive   bool        `yaml:"scan_recursive"`
	GenreHandling   string      `yaml:"genre_handling"`
	VideoExtensions []string    `yaml:"video_extensions"`
}

// MediaPath is one configured library folder.
type MediaPath struct {
	Name   string   `yaml:"name"`
	Path   string   `yaml:"path"`
	Type   string   `yaml:"type"`
	Genres []string `yaml:"genres"` // extra genres tagged after Name
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SyncConfig struct {
	Interval time.Duration `yaml:"interval"` // 0 disables periodic sync
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// BaseURL returns scheme://host:port of the WebDAV server.
func (w WebDAVConfig) BaseURL() string {
	scheme := "http"
	if w.SSL {
		scheme = "https"
	}
	host := strings.TrimSuffix(w.Host, "/")
	if w.Port == 0 {
		return scheme + "://" + host
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, w.Port)
}

// Extensions returns the effective video extension allow-list.
func (w WebDAVConfig) Extensions() []string {
	if len(w.VideoExtensions) == 0 {
		return DefaultVideoExtensions
	}
	return w.VideoExtensions
}

// PathsOfKind returns the configured paths of the given media kind, in order.
func (w WebDAVConfig) PathsOfKind(kind string) []MediaPath {
	var out []MediaPath
	for _, p := range w.MediaPaths {
		if p.Type == kind {
			out = append(out, p)
		}
	}
	return out
}

// MediaPathFor returns the media path that p equals or lies beneath. Paths
// are cleaned first and compared by whole segments, so "/media/tvx" is not
// under "/media/tv".
func (w WebDAVConfig) MediaPathFor(p string) (MediaPath, bool) {
	p = NormalizePath(p)
	if p == "" {
		return MediaPath{}, false
	}
	for _, mp := range w.MediaPaths {
		root := NormalizePath(mp.Path)
		if root == "" {
			continue
		}
		if p == root || strings.HasPrefix(p, strings.TrimSuffix(root, "/")+"/") {
			return mp, true
		}
	}
	return MediaPath{}, false
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         6540,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0,
		},
		WebDAV: WebDAVConfig{
			Port:          0,
			ScanRecursive: true,
			GenreHandling: GenresPrimary,
		},
		Database: DatabaseConfig{
			Path: "data/library.db",
		},
		Sync: SyncConfig{
			Interval: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads the YAML file at path on top of the defaults. A missing file
// yields the defaults, which fail validation until a WebDAV host is set.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err == nil {
			content := substituteEnvVars(string(data))
			if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	cfg.normalize()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &ConfigError{Path: path, Errors: errs}
	}

	return cfg, nil
}

func (c *Config) normalize() {
	if c.Server.PublicURL == "" {
		host := c.Server.Host
		if host == "" || host == "0.0.0.0" {
			host = "localhost"
		}
		c.Server.PublicURL = fmt.Sprintf("http://%s:%d", host, c.Server.Port)
	}
	c.Server.PublicURL = strings.TrimRight(c.Server.PublicURL, "/")

	c.WebDAV.GenreHandling = strings.ToLower(strings.TrimSpace(c.WebDAV.GenreHandling))
	if c.WebDAV.GenreHandling == "" {
		c.WebDAV.GenreHandling = GenresPrimary
	}

	for i := range c.WebDAV.MediaPaths {
		p := &c.WebDAV.MediaPaths[i]
		p.Name = strings.TrimSpace(p.Name)
		p.Type = strings.ToLower(strings.TrimSpace(p.Type))
		p.Path = NormalizePath(p.Path)
		if p.Name == "" {
			p.Name = path.Base(p.Path)
		}
	}

	exts := make([]string, 0, len(c.WebDAV.VideoExtensions))
	for _, ext := range c.WebDAV.VideoExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	c.WebDAV.VideoExtensions = exts
}

// NormalizePath makes p absolute and strips any trailing slash (except for root).
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1]
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return match
	})
}
