package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ConfigError aggregates configuration validation errors.
type ConfigError struct {
	Path   string
	Errors []string
}

func (e *ConfigError) Error() string {
	if len(e.Errors) == 0 {
		return ""
	}
	parts := []string{"validation failed:"}
	if e.Path != "" {
		parts[0] = fmt.Sprintf("%s: validation failed:", e.Path)
	}
	for _, err := range e.Errors {
		parts = append(parts, "  - "+err)
	}
	return strings.Join(parts, "\n")
}

// Validate checks the configuration. Returns an empty slice when valid.
func (c *Config) Validate() []string {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}

	if strings.TrimSpace(c.WebDAV.Host) == "" {
		errs = append(errs, "webdav.host: required")
	}
	if c.WebDAV.Port < 0 || c.WebDAV.Port > 65535 {
		errs = append(errs, fmt.Sprintf("webdav.port: must be between 0 and 65535, got %d", c.WebDAV.Port))
	}
	if c.WebDAV.Password != "" && c.WebDAV.Username == "" {
		errs = append(errs, "webdav.username: required when a password is set")
	}

	switch c.WebDAV.GenreHandling {
	case GenresPrimary, GenresAll:
	default:
		errs = append(errs, fmt.Sprintf("webdav.genre_handling: must be one of primary, all; got %q", c.WebDAV.GenreHandling))
	}

	for i, p := range c.WebDAV.MediaPaths {
		if p.Path == "" {
			errs = append(errs, fmt.Sprintf("webdav.media_paths[%d].path: required", i))
		}
		if p.Type != KindMovies && p.Type != KindTVShows {
			errs = append(errs, fmt.Sprintf("webdav.media_paths[%d].type: must be one of movies, tvshows; got %q", i, p.Type))
		}
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Sprintf("logging.level: unknown level %q", c.Logging.Level))
	}

	if c.Sync.Interval < 0 {
		errs = append(errs, "sync.interval: must not be negative")
	}

	return errs
}
