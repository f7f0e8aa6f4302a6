// Package library groups remote video files into libraries, movies and series.
package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"davlibrary/internal/config"
	"davlibrary/internal/media"
	"davlibrary/internal/webdav"
)

const uncategorized = "Uncategorized"

// StreamURLGenerator builds the client-facing stream URL for an item id.
type StreamURLGenerator interface {
	StreamURL(itemID string) string
}

// DirectoryLister is the subset of webdav.Lister the service needs.
type DirectoryLister interface {
	ListDir(ctx context.Context, path string) ([]webdav.Entry, error)
	List(ctx context.Context, path string) []webdav.Entry
}

// Service answers catalog questions by walking the WebDAV server. Every call
// recomputes from the remote state; nothing is cached.
type Service struct {
	cfg     config.WebDAVConfig
	lister  DirectoryLister
	scanner *media.Scanner
	streams StreamURLGenerator
	logger  zerolog.Logger
}

func NewService(cfg config.WebDAVConfig, doer webdav.Doer, streams StreamURLGenerator, logger zerolog.Logger) *Service {
	lister := webdav.NewLister(doer, cfg.BaseURL(), logger)
	return NewServiceWithLister(cfg, lister, streams, logger)
}

func NewServiceWithLister(cfg config.WebDAVConfig, lister DirectoryLister, streams StreamURLGenerator, logger zerolog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		lister:  lister,
		scanner: media.NewScanner(lister, cfg.Extensions(), logger),
		streams: streams,
		logger:  logger,
	}
}

// TestConnection checks every configured path and reports what it found.
// It succeeds when at least one path is reachable; failures for the other
// paths are listed in the message.
func (s *Service) TestConnection(ctx context.Context) ConnectionResult {
	if len(s.cfg.MediaPaths) == 0 {
		if _, err := s.lister.ListDir(ctx, "/"); err != nil {
			return ConnectionResult{Message: "Connection failed: " + err.Error()}
		}
		return ConnectionResult{
			Success: true,
			Message: fmt.Sprintf("Connected to %s, but no media paths are configured", s.cfg.BaseURL()),
		}
	}

	var (
		found    int
		total    int
		bytes    uint64
		problems []string
	)
	for _, p := range s.cfg.MediaPaths {
		if _, err := s.lister.ListDir(ctx, p.Path); err != nil {
			s.logger.Warn().Err(err).Str("path", p.Path).Msg("media path unreachable")
			problems = append(problems, fmt.Sprintf("Path '%s' (%s): %v", p.Name, p.Path, err))
			continue
		}
		found++
		for _, f := range s.scanner.Scan(ctx, p.Path, s.cfg.ScanRecursive) {
			total++
			if f.Size != nil {
				bytes += uint64(*f.Size)
			}
		}
	}

	if found == 0 {
		return ConnectionResult{Message: "Connection failed: " + strings.Join(problems, "; ")}
	}

	msg := fmt.Sprintf("Connected successfully. Found %d video files (%s) in %d of %d paths.",
		total, humanize.Bytes(bytes), found, len(s.cfg.MediaPaths))
	if len(problems) > 0 {
		msg += " Warnings: " + strings.Join(problems, "; ")
	}

	return ConnectionResult{
		Success:    true,
		Message:    msg,
		PathsFound: found,
		TotalFiles: total,
	}
}

// FetchLibraries returns one library per configured path.
func (s *Service) FetchLibraries(ctx context.Context) []Library {
	libraries := make([]Library, 0, len(s.cfg.MediaPaths))
	for _, p := range s.cfg.MediaPaths {
		libraries = append(libraries, Library{
			ID:        media.GenerateID(p.Path),
			Name:      p.Name,
			Type:      p.Type,
			ItemCount: len(s.scanner.Scan(ctx, p.Path, true)),
			Path:      p.Path,
		})
	}
	return libraries
}

// FetchMovies scans every movie path and parses each video filename.
func (s *Service) FetchMovies(ctx context.Context) []Movie {
	var movies []Movie
	seen := make(map[string]bool)

	for _, p := range s.cfg.PathsOfKind(config.KindMovies) {
		genres := s.genresFor(p)
		files := s.scanner.Scan(ctx, p.Path, s.cfg.ScanRecursive)

		s.logger.Debug().
			Str("path", p.Path).
			Int("files", len(files)).
			Msg("scanned movie path")

		for _, f := range files {
			id := media.GenerateID(f.Path)
			if seen[id] {
				continue
			}
			seen[id] = true

			info := media.ParseMovie(f.Name)
			movies = append(movies, Movie{
				ID:             id,
				ItemID:         media.EncodeItemID(f.Path),
				Title:          info.Title,
				OriginalTitle:  info.Title,
				ProductionYear: info.Year,
				Path:           f.Path,
				Container:      info.Container,
				Genres:         append([]string(nil), genres...),
				MediaSources:   []MediaSource{{Container: info.Container, Path: f.Path, Size: f.Size}},
			})
		}
	}

	return movies
}

func (s *Service) StreamURL(itemID string) string {
	if s.streams == nil {
		return ""
	}
	return s.streams.StreamURL(itemID)
}

// FileURL returns the authenticated-fetch URL for a server path.
func (s *Service) FileURL(path string) string {
	return webdav.FileURL(s.cfg.BaseURL(), path)
}

// Credentials returns the basic-auth pair for fetching FileURL directly.
func (s *Service) Credentials() webdav.Credentials {
	return webdav.Credentials{Username: s.cfg.Username, Password: s.cfg.Password}
}

// genresFor returns the genres tagged on items of a configured path.
func (s *Service) genresFor(p config.MediaPath) []string {
	return applyGenreMode(mergeGenres(nil, append([]string{p.Name}, p.Genres...)), s.cfg.GenreHandling)
}

// mergeGenres appends the non-empty genres of add that are not yet in base.
func mergeGenres(base, add []string) []string {
	out := append([]string(nil), base...)
	for _, g := range add {
		g = strings.TrimSpace(g)
		if g == "" || g == uncategorized {
			continue
		}
		dup := false
		for _, have := range out {
			if strings.EqualFold(have, g) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, g)
		}
	}
	return out
}

// applyGenreMode keeps only the first genre in primary mode and never
// returns an empty list.
func applyGenreMode(genres []string, mode string) []string {
	if len(genres) == 0 {
		return []string{uncategorized}
	}
	if mode == config.GenresPrimary {
		return genres[:1]
	}
	return genres
}
