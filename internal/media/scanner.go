package media

import (
	"context"

	"github.com/rs/zerolog"

	"davlibrary/internal/webdav"
)

// DirectoryLister lists the immediate children of a remote folder, degrading
// failures to an empty listing.
type DirectoryLister interface {
	List(ctx context.Context, path string) []webdav.Entry
}

// Scanner walks remote folders collecting video files. It keeps no state
// between calls.
type Scanner struct {
	lister     DirectoryLister
	extensions ExtensionSet
	logger     zerolog.Logger
}

func NewScanner(lister DirectoryLister, extensions []string, logger zerolog.Logger) *Scanner {
	return &Scanner{
		lister:     lister,
		extensions: NewExtensionSet(extensions),
		logger:     logger,
	}
}

func (s *Scanner) IsVideo(name string) bool {
	return s.extensions.IsVideo(name)
}

// Scan returns the video files under path, descending into subfolders when
// recursive is set. The walk is depth-first and sequential.
func (s *Scanner) Scan(ctx context.Context, path string, recursive bool) []webdav.Entry {
	return s.scanDirectory(ctx, path, recursive, nil)
}

func (s *Scanner) scanDirectory(ctx context.Context, dirPath string, recursive bool, videos []webdav.Entry) []webdav.Entry {
	if ctx.Err() != nil {
		return videos
	}

	for _, entry := range s.lister.List(ctx, dirPath) {
		if entry.IsDir {
			if recursive {
				videos = s.scanDirectory(ctx, entry.Path, recursive, videos)
			}
			continue
		}

		if !s.extensions.IsVideo(entry.Name) {
			continue
		}

		videos = append(videos, entry)
		s.logger.Debug().
			Str("path", entry.Path).
			Msg("found video file")
	}

	return videos
}
