package webdav

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

const propfindBody = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop>
    <d:resourcetype/>
    <d:getcontentlength/>
    <d:displayname/>
  </d:prop>
</d:propfind>`

// Lister turns PROPFIND responses into directory listings.
type Lister struct {
	doer    Doer
	baseURL string
	logger  zerolog.Logger
}

func NewLister(doer Doer, baseURL string, logger zerolog.Logger) *Lister {
	return &Lister{
		doer:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// CollectionURL returns the URL PROPFIND is sent to: the escaped path with
// exactly one trailing slash.
func (l *Lister) CollectionURL(path string) string {
	escaped := strings.TrimRight(escapePath(path), "/")
	return l.baseURL + escaped + "/"
}

// ListDir lists the immediate children of path and reports every failure.
func (l *Lister) ListDir(ctx context.Context, path string) ([]Entry, error) {
	target := l.CollectionURL(path)

	header := http.Header{}
	header.Set("Depth", "1")
	header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := l.doer.Do(ctx, MethodPropfind, target, header, strings.NewReader(propfindBody))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &ProtocolError{Method: MethodPropfind, URL: target, StatusCode: resp.StatusCode}
	}

	return ParseMultistatus(resp.Body, path)
}

// List is ListDir with every failure logged and degraded to an empty
// listing, so one unreachable folder does not abort a whole scan. The
// failure is still recorded when ctx carries a ListFailures.
func (l *Lister) List(ctx context.Context, path string) []Entry {
	entries, err := l.ListDir(ctx, path)
	if err == nil {
		return entries
	}
	recordFailure(ctx, path)

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		l.logger.Error().Err(err).Str("path", path).Msg("malformed multistatus response")
	} else {
		l.logger.Warn().Err(err).Str("path", path).Msg("failed to list directory")
	}
	return nil
}
