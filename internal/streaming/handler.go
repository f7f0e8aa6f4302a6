// Package streaming relays remote video files to clients.
package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"davlibrary/internal/config"
	"davlibrary/internal/media"
)

// Request headers forwarded to the WebDAV server.
var forwardHeaders = []string{"Range", "If-Range", "If-Modified-Since", "If-None-Match"}

// Response headers relayed back to the client.
var relayHeaders = []string{"Content-Length", "Content-Range", "Accept-Ranges", "Last-Modified", "ETag"}

// ProxyURLGenerator builds stream URLs that point back at this server.
type ProxyURLGenerator struct {
	publicURL string
}

func NewProxyURLGenerator(publicURL string) *ProxyURLGenerator {
	return &ProxyURLGenerator{publicURL: strings.TrimRight(publicURL, "/")}
}

func (g *ProxyURLGenerator) StreamURL(itemID string) string {
	return g.publicURL + "/api/v1/stream/" + url.PathEscape(itemID)
}

// Source opens remote files with the server's credentials.
type Source interface {
	FileURL(path string) string
	Stream(ctx context.Context, rawURL string, header http.Header) (*http.Response, error)
}

// Handler proxies video files that live beneath the configured media paths.
type Handler struct {
	source     Source
	cfg        config.WebDAVConfig
	extensions media.ExtensionSet
	logger     zerolog.Logger
}

func NewHandler(source Source, cfg config.WebDAVConfig, logger zerolog.Logger) *Handler {
	return &Handler{
		source:     source,
		cfg:        cfg,
		extensions: media.NewExtensionSet(cfg.Extensions()),
		logger:     logger,
	}
}

// Proxy streams the file behind itemID, passing range requests through so
// clients can seek.
func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request, itemID string) {
	filePath, err := media.DecodeItemID(itemID)
	if err != nil {
		http.Error(w, "Invalid item id", http.StatusBadRequest)
		return
	}

	// Anything outside the libraries looks missing rather than forbidden.
	filePath = config.NormalizePath(filePath)
	if _, ok := h.cfg.MediaPathFor(filePath); !ok || !h.extensions.IsVideo(filePath) {
		h.logger.Debug().Str("path", filePath).Msg("refusing to stream path outside media libraries")
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	header := http.Header{}
	for _, k := range forwardHeaders {
		if v := r.Header.Get(k); v != "" {
			header.Set(k, v)
		}
	}

	resp, err := h.source.Stream(r.Context(), h.source.FileURL(filePath), header)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			h.logger.Warn().Err(err).Str("path", filePath).Msg("failed to open remote file")
		}
		http.Error(w, "Upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		http.Error(w, "File not found", http.StatusNotFound)
		return
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable, resp.StatusCode == http.StatusNotModified:
	case resp.StatusCode >= 400:
		h.logger.Warn().Int("status", resp.StatusCode).Str("path", filePath).Msg("remote file request rejected")
		http.Error(w, "Upstream error", http.StatusBadGateway)
		return
	}

	for _, k := range relayHeaders {
		if v := resp.Header.Get(k); v != "" {
			w.Header().Set(k, v)
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = media.GetContentType(filePath)
	}
	w.Header().Set("Content-Type", contentType)

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && r.Context().Err() == nil {
		h.logger.Debug().Err(err).Str("path", filePath).Msg("stream interrupted")
	}
}
