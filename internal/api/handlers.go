package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"davlibrary/internal/library"
	"davlibrary/internal/media"
	"davlibrary/internal/storage"
)

const Version = "0.1.0"

// CatalogInterface is the live catalog served by the API.
type CatalogInterface interface {
	TestConnection(ctx context.Context) library.ConnectionResult
	FetchLibraries(ctx context.Context) []library.Library
	FetchMovies(ctx context.Context) []library.Movie
	FetchSeries(ctx context.Context) []library.Series
	FetchSeasons(ctx context.Context, seriesID string) ([]library.Season, error)
	FetchEpisodes(ctx context.Context, seriesID, seasonID string) ([]library.Episode, error)
	StreamURL(itemID string) string
}

type SyncerInterface interface {
	Run(ctx context.Context) (*storage.SyncRun, error)
	IsRunning() bool
	LastRun(ctx context.Context) (*storage.SyncRun, error)
}

type SnapshotReader interface {
	ListLibraries(ctx context.Context) ([]storage.LibraryRecord, error)
	ListMovies(ctx context.Context) ([]storage.MovieRecord, error)
	ListSeries(ctx context.Context) ([]storage.SeriesRecord, error)
}

type StreamerInterface interface {
	Proxy(w http.ResponseWriter, r *http.Request, itemID string)
}

type Handler struct {
	catalog   CatalogInterface
	logger    zerolog.Logger
	syncer    SyncerInterface
	snapshots SnapshotReader
	streamer  StreamerInterface
}

func NewHandler(catalog CatalogInterface, logger zerolog.Logger) *Handler {
	return &Handler{
		catalog: catalog,
		logger:  logger,
	}
}

func (h *Handler) SetSyncer(syncer SyncerInterface) {
	h.syncer = syncer
}

func (h *Handler) SetSnapshots(snapshots SnapshotReader) {
	h.snapshots = snapshots
}

func (h *Handler) SetStreamer(streamer StreamerInterface) {
	h.streamer = streamer
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.TestConnection(r.Context()))
}

func (h *Handler) GetLibraries(w http.ResponseWriter, r *http.Request) {
	libs := h.catalog.FetchLibraries(r.Context())
	if libs == nil {
		libs = []library.Library{}
	}
	writeJSON(w, http.StatusOK, LibrariesResponse{Items: libs})
}

func (h *Handler) GetMovies(w http.ResponseWriter, r *http.Request) {
	movies := h.catalog.FetchMovies(r.Context())
	if movies == nil {
		movies = []library.Movie{}
	}
	writeJSON(w, http.StatusOK, MoviesResponse{Items: movies, Total: len(movies)})
}

func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	series := h.catalog.FetchSeries(r.Context())
	if series == nil {
		series = []library.Series{}
	}
	writeJSON(w, http.StatusOK, SeriesResponse{Items: series, Total: len(series)})
}

func (h *Handler) GetSeasons(w http.ResponseWriter, r *http.Request) {
	seriesID := chi.URLParam(r, "id")

	seasons, err := h.catalog.FetchSeasons(r.Context(), seriesID)
	if err != nil {
		h.writeLookupError(w, err, seriesID)
		return
	}

	if seasons == nil {
		seasons = []library.Season{}
	}
	writeJSON(w, http.StatusOK, SeasonsResponse{SeriesID: seriesID, Items: seasons})
}

func (h *Handler) GetEpisodes(w http.ResponseWriter, r *http.Request) {
	seriesID := chi.URLParam(r, "id")
	seasonID := r.URL.Query().Get("season_id")

	episodes, err := h.catalog.FetchEpisodes(r.Context(), seriesID, seasonID)
	if err != nil {
		h.writeLookupError(w, err, seriesID)
		return
	}

	if episodes == nil {
		episodes = []library.Episode{}
	}
	writeJSON(w, http.StatusOK, EpisodesResponse{SeriesID: seriesID, SeasonID: seasonID, Items: episodes})
}

func (h *Handler) GetStreamURL(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	if _, err := media.DecodeItemID(itemID); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ITEM_ID", "Item id is not a valid encoded path")
		return
	}

	writeJSON(w, http.StatusOK, StreamURLResponse{
		ItemID:    itemID,
		StreamURL: h.catalog.StreamURL(itemID),
	})
}

func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.streamer == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Streaming not available")
		return
	}

	h.streamer.Proxy(w, r, chi.URLParam(r, "itemID"))
}

func (h *Handler) StartSync(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Sync not initialized")
		return
	}

	if h.syncer.IsRunning() {
		writeJSON(w, http.StatusOK, SyncResponse{
			Status:  "in_progress",
			Message: "Sync already in progress",
		})
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := h.syncer.Run(ctx); err != nil {
			if errors.Is(err, library.ErrSyncInProgress) {
				h.logger.Debug().Msg("sync request raced with a running sync")
				return
			}
			h.logger.Error().Err(err).Msg("sync failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, SyncResponse{
		Status:  "started",
		Message: "Library sync started",
	})
}

func (h *Handler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Sync not initialized")
		return
	}

	last, err := h.syncer.LastRun(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get last sync run")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get sync status")
		return
	}

	writeJSON(w, http.StatusOK, SyncStatusResponse{
		Running: h.syncer.IsRunning(),
		LastRun: last,
	})
}

func (h *Handler) GetSnapshotLibraries(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Snapshot store not available")
		return
	}

	libs, err := h.snapshots.ListLibraries(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list snapshot libraries")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list libraries")
		return
	}

	if libs == nil {
		libs = []storage.LibraryRecord{}
	}
	writeJSON(w, http.StatusOK, SnapshotLibrariesResponse{Items: libs})
}

func (h *Handler) GetSnapshotMovies(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Snapshot store not available")
		return
	}

	movies, err := h.snapshots.ListMovies(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list snapshot movies")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list movies")
		return
	}

	if movies == nil {
		movies = []storage.MovieRecord{}
	}
	writeJSON(w, http.StatusOK, SnapshotMoviesResponse{Items: movies})
}

func (h *Handler) GetSnapshotSeries(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Snapshot store not available")
		return
	}

	series, err := h.snapshots.ListSeries(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list snapshot series")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list series")
		return
	}

	if series == nil {
		series = []storage.SeriesRecord{}
	}
	writeJSON(w, http.StatusOK, SnapshotSeriesResponse{Items: series})
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error, seriesID string) {
	switch {
	case errors.Is(err, library.ErrSeriesNotFound):
		writeError(w, http.StatusNotFound, "SERIES_NOT_FOUND", "Series not found")
	case errors.Is(err, library.ErrSeasonNotFound):
		writeError(w, http.StatusNotFound, "SEASON_NOT_FOUND", "Season not found")
	default:
		h.logger.Error().Err(err).Str("series_id", seriesID).Msg("series lookup failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load series")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
