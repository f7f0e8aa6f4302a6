package api

import (
	"davlibrary/internal/library"
	"davlibrary/internal/storage"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type LibrariesResponse struct {
	Items []library.Library `json:"items"`
}

type MoviesResponse struct {
	Items []library.Movie `json:"items"`
	Total int             `json:"total"`
}

type SeriesResponse struct {
	Items []library.Series `json:"items"`
	Total int              `json:"total"`
}

type SeasonsResponse struct {
	SeriesID string           `json:"series_id"`
	Items    []library.Season `json:"items"`
}

type EpisodesResponse struct {
	SeriesID string            `json:"series_id"`
	SeasonID string            `json:"season_id,omitempty"`
	Items    []library.Episode `json:"items"`
}

type StreamURLResponse struct {
	ItemID    string `json:"item_id"`
	StreamURL string `json:"stream_url"`
}

type SyncResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type SyncStatusResponse struct {
	Running bool             `json:"running"`
	LastRun *storage.SyncRun `json:"last_run"`
}

type SnapshotLibrariesResponse struct {
	Items []storage.LibraryRecord `json:"items"`
}

type SnapshotMoviesResponse struct {
	Items []storage.MovieRecord `json:"items"`
}

type SnapshotSeriesResponse struct {
	Items []storage.SeriesRecord `json:"items"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
