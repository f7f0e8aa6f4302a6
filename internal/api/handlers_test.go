package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"davlibrary/internal/library"
	"davlibrary/internal/media"
	"davlibrary/internal/storage"
)

type fakeCatalog struct {
	seasonsErr  error
	episodesErr error

	gotSeriesID string
	gotSeasonID string
}

func (c *fakeCatalog) TestConnection(ctx context.Context) library.ConnectionResult {
	return library.ConnectionResult{Success: true, Message: "ok", PathsFound: 1}
}

func (c *fakeCatalog) FetchLibraries(ctx context.Context) []library.Library {
	return []library.Library{{ID: "lib1", Name: "Movies", Type: "movies", ItemCount: 1, Path: "/media/movies"}}
}

func (c *fakeCatalog) FetchMovies(ctx context.Context) []library.Movie {
	return []library.Movie{{ID: "m1", Title: "Movie Title", Genres: []string{"Movies"}}}
}

func (c *fakeCatalog) FetchSeries(ctx context.Context) []library.Series {
	return nil
}

func (c *fakeCatalog) FetchSeasons(ctx context.Context, seriesID string) ([]library.Season, error) {
	c.gotSeriesID = seriesID
	if c.seasonsErr != nil {
		return nil, c.seasonsErr
	}
	return []library.Season{{ID: "s1", SeriesID: seriesID, Name: "Season 1", IndexNumber: 1}}, nil
}

func (c *fakeCatalog) FetchEpisodes(ctx context.Context, seriesID, seasonID string) ([]library.Episode, error) {
	c.gotSeriesID = seriesID
	c.gotSeasonID = seasonID
	if c.episodesErr != nil {
		return nil, c.episodesErr
	}
	return []library.Episode{{ID: "e1", Name: "Pilot", IndexNumber: 1, ParentIndexNumber: 1}}, nil
}

func (c *fakeCatalog) StreamURL(itemID string) string {
	return "http://proxy.test/api/v1/stream/" + itemID
}

type fakeSyncer struct {
	mu      sync.Mutex
	running bool
	runs    int
	ran     chan struct{}
	last    *storage.SyncRun
}

func (s *fakeSyncer) Run(ctx context.Context) (*storage.SyncRun, error) {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
	close(s.ran)
	return &storage.SyncRun{ID: "run"}, nil
}

func (s *fakeSyncer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *fakeSyncer) LastRun(ctx context.Context) (*storage.SyncRun, error) {
	return s.last, nil
}

type fakeSnapshots struct {
	err error
}

func (s *fakeSnapshots) ListLibraries(ctx context.Context) ([]storage.LibraryRecord, error) {
	return []storage.LibraryRecord{{ID: "l1", Name: "Movies", ItemCount: 3}}, s.err
}

func (s *fakeSnapshots) ListMovies(ctx context.Context) ([]storage.MovieRecord, error) {
	return []storage.MovieRecord{{ID: "m1", Title: "Stored"}}, s.err
}

func (s *fakeSnapshots) ListSeries(ctx context.Context) ([]storage.SeriesRecord, error) {
	return nil, s.err
}

type fakeStreamer struct {
	itemID string
}

func (s *fakeStreamer) Proxy(w http.ResponseWriter, r *http.Request, itemID string) {
	s.itemID = itemID
	w.WriteHeader(http.StatusPartialContent)
}

// withParams attaches chi URL params to a request the way the router would.
func withParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	h := NewHandler(&fakeCatalog{}, zerolog.Nop())
	rec := httptest.NewRecorder()

	h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, Version, decode[HealthResponse](t, rec).Version)
}

func TestCatalogListings(t *testing.T) {
	h := NewHandler(&fakeCatalog{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetLibraries(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, decode[LibrariesResponse](t, rec).Items, 1)

	rec = httptest.NewRecorder()
	h.GetMovies(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	movies := decode[MoviesResponse](t, rec)
	assert.Equal(t, 1, movies.Total)
	assert.Equal(t, "Movie Title", movies.Items[0].Title)

	rec = httptest.NewRecorder()
	h.GetSeries(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"items":[],"total":0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.TestConnection(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, decode[library.ConnectionResult](t, rec).Success)
}

func TestGetSeasons(t *testing.T) {
	catalog := &fakeCatalog{}
	h := NewHandler(catalog, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetSeasons(rec, withParams(httptest.NewRequest(http.MethodGet, "/", nil), "id", "abc"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", catalog.gotSeriesID)
	assert.Equal(t, "Season 1", decode[SeasonsResponse](t, rec).Items[0].Name)
}

func TestGetEpisodes_PassesSeasonQuery(t *testing.T) {
	catalog := &fakeCatalog{}
	h := NewHandler(catalog, zerolog.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?season_id=s1", nil)
	h.GetEpisodes(rec, withParams(req, "id", "abc"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", catalog.gotSeriesID)
	assert.Equal(t, "s1", catalog.gotSeasonID)
	assert.Equal(t, "s1", decode[EpisodesResponse](t, rec).SeasonID)
}

func TestLookupErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"unknown series", fmt.Errorf("%w: x", library.ErrSeriesNotFound), http.StatusNotFound, "SERIES_NOT_FOUND"},
		{"unknown season", fmt.Errorf("%w: y", library.ErrSeasonNotFound), http.StatusNotFound, "SEASON_NOT_FOUND"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeCatalog{episodesErr: tt.err}, zerolog.Nop())
			rec := httptest.NewRecorder()
			h.GetEpisodes(rec, withParams(httptest.NewRequest(http.MethodGet, "/", nil), "id", "x"))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, decode[ErrorResponse](t, rec).Error.Code)
		})
	}
}

func TestGetStreamURL(t *testing.T) {
	h := NewHandler(&fakeCatalog{}, zerolog.Nop())
	itemID := media.EncodeItemID("/media/movies/a.mkv")

	rec := httptest.NewRecorder()
	h.GetStreamURL(rec, withParams(httptest.NewRequest(http.MethodGet, "/", nil), "itemID", itemID))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://proxy.test/api/v1/stream/"+itemID, decode[StreamURLResponse](t, rec).StreamURL)

	rec = httptest.NewRecorder()
	h.GetStreamURL(rec, withParams(httptest.NewRequest(http.MethodGet, "/", nil), "itemID", "bogus!"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStream(t *testing.T) {
	h := NewHandler(&fakeCatalog{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Stream(rec, withParams(httptest.NewRequest(http.MethodGet, "/", nil), "itemID", "abc"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	streamer := &fakeStreamer{}
	h.SetStreamer(streamer)
	rec = httptest.NewRecorder()
	h.Stream(rec, withParams(httptest.NewRequest(http.MethodGet, "/", nil), "itemID", "abc"))
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "abc", streamer.itemID)
}

func TestStartSync(t *testing.T) {
	h := NewHandler(&fakeCatalog{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.StartSync(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	syncer := &fakeSyncer{ran: make(chan struct{})}
	h.SetSyncer(syncer)

	rec = httptest.NewRecorder()
	h.StartSync(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "started", decode[SyncResponse](t, rec).Status)

	select {
	case <-syncer.ran:
	case <-time.After(5 * time.Second):
		t.Fatal("sync was not started")
	}
}

func TestStartSync_AlreadyRunning(t *testing.T) {
	syncer := &fakeSyncer{running: true, ran: make(chan struct{})}
	h := NewHandler(&fakeCatalog{}, zerolog.Nop())
	h.SetSyncer(syncer)

	rec := httptest.NewRecorder()
	h.StartSync(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "in_progress", decode[SyncResponse](t, rec).Status)
	assert.Zero(t, syncer.runs)
}

func TestGetSyncStatus(t *testing.T) {
	h := NewHandler(&fakeCatalog{}, zerolog.Nop())
	h.SetSyncer(&fakeSyncer{last: &storage.SyncRun{ID: "r1", Status: storage.SyncSucceeded}})

	rec := httptest.NewRecorder()
	h.GetSyncStatus(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	status := decode[SyncStatusResponse](t, rec)
	assert.False(t, status.Running)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, "r1", status.LastRun.ID)
}

func TestSnapshots(t *testing.T) {
	h := NewHandler(&fakeCatalog{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetSnapshotMovies(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.GetSnapshotLibraries(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.SetSnapshots(&fakeSnapshots{})
	rec = httptest.NewRecorder()
	h.GetSnapshotLibraries(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	libs := decode[SnapshotLibrariesResponse](t, rec).Items
	require.Len(t, libs, 1)
	assert.Equal(t, "Movies", libs[0].Name)
	assert.Equal(t, 3, libs[0].ItemCount)

	rec = httptest.NewRecorder()
	h.GetSnapshotMovies(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "Stored", decode[SnapshotMoviesResponse](t, rec).Items[0].Title)

	rec = httptest.NewRecorder()
	h.GetSnapshotSeries(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())

	h.SetSnapshots(&fakeSnapshots{err: errors.New("db closed")})
	rec = httptest.NewRecorder()
	h.GetSnapshotSeries(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	h.GetSnapshotLibraries(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
