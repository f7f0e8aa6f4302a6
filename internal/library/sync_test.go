package library

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"davlibrary/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSyncer_Run(t *testing.T) {
	dav := newFakeDAV(t, standardTree())
	svc := newTestService(t, dav, dav.webdavConfig(moviesPath, tvPath))
	store := newTestStore(t)
	syncer := NewSyncer(svc, store, zerolog.Nop())
	ctx := context.Background()

	run, err := syncer.Run(ctx)
	require.NoError(t, err)

	_, err = uuid.Parse(run.ID)
	assert.NoError(t, err)
	assert.Equal(t, storage.SyncSucceeded, run.Status)
	assert.Equal(t, 2, run.Libraries)
	assert.Equal(t, 2, run.Movies)
	assert.Equal(t, 2, run.Series)
	assert.Zero(t, run.Removed)
	assert.False(t, syncer.IsRunning())

	movies, err := store.ListMovies(ctx)
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "In Your Dreams", movies[0].Title)
	assert.Equal(t, "http://proxy.test/stream/"+movies[0].ItemID, movies[0].StreamURL)

	last, err := syncer.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, run.ID, last.ID)
	assert.Equal(t, storage.SyncSucceeded, last.Status)
}

func TestSyncer_PrunesVanishedItems(t *testing.T) {
	tree := standardTree()
	dav := newFakeDAV(t, tree)
	svc := newTestService(t, dav, dav.webdavConfig(moviesPath, tvPath))
	store := newTestStore(t)
	syncer := NewSyncer(svc, store, zerolog.Nop())
	ctx := context.Background()

	_, err := syncer.Run(ctx)
	require.NoError(t, err)

	dav.mu.Lock()
	tree["/media/movies"] = []string{"In Your Dreams (2020)/"}
	tree["/media/tv"] = []string{"Flat Show/"}
	dav.mu.Unlock()

	run, err := syncer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Removed)

	movies, err := store.ListMovies(ctx)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "In Your Dreams", movies[0].Title)

	series, err := store.ListSeries(ctx)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "Flat Show", series[0].Name)
}

// blockingCatalog holds FetchLibraries until release is closed.
type blockingCatalog struct {
	entered chan struct{}
	release chan struct{}
}

func (c *blockingCatalog) FetchLibraries(ctx context.Context) []Library {
	close(c.entered)
	<-c.release
	return nil
}

func (c *blockingCatalog) FetchMovies(ctx context.Context) []Movie  { return nil }
func (c *blockingCatalog) FetchSeries(ctx context.Context) []Series { return nil }
func (c *blockingCatalog) StreamURL(itemID string) string           { return "" }

func TestSyncer_RejectsConcurrentRun(t *testing.T) {
	catalog := &blockingCatalog{entered: make(chan struct{}), release: make(chan struct{})}
	syncer := NewSyncer(catalog, newTestStore(t), zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := syncer.Run(context.Background())
		done <- err
	}()

	<-catalog.entered
	assert.True(t, syncer.IsRunning())

	_, err := syncer.Run(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(catalog.release)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not finish")
	}
	assert.False(t, syncer.IsRunning())
}

func TestSyncer_CanceledRunSkipsPrune(t *testing.T) {
	dav := newFakeDAV(t, standardTree())
	svc := newTestService(t, dav, dav.webdavConfig(moviesPath, tvPath))
	store := newTestStore(t)
	syncer := NewSyncer(svc, store, zerolog.Nop())

	_, err := syncer.Run(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := syncer.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, run)
	assert.Equal(t, storage.SyncFailed, run.Status)

	movies, err := store.ListMovies(context.Background())
	require.NoError(t, err)
	assert.Len(t, movies, 2)

	last, err := syncer.LastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, storage.SyncFailed, last.Status)
	assert.NotEmpty(t, last.Error)
}

func TestSyncer_UnreachableServerKeepsSnapshot(t *testing.T) {
	dav := newFakeDAV(t, standardTree())
	svc := newTestService(t, dav, dav.webdavConfig(moviesPath, tvPath))
	store := newTestStore(t)
	syncer := NewSyncer(svc, store, zerolog.Nop())
	ctx := context.Background()

	_, err := syncer.Run(ctx)
	require.NoError(t, err)

	dav.Close()

	run, err := syncer.Run(ctx)
	require.ErrorIs(t, err, ErrIncompleteListing)
	require.NotNil(t, run)
	assert.Equal(t, storage.SyncPartial, run.Status)
	assert.Zero(t, run.Removed)
	assert.Contains(t, run.Error, "/media/movies")
	assert.Contains(t, run.Error, "/media/tv")

	movies, err := store.ListMovies(ctx)
	require.NoError(t, err)
	assert.Len(t, movies, 2)

	series, err := store.ListSeries(ctx)
	require.NoError(t, err)
	assert.Len(t, series, 2)

	libs, err := store.ListLibraries(ctx)
	require.NoError(t, err)
	require.Len(t, libs, 2)
	counts := map[string]int{}
	for _, l := range libs {
		counts[l.Name] = l.ItemCount
	}
	assert.Equal(t, 2, counts["Movies"])

	last, err := syncer.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, last.ID)
	assert.Equal(t, storage.SyncPartial, last.Status)
}

func TestSyncer_FailedFolderSkipsPrune(t *testing.T) {
	tree := standardTree()
	dav := newFakeDAV(t, tree)
	svc := newTestService(t, dav, dav.webdavConfig(moviesPath, tvPath))
	store := newTestStore(t)
	syncer := NewSyncer(svc, store, zerolog.Nop())
	ctx := context.Background()

	_, err := syncer.Run(ctx)
	require.NoError(t, err)

	// One movie really vanished, the other sits in a folder that now errors.
	dav.mu.Lock()
	tree["/media/movies"] = []string{"In Your Dreams (2020)/"}
	delete(tree, "/media/movies/In Your Dreams (2020)")
	dav.mu.Unlock()

	run, err := syncer.Run(ctx)
	require.ErrorIs(t, err, ErrIncompleteListing)
	assert.Equal(t, storage.SyncPartial, run.Status)
	assert.Equal(t, 2, run.Series)
	assert.Zero(t, run.Removed)

	movies, err := store.ListMovies(ctx)
	require.NoError(t, err)
	assert.Len(t, movies, 2)

	// Once the folder lists again the vanished movie is pruned.
	dav.mu.Lock()
	tree["/media/movies/In Your Dreams (2020)"] = []string{"In Your Dreams (2020).mp4"}
	dav.mu.Unlock()

	run, err = syncer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.SyncSucceeded, run.Status)
	assert.Equal(t, 1, run.Removed)

	movies, err = store.ListMovies(ctx)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "In Your Dreams", movies[0].Title)
}
