package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"davlibrary/internal/storage"
	"davlibrary/internal/webdav"
)

// Catalog is the live view a Syncer copies from.
type Catalog interface {
	FetchLibraries(ctx context.Context) []Library
	FetchMovies(ctx context.Context) []Movie
	FetchSeries(ctx context.Context) []Series
	StreamURL(itemID string) string
}

// SnapshotStore is the persisted view a Syncer copies into.
type SnapshotStore interface {
	ReplaceLibraries(ctx context.Context, libs []storage.LibraryRecord) error
	UpsertMovie(ctx context.Context, m *storage.MovieRecord) error
	UpsertSeries(ctx context.Context, s *storage.SeriesRecord) error
	PruneMovies(ctx context.Context, keep []string) (int, error)
	PruneSeries(ctx context.Context, keep []string) (int, error)
	StartSyncRun(ctx context.Context, id string, startedAt time.Time) error
	FinishSyncRun(ctx context.Context, run *storage.SyncRun) error
	LastSyncRun(ctx context.Context) (*storage.SyncRun, error)
}

// Syncer copies the live catalog into a SnapshotStore. Only one run is
// active at a time.
type Syncer struct {
	catalog Catalog
	store   SnapshotStore
	logger  zerolog.Logger

	mu      sync.Mutex
	running bool
}

func NewSyncer(catalog Catalog, store SnapshotStore, logger zerolog.Logger) *Syncer {
	return &Syncer{
		catalog: catalog,
		store:   store,
		logger:  logger,
	}
}

func (s *Syncer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastRun returns the most recent run, or nil before the first one.
func (s *Syncer) LastRun(ctx context.Context) (*storage.SyncRun, error) {
	return s.store.LastSyncRun(ctx)
}

// Run performs one sync and returns its record. It fails with
// ErrSyncInProgress when another run is active.
func (s *Syncer) Run(ctx context.Context) (*storage.SyncRun, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	run := &storage.SyncRun{
		ID:        uuid.NewString(),
		Status:    storage.SyncRunning,
		StartedAt: time.Now().UTC(),
	}
	// Run records are written even when ctx is already canceled.
	record := context.WithoutCancel(ctx)
	if err := s.store.StartSyncRun(record, run.ID, run.StartedAt); err != nil {
		return nil, fmt.Errorf("start sync run: %w", err)
	}

	log := s.logger.With().Str("run_id", run.ID).Logger()
	log.Info().Msg("sync started")

	syncErr := s.sync(ctx, run)

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	switch {
	case syncErr == nil:
		run.Status = storage.SyncSucceeded
	case errors.Is(syncErr, ErrIncompleteListing):
		run.Status = storage.SyncPartial
		run.Error = syncErr.Error()
	default:
		run.Status = storage.SyncFailed
		run.Error = syncErr.Error()
	}

	if err := s.store.FinishSyncRun(record, run); err != nil {
		log.Error().Err(err).Msg("failed to record sync run")
	}

	if run.Status == storage.SyncPartial {
		log.Warn().Err(syncErr).Int("movies", run.Movies).Int("series", run.Series).Msg("sync incomplete, nothing pruned")
		return run, syncErr
	}
	if syncErr != nil {
		log.Error().Err(syncErr).Msg("sync failed")
		return run, syncErr
	}

	log.Info().
		Int("libraries", run.Libraries).
		Int("movies", run.Movies).
		Int("series", run.Series).
		Int("removed", run.Removed).
		Dur("took", finished.Sub(run.StartedAt)).
		Msg("sync finished")

	return run, nil
}

// sync fetches the whole catalog before writing anything. Libraries are
// replaced and vanished items pruned only when every folder listed cleanly.
func (s *Syncer) sync(ctx context.Context, run *storage.SyncRun) error {
	now := run.StartedAt

	ctx, failures := webdav.WithListFailures(ctx)
	libs := s.catalog.FetchLibraries(ctx)
	movies := s.catalog.FetchMovies(ctx)
	series := s.catalog.FetchSeries(ctx)

	if err := ctx.Err(); err != nil {
		return err
	}
	failed := failures.Paths()

	if len(failed) == 0 {
		records := make([]storage.LibraryRecord, 0, len(libs))
		for _, l := range libs {
			records = append(records, storage.LibraryRecord{
				ID:        l.ID,
				Name:      l.Name,
				Type:      l.Type,
				Path:      l.Path,
				ItemCount: l.ItemCount,
				SyncedAt:  now,
			})
		}
		if err := s.store.ReplaceLibraries(ctx, records); err != nil {
			return fmt.Errorf("store libraries: %w", err)
		}
		run.Libraries = len(records)
	}

	movieIDs := make([]string, 0, len(movies))
	for _, m := range movies {
		var size *int64
		if len(m.MediaSources) > 0 {
			size = m.MediaSources[0].Size
		}
		if err := s.store.UpsertMovie(ctx, &storage.MovieRecord{
			ID:        m.ID,
			ItemID:    m.ItemID,
			Title:     m.Title,
			Year:      m.ProductionYear,
			Path:      m.Path,
			Container: m.Container,
			Size:      size,
			Genres:    m.Genres,
			StreamURL: s.catalog.StreamURL(m.ItemID),
			SyncedAt:  now,
		}); err != nil {
			return fmt.Errorf("store movie %s: %w", m.Path, err)
		}
		movieIDs = append(movieIDs, m.ID)
	}
	run.Movies = len(movies)

	seriesIDs := make([]string, 0, len(series))
	for _, sr := range series {
		if err := s.store.UpsertSeries(ctx, &storage.SeriesRecord{
			ID:       sr.ID,
			ItemID:   sr.ItemID,
			Name:     sr.Name,
			Year:     sr.ProductionYear,
			Path:     sr.Path,
			Genres:   sr.Genres,
			SyncedAt: now,
		}); err != nil {
			return fmt.Errorf("store series %s: %w", sr.Path, err)
		}
		seriesIDs = append(seriesIDs, sr.ID)
	}
	run.Series = len(series)

	if len(failed) > 0 {
		return fmt.Errorf("%w: %d folder(s) failed to list: %s",
			ErrIncompleteListing, len(failed), strings.Join(dedupe(failed), ", "))
	}

	removedMovies, err := s.store.PruneMovies(ctx, movieIDs)
	if err != nil {
		return fmt.Errorf("prune movies: %w", err)
	}
	removedSeries, err := s.store.PruneSeries(ctx, seriesIDs)
	if err != nil {
		return fmt.Errorf("prune series: %w", err)
	}
	run.Removed = removedMovies + removedSeries

	return nil
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
