package library

import "errors"

var (
	ErrSeriesNotFound = errors.New("series not found")
	ErrSeasonNotFound = errors.New("season not found")

	// ErrSyncInProgress is returned when a sync is requested while one runs.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrIncompleteListing is returned by a sync that could not list every
	// folder. Nothing is pruned on such a run.
	ErrIncompleteListing = errors.New("incomplete listing")
)
