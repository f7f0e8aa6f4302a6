package storage

import "time"

// Sync run states.
const (
	SyncRunning   = "running"
	SyncSucceeded = "succeeded"
	SyncFailed    = "failed"

	// SyncPartial: some folders failed to list, so nothing was pruned.
	SyncPartial = "partial"
)

type LibraryRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Path      string    `json:"path"`
	ItemCount int       `json:"item_count"`
	SyncedAt  time.Time `json:"synced_at"`
}

type MovieRecord struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	Title     string    `json:"title"`
	Year      *int      `json:"production_year,omitempty"`
	Path      string    `json:"path"`
	Container string    `json:"container"`
	Size      *int64    `json:"size,omitempty"`
	Genres    []string  `json:"genres"`
	StreamURL string    `json:"stream_url,omitempty"`
	SyncedAt  time.Time `json:"synced_at"`
}

type SeriesRecord struct {
	ID       string    `json:"id"`
	ItemID   string    `json:"item_id"`
	Name     string    `json:"name"`
	Year     *int      `json:"production_year,omitempty"`
	Path     string    `json:"path"`
	Genres   []string  `json:"genres"`
	SyncedAt time.Time `json:"synced_at"`
}

// SyncRun is one pass of copying the remote catalog into the store.
type SyncRun struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Libraries  int        `json:"libraries"`
	Movies     int        `json:"movies"`
	Series     int        `json:"series"`
	Removed    int        `json:"removed"`
	Error      string     `json:"error,omitempty"`
}
