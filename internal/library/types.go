package library

// Library is one configured media path with its video count.
type Library struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	ItemCount int    `json:"item_count"`
	Path      string `json:"path"`
}

type MediaSource struct {
	Container string `json:"container"`
	Path      string `json:"path"`
	Size      *int64 `json:"size,omitempty"`
}

type Movie struct {
	ID             string        `json:"id"`
	ItemID         string        `json:"item_id"`
	Title          string        `json:"title"`
	OriginalTitle  string        `json:"original_title"`
	ProductionYear *int          `json:"production_year,omitempty"`
	Path           string        `json:"path"`
	Container      string        `json:"container"`
	Genres         []string      `json:"genres"`
	MediaSources   []MediaSource `json:"media_sources"`
}

type Series struct {
	ID             string   `json:"id"`
	ItemID         string   `json:"item_id"`
	Name           string   `json:"name"`
	Path           string   `json:"path"`
	ProductionYear *int     `json:"production_year,omitempty"`
	Genres         []string `json:"genres"`
}

type Season struct {
	ID           string `json:"id"`
	SeriesID     string `json:"series_id"`
	Name         string `json:"name"`
	IndexNumber  int    `json:"index_number"`
	Path         string `json:"path"`
	EpisodeCount int    `json:"episode_count"`
}

type Episode struct {
	ID                string        `json:"id"`
	ItemID            string        `json:"item_id"`
	SeriesName        string        `json:"series_name"`
	Name              string        `json:"name"`
	IndexNumber       int           `json:"index_number"`
	ParentIndexNumber int           `json:"parent_index_number"`
	Path              string        `json:"path"`
	Container         string        `json:"container"`
	MediaSources      []MediaSource `json:"media_sources"`
}

// ConnectionResult reports whether the configured paths are reachable.
type ConnectionResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	PathsFound int    `json:"paths_found,omitempty"`
	TotalFiles int    `json:"total_files,omitempty"`
}
