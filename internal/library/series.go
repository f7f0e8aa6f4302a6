package library

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"davlibrary/internal/config"
	"davlibrary/internal/media"
	"davlibrary/internal/webdav"
)

// syntheticSeasonSuffix derives the id of the implicit "Season 1" of a
// series that keeps its episodes directly in the series folder.
const syntheticSeasonSuffix = "#season-1"

// FetchSeries returns one series per immediate subfolder of every TV path.
func (s *Service) FetchSeries(ctx context.Context) []Series {
	acc := make(map[string]Series)
	for _, p := range s.cfg.PathsOfKind(config.KindTVShows) {
		acc = s.collectSeries(ctx, p, acc)
	}

	series := make([]Series, 0, len(acc))
	for _, sr := range acc {
		series = append(series, sr)
	}
	sort.Slice(series, func(i, j int) bool {
		if series[i].Name != series[j].Name {
			return strings.ToLower(series[i].Name) < strings.ToLower(series[j].Name)
		}
		return series[i].Path < series[j].Path
	})
	return series
}

// collectSeries adds the series folders of p to acc and returns it. A folder
// already in acc keeps its entry and gains p's genres.
func (s *Service) collectSeries(ctx context.Context, p config.MediaPath, acc map[string]Series) map[string]Series {
	genres := append([]string{p.Name}, p.Genres...)

	for _, entry := range s.lister.List(ctx, p.Path) {
		if !entry.IsDir {
			continue
		}

		id := media.GenerateID(entry.Path)
		if existing, ok := acc[id]; ok {
			existing.Genres = applyGenreMode(mergeGenres(existing.Genres, genres), s.cfg.GenreHandling)
			acc[id] = existing
			continue
		}

		name, year := media.SplitYear(entry.Name)
		acc[id] = Series{
			ID:             id,
			ItemID:         media.EncodeItemID(entry.Path),
			Name:           name,
			Path:           entry.Path,
			ProductionYear: year,
			Genres:         applyGenreMode(mergeGenres(nil, genres), s.cfg.GenreHandling),
		}
	}

	return acc
}

// FetchSeasons lists the seasons of a series, sorted by season number.
func (s *Service) FetchSeasons(ctx context.Context, seriesID string) ([]Season, error) {
	series, err := s.resolveSeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	return s.seasonsOf(ctx, series), nil
}

// FetchEpisodes lists the episodes of one season, or of the whole series
// when seasonID is empty.
func (s *Service) FetchEpisodes(ctx context.Context, seriesID, seasonID string) ([]Episode, error) {
	series, err := s.resolveSeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	var files []webdav.Entry
	if seasonID == "" {
		files = s.scanner.Scan(ctx, series.Path, true)
	} else {
		season, ok := findSeason(s.seasonsOf(ctx, series), seasonID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSeasonNotFound, seasonID)
		}
		files = s.scanner.Scan(ctx, season.Path, false)
	}

	episodes := make([]Episode, 0, len(files))
	for _, f := range files {
		parent := path.Base(path.Dir(f.Path))
		info, err := media.ParseEpisode(f.Name, parent, series.Name)
		if err != nil {
			s.logger.Debug().Err(err).Str("path", f.Path).Msg("skipping file without episode numbering")
			continue
		}

		episodes = append(episodes, Episode{
			ID:                media.GenerateID(f.Path),
			ItemID:            media.EncodeItemID(f.Path),
			SeriesName:        info.ShowName,
			Name:              info.Title,
			IndexNumber:       info.Episode,
			ParentIndexNumber: info.Season,
			Path:              f.Path,
			Container:         info.Container,
			MediaSources:      []MediaSource{{Container: info.Container, Path: f.Path, Size: f.Size}},
		})
	}

	sort.SliceStable(episodes, func(i, j int) bool {
		a, b := episodes[i], episodes[j]
		if a.ParentIndexNumber != b.ParentIndexNumber {
			return a.ParentIndexNumber < b.ParentIndexNumber
		}
		if a.IndexNumber != b.IndexNumber {
			return a.IndexNumber < b.IndexNumber
		}
		return a.Path < b.Path
	})

	return episodes, nil
}

// seasonsOf builds the seasons of a series from its subfolders. A series
// with no season folders but with direct video files gets one synthetic
// "Season 1".
func (s *Service) seasonsOf(ctx context.Context, series Series) []Season {
	var (
		seasons      []Season
		directVideos int
	)

	for _, entry := range s.lister.List(ctx, series.Path) {
		if !entry.IsDir {
			if s.scanner.IsVideo(entry.Name) {
				directVideos++
			}
			continue
		}

		n, ok := media.SeasonNumber(entry.Name)
		if !ok || n < 1 {
			continue
		}
		seasons = append(seasons, Season{
			ID:           media.GenerateID(entry.Path),
			SeriesID:     series.ID,
			Name:         fmt.Sprintf("Season %d", n),
			IndexNumber:  n,
			Path:         entry.Path,
			EpisodeCount: len(s.scanner.Scan(ctx, entry.Path, false)),
		})
	}

	if len(seasons) == 0 && directVideos > 0 {
		return []Season{{
			ID:           media.GenerateID(series.Path + syntheticSeasonSuffix),
			SeriesID:     series.ID,
			Name:         "Season 1",
			IndexNumber:  1,
			Path:         series.Path,
			EpisodeCount: directVideos,
		}}
	}

	sort.SliceStable(seasons, func(i, j int) bool {
		if seasons[i].IndexNumber != seasons[j].IndexNumber {
			return seasons[i].IndexNumber < seasons[j].IndexNumber
		}
		return seasons[i].Path < seasons[j].Path
	})
	return seasons
}

// resolveSeries maps an id back to a series by recomputing the series list.
// An item id (encoded path) is accepted as well.
func (s *Service) resolveSeries(ctx context.Context, id string) (Series, error) {
	for _, sr := range s.FetchSeries(ctx) {
		if sr.ID == id || sr.ItemID == id {
			return sr, nil
		}
	}

	// A series the listing missed is still reachable by item id, but only
	// for folders beneath a configured TV path.
	if p, err := media.DecodeItemID(id); err == nil {
		p = config.NormalizePath(p)
		mp, ok := s.cfg.MediaPathFor(p)
		if !ok || mp.Type != config.KindTVShows || p == config.NormalizePath(mp.Path) {
			return Series{}, fmt.Errorf("%w: %s", ErrSeriesNotFound, id)
		}
		name, year := media.SplitYear(path.Base(p))
		return Series{
			ID:             media.GenerateID(p),
			ItemID:         media.EncodeItemID(p),
			Name:           name,
			Path:           p,
			ProductionYear: year,
			Genres:         []string{uncategorized},
		}, nil
	}

	return Series{}, fmt.Errorf("%w: %s", ErrSeriesNotFound, id)
}

func findSeason(seasons []Season, id string) (Season, bool) {
	for _, season := range seasons {
		if season.ID == id {
			return season, true
		}
	}
	return Season{}, false
}
