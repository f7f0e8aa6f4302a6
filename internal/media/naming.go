package media

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MovieInfo is what a movie filename reveals about itself.
type MovieInfo struct {
	Title     string
	Year      *int
	Container string
}

// EpisodeInfo is what an episode filename and its folder reveal.
type EpisodeInfo struct {
	ShowName  string
	Season    int
	Episode   int
	Title     string
	Container string
}

type moviePattern struct {
	re    *regexp.Regexp
	title int
	year  int // 0 when the pattern has no year group
}

type episodePattern struct {
	re      *regexp.Regexp
	show    int
	season  int
	episode int
	title   int
}

// Order matters: the first match wins and several patterns overlap.
var moviePatterns = []moviePattern{
	// Title (2020) [1080p].mkv. Unbracketed tags after the year fall
	// through to the bare title pattern, year and all.
	{re: regexp.MustCompile(`^(.+?)\s*\((\d{4})\)\s*(?:\[[^\]]*\]\s*)*\.(\w+)$`), title: 1, year: 2},
	// Title.2020.1080p.BluRay.mkv
	{re: regexp.MustCompile(`^(.+?)\.(\d{4})\..+\.(\w+)$`), title: 1, year: 2},
	// Title.2020.mkv
	{re: regexp.MustCompile(`^(.+?)\.(\d{4})\.(\w+)$`), title: 1, year: 2},
	// Title 2020.mkv
	{re: regexp.MustCompile(`^(.+?)\s+(\d{4})\.(\w+)$`), title: 1, year: 2},
	// Title.mkv
	{re: regexp.MustCompile(`^(.+)\.(\w+)$`), title: 1},
}

var episodePatterns = []episodePattern{
	// Show S01E05 - Title.mkv
	{re: regexp.MustCompile(`(?i)^(.+?)\s+S(\d{1,3})E(\d{1,4})(?:\s*-\s*(.+?))?\.(\w+)$`), show: 1, season: 2, episode: 3, title: 4},
	// Show.S01E05.Title.mkv
	{re: regexp.MustCompile(`(?i)^(.+?)\.S(\d{1,3})E(\d{1,4})(?:\.(.+?))?\.(\w+)$`), show: 1, season: 2, episode: 3, title: 4},
	// Show 1x05 - Title.mkv
	{re: regexp.MustCompile(`(?i)^(.+?)\s+(\d{1,2})x(\d{1,3})(?:\s*-\s*(.+?))?\.(\w+)$`), show: 1, season: 2, episode: 3, title: 4},
	// S01E05 - Title.mkv
	{re: regexp.MustCompile(`(?i)^S(\d{1,3})E(\d{1,4})(?:\s*-\s*(.+?))?\.(\w+)$`), season: 1, episode: 2, title: 3},
	// 05 - Title.mkv
	{re: regexp.MustCompile(`^(\d{1,3})\s*-\s*(.+?)\.(\w+)$`), episode: 1, title: 2},
}

var (
	delimiterRun  = regexp.MustCompile(`[._]+`)
	qualityTokens = regexp.MustCompile(`(?i)\b(?:1080p|720p|480p|2160p|4k|hdr|bluray|webrip|webdl|dvdrip|hdtv)\b`)
	spaceRun      = regexp.MustCompile(`\s+`)
	seasonToken   = regexp.MustCompile(`(?i)\b(?:season[\s._-]*|s)(\d{1,3})\b`)
	yearSuffix    = regexp.MustCompile(`^(.*?)\s*\((\d{4})\)\s*$`)
)

// ParseMovie extracts a title and optional year from a movie filename.
// Every filename yields a title.
func ParseMovie(filename string) MovieInfo {
	info := MovieInfo{Container: Container(filename)}

	for _, p := range moviePatterns {
		m := p.re.FindStringSubmatch(filename)
		if m == nil {
			continue
		}
		info.Title = cleanTitle(m[p.title])
		if p.year > 0 {
			if year, err := strconv.Atoi(m[p.year]); err == nil {
				info.Year = &year
			}
		}
		break
	}

	if info.Title == "" {
		info.Title = cleanTitle(stripExt(filename))
	}
	if info.Title == "" {
		info.Title = norm.NFC.String(strings.TrimSpace(filename))
	}

	return info
}

// ParseEpisode extracts episode numbering from filename. parentFolder seeds
// the season number and showName is used when the filename carries none.
// Returns ErrNotEpisode when no episode number can be found.
func ParseEpisode(filename, parentFolder, showName string) (EpisodeInfo, error) {
	info := EpisodeInfo{
		ShowName:  cleanName(showName),
		Season:    1,
		Container: Container(filename),
	}
	if season, ok := SeasonNumber(parentFolder); ok {
		info.Season = season
	}

	matched := false
	for _, p := range episodePatterns {
		m := p.re.FindStringSubmatch(filename)
		if m == nil {
			continue
		}
		if p.show > 0 && m[p.show] != "" {
			if show := cleanName(m[p.show]); show != "" {
				info.ShowName = show
			}
		}
		if p.season > 0 && m[p.season] != "" {
			if season, err := strconv.Atoi(m[p.season]); err == nil {
				info.Season = season
			}
		}
		if p.title > 0 && m[p.title] != "" {
			info.Title = cleanName(m[p.title])
		}
		episode, err := strconv.Atoi(m[p.episode])
		if err != nil {
			continue
		}
		info.Episode = episode
		matched = true
		break
	}

	if !matched {
		return EpisodeInfo{}, ErrNotEpisode
	}
	if info.Title == "" {
		info.Title = "Episode " + strconv.Itoa(info.Episode)
	}
	return info, nil
}

// SeasonNumber reads a "Season N" or "SNN" token from a folder name.
func SeasonNumber(folder string) (int, bool) {
	m := seasonToken.FindStringSubmatch(folder)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// SplitYear separates a trailing "(YYYY)" from a folder name.
func SplitYear(name string) (string, *int) {
	m := yearSuffix.FindStringSubmatch(name)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return strings.TrimSpace(name), nil
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return strings.TrimSpace(name), nil
	}
	return strings.TrimSpace(m[1]), &year
}

// cleanTitle normalizes delimiters and drops quality/source tokens.
func cleanTitle(s string) string {
	s = delimiterRun.ReplaceAllString(s, " ")
	s = qualityTokens.ReplaceAllString(s, " ")
	s = spaceRun.ReplaceAllString(s, " ")
	return norm.NFC.String(strings.TrimSpace(s))
}

// cleanName normalizes delimiters only.
func cleanName(s string) string {
	s = delimiterRun.ReplaceAllString(s, " ")
	s = spaceRun.ReplaceAllString(s, " ")
	return norm.NFC.String(strings.Trim(s, " -"))
}

func stripExt(filename string) string {
	return strings.TrimSuffix(filename, path.Ext(filename))
}
