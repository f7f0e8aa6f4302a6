package library

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"davlibrary/internal/config"
	"davlibrary/internal/webdav"
)

// davTree maps a folder path to the names of its children. Names ending in
// "/" are folders.
type davTree map[string][]string

// fakeDAV is a minimal PROPFIND-only WebDAV server backed by a davTree.
type fakeDAV struct {
	*httptest.Server

	mu       sync.Mutex
	tree     davTree
	requests []string
}

func newFakeDAV(t *testing.T, tree davTree) *fakeDAV {
	t.Helper()
	f := &fakeDAV{tree: tree}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeDAV) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != webdav.MethodPropfind {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	p := strings.TrimSuffix(r.URL.Path, "/")
	if p == "" {
		p = "/"
	}

	f.mu.Lock()
	f.requests = append(f.requests, p)
	children, ok := f.tree[p]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?><D:multistatus xmlns:D="DAV:">`)
	writeResponse(&b, p, true)
	for _, name := range children {
		isDir := strings.HasSuffix(name, "/")
		child := strings.TrimSuffix(p, "/") + "/" + strings.TrimSuffix(name, "/")
		writeResponse(&b, child, isDir)
	}
	b.WriteString(`</D:multistatus>`)

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, _ = w.Write([]byte(b.String()))
}

func writeResponse(b *strings.Builder, p string, isDir bool) {
	href := (&url.URL{Path: p}).EscapedPath()
	if isDir && !strings.HasSuffix(href, "/") {
		href += "/"
	}
	b.WriteString("<D:response><D:href>" + href + "</D:href><D:propstat><D:prop>")
	if isDir {
		b.WriteString("<D:resourcetype><D:collection/></D:resourcetype>")
	} else {
		b.WriteString("<D:resourcetype/><D:getcontentlength>" + strconv.Itoa(1024) + "</D:getcontentlength>")
	}
	b.WriteString("</D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat></D:response>")
}

func (f *fakeDAV) requestCount(p string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r == p {
			n++
		}
	}
	return n
}

func (f *fakeDAV) webdavConfig(paths ...config.MediaPath) config.WebDAVConfig {
	u, _ := url.Parse(f.URL)
	port, _ := strconv.Atoi(u.Port())
	return config.WebDAVConfig{
		Host:          u.Hostname(),
		Port:          port,
		Username:      "media",
		Password:      "secret",
		MediaPaths:    paths,
		ScanRecursive: true,
		GenreHandling: config.GenresPrimary,
	}
}

func newTestService(t *testing.T, f *fakeDAV, cfg config.WebDAVConfig) *Service {
	t.Helper()
	client := webdav.NewClient(cfg.BaseURL(), webdav.Credentials{Username: cfg.Username, Password: cfg.Password})
	return NewService(cfg, client, staticStreams{}, zerolog.Nop())
}

type staticStreams struct{}

func (staticStreams) StreamURL(itemID string) string {
	return fmt.Sprintf("http://proxy.test/stream/%s", itemID)
}

// standardTree is a small NAS layout with one movie and one TV library.
func standardTree() davTree {
	return davTree{
		"/media/movies": {
			"Movie.Title.2024.1080p.BluRay.mkv",
			"In Your Dreams (2020)/",
			"readme.txt",
		},
		"/media/movies/In Your Dreams (2020)": {
			"In Your Dreams (2020).mp4",
		},
		"/media/tv": {
			"Some Show (2019)/",
			"Flat Show/",
			"stray.mkv",
		},
		"/media/tv/Some Show (2019)": {
			"Season 2/",
			"Season 1/",
			"Extras/",
		},
		"/media/tv/Some Show (2019)/Season 1": {
			"Some Show S01E02 - Second.mkv",
			"Some Show S01E01 - The Title.mkv",
			"random_clip.mkv",
		},
		"/media/tv/Some Show (2019)/Season 2": {
			"S02E01 - Return.mkv",
		},
		"/media/tv/Some Show (2019)/Extras": {
			"Behind the scenes.mkv",
		},
		"/media/tv/Flat Show": {
			"02 - Two.mkv",
			"01 - One.mkv",
			"cover.jpg",
		},
	}
}

var (
	moviesPath = config.MediaPath{Name: "Movies", Path: "/media/movies", Type: config.KindMovies, Genres: []string{"Film"}}
	tvPath     = config.MediaPath{Name: "TV Shows", Path: "/media/tv", Type: config.KindTVShows}
)
