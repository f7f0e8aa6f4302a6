package webdav

import (
	"bytes"
	"encoding/xml"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Entry is one child of a listed collection.
type Entry struct {
	Name  string `json:"name"`
	Path  string `json:"path"` // decoded absolute path, no trailing slash
	Href  string `json:"href"` // raw href as sent by the server
	IsDir bool   `json:"is_directory"`
	Size  *int64 `json:"size,omitempty"`
}

// Elements are matched by namespace URI, so any prefix bound to DAV: works.
type multistatus struct {
	XMLName   xml.Name      `xml:"DAV: multistatus"`
	Responses []davResponse `xml:"DAV: response"`
}

type davResponse struct {
	Href      string        `xml:"DAV: href"`
	Propstats []davPropstat `xml:"DAV: propstat"`
}

type davPropstat struct {
	Prop   davProp `xml:"DAV: prop"`
	Status string  `xml:"DAV: status"`
}

type davProp struct {
	DisplayName   string          `xml:"DAV: displayname"`
	ContentLength string          `xml:"DAV: getcontentlength"`
	ResourceType  davResourceType `xml:"DAV: resourcetype"`
}

type davResourceType struct {
	Collection *struct{} `xml:"DAV: collection"`
}

// ParseMultistatus decodes a PROPFIND multistatus body into the children of
// queriedPath. The entry describing queriedPath itself is dropped.
func ParseMultistatus(body []byte, queriedPath string) ([]Entry, error) {
	var ms multistatus
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&ms); err != nil {
		return nil, &ParseError{Path: queriedPath, Err: err}
	}

	base := normalizePath(queriedPath)
	if base == "" {
		base = "/"
	}

	entries := make([]Entry, 0, len(ms.Responses))
	for _, r := range ms.Responses {
		href := strings.TrimSpace(r.Href)
		p := hrefPath(href)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = base + "/" + p
		}
		p = normalizePath(p)
		if p == "" || p == base {
			continue
		}

		entry := Entry{
			Name: path.Base(p),
			Path: p,
			Href: href,
		}

		for _, ps := range r.Propstats {
			if ps.Prop.ResourceType.Collection != nil {
				entry.IsDir = true
			}
			if !propstatOK(ps.Status) {
				continue
			}
			if n, err := strconv.ParseInt(strings.TrimSpace(ps.Prop.ContentLength), 10, 64); err == nil && n >= 0 {
				size := n
				entry.Size = &size
			}
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// hrefPath returns the URL-decoded path component of an href.
func hrefPath(href string) string {
	if href == "" {
		return ""
	}
	if u, err := url.Parse(href); err == nil {
		return u.Path
	}
	if p, err := url.PathUnescape(href); err == nil {
		return p
	}
	return href
}

func normalizePath(p string) string {
	if p == "" {
		return ""
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return ""
	}
	return cleaned
}

// propstatOK treats a missing status line as success.
func propstatOK(status string) bool {
	status = strings.TrimSpace(status)
	if status == "" {
		return true
	}
	fields := strings.Fields(status)
	if len(fields) < 2 {
		return false
	}
	return strings.HasPrefix(fields[1], "2")
}
