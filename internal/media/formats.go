package media

import (
	"path"
	"strings"
)

// ExtensionSet is a lowercase, dot-less video extension allow-list.
type ExtensionSet map[string]bool

func NewExtensionSet(exts []string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			set[ext] = true
		}
	}
	return set
}

func (s ExtensionSet) IsVideo(filename string) bool {
	return s[Container(filename)]
}

// Container returns the lowercase extension of filename without the dot.
func Container(filename string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
}

func GetContentType(filename string) string {
	switch Container(filename) {
	case "mp4", "m4v":
		return "video/mp4"
	case "mkv":
		return "video/x-matroska"
	case "avi":
		return "video/x-msvideo"
	case "webm":
		return "video/webm"
	case "mov":
		return "video/quicktime"
	case "wmv":
		return "video/x-ms-wmv"
	case "flv":
		return "video/x-flv"
	case "mpeg", "mpg", "vob":
		return "video/mpeg"
	case "ts", "m2ts", "mts":
		return "video/mp2t"
	default:
		return "application/octet-stream"
	}
}
