package media

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

var ErrInvalidItemID = errors.New("invalid item id")

// GenerateID derives a stable identifier from a server path.
func GenerateID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

// EncodeItemID encodes a path reversibly so it can travel as a URL segment.
func EncodeItemID(path string) string {
	return base64.URLEncoding.EncodeToString([]byte(path))
}

// DecodeItemID recovers the absolute path from an item id. Standard base64
// is accepted as well as the URL-safe alphabet.
func DecodeItemID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidItemID
	}

	var (
		data []byte
		err  error
	)
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		if data, err = enc.DecodeString(id); err == nil {
			break
		}
	}
	if err != nil {
		return "", ErrInvalidItemID
	}

	p := string(data)
	if !strings.HasPrefix(p, "/") {
		return "", ErrInvalidItemID
	}
	return p, nil
}
