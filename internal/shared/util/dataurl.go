package util

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidDataURL is returned for anything that is not a base64 data URL.
var ErrInvalidDataURL = errors.New("invalid data url")

// DecodeDataURL decodes "data:<mime>;base64,<payload>" and returns the bytes
// and the declared MIME type.
func DecodeDataURL(raw string) ([]byte, string, error) {
	raw = strings.TrimSpace(raw)
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return nil, "", ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", ErrInvalidDataURL
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, "", ErrInvalidDataURL
	}
	if mime == "" {
		mime = "application/octet-stream"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", ErrInvalidDataURL
		}
	}
	if len(data) == 0 {
		return nil, "", ErrInvalidDataURL
	}
	return data, mime, nil
}

// ExtensionForMIME maps common image MIME types to a file extension.
func ExtensionForMIME(mime string) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
