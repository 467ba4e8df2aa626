// Package imaging normalizes uploaded photos into the JPEG files the photo
// store keeps.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"

	_ "golang.org/x/image/webp"
)

// DefaultQuality is the JPEG quality photos are stored at.
const DefaultQuality = 90

var ErrUnsupportedFormat = errors.New("unsupported image format")

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniffing standard (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// DetectMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func DetectMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// ToJPEG decodes data in any accepted format and re-encodes it as JPEG at the
// given quality. Quality outside 1..100 falls back to DefaultQuality.
func ToJPEG(data []byte, quality int) ([]byte, error) {
	if _, ok := DetectMIME(data); !ok {
		return nil, ErrUnsupportedFormat
	}
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
