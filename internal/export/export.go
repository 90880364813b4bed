// Package export builds the derived downloads of a link: the visits CSV
// filename, the QR code image and the public short URL.
package export

import (
	"fmt"
	"mime"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultQRSize = 256
	MaxQRSize     = 1024
)

// ShortURL is the public address of a link.
func ShortURL(base, slug string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(slug, "/")
}

// CSVFilename is the download name of a link's visits export.
func CSVFilename(slug string) string {
	return safeName(slug) + "_visits.csv"
}

// QRFilename is the download name of a link's QR code.
func QRFilename(slug string) string {
	return safeName(slug) + ".png"
}

// QRCode encodes the short URL of slug as a PNG. Sizes outside
// (0, MaxQRSize] fall back to DefaultQRSize.
func QRCode(base, slug string, size int) ([]byte, error) {
	if slug == "" {
		return nil, fmt.Errorf("empty slug")
	}
	if size <= 0 || size > MaxQRSize {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(ShortURL(base, slug), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code for %s: %w", slug, err)
	}
	return png, nil
}

// Attachment builds a Content-Disposition header value for filename.
func Attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}

func safeName(slug string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, slug)
	if s == "" {
		return "link"
	}
	return s
}
