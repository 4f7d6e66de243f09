package validation

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// SniffLimit bounds how much of a buffer content detection looks at.
	SniffLimit = 8 << 10

	// MediaTypeUnknown is returned for content nothing recognises. It is never
	// part of an allow-list.
	MediaTypeUnknown = "application/octet-stream"

	oleStorage = "application/x-ole-storage"
)

func init() {
	mimetype.SetLimit(SniffLimit)
}

// scriptTypes are plain text programs. They are treated as text/plain so the
// signature scan, not the type check, is what rejects them.
var scriptTypes = []string{
	"text/x-shellscript",
	"text/x-php",
	"text/x-python",
	"text/x-perl",
	"text/x-lua",
	"text/x-tcl",
}

// Sniff classifies data by its leading bytes only; file names and declared
// content types play no part. Apart from scripts folding into text/plain, the
// most specific detected type is returned as is, so markup, data formats and
// rich text keep their own names.
func Sniff(data []byte, allow AllowList) string {
	if len(data) == 0 {
		return MediaTypeUnknown
	}
	if len(data) > SniffLimit {
		data = data[:SniffLimit]
	}
	detected := mimetype.Detect(data)

	// Word 97-2003 files whose class id lies past the sniffed prefix only
	// show up as a generic compound document.
	if detected.Is(oleStorage) && allow.Allowed(MediaTypeDoc) {
		return MediaTypeDoc
	}
	if allow.Allowed(MediaTypeText) {
		for _, st := range scriptTypes {
			if detected.Is(st) {
				return MediaTypeText
			}
		}
	}
	if t := baseType(detected.String()); t != "" {
		return t
	}
	return MediaTypeUnknown
}

func baseType(mediaType string) string {
	t, _, _ := strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(t))
}
