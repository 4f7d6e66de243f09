package validation

import "strings"

const (
	MediaTypePDF  = "application/pdf"
	MediaTypeDoc  = "application/msword"
	MediaTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeODT  = "application/vnd.oasis.opendocument.text"
	MediaTypeText = "text/plain"
)

// AllowList maps a canonical media type to the single lowercase extension,
// dot included, that a file of that type must carry.
type AllowList map[string]string

// DefaultAllowList is the process-wide table of accepted document formats.
// Treat it as read-only.
var DefaultAllowList = AllowList{
	MediaTypePDF:  ".pdf",
	MediaTypeDoc:  ".doc",
	MediaTypeDocx: ".docx",
	MediaTypeODT:  ".odt",
	MediaTypeText: ".txt",
}

// Extension returns the expected extension for mediaType.
func (a AllowList) Extension(mediaType string) (string, bool) {
	ext, ok := a[mediaType]
	return ext, ok
}

// Allowed reports whether mediaType is in the list.
func (a AllowList) Allowed(mediaType string) bool {
	_, ok := a[mediaType]
	return ok
}

// Restrict returns a copy of a keeping only the entries whose extension is in
// exts. Entries are written with or without the leading dot. Restrict never
// adds a type, so an operator can narrow the table but not widen it.
func (a AllowList) Restrict(exts []string) AllowList {
	keep := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		keep[e] = struct{}{}
	}
	out := make(AllowList, len(a))
	for mediaType, ext := range a {
		if _, ok := keep[ext]; ok {
			out[mediaType] = ext
		}
	}
	return out
}
