package validation

import "strings"

// BaseName strips any client supplied directory components, accepting both
// slash styles since browsers on Windows may send full paths.
func BaseName(filename string) string {
	if i := strings.LastIndexAny(filename, `/\`); i >= 0 {
		filename = filename[i+1:]
	}
	return strings.TrimSpace(filename)
}

// Extension returns the lowercase substring of filename from its last dot,
// or false when there is none.
func Extension(filename string) (string, bool) {
	i := strings.LastIndexByte(filename, '.')
	if filename == "" || i < 0 {
		return "", false
	}
	return strings.ToLower(filename[i:]), true
}

// MatchExtension reports whether filename carries the extension allow expects
// for mediaType.
func MatchExtension(filename, mediaType string, allow AllowList) bool {
	ext, ok := Extension(BaseName(filename))
	if !ok {
		return false
	}
	want, ok := allow.Extension(mediaType)
	if !ok {
		return false
	}
	return want == ext
}
