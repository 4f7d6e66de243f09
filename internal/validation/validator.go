package validation

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultMaxSize is the upload limit used when none is configured.
const DefaultMaxSize int64 = 10 << 20

// ErrRead marks a failure to read the upload stream. It is a server side
// problem, not a rejection of the file.
var ErrRead = errors.New("read upload")

// Candidate is one buffered upload together with what the client claimed
// about it.
type Candidate struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Validator runs the validation pipeline against a fixed size limit and
// allow-list.
type Validator struct {
	maxSize int64
	allow   AllowList
}

// New builds a Validator. A non-positive maxSize selects DefaultMaxSize and a
// nil allow-list selects DefaultAllowList.
func New(maxSize int64, allow AllowList) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if allow == nil {
		allow = DefaultAllowList
	}
	return &Validator{maxSize: maxSize, allow: allow}
}

// MaxSize returns the configured byte limit.
func (v *Validator) MaxSize() int64 { return v.maxSize }

// AllowList returns the table the validator checks against.
func (v *Validator) AllowList() AllowList { return v.allow }

// WithinLimit reports whether size bytes fit under max.
func WithinLimit(size, max int64) bool {
	return size <= max
}

// Validate runs every stage in order and stops at the first failure:
// filename, size, content type, extension, signatures.
func (v *Validator) Validate(c Candidate) Verdict {
	if !hasFilename(c.Filename) {
		return reject(ReasonMissingFilename)
	}
	if !WithinLimit(int64(len(c.Data)), v.maxSize) {
		return reject(ReasonOversized)
	}
	mediaType := Sniff(c.Data, v.allow)
	if !v.allow.Allowed(mediaType) {
		return reject(ReasonDisallowedType)
	}
	if !MatchExtension(c.Filename, mediaType, v.allow) {
		return reject(ReasonExtensionMismatch)
	}
	if ScanSignatures(c.Data) {
		return reject(ReasonMaliciousContent)
	}
	return accept(mediaType)
}

// ValidateReader buffers r and validates the result. At most MaxSize()+1
// bytes are read: enough to prove a stream is oversized without draining it.
// The candidate returned holds the bytes read, so later stages can reuse them
// without touching r again. The returned error is non-nil only when reading
// fails, and then wraps ErrRead.
func (v *Validator) ValidateReader(r io.Reader, filename, contentType string) (Candidate, Verdict, error) {
	c := Candidate{Filename: filename, ContentType: contentType}
	if !hasFilename(filename) {
		return c, reject(ReasonMissingFilename), nil
	}
	data, err := io.ReadAll(io.LimitReader(r, v.maxSize+1))
	if err != nil {
		return c, Verdict{}, fmt.Errorf("%w: %w", ErrRead, err)
	}
	c.Data = data
	return c, v.Validate(c), nil
}

// hasFilename requires a base name with an extension; without one the
// extension check could never pass.
func hasFilename(filename string) bool {
	name := BaseName(filename)
	return name != "" && strings.Contains(name, ".")
}
