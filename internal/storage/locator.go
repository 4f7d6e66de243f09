package storage

import (
	"net/url"
	"strings"
	"time"

	"github.com/dharsanguruparan/todys/internal/signing"
)

// Locator turns a stored object into a URL a client can fetch. With a public
// base URL the bucket is assumed to be publicly readable; otherwise links
// point at the API's signed download route.
type Locator struct {
	publicBase string
	bucket     string
	signer     *signing.Signer
	ttl        time.Duration
	now        func() time.Time
}

// NewLocator builds a Locator. publicBase may be empty.
func NewLocator(publicBase, bucket string, signer *signing.Signer, ttl time.Duration) *Locator {
	return &Locator{
		publicBase: strings.TrimRight(publicBase, "/"),
		bucket:     bucket,
		signer:     signer,
		ttl:        ttl,
		now:        time.Now,
	}
}

// URL returns the location of the object stored under key for record id.
func (l *Locator) URL(id, key string) string {
	if l.publicBase != "" {
		return l.publicBase + "/" + url.PathEscape(l.bucket) + "/" + escapeKey(key)
	}
	q := l.signer.Query(id, l.now().Add(l.ttl))
	return DownloadPath(id) + "?" + q.Encode()
}

// DownloadPath is the API route serving the raw bytes of record id.
func DownloadPath(id string) string {
	return "/api/files/" + url.PathEscape(id) + "/download"
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
