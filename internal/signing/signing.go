// Package signing issues and checks HMAC signed, expiring download links.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

var (
	ErrMissingParams    = errors.New("missing signature parameters")
	ErrExpired          = errors.New("url expired")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Signer generates and validates HMAC based signatures.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Sign returns the hex signature binding fileID to an expiry.
func (s *Signer) Sign(fileID string, expiresUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", fileID, expiresUnix)
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate compares the provided signature with the expected one in
// constant time.
func (s *Signer) Validate(fileID, expires, signature string) bool {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	expected := s.Sign(fileID, exp)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Query returns the expires and signature parameters for a link to fileID
// valid until expiresAt.
func (s *Signer) Query(fileID string, expiresAt time.Time) url.Values {
	exp := expiresAt.Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(exp, 10))
	q.Set("signature", s.Sign(fileID, exp))
	return q
}

// Verify checks parameters produced by Query at time now.
func (s *Signer) Verify(fileID string, q url.Values, now time.Time) error {
	expires, signature := q.Get("expires"), q.Get("signature")
	if fileID == "" || expires == "" || signature == "" {
		return ErrMissingParams
	}
	if !s.Validate(fileID, expires, signature) {
		return ErrInvalidSignature
	}
	exp, _ := strconv.ParseInt(expires, 10, 64)
	if time.Unix(exp, 0).Before(now) {
		return ErrExpired
	}
	return nil
}
