// Package upload turns one multipart upload into a stored document and a
// uniform JSON response.
package upload

import (
	"net/http"

	"github.com/dharsanguruparan/todys/internal/storage"
	"github.com/dharsanguruparan/todys/internal/validation"
)

// Response is the body of every upload reply.
type Response struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	ID       string `json:"id,omitempty"`
	Filename string `json:"filename,omitempty"`
	FileURL  string `json:"file_url,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Error    string `json:"error,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Accepted describes a stored upload.
func Accepted(stored *storage.Stored, filename, mediaType string) Response {
	return Response{
		Success:  true,
		Message:  "File uploaded successfully",
		ID:       stored.ID,
		Filename: filename,
		FileURL:  stored.URL,
		MimeType: mediaType,
	}
}

// Rejected describes a validation failure. Error and Detail carry the same
// text so clients of either body shape find it.
func Rejected(v validation.Verdict) Response {
	msg := v.Reason().Message()
	return Response{
		Success: false,
		Message: "File validation failed",
		Error:   msg,
		Reason:  string(v.Reason()),
		Detail:  msg,
	}
}

// Malformed describes a request that never reached validation because its
// body could not be read as a multipart form.
func Malformed(err error) Response {
	return Response{
		Success: false,
		Message: "Malformed upload request",
		Detail:  "expecting multipart/form-data: " + err.Error(),
	}
}

// Failed describes a server side failure and includes err for diagnostics.
func Failed(err error) Response {
	return Response{
		Success: false,
		Message: "Internal server error",
		Detail:  err.Error(),
	}
}

// StatusFor maps a verdict to its HTTP status.
func StatusFor(v validation.Verdict) int {
	if v.Accepted() {
		return http.StatusOK
	}
	switch v.Reason() {
	case validation.ReasonOversized:
		return http.StatusRequestEntityTooLarge
	case validation.ReasonDisallowedType:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadRequest
	}
}
