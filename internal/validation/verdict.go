// Package validation decides whether an untrusted upload is safe enough to
// accept. Every check works on the buffered bytes of a single request; the
// lookup tables it consults are read-only after package initialisation, so a
// Validator can be shared by concurrent handlers without locking.
package validation

// Reason names why a candidate was rejected.
type Reason string

const (
	ReasonMissingFilename   Reason = "missing_filename"
	ReasonOversized         Reason = "oversized"
	ReasonDisallowedType    Reason = "disallowed_type"
	ReasonExtensionMismatch Reason = "extension_mismatch"
	ReasonMaliciousContent  Reason = "malicious_content"
)

var reasonMessages = map[Reason]string{
	ReasonMissingFilename:   "missing filename or file extension",
	ReasonOversized:         "file exceeds the maximum upload size",
	ReasonDisallowedType:    "file type is not allowed",
	ReasonExtensionMismatch: "file extension does not match its content",
	ReasonMaliciousContent:  "file appears to contain malicious content",
}

// Message returns the human readable explanation of r.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return string(r)
}

// Verdict is the outcome of one validation run. An accepted verdict carries
// the detected media type and no reason; a rejected one carries a reason and
// no media type.
type Verdict struct {
	accepted  bool
	reason    Reason
	mediaType string
}

func accept(mediaType string) Verdict {
	return Verdict{accepted: true, mediaType: mediaType}
}

func reject(reason Reason) Verdict {
	return Verdict{reason: reason}
}

// Accepted reports whether the candidate passed every stage.
func (v Verdict) Accepted() bool { return v.accepted }

// Reason is empty for accepted verdicts.
func (v Verdict) Reason() Reason { return v.reason }

// MediaType is empty for rejected verdicts.
func (v Verdict) MediaType() string { return v.mediaType }

func (v Verdict) String() string {
	if v.accepted {
		return "accepted(" + v.mediaType + ")"
	}
	return "rejected(" + string(v.reason) + ")"
}

// Reject builds a rejected verdict for checks made at the request boundary,
// such as a body that outgrows its limit before the file part is read.
func Reject(reason Reason) Verdict { return reject(reason) }
