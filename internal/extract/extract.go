// Package extract turns stored documents into plain text for the processed
// bucket.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	pdf "github.com/ledongthuc/pdf"

	"github.com/dharsanguruparan/todys/internal/validation"
)

// ErrUnsupported is returned for media types without a text extractor.
var ErrUnsupported = errors.New("unsupported media type")

// Text returns the plain text of data according to its detected media type.
func Text(mediaType string, data []byte) (string, error) {
	switch mediaType {
	case validation.MediaTypePDF:
		return PDFText(data)
	case validation.MediaTypeText:
		if !utf8.Valid(data) {
			return strings.ToValidUTF8(string(data), "�"), nil
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, mediaType)
	}
}

// PDFText reads PDF bytes and returns plain text using ledongthuc/pdf.
func PDFText(data []byte) (string, error) {
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}
	var builder strings.Builder
	total := doc.NumPage()
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}
