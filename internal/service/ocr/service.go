// Package ocr wraps the external OCR capability behind a small
// extraction contract. An image with no detectable text yields an
// empty string and a nil error; the caller decides what that means.
package ocr

import (
	"context"
	"errors"
)

// ErrExtractionFailed is returned when the OCR backend is unreachable,
// rejects the input, or returns a malformed response.
var ErrExtractionFailed = errors.New("failed to extract text from image")

// Extractor turns raw image bytes into a best-effort plain-text
// transcription.
type Extractor interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}
