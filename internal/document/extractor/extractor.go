// Package extractor holds the PDF text extraction backends that work on
// in-memory documents. Every backend turns one document into an ordered list
// of strings and fails as a whole: a failed extraction never returns a partial
// result.
package extractor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
)

// Source is the document handed to a backend. Data holds the raw PDF bytes;
// URL is used by backends that fetch the document themselves.
type Source struct {
	Data []byte
	URL  string
}

// Extractor is implemented by every text extraction backend.
type Extractor interface {
	Extract(ctx context.Context, src Source) ([]string, error)
}

// ImageRecognizer turns an encoded image into text.
type ImageRecognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// headerWindow is how far into the stream the %PDF- marker may appear.
const headerWindow = 1024

// CheckPDF reports a parse error when data does not carry a PDF header.
func CheckPDF(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty document", common.ErrParse)
	}
	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	if !bytes.Contains(window, []byte("%PDF-")) {
		return fmt.Errorf("%w: missing %%PDF- header", common.ErrParse)
	}
	return nil
}
