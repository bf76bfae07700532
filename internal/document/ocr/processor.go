// Package ocr recognizes text in rendered document pages with Tesseract and
// implements the backend that downloads a PDF and reads it by OCR.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
)

// Tesseract recognizes text with a fresh gosseract client per image, so a
// value can be shared by concurrent extractions.
type Tesseract struct {
	languages []string
}

// NewTesseract creates a recognizer for the given "+"-separated languages,
// e.g. "eng+deu". Empty means the Tesseract default.
func NewTesseract(languages string) *Tesseract {
	t := &Tesseract{}
	for _, lang := range strings.Split(languages, "+") {
		if lang = strings.TrimSpace(lang); lang != "" {
			t.languages = append(t.languages, lang)
		}
	}
	return t
}

// Recognize returns the text of an encoded image.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	client, err := t.client(image)
	if err != nil {
		return "", err
	}
	defer client.Close()

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("%w: recognize: %w", common.ErrOCR, err)
	}
	return text, nil
}

// RecognizeLines returns the text lines of an encoded image, top to bottom.
// Lines are trimmed and empty lines dropped.
func (t *Tesseract) RecognizeLines(ctx context.Context, image []byte) ([]string, error) {
	client, err := t.client(image)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("%w: recognize lines: %w", common.ErrOCR, err)
	}

	lines := make([]string, 0, len(boxes))
	for _, box := range boxes {
		if line := strings.TrimSpace(box.Word); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (t *Tesseract) client(image []byte) (*gosseract.Client, error) {
	client := gosseract.NewClient()

	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: set language: %w", common.ErrOCR, err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: set image: %w", common.ErrOCR, err)
	}
	return client, nil
}
