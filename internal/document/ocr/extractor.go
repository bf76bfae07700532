package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/document/extractor"
)

// LineRecognizer returns the text lines found in an encoded image.
type LineRecognizer interface {
	RecognizeLines(ctx context.Context, image []byte) ([]string, error)
}

// Extractor downloads a PDF and reads every page by OCR. The result holds one
// entry per recognized line; page boundaries are not kept.
type Extractor struct {
	fetcher    *Fetcher
	renderer   PageRenderer
	recognizer LineRecognizer
	logger     *zap.Logger
}

func NewExtractor(fetcher *Fetcher, renderer PageRenderer, recognizer LineRecognizer, logger *zap.Logger) *Extractor {
	return &Extractor{
		fetcher:    fetcher,
		renderer:   renderer,
		recognizer: recognizer,
		logger:     logger,
	}
}

// Extract fetches src.URL and recognizes it. The network fetch completes
// before any recognition starts.
func (e *Extractor) Extract(ctx context.Context, src extractor.Source) ([]string, error) {
	start := time.Now()

	body, err := e.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	if err := extractor.CheckPDF(body); err != nil {
		return nil, err
	}

	lines := make([]string, 0)
	pages := 0
	err = e.renderer.Render(ctx, body, func(page int, image []byte) error {
		pageLines, err := e.recognizer.RecognizeLines(ctx, image)
		if err != nil {
			if !errors.Is(err, common.ErrOCR) {
				err = fmt.Errorf("%w: %w", common.ErrOCR, err)
			}
			return fmt.Errorf("page %d: %w", page, err)
		}
		pages++
		lines = append(lines, pageLines...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("ocr extraction complete",
		zap.String("url", src.URL),
		zap.Int("bytes", len(body)),
		zap.Int("pages", pages),
		zap.Int("lines", len(lines)),
		zap.Duration("duration", time.Since(start)),
	)

	return lines, nil
}
