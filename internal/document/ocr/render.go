package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
)

// PageRenderer rasterizes every page of a PDF and hands the encoded image of
// each page to fn, in page order. Rendering stops at the first error from fn.
type PageRenderer interface {
	Render(ctx context.Context, pdf []byte, fn func(page int, image []byte) error) error
}

// FitzRenderer renders pages with MuPDF.
type FitzRenderer struct {
	DPI float64
}

func (r FitzRenderer) Render(ctx context.Context, pdf []byte, fn func(page int, image []byte) error) error {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return fmt.Errorf("%w: open pdf: %w", common.ErrParse, err)
	}
	defer doc.Close()

	dpi := r.DPI
	if dpi <= 0 {
		dpi = 300
	}

	for i := 0; i < doc.NumPage(); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(i, dpi)
		if err != nil {
			return fmt.Errorf("%w: render page %d: %w", common.ErrOCR, i+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("%w: encode page %d: %w", common.ErrOCR, i+1, err)
		}

		if err := fn(i+1, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}
