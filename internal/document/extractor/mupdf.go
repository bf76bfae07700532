package extractor

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
)

// MuPDFExtractor returns the text MuPDF reconstructs for each page.
type MuPDFExtractor struct {
	logger *zap.Logger
}

func NewMuPDFExtractor(logger *zap.Logger) *MuPDFExtractor {
	return &MuPDFExtractor{logger: logger}
}

func (e *MuPDFExtractor) Extract(ctx context.Context, src Source) ([]string, error) {
	if err := CheckPDF(src.Data); err != nil {
		return nil, err
	}

	doc, err := fitz.NewFromMemory(src.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %w", common.ErrParse, err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		text, err := doc.Text(i)
		if err != nil {
			e.logger.Debug("page yielded no text", zap.Int("page", i+1), zap.Error(err))
			text = ""
		}
		pages = append(pages, text)
	}

	return pages, nil
}
