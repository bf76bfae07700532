package extractor

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
)

// LayoutExtractor rebuilds the text of each page row by row.
type LayoutExtractor struct {
	logger *zap.Logger
}

// NewLayoutExtractor creates a new layout extractor
func NewLayoutExtractor(logger *zap.Logger) *LayoutExtractor {
	return &LayoutExtractor{logger: logger}
}

// Extract returns one entry per physical page. Pages without recoverable text
// yield an empty string.
func (e *LayoutExtractor) Extract(ctx context.Context, src Source) ([]string, error) {
	if err := CheckPDF(src.Data); err != nil {
		return nil, err
	}

	r, numPages, err := openReader(src.Data)
	if err != nil {
		return nil, err
	}

	pages := make([]string, 0, numPages)

	for i := 1; i <= numPages; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		text, err := pageLayout(r.Page(i))
		if err != nil {
			e.logger.Debug("page yielded no text", zap.Int("page", i), zap.Error(err))
			text = ""
		}
		pages = append(pages, text)
	}

	return pages, nil
}

// openReader wraps pdf.NewReader, which panics on some malformed streams.
func openReader(data []byte) (r *pdf.Reader, pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, pages, err = nil, 0, fmt.Errorf("%w: %v", common.ErrParse, rec)
		}
	}()

	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", common.ErrParse, err)
	}
	return r, r.NumPage(), nil
}

func pageLayout(p pdf.Page) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("page content: %v", rec)
		}
	}()

	if p.V.IsNull() {
		return "", nil
	}

	return joinRows(groupRows(p.Content().Text)), nil
}

// groupRows collects positioned glyph runs into rows, top to bottom. Runs whose
// baselines lie within half a glyph height of the row's first run share it.
func groupRows(texts []pdf.Text) [][]pdf.Text {
	runs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S != "" {
			runs = append(runs, t)
		}
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Y > runs[j].Y
	})

	var rows [][]pdf.Text
	var rowY float64
	for _, t := range runs {
		if len(rows) > 0 && rowY-t.Y <= rowTolerance(t) {
			rows[len(rows)-1] = append(rows[len(rows)-1], t)
			continue
		}
		rows = append(rows, []pdf.Text{t})
		rowY = t.Y
	}
	return rows
}

func rowTolerance(t pdf.Text) float64 {
	if t.FontSize > 0 {
		return t.FontSize / 2
	}
	return 1
}

// joinRows orders the runs of each row left to right, separating them with a
// space where the horizontal gap between them is wider than a glyph fraction.
func joinRows(rows [][]pdf.Text) string {
	lines := make([]string, 0, len(rows))
	for _, runs := range rows {
		sort.SliceStable(runs, func(i, j int) bool {
			return runs[i].X < runs[j].X
		})

		var line strings.Builder
		for i, run := range runs {
			if i > 0 && needsSpace(runs[i-1], run) {
				line.WriteByte(' ')
			}
			line.WriteString(run.S)
		}
		lines = append(lines, strings.TrimRight(line.String(), " "))
	}
	return strings.Join(lines, "\n")
}

func needsSpace(prev, next pdf.Text) bool {
	if strings.HasSuffix(prev.S, " ") || strings.HasPrefix(next.S, " ") {
		return false
	}
	threshold := 1.0
	if prev.FontSize > 0 {
		threshold = prev.FontSize * 0.15
	}
	return next.X-(prev.X+prev.W) > threshold
}
