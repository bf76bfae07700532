package extractor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
)

// ElementMode controls the granularity of the element extractor's output.
type ElementMode string

const (
	// ModeElements returns one entry per structural element.
	ModeElements ElementMode = "elements"
	// ModePaged returns one entry per page, its elements separated by a blank line.
	ModePaged ElementMode = "paged"
	// ModeSingle returns the whole document as one entry.
	ModeSingle ElementMode = "single"
)

// ElementOptions configures an ElementExtractor.
type ElementOptions struct {
	ExtractImages bool
	Mode          ElementMode
}

// DefaultElementOptions extracts images and returns individual elements.
func DefaultElementOptions() ElementOptions {
	return ElementOptions{ExtractImages: true, Mode: ModeElements}
}

// ElementExtractor splits a document into titles, paragraphs, list items and
// recognized image text. The underlying parser opens documents by path, so the
// bytes are spooled to a temporary file for the duration of one call.
type ElementExtractor struct {
	opts       ElementOptions
	recognizer ImageRecognizer
	tempDir    string
	logger     *zap.Logger

	// renderPages opens the file at path and returns each page as HTML.
	renderPages func(path string) ([]string, error)
}

// NewElementExtractor creates an element extractor. recognizer may be nil when
// opts.ExtractImages is false. An empty tempDir uses the system default.
func NewElementExtractor(opts ElementOptions, recognizer ImageRecognizer, tempDir string, logger *zap.Logger) *ElementExtractor {
	return &ElementExtractor{
		opts:        opts,
		recognizer:  recognizer,
		tempDir:     tempDir,
		logger:      logger,
		renderPages: renderHTMLPages,
	}
}

// Extract returns the element texts shaped by the configured mode.
func (e *ElementExtractor) Extract(ctx context.Context, src Source) ([]string, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	elements, err := e.Elements(ctx, src)
	if err != nil {
		return nil, err
	}

	return shape(elements, e.opts.Mode), nil
}

func (e *ElementExtractor) validate() error {
	switch e.opts.Mode {
	case ModeElements, ModePaged, ModeSingle:
	default:
		return fmt.Errorf("%w: unknown element mode %q", common.ErrInput, e.opts.Mode)
	}
	if e.opts.ExtractImages && e.recognizer == nil {
		return fmt.Errorf("%w: image extraction requested without a recognizer", common.ErrOCR)
	}
	return nil
}

// Elements parses the document into structural elements in document order.
func (e *ElementExtractor) Elements(ctx context.Context, src Source) ([]Element, error) {
	if err := CheckPDF(src.Data); err != nil {
		return nil, err
	}

	pages, err := e.spoolAndRender(src.Data)
	if err != nil {
		return nil, err
	}

	var elements []Element
	for i, page := range pages {
		blocks, err := parsePageHTML(page)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", common.ErrParse, i+1, err)
		}

		for _, el := range groupElements(blocks, i+1) {
			if el.Kind != KindImage {
				elements = append(elements, el)
				continue
			}
			if !e.opts.ExtractImages {
				continue
			}
			text, err := e.recognizeImage(ctx, el.Text)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", i+1, err)
			}
			if text = strings.TrimSpace(text); text != "" {
				el.Text = text
				elements = append(elements, el)
			}
		}
	}

	e.logger.Debug("elements extracted",
		zap.Int("pages", len(pages)),
		zap.Int("elements", len(elements)),
		zap.Bool("extract_images", e.opts.ExtractImages),
	)

	return elements, nil
}

// spoolAndRender writes data to a temporary file that lives only until the
// parser is done with it.
func (e *ElementExtractor) spoolAndRender(data []byte) ([]string, error) {
	f, err := os.CreateTemp(e.tempDir, "elements-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			e.logger.Warn("failed to remove temp file", zap.String("path", path), zap.Error(err))
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	return e.renderPages(path)
}

func (e *ElementExtractor) recognizeImage(ctx context.Context, dataURI string) (string, error) {
	comma := strings.IndexByte(dataURI, ',')
	if comma < 0 || !strings.Contains(dataURI[:comma], ";base64") {
		return "", fmt.Errorf("%w: unsupported image encoding", common.ErrOCR)
	}
	img, err := base64.StdEncoding.DecodeString(dataURI[comma+1:])
	if err != nil {
		return "", fmt.Errorf("%w: decode image: %w", common.ErrOCR, err)
	}

	text, err := e.recognizer.Recognize(ctx, img)
	if err != nil {
		if errors.Is(err, common.ErrOCR) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", common.ErrOCR, err)
	}
	return text, nil
}

func renderHTMLPages(path string) ([]string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %w", common.ErrParse, err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		page, err := doc.HTML(i, false)
		if err != nil {
			return nil, fmt.Errorf("%w: render page %d: %w", common.ErrParse, i+1, err)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func shape(elements []Element, mode ElementMode) []string {
	switch mode {
	case ModeSingle:
		texts := make([]string, len(elements))
		for i, el := range elements {
			texts[i] = el.Text
		}
		return []string{strings.Join(texts, "\n\n")}
	case ModePaged:
		var (
			out  []string
			page []string
			last = 0
		)
		for _, el := range elements {
			if el.Page != last && len(page) > 0 {
				out = append(out, strings.Join(page, "\n\n"))
				page = nil
			}
			last = el.Page
			page = append(page, el.Text)
		}
		if len(page) > 0 {
			out = append(out, strings.Join(page, "\n\n"))
		}
		if out == nil {
			out = []string{}
		}
		return out
	default:
		out := make([]string, len(elements))
		for i, el := range elements {
			out[i] = el.Text
		}
		return out
	}
}
