package document

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/document/extractor"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/document/ocr"
)

// Error definitions
var (
	ErrFileTooLarge   = fmt.Errorf("%w: file size exceeds maximum allowed size", common.ErrInput)
	ErrUnknownBackend = fmt.Errorf("%w: unknown extraction backend", common.ErrInput)
)

// Backend identifies one text extraction strategy.
type Backend string

const (
	// BackendLayout rebuilds each page's text layout from the PDF content streams.
	BackendLayout Backend = "layout"
	// BackendMuPDF returns MuPDF's plain text for each page.
	BackendMuPDF Backend = "mupdf"
	// BackendElements splits the document into titles, paragraphs, list items and image text.
	BackendElements Backend = "elements"
	// BackendOCR downloads a PDF and reads it with Tesseract.
	BackendOCR Backend = "ocr"
)

// Backends lists every backend in the order they are offered to users.
var Backends = []Backend{BackendElements, BackendLayout, BackendMuPDF, BackendOCR}

// ParseBackend validates a backend identifier.
func ParseBackend(s string) (Backend, error) {
	for _, b := range Backends {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownBackend, s)
}

// Config holds the processor settings.
type Config struct {
	MaxDocumentSize int64
	TempDir         string
	OCRDefaultURL   string
	OCRLanguage     string
	OCRDPI          float64
	FetchTimeout    time.Duration
	MaxFetchBytes   int64
}

// Request describes one extraction.
type Request struct {
	Backend  Backend
	Data     []byte
	URL      string
	Elements extractor.ElementOptions
}

// ProcessorResult contains the extracted text and metadata
type ProcessorResult struct {
	DocumentID string
	Backend    Backend
	Entries    []string
	Duration   time.Duration
	Metadata   map[string]string
}

// Processor runs one backend per request.
type Processor struct {
	cfg       Config
	tesseract *ocr.Tesseract
	logger    *zap.Logger
}

// NewProcessor creates a new document processor
func NewProcessor(cfg Config, logger *zap.Logger) *Processor {
	if cfg.MaxDocumentSize <= 0 {
		cfg.MaxDocumentSize = 50 * 1024 * 1024
	}
	return &Processor{
		cfg:       cfg,
		tesseract: ocr.NewTesseract(cfg.OCRLanguage),
		logger:    logger,
	}
}

// Extract runs the requested backend once over the request's document.
func (p *Processor) Extract(ctx context.Context, req Request) (*ProcessorResult, error) {
	if _, err := ParseBackend(string(req.Backend)); err != nil {
		return nil, err
	}
	if int64(len(req.Data)) > p.cfg.MaxDocumentSize {
		return nil, ErrFileTooLarge
	}

	src := extractor.Source{Data: req.Data, URL: req.URL}
	if req.Backend == BackendOCR && src.URL == "" {
		src.URL = p.cfg.OCRDefaultURL
	}

	id := uuid.NewString()
	logger := p.logger.With(zap.String("document_id", id), zap.String("backend", string(req.Backend)))
	logger.Info("extraction started", zap.Int("bytes", len(req.Data)), zap.String("url", src.URL))

	start := time.Now()
	entries, err := p.newExtractor(req).Extract(ctx, src)
	if err != nil {
		logger.Warn("extraction failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	result := &ProcessorResult{
		DocumentID: id,
		Backend:    req.Backend,
		Entries:    entries,
		Duration:   time.Since(start),
		Metadata: map[string]string{
			"backend": string(req.Backend),
			"entries": fmt.Sprint(len(entries)),
		},
	}
	if req.Backend == BackendElements {
		result.Metadata["mode"] = string(req.Elements.Mode)
		result.Metadata["extract_images"] = fmt.Sprint(req.Elements.ExtractImages)
	}
	if req.Backend == BackendOCR {
		result.Metadata["url"] = src.URL
	}

	logger.Info("extraction finished", zap.Int("entries", len(entries)), zap.Duration("duration", result.Duration))
	return result, nil
}

// newExtractor builds the backend for one call from explicit configuration.
func (p *Processor) newExtractor(req Request) extractor.Extractor {
	switch req.Backend {
	case BackendMuPDF:
		return extractor.NewMuPDFExtractor(p.logger)
	case BackendElements:
		opts := req.Elements
		if opts.Mode == "" {
			opts.Mode = extractor.ModeElements
		}
		return extractor.NewElementExtractor(opts, p.tesseract, p.cfg.TempDir, p.logger)
	case BackendOCR:
		return ocr.NewExtractor(
			ocr.NewFetcher(p.cfg.FetchTimeout, p.cfg.MaxFetchBytes),
			ocr.FitzRenderer{DPI: p.cfg.OCRDPI},
			p.tesseract,
			p.logger,
		)
	default:
		return extractor.NewLayoutExtractor(p.logger)
	}
}
