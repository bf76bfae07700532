package document

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/pdftest"
)

func TestParseBackend(t *testing.T) {
	for _, b := range Backends {
		got, err := ParseBackend(string(b))
		if err != nil || got != b {
			t.Errorf("ParseBackend(%q) = %q, %v", b, got, err)
		}
	}
	for _, bad := range []string{"", "Layout", "pdfminer"} {
		if _, err := ParseBackend(bad); !errors.Is(err, common.ErrInput) {
			t.Errorf("ParseBackend(%q) error = %v, want input error", bad, err)
		}
	}
}

func TestProcessorExtractLayout(t *testing.T) {
	p := NewProcessor(Config{}, zap.NewNop())
	doc := pdftest.Build([]string{"LV101 valve"}, []string{"PT200 sensor"})

	res, err := p.Extract(context.Background(), Request{Backend: BackendLayout, Data: doc})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(res.Entries))
	}
	if res.Entries[0] != "LV101 valve" {
		t.Errorf("entry 0 = %q", res.Entries[0])
	}
	if res.DocumentID == "" || res.Backend != BackendLayout {
		t.Errorf("unexpected result metadata %+v", res)
	}
	if res.Metadata["entries"] != "2" {
		t.Errorf("metadata entries = %q", res.Metadata["entries"])
	}
}

func TestProcessorRejects(t *testing.T) {
	p := NewProcessor(Config{MaxDocumentSize: 16}, zap.NewNop())

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"unknown backend", Request{Backend: "fitz", Data: []byte("%PDF-1.4")}, ErrUnknownBackend},
		{"too large", Request{Backend: BackendLayout, Data: []byte(strings.Repeat("x", 17))}, ErrFileTooLarge},
		{"malformed", Request{Backend: BackendLayout, Data: []byte("not a pdf")}, common.ErrParse},
		{"malformed mupdf", Request{Backend: BackendMuPDF, Data: []byte("not a pdf")}, common.ErrParse},
		{"malformed elements", Request{Backend: BackendElements, Data: []byte("not a pdf")}, common.ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Extract(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if res != nil {
				t.Errorf("got result %+v", res)
			}
		})
	}
}

func TestProcessorOCRUsesDefaultURL(t *testing.T) {
	p := NewProcessor(Config{OCRDefaultURL: "ftp://example.com/fixed.pdf"}, zap.NewNop())

	_, err := p.Extract(context.Background(), Request{Backend: BackendOCR})
	if !errors.Is(err, common.ErrNetwork) {
		t.Fatalf("error = %v, want network error", err)
	}
	if !strings.Contains(err.Error(), "ftp://example.com/fixed.pdf") {
		t.Errorf("default URL not used: %v", err)
	}
}
