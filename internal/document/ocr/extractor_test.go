package ocr

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/document/extractor"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/pdftest"
)

// fakeRenderer emits one "image" per page without touching MuPDF.
type fakeRenderer struct {
	pages [][]byte
	err   error
	calls int
}

func (f *fakeRenderer) Render(_ context.Context, _ []byte, fn func(int, []byte) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	for i, p := range f.pages {
		if err := fn(i+1, p); err != nil {
			return err
		}
	}
	return nil
}

type fakeLines struct {
	byImage map[string][]string
	err     error
	calls   int
}

func (f *fakeLines) RecognizeLines(_ context.Context, image []byte) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byImage[string(image)], nil
}

func servePDF(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractorFlattensPages(t *testing.T) {
	srv := servePDF(t, http.StatusOK, "%PDF-1.5 remote")
	renderer := &fakeRenderer{pages: [][]byte{[]byte("p1"), []byte("p2")}}
	rec := &fakeLines{byImage: map[string][]string{
		"p1": {"LV101 valve", "PT200 sensor"},
		"p2": {"LV102 valve"},
	}}

	e := NewExtractor(NewFetcher(time.Second, 0), renderer, rec, zap.NewNop())
	got, err := e.Extract(context.Background(), extractor.Source{URL: srv.URL + "/doc.pdf"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := []string{"LV101 valve", "PT200 sensor", "LV102 valve"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %q, want %q", got, want)
	}
}

func TestExtractorNetworkFailures(t *testing.T) {
	notFound := servePDF(t, http.StatusNotFound, "missing")

	closed := httptest.NewServer(http.NotFoundHandler())
	unreachable := closed.URL
	closed.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	tests := []struct {
		name    string
		url     string
		timeout time.Duration
	}{
		{"non 2xx", notFound.URL, time.Second},
		{"unreachable", unreachable, time.Second},
		{"timeout", slow.URL, 50 * time.Millisecond},
		{"bad scheme", "ftp://example.com/doc.pdf", time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := &fakeRenderer{}
			rec := &fakeLines{}
			e := NewExtractor(NewFetcher(tt.timeout, 0), renderer, rec, zap.NewNop())

			got, err := e.Extract(context.Background(), extractor.Source{URL: tt.url})
			if !errors.Is(err, common.ErrNetwork) {
				t.Fatalf("error = %v, want network error", err)
			}
			if got != nil {
				t.Errorf("got partial result %q", got)
			}
			if renderer.calls != 0 || rec.calls != 0 {
				t.Errorf("OCR attempted after failed fetch")
			}
		})
	}
}

func TestExtractorBodyTooLarge(t *testing.T) {
	srv := servePDF(t, http.StatusOK, "%PDF-1.4 this body is longer than the cap")
	e := NewExtractor(NewFetcher(time.Second, 8), &fakeRenderer{}, &fakeLines{}, zap.NewNop())

	if _, err := e.Extract(context.Background(), extractor.Source{URL: srv.URL}); !errors.Is(err, common.ErrNetwork) {
		t.Errorf("error = %v, want network error", err)
	}
}

func TestExtractorNotAPDF(t *testing.T) {
	srv := servePDF(t, http.StatusOK, "<html>login page</html>")
	renderer := &fakeRenderer{}
	e := NewExtractor(NewFetcher(time.Second, 0), renderer, &fakeLines{}, zap.NewNop())

	if _, err := e.Extract(context.Background(), extractor.Source{URL: srv.URL}); !errors.Is(err, common.ErrParse) {
		t.Fatalf("error = %v, want parse error", err)
	}
	if renderer.calls != 0 {
		t.Error("renderer ran on a non-PDF body")
	}
}

func TestExtractorRecognitionFailure(t *testing.T) {
	srv := servePDF(t, http.StatusOK, "%PDF-1.4")
	renderer := &fakeRenderer{pages: [][]byte{[]byte("p1"), []byte("p2")}}
	rec := &fakeLines{err: errors.New("corrupt image stream")}
	e := NewExtractor(NewFetcher(time.Second, 0), renderer, rec, zap.NewNop())

	got, err := e.Extract(context.Background(), extractor.Source{URL: srv.URL})
	if !errors.Is(err, common.ErrOCR) {
		t.Fatalf("error = %v, want OCR error", err)
	}
	if got != nil {
		t.Errorf("got partial result %q", got)
	}
	if rec.calls != 1 {
		t.Errorf("recognizer calls = %d, want 1", rec.calls)
	}
}

func TestExtractorMissingURL(t *testing.T) {
	e := NewExtractor(NewFetcher(time.Second, 0), &fakeRenderer{}, &fakeLines{}, zap.NewNop())
	if _, err := e.Extract(context.Background(), extractor.Source{}); !errors.Is(err, common.ErrInput) {
		t.Errorf("error = %v, want input error", err)
	}
}

func TestNewTesseractLanguages(t *testing.T) {
	got := NewTesseract(" eng + deu+").languages
	if !reflect.DeepEqual(got, []string{"eng", "deu"}) {
		t.Errorf("languages = %q", got)
	}
	if NewTesseract("").languages != nil {
		t.Error("empty language list should stay nil")
	}
}

func TestFitzRendererPages(t *testing.T) {
	doc := pdftest.Build([]string{"LV101 valve"}, nil, []string{"LV102 valve"})

	var pages []int
	err := FitzRenderer{DPI: 36}.Render(context.Background(), doc, func(page int, image []byte) error {
		cfg, err := png.DecodeConfig(bytes.NewReader(image))
		if err != nil {
			t.Fatalf("page %d is not a PNG: %v", page, err)
		}
		// 612x792pt at 36 DPI.
		if cfg.Width != 306 || cfg.Height != 396 {
			t.Errorf("page %d size = %dx%d, want 306x396", page, cfg.Width, cfg.Height)
		}
		pages = append(pages, page)
		return nil
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if want := []int{1, 2, 3}; !reflect.DeepEqual(pages, want) {
		t.Errorf("rendered pages = %v, want %v", pages, want)
	}
}

func TestFitzRendererStopsOnCallbackError(t *testing.T) {
	doc := pdftest.Build([]string{"a"}, []string{"b"})
	stop := errors.New("stop")

	calls := 0
	err := FitzRenderer{DPI: 36}.Render(context.Background(), doc, func(int, []byte) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("Render() error = %v after %d calls, want stop after 1", err, calls)
	}
}
