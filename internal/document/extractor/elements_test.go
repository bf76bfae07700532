package extractor

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/pdftest"
)

const pageOne = `<div id="page0" style="width:612pt;height:792pt">
<p style="top:60pt;left:72pt;line-height:24pt"><span style="font-family:Helvetica;font-size:24pt">Separator Design</span></p>
<p style="top:100pt;left:72pt;line-height:12pt"><span style="font-family:Helvetica;font-size:12pt">LV101 valve controls the</span></p>
<p style="top:114pt;left:72pt;line-height:12pt"><span style="font-family:Helvetica;font-size:12pt">liquid level.</span></p>
<p style="top:140pt;left:72pt;line-height:12pt"><span style="font-family:Helvetica;font-size:12pt">• PT200 sensor</span></p>
<p style="top:154pt;left:72pt;line-height:12pt"><span style="font-family:Helvetica;font-size:12pt">• LV102 valve</span></p>
<img style="top:200pt;left:72pt;width:100pt;height:50pt" src="data:image/png;base64,` + "aW1hZ2Ux" + `">
</div>`

const pageTwo = `<div id="page1"><p style="top:72pt"><span style="font-size:12pt">Second page</span></p><p style="top:90pt"><span style="font-size:12pt">   </span></p></div>`

type fakeRecognizer struct {
	calls [][]byte
	text  string
	err   error
}

func (f *fakeRecognizer) Recognize(_ context.Context, image []byte) (string, error) {
	f.calls = append(f.calls, image)
	return f.text, f.err
}

func newTestElementExtractor(t *testing.T, opts ElementOptions, rec ImageRecognizer, render func(string) ([]string, error)) (*ElementExtractor, string) {
	t.Helper()
	dir := t.TempDir()
	e := NewElementExtractor(opts, rec, dir, zap.NewNop())
	e.renderPages = render
	return e, dir
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir still holds %d artifacts", len(entries))
	}
}

func TestElementExtractorElements(t *testing.T) {
	rec := &fakeRecognizer{text: "  FLOW DIAGRAM \n"}
	var spooled []byte
	e, dir := newTestElementExtractor(t, DefaultElementOptions(), rec, func(path string) ([]string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("temp file not readable during parse: %v", err)
		}
		spooled = data
		return []string{pageOne, pageTwo}, nil
	})

	doc := []byte("%PDF-1.4 test document")
	elements, err := e.Elements(context.Background(), Source{Data: doc})
	if err != nil {
		t.Fatalf("Elements() error = %v", err)
	}
	if string(spooled) != string(doc) {
		t.Errorf("spooled bytes = %q, want %q", spooled, doc)
	}
	assertDirEmpty(t, dir)

	want := []Element{
		{Kind: KindTitle, Text: "Separator Design", Page: 1},
		{Kind: KindNarrative, Text: "LV101 valve controls the\nliquid level.", Page: 1},
		{Kind: KindListItem, Text: "• PT200 sensor", Page: 1},
		{Kind: KindListItem, Text: "• LV102 valve", Page: 1},
		{Kind: KindImage, Text: "FLOW DIAGRAM", Page: 1},
		{Kind: KindNarrative, Text: "Second page", Page: 2},
	}
	if !reflect.DeepEqual(elements, want) {
		t.Errorf("Elements() =\n%#v\nwant\n%#v", elements, want)
	}

	if len(rec.calls) != 1 || string(rec.calls[0]) != "image1" {
		t.Errorf("recognizer calls = %q", rec.calls)
	}
}

func TestElementExtractorModes(t *testing.T) {
	render := func(string) ([]string, error) { return []string{pageOne, pageTwo}, nil }

	tests := []struct {
		mode ElementMode
		want []string
	}{
		{ModeElements, []string{"Separator Design", "LV101 valve controls the\nliquid level.", "• PT200 sensor", "• LV102 valve", "Second page"}},
		{ModePaged, []string{"Separator Design\n\nLV101 valve controls the\nliquid level.\n\n• PT200 sensor\n\n• LV102 valve", "Second page"}},
		{ModeSingle, []string{"Separator Design\n\nLV101 valve controls the\nliquid level.\n\n• PT200 sensor\n\n• LV102 valve\n\nSecond page"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			e, _ := newTestElementExtractor(t, ElementOptions{Mode: tt.mode}, nil, render)
			got, err := e.Extract(context.Background(), Source{Data: []byte("%PDF-1.4")})
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestElementExtractorParserFailureReleasesArtifact(t *testing.T) {
	parseErr := errors.New("cannot open document")
	var seen string
	e, dir := newTestElementExtractor(t, ElementOptions{Mode: ModeElements}, nil, func(path string) ([]string, error) {
		seen = path
		if _, err := os.Stat(path); err != nil {
			t.Errorf("temp file missing during parse: %v", err)
		}
		return nil, errors.Join(common.ErrParse, parseErr)
	})

	got, err := e.Extract(context.Background(), Source{Data: []byte("%PDF-1.4 truncated")})
	if !errors.Is(err, common.ErrParse) {
		t.Fatalf("error = %v, want parse error", err)
	}
	if got != nil {
		t.Errorf("got partial result %q", got)
	}
	if seen == "" {
		t.Fatal("parser never ran")
	}
	if _, err := os.Stat(seen); !os.IsNotExist(err) {
		t.Errorf("temp file %s survived the failed parse", seen)
	}
	assertDirEmpty(t, dir)
}

func TestElementExtractorHeaderCheckedBeforeSpool(t *testing.T) {
	called := false
	e, dir := newTestElementExtractor(t, ElementOptions{Mode: ModeElements}, nil, func(string) ([]string, error) {
		called = true
		return nil, nil
	})

	_, err := e.Extract(context.Background(), Source{Data: []byte("plain text")})
	if !errors.Is(err, common.ErrParse) {
		t.Fatalf("error = %v, want parse error", err)
	}
	if called {
		t.Error("parser ran on a stream without a PDF header")
	}
	assertDirEmpty(t, dir)
}

func TestElementExtractorRecognitionFailure(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("tesseract: corrupt image")}
	e, dir := newTestElementExtractor(t, DefaultElementOptions(), rec, func(string) ([]string, error) {
		return []string{pageOne}, nil
	})

	got, err := e.Extract(context.Background(), Source{Data: []byte("%PDF-1.4")})
	if !errors.Is(err, common.ErrOCR) {
		t.Fatalf("error = %v, want OCR error", err)
	}
	if got != nil {
		t.Errorf("got partial result %q", got)
	}
	assertDirEmpty(t, dir)
}

func TestElementExtractorSkipsImagesWhenDisabled(t *testing.T) {
	rec := &fakeRecognizer{text: "never"}
	e, _ := newTestElementExtractor(t, ElementOptions{Mode: ModeElements}, rec, func(string) ([]string, error) {
		return []string{pageOne}, nil
	})

	got, err := e.Extract(context.Background(), Source{Data: []byte("%PDF-1.4")})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("recognizer called %d times", len(rec.calls))
	}
	for _, s := range got {
		if s == "never" {
			t.Errorf("image text present in %q", got)
		}
	}
}

func TestElementExtractorLazyValidation(t *testing.T) {
	e := NewElementExtractor(ElementOptions{Mode: "chapters"}, nil, "", zap.NewNop())
	if _, err := e.Extract(context.Background(), Source{Data: []byte("%PDF-1.4")}); !errors.Is(err, common.ErrInput) {
		t.Errorf("unknown mode error = %v, want input error", err)
	}

	e = NewElementExtractor(ElementOptions{Mode: ModeElements, ExtractImages: true}, nil, "", zap.NewNop())
	if _, err := e.Extract(context.Background(), Source{Data: []byte("%PDF-1.4")}); !errors.Is(err, common.ErrOCR) {
		t.Errorf("missing recognizer error = %v, want OCR error", err)
	}
}

func TestRecognizeImageRejectsBadURI(t *testing.T) {
	e := NewElementExtractor(DefaultElementOptions(), &fakeRecognizer{}, "", zap.NewNop())

	bad := []string{
		"data:image/png,plain",
		"data:image/png;base64,!!!",
		"data:image/png;base64" + base64.StdEncoding.EncodeToString([]byte("x")),
	}
	for _, uri := range bad {
		if _, err := e.recognizeImage(context.Background(), uri); !errors.Is(err, common.ErrOCR) {
			t.Errorf("recognizeImage(%q) error = %v, want OCR error", uri, err)
		}
	}
}

func TestElementExtractorRendersWithMuPDF(t *testing.T) {
	doc := pdftest.Build(
		[]string{"LV101 valve", "PT200 sensor"},
		nil,
		[]string{"LV102 valve"},
	)

	tests := []struct {
		mode ElementMode
		want []string
	}{
		{ModeElements, []string{"LV101 valve\nPT200 sensor", "LV102 valve"}},
		{ModePaged, []string{"LV101 valve\nPT200 sensor", "LV102 valve"}},
		{ModeSingle, []string{"LV101 valve\nPT200 sensor\n\nLV102 valve"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			dir := t.TempDir()
			e := NewElementExtractor(ElementOptions{Mode: tt.mode}, nil, dir, zap.NewNop())

			got, err := e.Extract(context.Background(), Source{Data: doc})
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
			assertDirEmpty(t, dir)
		})
	}
}
