package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ElementKind names the role of a structural element.
type ElementKind string

const (
	KindTitle     ElementKind = "Title"
	KindNarrative ElementKind = "NarrativeText"
	KindListItem  ElementKind = "ListItem"
	KindImage     ElementKind = "Image"
)

// Element is one structural unit of a page.
type Element struct {
	Kind ElementKind
	Text string
	Page int
}

// block is a positioned piece of a rendered page: a text line or an image.
type block struct {
	text     string
	top      float64
	fontSize float64
	image    string // data URI, set for images only
}

var (
	topRe      = regexp.MustCompile(`top:\s*(-?[\d.]+)pt`)
	fontSizeRe = regexp.MustCompile(`font-size:\s*([\d.]+)pt`)
	listRe     = regexp.MustCompile(`^\s*(?:[•●▪◦‣∙\-*–]|\(?\d{1,3}[.)]|\(?[a-zA-Z][.)])\s+`)
)

// parsePageHTML collects the text lines and images of one page rendered as
// HTML by MuPDF, in document order.
func parsePageHTML(page string) ([]block, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, err
	}

	var blocks []block
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p":
				var b strings.Builder
				size := 0.0
				extractTextFromNode(n, &b, &size)
				if size == 0 {
					size = styleValue(fontSizeRe, attr(n, "style"))
				}
				blocks = append(blocks, block{
					text:     b.String(),
					top:      styleValue(topRe, attr(n, "style")),
					fontSize: size,
				})
				return
			case "img":
				if src := attr(n, "src"); strings.HasPrefix(src, "data:") {
					blocks = append(blocks, block{
						top:   styleValue(topRe, attr(n, "style")),
						image: src,
					})
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return blocks, nil
}

// extractTextFromNode appends the text below n to b, turning <br> into a
// newline, and records the largest font size declared on the way.
func extractTextFromNode(n *html.Node, b *strings.Builder, size *float64) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
	case html.ElementNode:
		if n.Data == "br" {
			b.WriteByte('\n')
		}
		if s := styleValue(fontSizeRe, attr(n, "style")); s > *size {
			*size = s
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractTextFromNode(c, b, size)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func styleValue(re *regexp.Regexp, style string) float64 {
	m := re.FindStringSubmatch(style)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

// groupElements merges consecutive text lines of the same size and spacing
// into one element and classifies the result. Images are returned as
// KindImage elements whose Text holds the data URI until recognized.
func groupElements(blocks []block, page int) []Element {
	median := medianFontSize(blocks)

	var (
		elements []Element
		current  []block
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		lines := make([]string, 0, len(current))
		for _, b := range current {
			if t := strings.TrimSpace(b.text); t != "" {
				lines = append(lines, t)
			}
		}
		if len(lines) > 0 {
			text := strings.Join(lines, "\n")
			elements = append(elements, Element{
				Kind: classify(text, current[0].fontSize, median),
				Text: text,
				Page: page,
			})
		}
		current = current[:0]
	}

	for _, b := range blocks {
		if b.image != "" {
			flush()
			elements = append(elements, Element{Kind: KindImage, Text: b.image, Page: page})
			continue
		}
		if len(current) > 0 && !continues(current[len(current)-1], b) {
			flush()
		}
		current = append(current, b)
	}
	flush()

	return elements
}

// continues reports whether next belongs to the same paragraph as prev.
func continues(prev, next block) bool {
	if listRe.MatchString(next.text) {
		return false
	}
	if diff := prev.fontSize - next.fontSize; diff > 0.5 || diff < -0.5 {
		return false
	}
	size := prev.fontSize
	if size == 0 {
		size = 12
	}
	gap := next.top - prev.top
	return gap >= 0 && gap <= size*1.6
}

func classify(text string, size, median float64) ElementKind {
	if listRe.MatchString(text) {
		return KindListItem
	}
	if median > 0 && size >= median*1.2 && len(text) <= 200 {
		return KindTitle
	}
	return KindNarrative
}

func medianFontSize(blocks []block) float64 {
	var sizes []float64
	for _, b := range blocks {
		if b.image == "" && b.fontSize > 0 && strings.TrimSpace(b.text) != "" {
			sizes = append(sizes, b.fontSize)
		}
	}
	if len(sizes) == 0 {
		return 0
	}
	sort.Float64s(sizes)
	return sizes[len(sizes)/2]
}
