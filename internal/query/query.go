// Package query turns an extraction result into what the caller displays:
// either the whole text or the lines that start with a literal prefix.
package query

import (
	"fmt"
	"strings"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
)

// ErrNoPrefix is returned by FilterPrefix when the caller supplied no prefix.
var ErrNoPrefix = fmt.Errorf("%w: no prefix supplied", common.ErrInput)

// View selects how an extraction result is presented.
type View string

const (
	ViewFull   View = "full"
	ViewPrefix View = "prefix"
)

// ParseView validates a view name. An empty name selects ViewFull.
func ParseView(s string) (View, error) {
	switch View(s) {
	case "", ViewFull:
		return ViewFull, nil
	case ViewPrefix:
		return ViewPrefix, nil
	default:
		return "", fmt.Errorf("%w: unknown view %q", common.ErrInput, s)
	}
}

// FullText joins every entry with a newline, in order.
func FullText(result []string) string {
	return strings.Join(result, "\n")
}

// FilterPrefix splits every entry into lines and keeps the lines that begin
// with prefix. The comparison is case-sensitive and nothing is trimmed.
//
// The returned slice is never nil on success, so an empty match set can be
// told apart from a filter that was not run.
func FilterPrefix(result []string, prefix string) ([]string, error) {
	if prefix == "" {
		return nil, ErrNoPrefix
	}

	matches := make([]string, 0)
	for _, entry := range result {
		for _, line := range strings.Split(entry, "\n") {
			if strings.HasPrefix(line, prefix) {
				matches = append(matches, line)
			}
		}
	}
	return matches, nil
}

// MissingPrefixWarning is shown when the prefix field was left empty.
const MissingPrefixWarning = "Please enter a prefix to extract text."

// NoMatchMessage is shown when a prefix filter matched nothing.
func NoMatchMessage(prefix string) string {
	return fmt.Sprintf("No text found starting with the prefix '%s'.", prefix)
}
