package common

import (
	"errors"
	"net/http"
)

// Error kinds. Every failure of an extractor, the query stage or the graph
// pipeline wraps exactly one of these. Context cancellation and local temp
// file errors are returned unwrapped.
var (
	ErrParse   = errors.New("parse error")
	ErrNetwork = errors.New("network error")
	ErrOCR     = errors.New("ocr error")
	ErrInput   = errors.New("input error")
)

// UserMessage renders err as a message suitable for showing to the person who
// triggered the operation.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInput):
		return err.Error()
	case errors.Is(err, ErrParse):
		return "The document could not be read as a PDF: " + err.Error()
	case errors.Is(err, ErrNetwork):
		return "The document could not be downloaded: " + err.Error()
	case errors.Is(err, ErrOCR):
		return "Text recognition failed: " + err.Error()
	default:
		return "Extraction failed: " + err.Error()
	}
}

// HTTPStatus maps an error kind to the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
