package stream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrLimitExceeded is returned when a stream is longer than the caller allows.
var ErrLimitExceeded = errors.New("stream exceeds size limit")

// ChunkedReader provides chunked reading capability for large bodies
type ChunkedReader struct {
	reader    io.Reader
	chunkSize int
	buffer    *bytes.Buffer
	eof       bool
}

// NewChunkedReader creates a new chunked reader
func NewChunkedReader(reader io.Reader, chunkSize int) *ChunkedReader {
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}
	return &ChunkedReader{
		reader:    reader,
		chunkSize: chunkSize,
		buffer:    bytes.NewBuffer(make([]byte, 0, chunkSize)),
	}
}

// NextChunk reads the next chunk from the reader. The returned slice is only
// valid until the next call.
func (cr *ChunkedReader) NextChunk() ([]byte, error) {
	if cr.eof {
		return nil, io.EOF
	}

	cr.buffer.Reset()
	temp := make([]byte, cr.chunkSize)

	// Read until we have a full chunk or EOF
	for cr.buffer.Len() < cr.chunkSize {
		n, err := cr.reader.Read(temp[:cr.chunkSize-cr.buffer.Len()])
		if n > 0 {
			cr.buffer.Write(temp[:n])
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				cr.eof = true
				if cr.buffer.Len() > 0 {
					return cr.buffer.Bytes(), nil
				}
				return nil, io.EOF
			}
			return nil, err
		}
	}

	return cr.buffer.Bytes(), nil
}

// ReadLimited reads the whole stream, failing with ErrLimitExceeded as soon as
// more than limit bytes have been seen. A limit <= 0 disables the check.
func (cr *ChunkedReader) ReadLimited(limit int64) ([]byte, error) {
	var out bytes.Buffer

	for {
		chunk, err := cr.NextChunk()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out.Bytes(), nil
			}
			return nil, err
		}

		if limit > 0 && int64(out.Len()+len(chunk)) > limit {
			return nil, fmt.Errorf("%w: more than %d bytes", ErrLimitExceeded, limit)
		}
		out.Write(chunk)
	}
}
