package geo

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// maxLineBytes bounds a single GeoJSONL line; national boundary polygons run
// to several megabytes.
const maxLineBytes = 64 * 1024 * 1024

// Reader streams features from newline-delimited GeoJSON.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader wraps r for line-oriented feature decoding.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	return &Reader{scanner: sc}
}

// Read returns the next feature; io.EOF signals the end of input. A
// malformed line comes back as a *LineError so callers can count and skip it
// without losing the stream. Blank lines are ignored.
func (r *Reader) Read() (*Feature, error) {
	for r.scanner.Scan() {
		r.line++

		raw := bytes.TrimSpace(r.scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var f Feature
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, &LineError{Line: r.line, Err: err}
		}

		return &f, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	return nil, io.EOF
}

// Line returns the number of the last line read.
func (r *Reader) Line() int { return r.line }

// LineError wraps a decode failure with its line number.
type LineError struct {
	Err  error
	Line int
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Writer emits one compact JSON feature per line.
type Writer struct {
	bw  *bufio.Writer
	enc *json.Encoder
}

// NewWriter wraps w for GeoJSONL output.
func NewWriter(w io.Writer) *Writer {
	bw := bufio.NewWriter(w)
	return &Writer{bw: bw, enc: json.NewEncoder(bw)}
}

// Write appends the feature as a single line. Property maps marshal with
// sorted keys, so identical records always produce identical bytes.
func (w *Writer) Write(f *Feature) error {
	return w.enc.Encode(f)
}

// Flush drains buffered output.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// ReadFeatureCollection decodes a whole-file GeoJSON FeatureCollection.
func ReadFeatureCollection(r io.Reader) (*FeatureCollection, error) {
	var fc FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, err
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("not a FeatureCollection: type %q", fc.Type)
	}

	return &fc, nil
}
