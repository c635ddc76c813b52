// Package byterange parses single-range HTTP Range headers of the form
// "bytes=<start>-<end>" where end is optional.
//
// Suffix ranges ("bytes=-500") and multi-range requests are not supported.
package byterange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnit          = errors.New("range: unit must be bytes")
	ErrSyntax        = errors.New("range: malformed bounds")
	ErrInverted      = errors.New("range: start after end")
	ErrMulti         = errors.New("range: multiple ranges not supported")
	ErrUnsatisfiable = errors.New("range: start beyond end of file")
)

const unitPrefix = "bytes="

// Range is an inclusive byte interval [Start, End] within a file of Size bytes.
type Range struct {
	Start int64
	End   int64
	Size  int64
}

func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange renders the Content-Range header value.
func (r Range) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.Size)
}

// Parse resolves header against a file of size bytes. An end beyond the
// last byte is clamped to size-1, as RFC 9110 §14.1.1 requires for a
// last-pos at or past the representation length.
func Parse(header string, size int64) (Range, error) {
	h := strings.TrimSpace(header)
	if !strings.HasPrefix(h, unitPrefix) {
		return Range{}, ErrUnit
	}
	set := strings.TrimSpace(h[len(unitPrefix):])
	if strings.Contains(set, ",") {
		return Range{}, ErrMulti
	}

	first, last, ok := strings.Cut(set, "-")
	if !ok {
		return Range{}, ErrSyntax
	}
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)

	start, err := parseBound(first)
	if err != nil {
		return Range{}, err
	}

	end := size - 1
	if last != "" {
		e, err := parseBound(last)
		if err != nil {
			return Range{}, err
		}
		if e < start {
			return Range{}, ErrInverted
		}
		if e < end {
			end = e
		}
	}

	if start >= size {
		return Range{}, ErrUnsatisfiable
	}

	return Range{Start: start, End: end, Size: size}, nil
}

// Unsatisfiable renders the Content-Range value sent with a 416 response.
func Unsatisfiable(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}

func parseBound(s string) (int64, error) {
	if s == "" {
		return 0, ErrSyntax
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, ErrSyntax
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrSyntax
	}
	return n, nil
}
