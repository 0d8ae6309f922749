// Package pages resolves page selections supplied by clients, either
// as explicit 1-based page lists or as range expressions like "1,3,5-7".
package pages

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aliskhannn/pdf-processor/internal/model"
)

// Resolve parses a range expression against a document of pageCount
// pages. The result is de-duplicated and sorted ascending; entries
// referencing pages outside [1, pageCount] are silently dropped.
// A selection resolving to zero pages yields model.ErrNoValidPages.
func Resolve(expr string, pageCount int) ([]int, error) {
	seen := make(map[int]struct{})

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, err := parsePart(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
		}

		// Clamp before expanding so an absurd range like "1-9999999999"
		// never iterates past the document.
		if lo < 1 {
			lo = 1
		}
		if hi > pageCount {
			hi = pageCount
		}
		for p := lo; p <= hi; p++ {
			seen[p] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil, model.ErrNoValidPages
	}

	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)

	return out, nil
}

// ResolveList filters an explicit page list the same way Resolve
// filters a range expression.
func ResolveList(list []int, pageCount int) ([]int, error) {
	seen := make(map[int]struct{})
	for _, p := range list {
		if p >= 1 && p <= pageCount {
			seen[p] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil, model.ErrNoValidPages
	}

	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)

	return out, nil
}

// Order validates a caller-supplied page order. Unlike Resolve it
// preserves the given sequence and keeps duplicates, since collecting
// the same page twice is a legitimate reordering. Invalid indices are
// dropped.
func Order(order []int, pageCount int) ([]int, error) {
	out := make([]int, 0, len(order))
	for _, p := range order {
		if p >= 1 && p <= pageCount {
			out = append(out, p)
		}
	}

	if len(out) == 0 {
		return nil, model.ErrNoValidPages
	}

	return out, nil
}

// Strings converts resolved page numbers into the string form the PDF
// library expects.
func Strings(pages []int) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = strconv.Itoa(p)
	}
	return out
}

func parsePart(part string) (int, int, error) {
	if lo, hi, ok := strings.Cut(part, "-"); ok {
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return 0, 0, fmt.Errorf("bad page range %q", part)
		}
		to, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return 0, 0, fmt.Errorf("bad page range %q", part)
		}
		if to < from {
			from, to = to, from
		}
		return from, to, nil
	}

	p, err := strconv.Atoi(part)
	if err != nil {
		return 0, 0, fmt.Errorf("bad page number %q", part)
	}

	return p, p, nil
}
