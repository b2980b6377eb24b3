package listutil

import (
	"net/url"
	"strconv"
)

// Window is a limit/offset slice of a listing.
type Window struct {
	Limit  int
	Offset int
}

// Bounds configures how a listing endpoint reads its window.
type Bounds struct {
	DefaultLimit int
	MaxLimit     int
}

// Directory listings page through the student roster.
var Directory = Bounds{DefaultLimit: 100, MaxLimit: 500}

// Outbox listings are capped lower; entries carry payloads.
var Outbox = Bounds{DefaultLimit: 50, MaxLimit: 100}

// ParseWindow extracts limit and offset from URL query values.
// PRE: b.DefaultLimit > 0 and b.MaxLimit >= b.DefaultLimit
// POST: 1 <= Limit <= MaxLimit; Offset >= 0. Unparseable or out-of-range values fall back to defaults
func ParseWindow(q url.Values, b Bounds) Window {
	w := Window{Limit: b.DefaultLimit}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 && n <= b.MaxLimit {
		w.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		w.Offset = n
	}
	return w
}

// Apply returns the part of items inside the window.
// POST: Never panics; an offset past the end yields an empty, non-nil slice
func Apply[T any](items []T, w Window) []T {
	if w.Offset >= len(items) {
		return []T{}
	}
	items = items[w.Offset:]
	if w.Limit > 0 && w.Limit < len(items) {
		items = items[:w.Limit]
	}
	return items
}
