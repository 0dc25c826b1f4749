package datacache

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DateLayout is the date format used inside keys.
const DateLayout = "2006-01-02"

// Key identifies a view payload: the view name, an inclusive date range and
// any filters that change the payload. Two equal keys denote the same payload.
type Key struct {
	View    string
	From    string
	To      string
	Filters map[string]string
}

// NewKey builds a key for view over the calendar days of from and to.
func NewKey(view string, from, to time.Time, filters map[string]string) Key {
	k := Key{View: view, Filters: filters}
	if !from.IsZero() {
		k.From = from.Format(DateLayout)
	}
	if !to.IsZero() {
		k.To = to.Format(DateLayout)
	}
	return k
}

// String renders view:from..to?filters. A single-day range renders as
// view:from and filters are sorted by name.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.View)
	b.WriteByte(':')
	b.WriteString(k.From)
	if k.To != "" && k.To != k.From {
		b.WriteString("..")
		b.WriteString(k.To)
	}
	if len(k.Filters) > 0 {
		values := url.Values{}
		for name, value := range k.Filters {
			if value != "" {
				values.Set(name, value)
			}
		}
		if encoded := values.Encode(); encoded != "" {
			b.WriteByte('?')
			b.WriteString(encoded)
		}
	}
	return b.String()
}

// Prefix returns the prefix shared by every key of view.
func Prefix(view string) string {
	return view + ":"
}

// ParseKey reverses Key.String.
func ParseKey(s string) (Key, error) {
	view, rest, ok := strings.Cut(s, ":")
	if !ok || view == "" {
		return Key{}, fmt.Errorf("datacache: malformed key %q", s)
	}
	k := Key{View: view}

	rangePart, query, hasQuery := strings.Cut(rest, "?")
	from, to, isRange := strings.Cut(rangePart, "..")
	k.From = from
	if isRange {
		k.To = to
	} else {
		k.To = from
	}

	if hasQuery {
		values, err := url.ParseQuery(query)
		if err != nil {
			return Key{}, fmt.Errorf("datacache: malformed filters in %q: %w", s, err)
		}
		k.Filters = make(map[string]string, len(values))
		for name := range values {
			k.Filters[name] = values.Get(name)
		}
	}
	return k, nil
}

// Overlaps reports whether the key's date range intersects the calendar
// days from..to. Keys without a parseable range overlap everything.
func (k Key) Overlaps(from, to time.Time) bool {
	start, err := time.Parse(DateLayout, k.From)
	if err != nil {
		return true
	}
	end := start
	if k.To != "" {
		if parsed, err := time.Parse(DateLayout, k.To); err == nil {
			end = parsed
		}
	}
	lo := truncateDay(from)
	hi := truncateDay(to)
	if hi.Before(lo) {
		lo, hi = hi, lo
	}
	return !end.Before(lo) && !start.After(hi)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
