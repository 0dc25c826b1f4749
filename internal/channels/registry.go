// Package channels holds the static channel table used to label, colour and
// staff the schedule grid.
//
// Every alias is folded through Normalize and resolved against one canonical
// table. Unknown names resolve to the "Other" spec so callers never fail on
// unrecognised input.
package channels

import (
	"errors"
	"fmt"
	"strings"
)

// OtherName is the canonical name of the fallback spec.
const OtherName = "Other"

// Colors are the display colours of a channel cell.
type Colors struct {
	Background string `json:"background"`
	Border     string `json:"border"`
	Text       string `json:"text"`
}

// Spec describes a canonical channel.
type Spec struct {
	Name           string `json:"name"`
	Abbreviation   string `json:"abbreviation"`
	Colors         Colors `json:"colors"`
	StartHour      int    `json:"startHour"`
	EndHour        int    `json:"endHour"`
	MinStaff       int    `json:"minStaff"`
	StatusInterval int    `json:"statusInterval"`
	IsBreak        bool   `json:"isBreak"`
}

// FullDay reports whether the channel operates around the clock.
func (s Spec) FullDay() bool {
	return s.StartHour == 0 && s.EndHour == 24
}

// Covers reports whether the hour (0-23) falls within operating hours.
func (s Spec) Covers(hour int) bool {
	return hour >= s.StartHour && hour < s.EndHour
}

// OperatingHours lists the hours the channel is staffed.
func (s Spec) OperatingHours() []int {
	hours := make([]int, 0, s.EndHour-s.StartHour)
	for h := s.StartHour; h < s.EndHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

func (s Spec) validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return errors.New("name is required")
	case s.StartHour < 0 || s.EndHour > 24:
		return fmt.Errorf("%s: hours must be within 0..24", s.Name)
	case s.StartHour > s.EndHour:
		return fmt.Errorf("%s: start hour %d after end hour %d", s.Name, s.StartHour, s.EndHour)
	case s.MinStaff < 0:
		return fmt.Errorf("%s: minimum staff must not be negative", s.Name)
	case s.StatusInterval < 0:
		return fmt.Errorf("%s: status interval must not be negative", s.Name)
	}
	return nil
}

// Registry resolves channel names and aliases to canonical specs.
type Registry struct {
	order   []string
	specs   map[string]Spec
	aliases map[string]string
}

// Normalize folds a channel name or alias to its lookup form: lower case with
// spaces, underscores, hyphens and slashes removed.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch r {
		case ' ', '_', '-', '/', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NewRegistry validates specs and aliases and builds a registry. aliases maps
// an alias to the canonical spec name. The table must contain an "Other" spec.
func NewRegistry(specs []Spec, aliases map[string]string) (*Registry, error) {
	r := &Registry{
		order:   make([]string, 0, len(specs)),
		specs:   make(map[string]Spec, len(specs)),
		aliases: make(map[string]string, len(specs)+len(aliases)),
	}

	for _, spec := range specs {
		if err := spec.validate(); err != nil {
			return nil, fmt.Errorf("channels: invalid spec: %w", err)
		}
		key := Normalize(spec.Name)
		if _, exists := r.aliases[key]; exists {
			return nil, fmt.Errorf("channels: duplicate channel %q", spec.Name)
		}
		r.order = append(r.order, spec.Name)
		r.specs[spec.Name] = spec
		r.aliases[key] = spec.Name
	}

	if _, ok := r.specs[OtherName]; !ok {
		return nil, fmt.Errorf("channels: table must define %q", OtherName)
	}

	for alias, canonical := range aliases {
		if _, ok := r.specs[canonical]; !ok {
			return nil, fmt.Errorf("channels: alias %q points at unknown channel %q", alias, canonical)
		}
		key := Normalize(alias)
		if existing, ok := r.aliases[key]; ok && existing != canonical {
			return nil, fmt.Errorf("channels: alias %q already resolves to %q", alias, existing)
		}
		r.aliases[key] = canonical
	}

	return r, nil
}

// Lookup returns the canonical spec for name without falling back.
func (r *Registry) Lookup(name string) (Spec, bool) {
	if r == nil {
		return Spec{}, false
	}
	canonical, ok := r.aliases[Normalize(name)]
	if !ok {
		return Spec{}, false
	}
	return r.specs[canonical], true
}

// Resolve returns the canonical spec for name, or the "Other" spec when the
// name is unknown.
func (r *Registry) Resolve(name string) Spec {
	if spec, ok := r.Lookup(name); ok {
		return spec
	}
	if r == nil {
		return Spec{Name: OtherName, Abbreviation: "OTH", StartHour: 0, EndHour: 24}
	}
	return r.specs[OtherName]
}

// Canonical returns the canonical name for name, falling back to "Other".
func (r *Registry) Canonical(name string) string {
	return r.Resolve(name).Name
}

// All returns the specs in table order.
func (r *Registry) All() []Spec {
	if r == nil {
		return nil
	}
	out := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name])
	}
	return out
}
