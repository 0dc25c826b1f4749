package channels

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Phone Support":  "phonesupport",
		" phone_support": "phonesupport",
		"PHONE-SUPPORT":  "phonesupport",
		"Tier 2":         "tier2",
		"Chat/Email":     "chatemail",
	}
	for input, want := range cases {
		if got := Normalize(input); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestResolveAliasesShareSpec(t *testing.T) {
	t.Parallel()

	registry := Default()
	groups := map[string][]string{}
	for alias, canonical := range defaultAliases {
		groups[canonical] = append(groups[canonical], alias)
	}

	for canonical, aliases := range groups {
		want := registry.Resolve(canonical)
		if want.Name != canonical {
			t.Fatalf("Resolve(%q) returned %q", canonical, want.Name)
		}
		for _, alias := range aliases {
			for _, variant := range []string{alias, strings.ToUpper(alias), " " + alias + " "} {
				if got := registry.Resolve(variant); got != want {
					t.Fatalf("Resolve(%q) = %+v, want %+v", variant, got, want)
				}
			}
		}
	}
}

func TestResolveFallsBackToOther(t *testing.T) {
	t.Parallel()

	registry := Default()
	got := registry.Resolve("Carrier Pigeon")
	if got.Name != OtherName {
		t.Fatalf("expected fallback to %q, got %q", OtherName, got.Name)
	}
	if _, ok := registry.Lookup("Carrier Pigeon"); ok {
		t.Fatalf("Lookup should not fall back")
	}
	if got := registry.Canonical(""); got != OtherName {
		t.Fatalf("expected empty name to resolve to %q, got %q", OtherName, got)
	}

	var nilRegistry *Registry
	if got := nilRegistry.Resolve("Phone"); got.Name != OtherName {
		t.Fatalf("nil registry should still resolve to %q, got %q", OtherName, got.Name)
	}
}

func TestDefaultTableInvariants(t *testing.T) {
	t.Parallel()

	all := Default().All()
	if len(all) != len(defaultSpecs) {
		t.Fatalf("expected %d specs, got %d", len(defaultSpecs), len(all))
	}
	for _, spec := range all {
		if spec.StartHour > spec.EndHour && !spec.FullDay() {
			t.Fatalf("%s: hours out of order", spec.Name)
		}
		if spec.Abbreviation == "" {
			t.Fatalf("%s: missing abbreviation", spec.Name)
		}
	}
	if all[0].Name != "Phone" {
		t.Fatalf("expected table order to be preserved, got %q first", all[0].Name)
	}
}

func TestSpecHours(t *testing.T) {
	t.Parallel()

	spec := Spec{Name: "X", StartHour: 8, EndHour: 11}
	if !spec.Covers(8) || !spec.Covers(10) || spec.Covers(11) || spec.Covers(7) {
		t.Fatalf("unexpected coverage for %+v", spec)
	}
	if got := spec.OperatingHours(); len(got) != 3 || got[0] != 8 || got[2] != 10 {
		t.Fatalf("unexpected operating hours %v", got)
	}
	if !(Spec{StartHour: 0, EndHour: 24}).FullDay() {
		t.Fatalf("expected 0..24 to be full day")
	}
}

func TestNewRegistryValidation(t *testing.T) {
	t.Parallel()

	other := Spec{Name: OtherName, StartHour: 0, EndHour: 24}

	tests := []struct {
		name    string
		specs   []Spec
		aliases map[string]string
		wantErr string
	}{
		{
			name:    "missing other",
			specs:   []Spec{{Name: "Phone", StartHour: 8, EndHour: 20}},
			wantErr: "must define",
		},
		{
			name:    "hours out of order",
			specs:   []Spec{other, {Name: "Night", StartHour: 22, EndHour: 6}},
			wantErr: "after end hour",
		},
		{
			name:    "hours out of range",
			specs:   []Spec{other, {Name: "Long", StartHour: 0, EndHour: 25}},
			wantErr: "within 0..24",
		},
		{
			name:    "negative staff",
			specs:   []Spec{other, {Name: "Phone", StartHour: 8, EndHour: 20, MinStaff: -1}},
			wantErr: "minimum staff",
		},
		{
			name:    "duplicate after normalisation",
			specs:   []Spec{other, {Name: "Live Chat", EndHour: 1}, {Name: "livechat", EndHour: 1}},
			wantErr: "duplicate channel",
		},
		{
			name:    "dangling alias",
			specs:   []Spec{other},
			aliases: map[string]string{"Calls": "Phone"},
			wantErr: "unknown channel",
		},
		{
			name:    "alias resolving to two channels",
			specs:   []Spec{other, {Name: "Phone", EndHour: 1}},
			aliases: map[string]string{"phone": OtherName},
			wantErr: "already resolves",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewRegistry(tc.specs, tc.aliases)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
