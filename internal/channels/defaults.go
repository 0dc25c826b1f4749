package channels

import "sync"

var defaultSpecs = []Spec{
	{Name: "Phone", Abbreviation: "PH", Colors: Colors{Background: "#dbeafe", Border: "#3b82f6", Text: "#1e3a8a"}, StartHour: 8, EndHour: 20, MinStaff: 3, StatusInterval: 2},
	{Name: "Chat", Abbreviation: "CH", Colors: Colors{Background: "#dcfce7", Border: "#22c55e", Text: "#14532d"}, StartHour: 8, EndHour: 22, MinStaff: 2, StatusInterval: 2},
	{Name: "Email", Abbreviation: "EM", Colors: Colors{Background: "#fef9c3", Border: "#eab308", Text: "#713f12"}, StartHour: 0, EndHour: 24, MinStaff: 1, StatusInterval: 4},
	{Name: "Social", Abbreviation: "SO", Colors: Colors{Background: "#fce7f3", Border: "#ec4899", Text: "#831843"}, StartHour: 9, EndHour: 18, MinStaff: 1, StatusInterval: 4},
	{Name: "Escalations", Abbreviation: "ESC", Colors: Colors{Background: "#fee2e2", Border: "#ef4444", Text: "#7f1d1d"}, StartHour: 9, EndHour: 17, MinStaff: 1},
	{Name: "Training", Abbreviation: "TRN", Colors: Colors{Background: "#ede9fe", Border: "#8b5cf6", Text: "#4c1d95"}, StartHour: 8, EndHour: 18},
	{Name: "Meeting", Abbreviation: "MTG", Colors: Colors{Background: "#e0e7ff", Border: "#6366f1", Text: "#312e81"}, StartHour: 8, EndHour: 18},
	{Name: "Lunch", Abbreviation: "LUN", Colors: Colors{Background: "#f3f4f6", Border: "#9ca3af", Text: "#374151"}, StartHour: 10, EndHour: 16, IsBreak: true},
	{Name: "Break", Abbreviation: "BRK", Colors: Colors{Background: "#f3f4f6", Border: "#d1d5db", Text: "#4b5563"}, StartHour: 0, EndHour: 24, IsBreak: true},
	{Name: OtherName, Abbreviation: "OTH", Colors: Colors{Background: "#ffffff", Border: "#e5e7eb", Text: "#111827"}, StartHour: 0, EndHour: 24},
}

var defaultAliases = map[string]string{
	"PhoneSupport":   "Phone",
	"Phones":         "Phone",
	"Calls":          "Phone",
	"Voice":          "Phone",
	"LiveChat":       "Chat",
	"Messaging":      "Chat",
	"Emails":         "Email",
	"Tickets":        "Email",
	"SocialMedia":    "Social",
	"Escalation":     "Escalations",
	"Tier 2":         "Escalations",
	"Coaching":       "Training",
	"Meetings":       "Meeting",
	"Team Meeting":   "Meeting",
	"Lunch Break":    "Lunch",
	"Breaks":         "Break",
	"Misc":           OtherName,
	"Administrative": OtherName,
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the built-in channel registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry(defaultSpecs, defaultAliases)
		if err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}
