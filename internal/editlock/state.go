package editlock

// State is the client side lock lifecycle.
type State int

const (
	Unlocked State = iota
	Acquiring
	Held
	Releasing
	Expired
)

func (s State) String() string {
	switch s {
	case Unlocked:
		return "unlocked"
	case Acquiring:
		return "acquiring"
	case Held:
		return "held"
	case Releasing:
		return "releasing"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}
