package tracking

// Source tells where an ActorPosition came from.
type Source int

const (
	// UnknownSource is the invalid zero value.
	UnknownSource Source = iota
	// Live positions come from a device fix or a partner broadcast.
	Live
	// Simulated positions are interpolated along a Leg when no live feed exists.
	Simulated
	// LocalOptimistic positions are the partner's own fix, shown before the
	// broadcast round trip confirms it. The first Live value supersedes it.
	LocalOptimistic
)

func (s Source) String() string {
	switch s { //nolint:exhaustive // UnknownSource handled by default
	case Live:
		return "LIVE"
	case Simulated:
		return "SIMULATED"
	case LocalOptimistic:
		return "LOCAL_OPTIMISTIC"
	}
	return "UNKNOWN"
}
