package stream

import "time"

// Lifecycle timing constants. These are behavioral contracts shared with the
// dashboard, not tuning knobs.
const (
	// SweepInterval is how often the idle sweep scans the registry.
	SweepInterval = 60 * time.Second

	// IdleThreshold is how long a non-playing session may sit untouched
	// before the sweep reclaims it.
	IdleThreshold = 5 * time.Minute

	// RefreshSettleDelay is the minimum wait between stopping a session and
	// re-admitting it on refresh, so the new request cannot race the
	// backend-side teardown of the old session.
	RefreshSettleDelay = 1 * time.Second
)
