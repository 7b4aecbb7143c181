package rules

import "time"

// Lifecycle is a tournament's time-derived phase. It is never stored; every
// caller derives it from the schedule and an explicit now.
type Lifecycle string

const (
	LifecycleUpcoming   Lifecycle = "UPCOMING"
	LifecycleLive       Lifecycle = "LIVE"
	LifecycleEndingSoon Lifecycle = "ENDING_SOON"
	LifecycleEnded      Lifecycle = "ENDED"
	LifecycleArchived   Lifecycle = "ARCHIVED"
)

const (
	// EndingSoonWindow is how long before end_time a live tournament flips to
	// ENDING_SOON.
	EndingSoonWindow = 2 * time.Hour

	// ArchiveAfter is how long after end_time an ended tournament flips to
	// ARCHIVED.
	ArchiveAfter = 7 * 24 * time.Hour
)

// Classify derives the lifecycle phase at the given instant. Zero timestamps
// are treated as absent rather than as the epoch: a tournament with no usable
// schedule can never be active or ended and classifies UPCOMING. The phase
// must be re-derived on every call; minute-level boundary crossings change
// which actions are allowed.
func Classify(start, end, now time.Time) Lifecycle {
	if withinActiveWindow(start, end, now) {
		if end.Sub(now) <= EndingSoonWindow {
			return LifecycleEndingSoon
		}
		return LifecycleLive
	}

	if !end.IsZero() && now.After(end) {
		if now.Sub(end) >= ArchiveAfter {
			return LifecycleArchived
		}
		return LifecycleEnded
	}

	return LifecycleUpcoming
}

// withinActiveWindow reports whether now falls in [start, end], inclusive on
// both edges. Both timestamps must be present.
func withinActiveWindow(start, end, now time.Time) bool {
	if start.IsZero() || end.IsZero() {
		return false
	}
	return !now.Before(start) && !now.After(end)
}
