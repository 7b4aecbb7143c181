package rules

import "time"

// CanJoin reports whether an angler may still join the tournament. Joining
// stays open right up until the tournament ends, including during the
// ENDING_SOON window.
func CanJoin(start, end, now time.Time) bool {
	lifecycle := Classify(start, end, now)
	return lifecycle != LifecycleEnded && lifecycle != LifecycleArchived
}

// CanSubmitCatch reports whether catches may be logged right now. Only LIVE
// and ENDING_SOON tournaments accept submissions.
func CanSubmitCatch(start, end, now time.Time) bool {
	lifecycle := Classify(start, end, now)
	return lifecycle == LifecycleLive || lifecycle == LifecycleEndingSoon
}

// WithinActiveWindow is the raw [start, end] containment check. Session
// creation uses this instead of CanSubmitCatch so a verification session can
// be started at any instant the tournament is running, independent of the
// ENDING_SOON sub-phase.
func WithinActiveWindow(start, end, now time.Time) bool {
	return withinActiveWindow(start, end, now)
}
