package rules

import "math"

// Measurement statuses produced by the vision pipeline.
const (
	MeasurementStatusOK            = "ok"
	MeasurementStatusLowConfidence = "low_confidence"
	MeasurementStatusError         = "error"
	MeasurementStatusIdle          = "idle"
)

// Prize-eligibility reasons. These are verdicts, not errors: a catch carrying
// one of them is still accepted for non-prize display unless the caller asked
// for strict prize mode.
const (
	ReasonNoMeasurement    = "NO_MEASUREMENT"
	ReasonNotMeasured      = "NOT_MEASURED"
	ReasonMeasurementError = "MEASUREMENT_ERROR"
	ReasonLowConfidence    = "LOW_CONFIDENCE"
	ReasonNoReferenceFound = "NO_REFERENCE_FOUND"
	ReasonCriticalFlag     = "CRITICAL_FLAG"
)

const (
	// PrizeConfidenceThreshold is the minimum measurement confidence for a
	// catch to count toward prize-pool ranking.
	PrizeConfidenceThreshold = 0.70

	// VerifiedConfidenceThreshold marks a measurement good enough to display
	// a "verified" badge on the leaderboard.
	VerifiedConfidenceThreshold = 0.85
)

// criticalFlags disqualify a catch from prizes outright regardless of
// confidence.
var criticalFlags = map[string]bool{
	"NO_REFERENCE_FOUND": true,
	"MEASUREMENT_ERROR":  true,
	"FISH_NOT_DETECTED":  true,
}

// ReferenceObject reports whether the calibration marker was found in frame.
type ReferenceObject struct {
	Detected   bool    `json:"detected"`
	Confidence float64 `json:"confidence"`
}

// Measurement is the quality record attached to a catch photo by the external
// vision pipeline. The core treats it as opaque input.
type Measurement struct {
	Status          string          `json:"status"`
	Confidence      float64         `json:"confidence"`
	ReferenceObject ReferenceObject `json:"referenceObject"`
	Flags           []string        `json:"flags,omitempty"`
}

// PrizeVerdict says whether a catch may count toward prize ranking and, when
// not, why. Reason is empty for eligible catches.
type PrizeVerdict struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// ValidMeasurement checks minimum measurement usability: a record must exist,
// and must not be in error or idle state. It says nothing about prizes.
func ValidMeasurement(m *Measurement) (bool, string) {
	if m == nil {
		return false, ReasonNoMeasurement
	}
	switch m.Status {
	case MeasurementStatusError:
		return false, ReasonMeasurementError
	case MeasurementStatusIdle, "":
		return false, ReasonNotMeasured
	}
	return true, ""
}

// PrizeEligibility computes the prize verdict for a catch. Tournaments with
// no prize pool never gate on measurement quality. Otherwise the measurement
// must be valid, confident enough, anchored to a detected reference object,
// and free of critical flags.
func PrizeEligibility(prizePool float64, m *Measurement) PrizeVerdict {
	if prizePool <= 0 {
		return PrizeVerdict{Eligible: true}
	}

	if ok, reason := ValidMeasurement(m); !ok {
		return PrizeVerdict{Eligible: false, Reason: reason}
	}

	if m.Confidence < PrizeConfidenceThreshold {
		return PrizeVerdict{Eligible: false, Reason: ReasonLowConfidence}
	}

	if !m.ReferenceObject.Detected {
		return PrizeVerdict{Eligible: false, Reason: ReasonNoReferenceFound}
	}

	for _, flag := range m.Flags {
		if criticalFlags[flag] {
			return PrizeVerdict{Eligible: false, Reason: ReasonCriticalFlag}
		}
	}

	return PrizeVerdict{Eligible: true}
}

// VerifiedMeasurement reports whether a measurement earns the leaderboard
// "verified" badge.
func VerifiedMeasurement(m *Measurement) bool {
	if m == nil {
		return false
	}
	return m.Confidence >= VerifiedConfidenceThreshold && m.ReferenceObject.Detected
}

// qualityFlagPenalties are soft deductions applied by QualityScore.
var qualityFlagPenalties = map[string]float64{
	"LOW_CONFIDENCE":    -10,
	"MARKER_UNCLEAR":    -5,
	"HEAD_TAIL_UNCLEAR": -5,
	"MULTIPLE_FISH":     -10,
}

// QualityScore condenses a measurement into a 0-100 display score used by
// moderation surfaces to sort the review queue.
func QualityScore(m *Measurement) int {
	if m == nil || m.Status == MeasurementStatusError || m.Status == MeasurementStatusIdle {
		return 0
	}

	score := m.Confidence * 70

	if m.ReferenceObject.Detected {
		score += m.ReferenceObject.Confidence * 15
	}

	switch m.Status {
	case MeasurementStatusOK:
		score += 15
	case MeasurementStatusLowConfidence:
		score += 7.5
	}

	for _, flag := range m.Flags {
		score += qualityFlagPenalties[flag]
	}

	return int(math.Max(0, math.Min(100, math.Round(score))))
}
