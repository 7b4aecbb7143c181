package models

import (
	"strings"
	"time"

	"fishing-tournament-system/rules"
)

// CatchSession statuses. A session with status=active whose expires_at has
// passed is treated as expired on read; the maintenance sweep marks it later.
const (
	SessionStatusActive  = "active"
	SessionStatusUsed    = "used"
	SessionStatusExpired = "expired"
)

// SessionTTL is how long a verification session stays consumable.
const SessionTTL = 10 * time.Minute

// CatchSession is a short-lived, single-use verification session binding an
// angler, a tournament and the location where the capture flow started. The
// active→used transition happens exactly once, atomically with the Catch
// insert.
type CatchSession struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	AnglerID         string    `json:"angler_id" gorm:"not null;index"`
	TournamentID     string    `json:"tournament_id" gorm:"not null;index"`
	VerificationCode string    `json:"verification_code" gorm:"size:4;not null"`
	StartLat         float64   `json:"start_lat"`
	StartLng         float64   `json:"start_lng"`
	Status           string    `json:"status" gorm:"default:'active';index"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
	ExpiresAt        time.Time `json:"expires_at" gorm:"not null"`
}

// Catch statuses as they move through moderation.
const (
	CatchStatusPending     = "pending"
	CatchStatusUnderReview = "under_review"
	CatchStatusAccepted    = "accepted"
	CatchStatusRejected    = "rejected"
)

// Catch is a submitted catch record. SessionID carries a unique index: the
// database itself guarantees no two catches ever reference the same session.
type Catch struct {
	ID           string `json:"id" gorm:"primaryKey"`
	AnglerID     string `json:"angler_id" gorm:"not null;index"`
	TournamentID string `json:"tournament_id" gorm:"not null;index"`
	SessionID    string `json:"session_id" gorm:"not null;uniqueIndex"`

	PhotoURL   string  `json:"photo_url"`
	CaptureLat float64 `json:"capture_lat"`
	CaptureLng float64 `json:"capture_lng"`
	Species    string  `json:"species"`
	LengthIn   float64 `json:"length_in"`

	// Flattened measurement-quality record from the vision pipeline.
	// MeasurementFlags is comma-joined.
	MeasurementStatus     string  `json:"measurement_status,omitempty"`
	MeasurementConfidence float64 `json:"measurement_confidence,omitempty"`
	ReferenceDetected     bool    `json:"reference_detected"`
	ReferenceConfidence   float64 `json:"reference_confidence,omitempty"`
	MeasurementFlags      string  `json:"measurement_flags,omitempty"`

	Status              string `json:"status" gorm:"default:'pending';index"`
	PrizeEligible       bool   `json:"prize_eligible" gorm:"default:true"`
	IneligibilityReason string `json:"ineligibility_reason,omitempty"`

	SubmittedAt time.Time `json:"submitted_at" gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Measurement rebuilds the rules measurement record from the flattened
// columns. Returns nil when no measurement was ever attached.
func (c *Catch) Measurement() *rules.Measurement {
	if c.MeasurementStatus == "" {
		return nil
	}
	var flags []string
	for _, f := range strings.Split(c.MeasurementFlags, ",") {
		if f = strings.TrimSpace(f); f != "" {
			flags = append(flags, f)
		}
	}
	return &rules.Measurement{
		Status:     c.MeasurementStatus,
		Confidence: c.MeasurementConfidence,
		ReferenceObject: rules.ReferenceObject{
			Detected:   c.ReferenceDetected,
			Confidence: c.ReferenceConfidence,
		},
		Flags: flags,
	}
}

// ApplyMeasurement flattens a measurement record onto the catch columns.
func (c *Catch) ApplyMeasurement(m *rules.Measurement) {
	if m == nil {
		return
	}
	c.MeasurementStatus = m.Status
	c.MeasurementConfidence = m.Confidence
	c.ReferenceDetected = m.ReferenceObject.Detected
	c.ReferenceConfidence = m.ReferenceObject.Confidence
	c.MeasurementFlags = strings.Join(m.Flags, ",")
}
