package models

import (
	"strings"
	"time"

	"fishing-tournament-system/rules"
)

// Tournament statuses. Lifecycle (UPCOMING/LIVE/...) is always derived from
// the schedule via the rules package and never stored here.
const (
	TournamentStatusDraft     = "draft"
	TournamentStatusPublished = "published"
)

// Tournament represents a time-boxed fishing tournament with a geographic
// boundary. Scope-specific geometry columns are sparse: STATE fills
// StateCode, REGION/LOCAL fill RegionName, RADIUS fills the center + radius.
type Tournament struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"not null"`
	Slug        string `json:"slug" gorm:"index"`
	Description string `json:"description"`
	Rules       string `json:"rules"`

	// Species is a comma-separated list of eligible species.
	Species   string  `json:"species"`
	EntryFee  float64 `json:"entry_fee" gorm:"default:0"`
	PrizePool float64 `json:"prize_pool" gorm:"default:0"`

	StartTime time.Time `json:"start_time" gorm:"not null"`
	EndTime   time.Time `json:"end_time" gorm:"not null"`

	// Boundary descriptor
	ScopeLevel string  `json:"scope_level" gorm:"not null;default:'STATE'"`
	StateCode  string  `json:"state_code,omitempty" gorm:"size:2"`
	RegionName string  `json:"region_name,omitempty"`
	CenterLat  float64 `json:"center_lat,omitempty"`
	CenterLng  float64 `json:"center_lng,omitempty"`
	RadiusKm   float64 `json:"radius_km,omitempty"`

	MaxParticipants int        `json:"max_participants" gorm:"default:0"`
	MainPhotoURL    string     `json:"main_photo_url"`
	Status          string     `json:"status" gorm:"default:'draft'"`
	PublishedAt     *time.Time `json:"published_at,omitempty" gorm:"index"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Participants []TournamentParticipant `json:"participants,omitempty" gorm:"foreignKey:TournamentID"`

	// Calculated, not stored
	ParticipantsCount int64 `json:"participants_count,omitempty" gorm:"-"`
}

// Boundary maps the stored geometry columns onto the portable rules type.
func (t *Tournament) Boundary() rules.Boundary {
	return rules.Boundary{
		Scope:      t.ScopeLevel,
		StateCode:  t.StateCode,
		RegionName: t.RegionName,
		CenterLat:  t.CenterLat,
		CenterLng:  t.CenterLng,
		RadiusKm:   t.RadiusKm,
	}
}

// SpeciesList splits the stored species string into trimmed entries.
func (t *Tournament) SpeciesList() []string {
	if t.Species == "" {
		return nil
	}
	parts := strings.Split(t.Species, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TournamentParticipant tracks an angler's membership in a tournament.
// AnglerID is the profile service's external user id, denormalized name and
// avatar are a safe copy taken at join time.
type TournamentParticipant struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	TournamentID string    `json:"tournament_id" gorm:"not null;index:idx_participant_unique,unique"`
	AnglerID     string    `json:"angler_id" gorm:"not null;index:idx_participant_unique,unique"`
	AnglerName   string    `json:"angler_name"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	JoinedAt     time.Time `json:"joined_at" gorm:"autoCreateTime"`
}

// MiniTournament is the lifecycle-annotated list shape served to clients.
type MiniTournament struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Slug              string          `json:"slug"`
	Species           string          `json:"species"`
	EntryFee          float64         `json:"entry_fee"`
	PrizePool         float64         `json:"prize_pool"`
	StartTime         time.Time       `json:"start_time"`
	EndTime           time.Time       `json:"end_time"`
	ScopeLevel        string          `json:"scope_level"`
	StateCode         string          `json:"state_code,omitempty"`
	RegionName        string          `json:"region_name,omitempty"`
	MainPhotoURL      string          `json:"main_photo_url"`
	MaxParticipants   int             `json:"max_participants"`
	ParticipantsCount int64           `json:"participants_count"`
	Lifecycle         rules.Lifecycle `json:"lifecycle"`
	CanJoin           bool            `json:"can_join"`
	CanSubmitCatch    bool            `json:"can_submit_catch"`
}
