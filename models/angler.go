package models

import (
	"time"

	"gorm.io/gorm"
)

// TournamentAngler is a local snapshot of angler profile data needed for
// tournament displays. Owned solely by this service and populated by the
// angler sync worker from the profile service.
type TournamentAngler struct {
	ID                string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalAnglerID  string     `gorm:"uniqueIndex;not null" json:"external_angler_id"`
	Username          string     `gorm:"index;not null" json:"username"`
	Email             string     `json:"email,omitempty"`
	ProfilePictureURL *string    `json:"profile_picture_url,omitempty"`
	HomeStateCode     *string    `json:"home_state_code,omitempty"`
	Bio               *string    `json:"bio,omitempty"`
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	LastSeen          *time.Time `json:"last_seen,omitempty"`

	// Local tournament ban, independent of the profile service's own bans.
	IsBanned bool `json:"is_banned" gorm:"default:false"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
