// workers/angler_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"fishing-tournament-system/models"
	"fishing-tournament-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnglerProfile matches the JSON shape served by the profile sync service.
type AnglerProfile struct {
	ID                string     `json:"id"`
	ExternalID        string     `json:"external_id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	Bio               *string    `json:"bio,omitempty"`
	ProfilePictureURL *string    `json:"profile_picture_url,omitempty"`
	HomeStateCode     *string    `json:"home_state_code,omitempty"`
	AccountStatus     string     `json:"account_status"`
	LastSeen          *time.Time `json:"last_seen,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type anglerChangesResponse struct {
	Anglers []AnglerProfile `json:"users"`
}

// AnglerSyncWorker mirrors angler profiles from the profile service into the
// local tournament_anglers snapshot so leaderboards and participant lists can
// render names without a cross-service call.
type AnglerSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
}

func NewAnglerSyncWorker(db *gorm.DB, syncServiceBaseURL, endpointPath, serviceToken string) *AnglerSyncWorker {
	return &AnglerSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      syncServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
	}
}

func (w *AnglerSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Angler Sync Worker (profile service → tournament_anglers)…")

	// Initial backfill from the beginning of time.
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("[SYNC] initial sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.lastSyncTime()); err != nil {
				log.Printf("[SYNC] sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Angler Sync Worker stopped")
			return
		}
	}
}

// lastSyncTime finds the most recent UpdatedAt in the local snapshot.
func (w *AnglerSyncWorker) lastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM tournament_anglers WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches changed profiles since the given instant and upserts them.
func (w *AnglerSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid sync service URL %q: %w", w.baseURL, err)
	}

	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to sync service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sync service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response anglerChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode sync service response: %w", err)
	}

	if len(response.Anglers) == 0 {
		return nil
	}

	log.Printf("[SYNC] processing %d angler profile(s)…", len(response.Anglers))

	var upsertCount, errorCount int
	for _, remote := range response.Anglers {
		local := models.TournamentAngler{
			ExternalAnglerID:  remote.ExternalID,
			Username:          remote.Username,
			Email:             remote.Email,
			Bio:               remote.Bio,
			ProfilePictureURL: remote.ProfilePictureURL,
			HomeStateCode:     remote.HomeStateCode,
			LastSeen:          remote.LastSeen,
			CreatedAt:         remote.CreatedAt,
			UpdatedAt:         remote.UpdatedAt,
		}

		if err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_angler_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "email", "bio", "profile_picture_url",
				"home_state_code", "last_seen", "created_at", "updated_at",
			}),
		}).Create(&local).Error; err != nil {
			errorCount++
			log.Printf("[SYNC] failed to upsert angler (external_id=%q): %v", remote.ExternalID, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[SYNC] ✅ synced %d angler(s) (%d upserted, %d errors)", len(response.Anglers), upsertCount, errorCount)
	return nil
}
