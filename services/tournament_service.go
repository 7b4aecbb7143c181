package services

import (
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fishing-tournament-system/models"
	"fishing-tournament-system/rules"
	"fishing-tournament-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TournamentService struct {
	DB *gorm.DB
}

func NewTournamentService(db *gorm.DB) *TournamentService {
	return &TournamentService{DB: db}
}

var speciesCaser = cases.Title(language.AmericanEnglish)

// normalizeSpecies title-cases and de-dupes a comma-separated species list so
// "redfish, SNOOK ,redfish" stores as "Redfish,Snook".
func normalizeSpecies(raw string) string {
	seen := map[string]bool{}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		name := speciesCaser.String(strings.ToLower(strings.TrimSpace(part)))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return strings.Join(out, ",")
}

// validScopeGeometry checks the scope-specific geometry columns are present.
func validScopeGeometry(t *models.Tournament) (bool, string) {
	switch t.ScopeLevel {
	case rules.ScopeState:
		if strings.TrimSpace(t.StateCode) == "" {
			return false, "state_code is required for STATE scope"
		}
	case rules.ScopeRegion, rules.ScopeLocal:
		if strings.TrimSpace(t.RegionName) == "" {
			return false, "region_name is required for REGION/LOCAL scope"
		}
	case rules.ScopeRadius:
		if t.CenterLat == 0 && t.CenterLng == 0 {
			return false, "center_lat and center_lng are required for RADIUS scope"
		}
		if t.RadiusKm <= 0 {
			return false, "radius_km must be > 0 for RADIUS scope"
		}
	default:
		return false, "scope_level must be one of STATE, REGION, LOCAL, RADIUS"
	}
	return true, ""
}

func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	name := c.FormValue("name")
	startTimeStr := c.FormValue("start_time")
	endTimeStr := c.FormValue("end_time")

	if name == "" || startTimeStr == "" || endTimeStr == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name, start_time and end_time are required"})
	}

	startTime, err := time.Parse(time.RFC3339, startTimeStr)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid start_time (use RFC3339)"})
	}
	endTime, err := time.Parse(time.RFC3339, endTimeStr)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid end_time (use RFC3339)"})
	}
	if !endTime.After(startTime) {
		return c.Status(400).JSON(fiber.Map{"error": "end_time must be after start_time"})
	}

	entryFee := 0.0
	if v := c.FormValue("entry_fee"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			entryFee = f
		} else {
			return c.Status(400).JSON(fiber.Map{"error": "entry_fee must be a non-negative number"})
		}
	}
	prizePool := 0.0
	if v := c.FormValue("prize_pool"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			prizePool = f
		} else {
			return c.Status(400).JSON(fiber.Map{"error": "prize_pool must be a non-negative number"})
		}
	}
	maxParticipants := 0
	if v := c.FormValue("max_participants"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			maxParticipants = n
		} else {
			return c.Status(400).JSON(fiber.Map{"error": "max_participants must be a non-negative integer"})
		}
	}

	parseCoord := func(field string) (float64, bool) {
		v := c.FormValue(field)
		if v == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	centerLat, ok1 := parseCoord("center_lat")
	centerLng, ok2 := parseCoord("center_lng")
	radiusKm, ok3 := parseCoord("radius_km")
	if !ok1 || !ok2 || !ok3 {
		return c.Status(400).JSON(fiber.Map{"error": "center_lat, center_lng and radius_km must be numbers"})
	}

	scopeLevel := strings.ToUpper(strings.TrimSpace(c.FormValue("scope_level")))
	if scopeLevel == "" {
		scopeLevel = rules.ScopeState
	}

	tournament := &models.Tournament{
		ID:              uuid.NewString(),
		Name:            name,
		Slug:            slug.Make(name),
		Description:     c.FormValue("description"),
		Rules:           c.FormValue("rules"),
		Species:         normalizeSpecies(c.FormValue("species")),
		EntryFee:        entryFee,
		PrizePool:       prizePool,
		StartTime:       startTime,
		EndTime:         endTime,
		ScopeLevel:      scopeLevel,
		StateCode:       strings.ToUpper(strings.TrimSpace(c.FormValue("state_code"))),
		RegionName:      strings.TrimSpace(c.FormValue("region_name")),
		CenterLat:       centerLat,
		CenterLng:       centerLng,
		RadiusKm:        radiusKm,
		MaxParticipants: maxParticipants,
		Status:          models.TournamentStatusDraft, // always starts as draft
	}

	if ok, msg := validScopeGeometry(tournament); !ok {
		return c.Status(400).JSON(fiber.Map{"error": msg})
	}

	// Main photo is optional; stored under the tournament slug for traceable keys.
	if photo, err := c.FormFile("main_photo"); err == nil && photo.Size > 0 {
		ext := filepath.Ext(photo.Filename)
		if ext == "" {
			ext = ".jpg"
		}
		key := "tournaments/" + tournament.Slug + "-" + uuid.NewString() + ext
		url, err := utils.StorePhoto(photo, key)
		if err != nil {
			log.Printf("ERROR uploading tournament photo: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to upload main photo"})
		}
		tournament.MainPhotoURL = url
	}

	if err := s.DB.Create(tournament).Error; err != nil {
		log.Printf("ERROR creating tournament: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}

	return c.Status(201).JSON(tournament)
}

func (s *TournamentService) GetAllTournaments(c *fiber.Ctx) error {
	var tournaments []models.Tournament
	if err := s.DB.Preload("Participants").Order("created_at DESC").Find(&tournaments).Error; err != nil {
		log.Printf("ERROR fetching tournaments: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}
	return c.JSON(tournaments)
}

// GetPublishedTournaments returns the public list with derived lifecycle
// state. Lifecycle is computed per request; it is never read from storage.
func (s *TournamentService) GetPublishedTournaments(c *fiber.Ctx) error {
	type row struct {
		models.Tournament
		ParticipantsCount int64
	}
	var rowsOut []row
	query := `
        SELECT t.*, COUNT(tp.id) AS participants_count
        FROM tournaments t
        LEFT JOIN tournament_participants tp ON t.id = tp.tournament_id
        WHERE t.status = 'published'
        GROUP BY t.id
        ORDER BY t.start_time ASC
    `
	if err := s.DB.Raw(query).Scan(&rowsOut).Error; err != nil {
		log.Printf("ERROR fetching published tournaments: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}

	now := time.Now()
	list := make([]models.MiniTournament, 0, len(rowsOut))
	for _, r := range rowsOut {
		list = append(list, models.MiniTournament{
			ID:                r.ID,
			Name:              r.Name,
			Slug:              r.Slug,
			Species:           r.Species,
			EntryFee:          r.EntryFee,
			PrizePool:         r.PrizePool,
			StartTime:         r.StartTime,
			EndTime:           r.EndTime,
			ScopeLevel:        r.ScopeLevel,
			StateCode:         r.StateCode,
			RegionName:        r.RegionName,
			MainPhotoURL:      r.MainPhotoURL,
			MaxParticipants:   r.MaxParticipants,
			ParticipantsCount: r.ParticipantsCount,
			Lifecycle:         rules.Classify(r.StartTime, r.EndTime, now),
			CanJoin:           rules.CanJoin(r.StartTime, r.EndTime, now),
			CanSubmitCatch:    rules.CanSubmitCatch(r.StartTime, r.EndTime, now),
		})
	}
	return c.JSON(list)
}

func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	var tournament models.Tournament
	if err := s.DB.Preload("Participants").First(&tournament, "id = ?", c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching tournament"})
	}
	tournament.ParticipantsCount = int64(len(tournament.Participants))

	now := time.Now()
	return c.JSON(fiber.Map{
		"tournament":       tournament,
		"lifecycle":        rules.Classify(tournament.StartTime, tournament.EndTime, now),
		"can_join":         rules.CanJoin(tournament.StartTime, tournament.EndTime, now),
		"can_submit_catch": rules.CanSubmitCatch(tournament.StartTime, tournament.EndTime, now),
	})
}

func (s *TournamentService) UpdateTournament(c *fiber.Ctx) error {
	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching tournament"})
	}

	type Req struct {
		Name            *string  `json:"name"`
		Description     *string  `json:"description"`
		Rules           *string  `json:"rules"`
		Species         *string  `json:"species"`
		EntryFee        *float64 `json:"entry_fee"`
		PrizePool       *float64 `json:"prize_pool"`
		StartTime       *string  `json:"start_time"`
		EndTime         *string  `json:"end_time"`
		MaxParticipants *int     `json:"max_participants"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	if req.Name != nil {
		tournament.Name = *req.Name
		tournament.Slug = slug.Make(*req.Name)
	}
	if req.Description != nil {
		tournament.Description = *req.Description
	}
	if req.Rules != nil {
		tournament.Rules = *req.Rules
	}
	if req.Species != nil {
		tournament.Species = normalizeSpecies(*req.Species)
	}
	if req.EntryFee != nil {
		tournament.EntryFee = *req.EntryFee
	}
	if req.PrizePool != nil {
		tournament.PrizePool = *req.PrizePool
	}
	if req.MaxParticipants != nil {
		tournament.MaxParticipants = *req.MaxParticipants
	}
	if req.StartTime != nil {
		t, err := time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid start_time (use RFC3339)"})
		}
		tournament.StartTime = t
	}
	if req.EndTime != nil {
		t, err := time.Parse(time.RFC3339, *req.EndTime)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid end_time (use RFC3339)"})
		}
		tournament.EndTime = t
	}
	if !tournament.EndTime.After(tournament.StartTime) {
		return c.Status(400).JSON(fiber.Map{"error": "end_time must be after start_time"})
	}

	if err := s.DB.Save(&tournament).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "update failed"})
	}
	return c.JSON(tournament)
}

func (s *TournamentService) DeleteTournament(c *fiber.Ctx) error {
	res := s.DB.Delete(&models.Tournament{}, "id = ?", c.Params("id"))
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "delete failed"})
	}
	if res.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
	}
	return c.JSON(fiber.Map{"message": "tournament deleted"})
}

func (s *TournamentService) PublishTournament(c *fiber.Ctx) error {
	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching tournament"})
	}
	if tournament.Status == models.TournamentStatusPublished {
		return c.Status(409).JSON(fiber.Map{"error": "tournament already published"})
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.TournamentStatusPublished,
		"published_at": &now,
	}
	if err := s.DB.Model(&tournament).Updates(updates).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "publish failed"})
	}
	log.Printf("✅ Published tournament %s (%s)", tournament.Name, tournament.ID)
	return c.JSON(fiber.Map{"message": "tournament published", "tournament": tournament})
}

// hasCapacity reports whether a tournament with the given cap can take one
// more angler. A cap of 0 means unlimited.
func hasCapacity(maxParticipants int, current int64) bool {
	return maxParticipants <= 0 || current < int64(maxParticipants)
}

// JoinTournament creates a participant row for the calling angler. Joining
// stays open through ENDING_SOON and closes once the tournament has ended.
func (s *TournamentService) JoinTournament(c *fiber.Ctx) error {
	anglerID, ok := c.Locals("angler_id").(string)
	if !ok || anglerID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing angler identity"})
	}

	type Req struct {
		AnglerName string `json:"angler_name"`
		AvatarURL  string `json:"avatar_url,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ? AND status = ?", c.Params("id"), models.TournamentStatusPublished).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching tournament"})
	}

	if !rules.CanJoin(tournament.StartTime, tournament.EndTime, time.Now()) {
		return c.Status(403).JSON(fiber.Map{"error": "tournament has ended", "code": CodeTournamentNotActive})
	}

	var avatar *string
	if req.AvatarURL != "" {
		avatar = &req.AvatarURL
	}
	participant := models.TournamentParticipant{
		ID:           uuid.NewString(),
		TournamentID: tournament.ID,
		AnglerID:     anglerID,
		AnglerName:   req.AnglerName,
		AvatarURL:    avatar,
		JoinedAt:     time.Now(),
	}

	// The capacity check and the insert run against a FOR UPDATE lock on the
	// tournament row, so two concurrent joins cannot both pass the count.
	txErr := s.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.Tournament
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, "id = ?", tournament.ID).Error; err != nil {
			return err
		}

		var existing models.TournamentParticipant
		if err := tx.Where("tournament_id = ? AND angler_id = ?", tournament.ID, anglerID).
			First(&existing).Error; err == nil {
			return &submitError{status: 409, code: CodeAlreadyJoined, payload: fiber.Map{
				"error":       "already joined",
				"participant": existing,
			}}
		}

		if locked.MaxParticipants > 0 {
			var count int64
			if err := tx.Model(&models.TournamentParticipant{}).
				Where("tournament_id = ?", tournament.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if !hasCapacity(locked.MaxParticipants, count) {
				return &submitError{status: 403, code: CodeTournamentFull, payload: fiber.Map{
					"error": "tournament is full",
				}}
			}
		}

		return tx.Create(&participant).Error
	})
	if txErr != nil {
		if serr, ok := txErr.(*submitError); ok {
			return serr.respond(c)
		}
		log.Printf("ERROR joining tournament %s: %v", tournament.ID, txErr)
		return c.Status(500).JSON(fiber.Map{"error": "failed to join tournament"})
	}

	return c.Status(201).JSON(fiber.Map{"message": "joined tournament", "participant": participant})
}

func (s *TournamentService) GetParticipants(c *fiber.Ctx) error {
	var participants []models.TournamentParticipant
	if err := s.DB.Where("tournament_id = ?", c.Params("id")).
		Order("joined_at ASC").
		Find(&participants).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch participants"})
	}
	return c.JSON(participants)
}
