package services

import (
	"crypto/rand"
	"encoding/json"
	"log"
	"path/filepath"
	"strconv"
	"time"

	"fishing-tournament-system/models"
	"fishing-tournament-system/rules"
	"fishing-tournament-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Machine-readable error codes surfaced to clients. Boundary errors are
// recoverable (move and retry), session errors end that session, window
// errors end that tournament attempt.
const (
	CodeNotAParticipant        = "NOT_A_PARTICIPANT"
	CodeAlreadyJoined          = "ALREADY_JOINED"
	CodeTournamentFull         = "TOURNAMENT_FULL"
	CodeOutsideBoundary        = "OUTSIDE_BOUNDARY"
	CodeTournamentNotActive    = "TOURNAMENT_NOT_ACTIVE"
	CodeTournamentWindowClosed = "TOURNAMENT_WINDOW_CLOSED"
	CodeSessionInvalid         = "SESSION_INVALID"
	CodeSessionAlreadyUsed     = "SESSION_ALREADY_USED"
	CodeSessionExpired         = "SESSION_EXPIRED"
	CodePrizeIneligible        = "PRIZE_INELIGIBLE"
)

// verificationAlphabet excludes visually confusable glyphs (0/O, 1/I). Its
// length of 32 divides 256 evenly, so byte-modulo sampling stays uniform.
const verificationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const verificationCodeLength = 4

type CatchService struct {
	DB *gorm.DB
}

func NewCatchService(db *gorm.DB) *CatchService {
	return &CatchService{DB: db}
}

// submitError carries a typed failure out of the submission transaction so
// the handler can map it to a response after rollback.
type submitError struct {
	status  int
	code    string
	payload fiber.Map
}

func (e *submitError) Error() string { return e.code }

func (e *submitError) respond(c *fiber.Ctx) error {
	body := fiber.Map{"code": e.code}
	for k, v := range e.payload {
		body[k] = v
	}
	if _, ok := body["error"]; !ok {
		body["error"] = e.code
	}
	return c.Status(e.status).JSON(body)
}

func generateVerificationCode() (string, error) {
	buf := make([]byte, verificationCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = verificationAlphabet[int(b)%len(verificationAlphabet)]
	}
	return string(buf), nil
}

// StartCatchSession issues a single-use verification session for the calling
// angler. Preconditions: participant of the tournament, inside the boundary
// at the start location, and the tournament within its raw [start,end]
// window (not the stricter submit gate — a session may start any time the
// tournament is running).
//
// Nothing prevents an angler from holding several active sessions for the
// same tournament at once; each is independently single-use. That matches
// the original behavior and lets a failed capture flow restart immediately.
func (s *CatchService) StartCatchSession(c *fiber.Ctx) error {
	anglerID, ok := c.Locals("angler_id").(string)
	if !ok || anglerID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing angler identity"})
	}

	type Req struct {
		TournamentID string  `json:"tournament_id"`
		Lat          float64 `json:"lat"`
		Lng          float64 `json:"lng"`
		StateCode    string  `json:"state_code,omitempty"`
		RegionLabel  string  `json:"region_label,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.TournamentID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "tournament_id is required"})
	}

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", req.TournamentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching tournament"})
	}

	var participant models.TournamentParticipant
	if err := s.DB.Where("tournament_id = ? AND angler_id = ?", tournament.ID, anglerID).
		First(&participant).Error; err != nil {
		return c.Status(403).JSON(fiber.Map{
			"error": "you must join the tournament first",
			"code":  CodeNotAParticipant,
		})
	}

	location := rules.Location{
		Lat:         req.Lat,
		Lng:         req.Lng,
		StateCode:   req.StateCode,
		RegionLabel: req.RegionLabel,
	}
	verdict := rules.EvaluateGeofence(location, tournament.Boundary())
	if !verdict.Allowed {
		return c.Status(403).JSON(fiber.Map{
			"error":   "location is outside the tournament boundary",
			"code":    CodeOutsideBoundary,
			"verdict": verdict,
		})
	}

	now := time.Now()
	if !rules.WithinActiveWindow(tournament.StartTime, tournament.EndTime, now) {
		return c.Status(400).JSON(fiber.Map{
			"error": "tournament is not currently active",
			"code":  CodeTournamentNotActive,
		})
	}

	code, err := generateVerificationCode()
	if err != nil {
		log.Printf("ERROR generating verification code: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to generate verification code"})
	}

	session := models.CatchSession{
		ID:               uuid.NewString(),
		AnglerID:         anglerID,
		TournamentID:     tournament.ID,
		VerificationCode: code,
		StartLat:         req.Lat,
		StartLng:         req.Lng,
		Status:           models.SessionStatusActive,
		ExpiresAt:        now.Add(models.SessionTTL),
	}
	if err := s.DB.Create(&session).Error; err != nil {
		log.Printf("ERROR creating catch session: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create session"})
	}

	return c.Status(201).JSON(fiber.Map{
		"message":           "catch session started",
		"session_id":        session.ID,
		"verification_code": session.VerificationCode,
		"expires_at":        session.ExpiresAt,
	})
}

// consumeSession performs the exactly-once active→used transition as a single
// conditional UPDATE inside the caller's transaction. Of two concurrent
// submissions for the same session, exactly one sees RowsAffected=1; the
// loser is re-read to produce the precise failure code.
func (s *CatchService) consumeSession(tx *gorm.DB, sessionID, anglerID, tournamentID string, now time.Time) *submitError {
	res := tx.Model(&models.CatchSession{}).
		Where("id = ? AND angler_id = ? AND tournament_id = ? AND status = ? AND expires_at >= ?",
			sessionID, anglerID, tournamentID, models.SessionStatusActive, now).
		Update("status", models.SessionStatusUsed)
	if res.Error != nil {
		log.Printf("ERROR consuming session %s: %v", sessionID, res.Error)
		return &submitError{status: 500, code: CodeSessionInvalid, payload: fiber.Map{"error": "DB error consuming session"}}
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var session models.CatchSession
	if err := tx.First(&session, "id = ?", sessionID).Error; err != nil {
		return classifySessionFailure(nil, anglerID, tournamentID, now)
	}
	return classifySessionFailure(&session, anglerID, tournamentID, now)
}

// classifySessionFailure explains why a session could not be consumed, in
// precedence order: missing, wrong owner/tournament, already used, expired.
// Ownership is checked before status so a foreign session never leaks whether
// it was used.
func classifySessionFailure(session *models.CatchSession, anglerID, tournamentID string, now time.Time) *submitError {
	if session == nil {
		return &submitError{status: 400, code: CodeSessionInvalid, payload: fiber.Map{"error": "session not found"}}
	}
	if session.AnglerID != anglerID || session.TournamentID != tournamentID {
		return &submitError{status: 400, code: CodeSessionInvalid, payload: fiber.Map{"error": "session does not belong to this angler and tournament"}}
	}
	switch {
	case session.Status == models.SessionStatusUsed:
		return &submitError{status: 409, code: CodeSessionAlreadyUsed, payload: fiber.Map{"error": "session has already been used"}}
	case session.Status == models.SessionStatusExpired || now.After(session.ExpiresAt):
		return &submitError{status: 400, code: CodeSessionExpired, payload: fiber.Map{"error": "session has expired"}}
	default:
		return &submitError{status: 400, code: CodeSessionInvalid, payload: fiber.Map{"error": "session is not active"}}
	}
}

// SubmitCatch validates and records a catch. Everything is re-checked at the
// capture instant: the session is consumed, the geofence is re-evaluated
// against the capture-time location (a session started inside the boundary
// does not grant permission to submit from outside it) and the tournament
// window is re-checked (a live session outliving end_time is rejected). The
// session transition and the catch insert commit or roll back together.
func (s *CatchService) SubmitCatch(c *fiber.Ctx) error {
	anglerID, ok := c.Locals("angler_id").(string)
	if !ok || anglerID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing angler identity"})
	}

	sessionID := c.FormValue("session_id")
	tournamentID := c.FormValue("tournament_id")
	species := c.FormValue("species")
	if sessionID == "" || tournamentID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "session_id and tournament_id are required"})
	}

	lengthIn, err := strconv.ParseFloat(c.FormValue("length_in"), 64)
	if err != nil || lengthIn <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "length_in must be a positive number"})
	}
	lat, latErr := strconv.ParseFloat(c.FormValue("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.FormValue("lng"), 64)
	if latErr != nil || lngErr != nil {
		return c.Status(400).JSON(fiber.Map{"error": "lat and lng are required numbers"})
	}

	var measurement *rules.Measurement
	if raw := c.FormValue("measurement"); raw != "" {
		var m rules.Measurement
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid measurement JSON"})
		}
		measurement = &m
	}
	strictPrizeMode := c.FormValue("strict_prize_mode") == "true"

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching tournament"})
	}

	photo, err := c.FormFile("photo")
	if err != nil || photo.Size == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "photo is required"})
	}
	ext := filepath.Ext(photo.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	// Uploaded before the transaction; an orphaned object on rollback is
	// cheaper than holding the transaction open across a network upload.
	photoURL, err := utils.StorePhoto(photo, "catches/"+uuid.NewString()+ext)
	if err != nil {
		log.Printf("ERROR uploading catch photo: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to upload photo"})
	}

	now := time.Now()
	verdict := rules.PrizeEligibility(tournament.PrizePool, measurement)

	newCatch := models.Catch{
		ID:                  uuid.NewString(),
		AnglerID:            anglerID,
		TournamentID:        tournament.ID,
		SessionID:           sessionID,
		PhotoURL:            photoURL,
		CaptureLat:          lat,
		CaptureLng:          lng,
		Species:             species,
		LengthIn:            lengthIn,
		Status:              models.CatchStatusPending,
		PrizeEligible:       verdict.Eligible,
		IneligibilityReason: verdict.Reason,
		SubmittedAt:         now,
	}
	newCatch.ApplyMeasurement(measurement)

	txErr := s.DB.Transaction(func(tx *gorm.DB) error {
		if serr := s.consumeSession(tx, sessionID, anglerID, tournament.ID, now); serr != nil {
			return serr
		}

		location := rules.Location{
			Lat:         lat,
			Lng:         lng,
			StateCode:   c.FormValue("state_code"),
			RegionLabel: c.FormValue("region_label"),
		}
		if gv := rules.EvaluateGeofence(location, tournament.Boundary()); !gv.Allowed {
			return &submitError{status: 403, code: CodeOutsideBoundary, payload: fiber.Map{
				"error":   "capture location is outside the tournament boundary",
				"verdict": gv,
			}}
		}

		if !rules.WithinActiveWindow(tournament.StartTime, tournament.EndTime, now) {
			return &submitError{status: 400, code: CodeTournamentWindowClosed, payload: fiber.Map{
				"error": "catch submitted outside the tournament time window",
			}}
		}

		if strictPrizeMode && !verdict.Eligible {
			return &submitError{status: 422, code: CodePrizeIneligible, payload: fiber.Map{
				"error":  "catch is not prize eligible",
				"reason": verdict.Reason,
			}}
		}

		return tx.Create(&newCatch).Error
	})
	if txErr != nil {
		if serr, ok := txErr.(*submitError); ok {
			return serr.respond(c)
		}
		log.Printf("ERROR submitting catch for session %s: %v", sessionID, txErr)
		return c.Status(500).JSON(fiber.Map{"error": "failed to submit catch"})
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "catch submitted",
		"catch": fiber.Map{
			"id":           newCatch.ID,
			"status":       newCatch.Status,
			"species":      newCatch.Species,
			"length_in":    newCatch.LengthIn,
			"photo_url":    newCatch.PhotoURL,
			"submitted_at": newCatch.SubmittedAt,
		},
		"prize_eligible": verdict.Eligible,
		"prize_reason":   verdict.Reason,
		"quality_score":  rules.QualityScore(measurement),
	})
}

func (s *CatchService) GetMyCatches(c *fiber.Ctx) error {
	anglerID, ok := c.Locals("angler_id").(string)
	if !ok || anglerID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing angler identity"})
	}

	query := s.DB.Where("angler_id = ?", anglerID)
	if tid := c.Query("tournament_id"); tid != "" {
		query = query.Where("tournament_id = ?", tid)
	}

	var catches []models.Catch
	if err := query.Order("submitted_at DESC").Find(&catches).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch catches"})
	}
	return c.JSON(catches)
}

// GetCatchByID returns full details to the owner or a moderator, and a
// trimmed public view to everyone else.
func (s *CatchService) GetCatchByID(c *fiber.Ctx) error {
	var record models.Catch
	if err := s.DB.First(&record, "id = ?", c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": "catch not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching catch"})
	}

	anglerID, _ := c.Locals("angler_id").(string)
	if record.AnglerID != anglerID && !hasRole(c, "moderator") {
		return c.JSON(fiber.Map{
			"id":           record.ID,
			"species":      record.Species,
			"length_in":    record.LengthIn,
			"photo_url":    record.PhotoURL,
			"status":       record.Status,
			"submitted_at": record.SubmittedAt,
		})
	}

	return c.JSON(fiber.Map{
		"catch":         record,
		"quality_score": rules.QualityScore(record.Measurement()),
	})
}

// reviewTransitions are the allowed moderation moves per current status.
var reviewTransitions = map[string][]string{
	models.CatchStatusPending:     {models.CatchStatusUnderReview, models.CatchStatusAccepted, models.CatchStatusRejected},
	models.CatchStatusUnderReview: {models.CatchStatusAccepted, models.CatchStatusRejected},
}

// ReviewCatch moves a catch through the moderation queue.
func (s *CatchService) ReviewCatch(c *fiber.Ctx) error {
	if !hasRole(c, "moderator") {
		return c.Status(403).JSON(fiber.Map{"error": "moderator role required"})
	}

	type Req struct {
		Status string `json:"status"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	var record models.Catch
	if err := s.DB.First(&record, "id = ?", c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(404).JSON(fiber.Map{"error": "catch not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching catch"})
	}

	allowed := false
	for _, next := range reviewTransitions[record.Status] {
		if next == req.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		return c.Status(400).JSON(fiber.Map{
			"error":   "invalid status transition",
			"current": record.Status,
			"allowed": reviewTransitions[record.Status],
		})
	}

	if err := s.DB.Model(&record).Update("status", req.Status).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "review update failed"})
	}
	log.Printf("Catch %s reviewed: %s → %s", record.ID, record.Status, req.Status)
	record.Status = req.Status
	return c.JSON(fiber.Map{"message": "catch reviewed", "catch": record})
}

// hasRole checks the gateway-provided roles attached by the user context
// middleware.
func hasRole(c *fiber.Ctx, role string) bool {
	roles, _ := c.Locals("angler_roles").([]string)
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
