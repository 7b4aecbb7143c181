package services

import (
	"strings"
	"testing"
	"time"

	"fishing-tournament-system/models"
	"fishing-tournament-system/rules"
)

func TestGenerateVerificationCode(t *testing.T) {
	t.Run("codes are 4 characters from the unambiguous alphabet", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			code, err := generateVerificationCode()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(code) != verificationCodeLength {
				t.Fatalf("expected %d characters, got %q", verificationCodeLength, code)
			}
			for _, ch := range code {
				if !strings.ContainsRune(verificationAlphabet, ch) {
					t.Fatalf("code %q contains %q, not in alphabet", code, ch)
				}
			}
		}
	})

	t.Run("alphabet excludes confusable glyphs", func(t *testing.T) {
		for _, bad := range "0O1Il" {
			if strings.ContainsRune(verificationAlphabet, bad) {
				t.Errorf("alphabet must not contain %q", bad)
			}
		}
	})

	t.Run("alphabet length keeps byte sampling uniform", func(t *testing.T) {
		if 256%len(verificationAlphabet) != 0 {
			t.Errorf("alphabet length %d does not divide 256; sampling would be biased", len(verificationAlphabet))
		}
	})
}

func TestClassifySessionFailure(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	session := func(status string, expiresAt time.Time) *models.CatchSession {
		return &models.CatchSession{
			ID:           "sess-1",
			AnglerID:     "angler-1",
			TournamentID: "tourn-1",
			Status:       status,
			ExpiresAt:    expiresAt,
		}
	}

	cases := []struct {
		name       string
		session    *models.CatchSession
		wantStatus int
		wantCode   string
	}{
		{"missing session", nil, 400, CodeSessionInvalid},
		{"used session", session(models.SessionStatusUsed, now.Add(5 * time.Minute)), 409, CodeSessionAlreadyUsed},
		{"swept expired session", session(models.SessionStatusExpired, now.Add(-time.Minute)), 400, CodeSessionExpired},
		{"active session past expiry", session(models.SessionStatusActive, now.Add(-time.Second)), 400, CodeSessionExpired},
		{"active unexpired session", session(models.SessionStatusActive, now.Add(5 * time.Minute)), 400, CodeSessionInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			serr := classifySessionFailure(tc.session, "angler-1", "tourn-1", now)
			if serr == nil {
				t.Fatal("expected a failure classification")
			}
			if serr.status != tc.wantStatus || serr.code != tc.wantCode {
				t.Errorf("got %d/%s, want %d/%s", serr.status, serr.code, tc.wantStatus, tc.wantCode)
			}
		})
	}

	t.Run("ownership outranks status", func(t *testing.T) {
		// A used session belonging to someone else must read as invalid, not
		// already-used.
		foreign := session(models.SessionStatusUsed, now.Add(5*time.Minute))
		if serr := classifySessionFailure(foreign, "angler-2", "tourn-1", now); serr.code != CodeSessionInvalid {
			t.Errorf("foreign angler: got %s, want %s", serr.code, CodeSessionInvalid)
		}
		if serr := classifySessionFailure(foreign, "angler-1", "tourn-2", now); serr.code != CodeSessionInvalid {
			t.Errorf("foreign tournament: got %s, want %s", serr.code, CodeSessionInvalid)
		}
	})
}

func TestNormalizeSpecies(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"title cases and trims", " redfish ,  SNOOK", "Redfish,Snook"},
		{"drops duplicates", "redfish,Redfish,redfish", "Redfish"},
		{"drops empties", "redfish,, ,tarpon", "Redfish,Tarpon"},
		{"empty input", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeSpecies(tc.in); got != tc.want {
				t.Errorf("normalizeSpecies(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestHasCapacity(t *testing.T) {
	cases := []struct {
		name    string
		max     int
		current int64
		want    bool
	}{
		{"unlimited when cap is zero", 0, 10_000, true},
		{"below cap", 50, 49, true},
		{"at cap", 50, 50, false},
		{"over cap", 50, 51, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := hasCapacity(tc.max, tc.current); got != tc.want {
				t.Errorf("hasCapacity(%d, %d) = %v, want %v", tc.max, tc.current, got, tc.want)
			}
		})
	}
}

func TestValidScopeGeometry(t *testing.T) {
	t.Run("state scope needs a state code", func(t *testing.T) {
		tournament := &models.Tournament{ScopeLevel: rules.ScopeState}
		if ok, _ := validScopeGeometry(tournament); ok {
			t.Error("expected invalid without state_code")
		}
		tournament.StateCode = "FL"
		if ok, msg := validScopeGeometry(tournament); !ok {
			t.Errorf("expected valid, got %q", msg)
		}
	})

	t.Run("region and local scopes need a region name", func(t *testing.T) {
		for _, scope := range []string{rules.ScopeRegion, rules.ScopeLocal} {
			tournament := &models.Tournament{ScopeLevel: scope}
			if ok, _ := validScopeGeometry(tournament); ok {
				t.Errorf("%s: expected invalid without region_name", scope)
			}
			tournament.RegionName = "Gulf Coast"
			if ok, msg := validScopeGeometry(tournament); !ok {
				t.Errorf("%s: expected valid, got %q", scope, msg)
			}
		}
	})

	t.Run("radius scope needs a center and a positive radius", func(t *testing.T) {
		tournament := &models.Tournament{ScopeLevel: rules.ScopeRadius, CenterLat: 26.14, CenterLng: -81.79}
		if ok, _ := validScopeGeometry(tournament); ok {
			t.Error("expected invalid without radius")
		}
		tournament.RadiusKm = 140
		if ok, msg := validScopeGeometry(tournament); !ok {
			t.Errorf("expected valid, got %q", msg)
		}
	})

	t.Run("unknown scope rejected", func(t *testing.T) {
		if ok, _ := validScopeGeometry(&models.Tournament{ScopeLevel: "COUNTY"}); ok {
			t.Error("expected invalid for unknown scope")
		}
	})
}
