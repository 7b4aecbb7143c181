package rules

import (
	"reflect"
	"testing"
	"time"
)

func entry(angler string, length float64, at time.Time) LeaderboardEntry {
	return LeaderboardEntry{
		Source:        SourceServer,
		TournamentID:  "t1",
		Angler:        angler,
		Species:       "Redfish",
		LengthIn:      length,
		SubmittedAt:   at,
		Status:        "accepted",
		PrizeEligible: true,
	}
}

func TestRankLeaderboard(t *testing.T) {
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("longer catch outranks, ties go to earlier submission", func(t *testing.T) {
		board := RankLeaderboard("t1", []LeaderboardEntry{
			entry("alice", 24.5, base.Add(2*time.Hour)),
			entry("bob", 31.0, base.Add(3*time.Hour)),
			entry("carol", 24.5, base.Add(1*time.Hour)),
		}, nil, false)

		got := []string{}
		for _, e := range board.Entries {
			got = append(got, e.Angler)
		}
		want := []string{"bob", "carol", "alice"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("expected order %v, got %v", want, got)
		}
		for i, e := range board.Entries {
			if e.Rank != i+1 {
				t.Errorf("expected dense rank %d, got %d", i+1, e.Rank)
			}
		}
	})

	t.Run("local pending merges into the main board", func(t *testing.T) {
		local := entry("me", 28, base)
		local.Source = SourceLocal
		local.Status = "pending"
		local.IsCurrentUser = true

		board := RankLeaderboard("t1", []LeaderboardEntry{
			entry("bob", 31, base),
			entry("alice", 24, base),
		}, []LeaderboardEntry{local}, false)

		if len(board.Entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(board.Entries))
		}
		if board.Entries[1].Angler != "me" {
			t.Errorf("expected local catch ranked second, got %s", board.Entries[1].Angler)
		}
		if board.CurrentUserRank != 2 {
			t.Errorf("expected current user rank 2, got %d", board.CurrentUserRank)
		}
	})

	t.Run("local catches for other tournaments are ignored", func(t *testing.T) {
		other := entry("me", 40, base)
		other.Source = SourceLocal
		other.TournamentID = "t2"

		board := RankLeaderboard("t1", []LeaderboardEntry{entry("bob", 31, base)}, []LeaderboardEntry{other}, false)
		if len(board.Entries) != 1 {
			t.Fatalf("expected foreign-tournament catch filtered, got %d entries", len(board.Entries))
		}
	})

	t.Run("practice catches never interleave", func(t *testing.T) {
		practice := entry("me", 50, base)
		practice.Source = SourceLocal
		practice.PrizeEligible = false
		practice.IsCurrentUser = true

		board := RankLeaderboard("t1", []LeaderboardEntry{entry("bob", 31, base)}, []LeaderboardEntry{practice}, true)

		if len(board.Entries) != 1 || board.Entries[0].Angler != "bob" {
			t.Fatalf("expected practice catch kept out of the main board, got %+v", board.Entries)
		}
		if len(board.Practice) != 1 || board.Practice[0].Rank != 1 {
			t.Fatalf("expected separately ranked practice board, got %+v", board.Practice)
		}
		if board.CurrentUserRank != 0 {
			t.Errorf("expected no main-board rank for a practice-only caller, got %d", board.CurrentUserRank)
		}
		if board.Stats.Practice != 1 {
			t.Errorf("expected practice stat 1, got %d", board.Stats.Practice)
		}
	})

	t.Run("practice board omitted unless requested", func(t *testing.T) {
		practice := entry("me", 50, base)
		practice.Source = SourceLocal
		practice.PrizeEligible = false

		board := RankLeaderboard("t1", nil, []LeaderboardEntry{practice}, false)
		if board.Practice != nil {
			t.Errorf("expected nil practice board, got %+v", board.Practice)
		}
	})

	t.Run("ranking is idempotent", func(t *testing.T) {
		auth := []LeaderboardEntry{
			entry("alice", 24.5, base.Add(time.Hour)),
			entry("bob", 31, base),
			entry("carol", 24.5, base),
		}
		first := RankLeaderboard("t1", auth, nil, true)
		second := RankLeaderboard("t1", auth, nil, true)
		if !reflect.DeepEqual(first, second) {
			t.Error("expected identical results on re-run")
		}
	})

	t.Run("missing caller yields zero rank", func(t *testing.T) {
		board := RankLeaderboard("t1", []LeaderboardEntry{entry("bob", 31, base)}, nil, false)
		if board.CurrentUserRank != 0 {
			t.Errorf("expected 0 (absent), got %d", board.CurrentUserRank)
		}
	})

	t.Run("verified stat counts badge holders", func(t *testing.T) {
		verified := entry("alice", 30, base)
		verified.Verified = true
		board := RankLeaderboard("t1", []LeaderboardEntry{verified, entry("bob", 31, base)}, nil, false)
		if board.Stats.Verified != 1 {
			t.Errorf("expected 1 verified, got %d", board.Stats.Verified)
		}
	})
}
