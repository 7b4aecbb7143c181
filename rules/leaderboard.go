package rules

import (
	"sort"
	"time"
)

// Entry sources. Server entries are authoritative accepted catches; local
// entries are device-pending catches not yet synced. The two never describe
// the same catch, so merging needs no id-level de-duplication.
const (
	SourceServer = "server"
	SourceLocal  = "local"
)

// LeaderboardEntry is a derived ranking row. It is recomputed on every query
// and never persisted.
type LeaderboardEntry struct {
	Source        string    `json:"source"`
	TournamentID  string    `json:"tournament_id"`
	Angler        string    `json:"angler"`
	AnglerID      string    `json:"angler_id,omitempty"`
	Species       string    `json:"species"`
	LengthIn      float64   `json:"length_in"`
	SubmittedAt   time.Time `json:"submitted_at"`
	Status        string    `json:"status"`
	IsCurrentUser bool      `json:"is_current_user"`
	PrizeEligible bool      `json:"prize_eligible"`
	Verified      bool      `json:"verified"`
	Rank          int       `json:"rank"`
}

// LeaderboardStats summarizes a ranking for display headers.
type LeaderboardStats struct {
	Total         int `json:"total"`
	PrizeEligible int `json:"prize_eligible"`
	Practice      int `json:"practice"`
	Verified      int `json:"verified"`
}

// Leaderboard is the full ranking result. CurrentUserRank is 0 when the
// caller has no entry in the main ranking; the HTTP layer maps that to null.
type Leaderboard struct {
	Entries         []LeaderboardEntry `json:"entries"`
	CurrentUserRank int                `json:"current_user_rank"`
	Practice        []LeaderboardEntry `json:"practice,omitempty"`
	Stats           LeaderboardStats   `json:"stats"`
}

// RankLeaderboard merges authoritative accepted catches with the caller's
// locally pending catches for one tournament and ranks them: length
// descending, ties broken by earlier submission. Ranks are dense and
// 1-based. Practice (non-prize-eligible) local entries are ranked separately
// when requested and never interleaved into the main board.
//
// The function is deterministic and idempotent: re-running it on the same
// inputs yields identical ranks.
func RankLeaderboard(tournamentID string, authoritative, localPending []LeaderboardEntry, includePractice bool) Leaderboard {
	var prizeLocal, practice []LeaderboardEntry
	for _, e := range localPending {
		if e.TournamentID != tournamentID {
			continue
		}
		if e.PrizeEligible {
			prizeLocal = append(prizeLocal, e)
		} else {
			practice = append(practice, e)
		}
	}

	main := make([]LeaderboardEntry, 0, len(authoritative)+len(prizeLocal))
	main = append(main, authoritative...)
	main = append(main, prizeLocal...)
	sortEntries(main)
	assignRanks(main)

	currentUserRank := 0
	verified := 0
	for _, e := range main {
		if e.Verified {
			verified++
		}
		if currentUserRank == 0 && e.IsCurrentUser {
			currentUserRank = e.Rank
		}
	}

	board := Leaderboard{
		Entries:         main,
		CurrentUserRank: currentUserRank,
		Stats: LeaderboardStats{
			Total:         len(main),
			PrizeEligible: len(prizeLocal),
			Practice:      len(practice),
			Verified:      verified,
		},
	}

	if includePractice {
		ranked := make([]LeaderboardEntry, len(practice))
		copy(ranked, practice)
		sortEntries(ranked)
		assignRanks(ranked)
		board.Practice = ranked
	}

	return board
}

func sortEntries(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].LengthIn != entries[j].LengthIn {
			return entries[i].LengthIn > entries[j].LengthIn
		}
		return entries[i].SubmittedAt.Before(entries[j].SubmittedAt)
	})
}

func assignRanks(entries []LeaderboardEntry) {
	for i := range entries {
		entries[i].Rank = i + 1
	}
}
