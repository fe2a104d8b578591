package app

import (
	"sort"

	"quiz-battle-service/internal/domain"
)

// rankParticipants orders by descending score. The input slice keeps
// join order, so the stable sort breaks ties by who joined first —
// deterministic across repeated calls, never by name.
func rankParticipants(participants []*participant) []domain.RankEntry {
	ordered := make([]*participant, len(participants))
	copy(ordered, participants)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].score > ordered[j].score
	})

	entries := make([]domain.RankEntry, 0, len(ordered))
	for i, p := range ordered {
		entries = append(entries, domain.RankEntry{
			Rank:           i + 1,
			UserID:         p.userID,
			DisplayName:    p.displayName,
			Score:          p.score,
			CorrectAnswers: p.correctAnswers,
		})
	}
	return entries
}
