package engine

import (
	"sort"
	"time"

	"quizlive/internal/domain"
)

// standings recomputes the full leaderboard from accumulated participant
// state. It is a fresh derivation every time: score desc, then correct count
// desc, then average answer time asc, then participant id asc, which makes
// the order total for distinct ids.
func standings(sessionID string, participants []*participantState, now time.Time) domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, domain.LeaderboardEntry{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Score:         p.score,
			Correct:       p.correct,
			Answered:      p.answered,
			AvgAnswerMs:   avgAnswerMs(p),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Correct != b.Correct {
			return a.Correct > b.Correct
		}
		ai, bi := avgOrMax(a), avgOrMax(b)
		if ai != bi {
			return ai < bi
		}
		return a.ParticipantID < b.ParticipantID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	return domain.Leaderboard{
		SessionID: sessionID,
		Entries:   entries,
		UpdatedAt: now,
	}
}

// finalResults derives the end-of-session summary from the final standings.
// Accuracy is correct answers over all questions played, so idle
// participants read as 0%, not as undefined.
func finalResults(lb domain.Leaderboard, questions int) domain.SessionResults {
	players := make([]domain.PlayerResult, 0, len(lb.Entries))
	totalScore := 0
	for _, e := range lb.Entries {
		accuracy := 0.0
		if questions > 0 {
			accuracy = float64(e.Correct) / float64(questions) * 100
		}
		players = append(players, domain.PlayerResult{
			ParticipantID: e.ParticipantID,
			DisplayName:   e.DisplayName,
			Rank:          e.Rank,
			Score:         e.Score,
			Correct:       e.Correct,
			AccuracyPct:   accuracy,
			AvgAnswerMs:   e.AvgAnswerMs,
		})
		totalScore += e.Score
	}

	avgScore := 0.0
	if len(players) > 0 {
		avgScore = float64(totalScore) / float64(len(players))
	}
	return domain.SessionResults{
		SessionID:    lb.SessionID,
		Questions:    questions,
		AverageScore: avgScore,
		Players:      players,
	}
}

func avgAnswerMs(p *participantState) int64 {
	if p.answered == 0 {
		return 0
	}
	return (p.totalElapsed / time.Duration(p.answered)).Milliseconds()
}

// avgOrMax ranks participants with no answers behind any participant who
// answered, instead of letting their zero average look instant.
func avgOrMax(e domain.LeaderboardEntry) int64 {
	if e.Answered == 0 {
		return int64(^uint64(0) >> 1)
	}
	return e.AvgAnswerMs
}
