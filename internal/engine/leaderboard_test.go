package engine

import (
	"testing"
	"time"

	"quizlive/internal/domain"
)

func TestStandingsOrderAndTieBreaks(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	participants := []*participantState{
		{Participant: domain.Participant{ID: "slow", DisplayName: "Slow"}, score: 100, correct: 1, answered: 1, totalElapsed: 20 * time.Second},
		{Participant: domain.Participant{ID: "fast", DisplayName: "Fast"}, score: 100, correct: 1, answered: 1, totalElapsed: 5 * time.Second},
		{Participant: domain.Participant{ID: "top", DisplayName: "Top"}, score: 175, correct: 2, answered: 2, totalElapsed: 12 * time.Second},
		{Participant: domain.Participant{ID: "idle", DisplayName: "Idle"}},
	}

	lb := standings("s1", participants, now)

	gotOrder := make([]string, 0, len(lb.Entries))
	for _, e := range lb.Entries {
		gotOrder = append(gotOrder, e.ParticipantID)
	}
	wantOrder := []string{"top", "fast", "slow", "idle"}
	for i, want := range wantOrder {
		if gotOrder[i] != want {
			t.Fatalf("rank %d: got %s, want %s (full order %v)", i+1, gotOrder[i], want, gotOrder)
		}
	}
	for i, e := range lb.Entries {
		if e.Rank != i+1 {
			t.Fatalf("entry %s has rank %d at position %d", e.ParticipantID, e.Rank, i)
		}
	}
	if lb.Entries[1].AvgAnswerMs != 5000 {
		t.Fatalf("expected 5000ms average for fast, got %d", lb.Entries[1].AvgAnswerMs)
	}
}

func TestStandingsTotalOrderOnIdenticalStats(t *testing.T) {
	now := time.Now()
	participants := []*participantState{
		{Participant: domain.Participant{ID: "b"}, score: 50, correct: 1, answered: 1, totalElapsed: 3 * time.Second},
		{Participant: domain.Participant{ID: "a"}, score: 50, correct: 1, answered: 1, totalElapsed: 3 * time.Second},
		{Participant: domain.Participant{ID: "c"}, score: 50, correct: 1, answered: 1, totalElapsed: 3 * time.Second},
	}

	lb := standings("s1", participants, now)
	if lb.Entries[0].ParticipantID != "a" || lb.Entries[1].ParticipantID != "b" || lb.Entries[2].ParticipantID != "c" {
		t.Fatalf("identical stats must fall back to id order, got %+v", lb.Entries)
	}
}

func TestStandingsNonSubmittersIncludedAndRankedLast(t *testing.T) {
	now := time.Now()
	participants := []*participantState{
		{Participant: domain.Participant{ID: "quiet"}},
		{Participant: domain.Participant{ID: "zero-correct"}, answered: 1, totalElapsed: time.Second},
	}

	lb := standings("s1", participants, now)
	if len(lb.Entries) != 2 {
		t.Fatalf("expected both participants on the board, got %d", len(lb.Entries))
	}
	// Equal score and correct count: the participant who at least answered
	// has a real average and ranks ahead of one who never did.
	if lb.Entries[0].ParticipantID != "zero-correct" {
		t.Fatalf("expected answering participant first, got %+v", lb.Entries)
	}
}

func TestStandingsIsPureRecomputation(t *testing.T) {
	now := time.Now()
	participants := []*participantState{
		{Participant: domain.Participant{ID: "u1"}, score: 10, correct: 1, answered: 1, totalElapsed: time.Second},
		{Participant: domain.Participant{ID: "u2"}, score: 20, correct: 1, answered: 1, totalElapsed: time.Second},
	}

	first := standings("s1", participants, now)
	second := standings("s1", participants, now)
	if len(first.Entries) != len(second.Entries) {
		t.Fatalf("repeated recomputation changed entry count")
	}
	for i := range first.Entries {
		if first.Entries[i] != second.Entries[i] {
			t.Fatalf("repeated recomputation differs at %d: %+v vs %+v", i, first.Entries[i], second.Entries[i])
		}
	}
	if participants[0].score != 10 || participants[1].score != 20 {
		t.Fatalf("standings mutated participant state")
	}
}

func TestFinalResultsSummary(t *testing.T) {
	now := time.Now()
	participants := []*participantState{
		{Participant: domain.Participant{ID: "a", DisplayName: "Ada"}, score: 150, correct: 2, answered: 2, totalElapsed: 10 * time.Second},
		{Participant: domain.Participant{ID: "b", DisplayName: "Bo"}, score: 50, correct: 1, answered: 2, totalElapsed: 30 * time.Second},
		{Participant: domain.Participant{ID: "c", DisplayName: "Cy"}},
	}

	results := finalResults(standings("s1", participants, now), 2)

	if results.Questions != 2 || len(results.Players) != 3 {
		t.Fatalf("unexpected summary shape: %+v", results)
	}
	if want := (150.0 + 50.0) / 3.0; results.AverageScore != want {
		t.Fatalf("expected average score %.2f, got %.2f", want, results.AverageScore)
	}
	if results.Players[0].AccuracyPct != 100 {
		t.Fatalf("expected 100%% accuracy for the winner, got %.1f", results.Players[0].AccuracyPct)
	}
	if results.Players[1].AccuracyPct != 50 {
		t.Fatalf("expected 50%% accuracy, got %.1f", results.Players[1].AccuracyPct)
	}
	if results.Players[2].AccuracyPct != 0 || results.Players[2].Score != 0 {
		t.Fatalf("idle participant should read 0%%/0 points, got %+v", results.Players[2])
	}
	if results.Players[0].Rank != 1 || results.Players[2].Rank != 3 {
		t.Fatalf("ranks should carry over from standings: %+v", results.Players)
	}
}
