package app_test

import (
	"testing"
	"time"

	"mindvault/internal/app"
	"mindvault/internal/domain"
)

func TestPercentage(t *testing.T) {
	cases := []struct {
		correct, total, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13}, // 12.5 rounds up
		{3, 3, 100},
	}
	for _, tc := range cases {
		if got := app.Percentage(tc.correct, tc.total); got != tc.want {
			t.Fatalf("Percentage(%d, %d) = %d, want %d", tc.correct, tc.total, got, tc.want)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	cases := map[float64]int{2.5: 3, 2.4: 2, -0.5: 0, -1.5: -1, -2.6: -3}
	for in, want := range cases {
		if got := domain.Round(in); got != want {
			t.Fatalf("Round(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestGradeBoundaries(t *testing.T) {
	cases := map[int]string{100: "A+", 90: "A+", 89: "A", 80: "A", 79: "B", 70: "B", 69: "C", 60: "C", 59: "D", 50: "D", 49: "F", 0: "F"}
	for pct, want := range cases {
		if got := domain.GradeFor(pct); got != want {
			t.Fatalf("GradeFor(%d) = %s, want %s", pct, got, want)
		}
	}
}

func TestScoreAttemptCountsUnanswered(t *testing.T) {
	quiz := domain.Quiz{FolderID: "f1", Items: []domain.QuizItem{
		item("c1", "A"), item("c2", "B"), item("c3", "C"),
	}}
	summary := app.ScoreAttempt(quiz, map[string]string{"c1": "A", "c2": "D"}, 42)

	if summary.TotalQuestions != 3 || summary.AnsweredQuestions != 2 {
		t.Fatalf("unexpected counts %+v", summary)
	}
	if summary.CorrectAnswers != 1 || summary.IncorrectAnswers != 1 || summary.UnansweredQuestions != 1 {
		t.Fatalf("unexpected breakdown %+v", summary)
	}
	if summary.Percentage != 33 || summary.Grade != "F" {
		t.Fatalf("expected 33%% F, got %d%% %s", summary.Percentage, summary.Grade)
	}
	if summary.TimeElapsedSeconds != 42 {
		t.Fatalf("expected elapsed 42, got %d", summary.TimeElapsedSeconds)
	}
	if len(summary.Review) != 3 || !summary.Review[0].Correct || summary.Review[2].Chosen != "" {
		t.Fatalf("unexpected review %+v", summary.Review)
	}
	if summary.Review[1].Link != "/concept/c2" {
		t.Fatalf("expected concept link, got %q", summary.Review[1].Link)
	}
}

func TestAnalyzeImprovement(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scores := []int{90, 85, 80, 40, 35, 30} // newest first
	results := make([]domain.QuizResult, len(scores))
	for i, pct := range scores {
		results[len(scores)-1-i] = domain.QuizResult{
			ID:                 string(rune('a' + i)),
			Percentage:         pct,
			TimeElapsedSeconds: 60 + i,
			CompletedAt:        base.Add(-time.Duration(i) * time.Hour),
		}
	}

	got := app.Analyze(results)
	if got.TotalAttempts != 6 {
		t.Fatalf("expected 6 attempts, got %d", got.TotalAttempts)
	}
	if got.Improvement != 50 {
		t.Fatalf("expected improvement 50, got %d", got.Improvement)
	}
	if got.BestScore != 90 {
		t.Fatalf("expected best 90, got %d", got.BestScore)
	}
	if got.AverageScore != 60 {
		t.Fatalf("expected average 60, got %d", got.AverageScore)
	}
	if got.AverageTime != 63 { // 62.5 rounds up
		t.Fatalf("expected average time 63, got %d", got.AverageTime)
	}
	if len(got.RecentResults) != 5 || got.RecentResults[0].Percentage != 90 {
		t.Fatalf("expected five newest results, got %+v", got.RecentResults)
	}
}

func TestAnalyzeNeedsSixAttemptsForTrend(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var results []domain.QuizResult
	for i, pct := range []int{100, 90, 20, 10, 0} {
		results = append(results, domain.QuizResult{Percentage: pct, CompletedAt: base.Add(-time.Duration(i) * time.Minute)})
	}
	if got := app.Analyze(results); got.Improvement != 0 {
		t.Fatalf("expected no trend below six attempts, got %d", got.Improvement)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	got := app.Analyze(nil)
	if got.TotalAttempts != 0 || got.RecentResults == nil || len(got.RecentResults) != 0 {
		t.Fatalf("expected zero analytics with empty recent list, got %+v", got)
	}
}

func item(conceptID, answer string) domain.QuizItem {
	return domain.QuizItem{
		ConceptID:   conceptID,
		ConceptName: "Concept " + conceptID,
		Question: domain.Question{
			QuestionText: "Which one?",
			Options:      []string{"one", "two", "three", "four"},
			Answer:       answer,
		},
		Link: domain.ConceptLink(conceptID),
	}
}
