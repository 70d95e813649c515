package app

import (
	"sort"

	"mindvault/internal/domain"
)

const (
	recentResultsShown = 5
	improvementWindow  = 3
)

// ScoreAttempt grades answers against the quiz. Percentage is computed against
// every question in the quiz, so unanswered items count against the score.
func ScoreAttempt(quiz domain.Quiz, answers map[string]string, elapsedSeconds int) domain.ScoreSummary {
	summary := domain.ScoreSummary{
		TotalQuestions:     len(quiz.Items),
		TimeElapsedSeconds: elapsedSeconds,
		Review:             make([]domain.QuestionReview, 0, len(quiz.Items)),
	}

	for _, item := range quiz.Items {
		chosen := answers[item.ConceptID]
		review := domain.QuestionReview{
			ConceptID:     item.ConceptID,
			ConceptName:   item.ConceptName,
			Chosen:        chosen,
			CorrectAnswer: item.Question.Answer,
			Link:          item.Link,
		}
		if chosen != "" {
			summary.AnsweredQuestions++
			if chosen == item.Question.Answer {
				summary.CorrectAnswers++
				review.Correct = true
			}
		}
		summary.Review = append(summary.Review, review)
	}

	summary.IncorrectAnswers = summary.AnsweredQuestions - summary.CorrectAnswers
	summary.UnansweredQuestions = summary.TotalQuestions - summary.AnsweredQuestions
	summary.Percentage = Percentage(summary.CorrectAnswers, summary.TotalQuestions)
	summary.Grade = domain.GradeFor(summary.Percentage)
	summary.Message = domain.PerformanceMessage(summary.Percentage)
	return summary
}

// Percentage is round(correct/total*100), clamped to [0,100]. A zero total scores 0.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	p := domain.Round(float64(correct) / float64(total) * 100)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Analyze aggregates a folder's attempts. The improvement trend compares the
// three most recent attempts with the three oldest and needs at least six.
func Analyze(results []domain.QuizResult) domain.Analytics {
	if len(results) == 0 {
		return domain.Analytics{RecentResults: []domain.QuizResult{}}
	}

	ordered := append([]domain.QuizResult(nil), results...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CompletedAt.After(ordered[j].CompletedAt)
	})

	var sumScore, sumTime float64
	best := ordered[0].Percentage
	for _, r := range ordered {
		sumScore += float64(r.Percentage)
		sumTime += float64(r.TimeElapsedSeconds)
		if r.Percentage > best {
			best = r.Percentage
		}
	}
	n := float64(len(ordered))

	improvement := 0
	if len(ordered) >= 2*improvementWindow {
		recent := meanPercentage(ordered[:improvementWindow])
		initial := meanPercentage(ordered[len(ordered)-improvementWindow:])
		improvement = domain.Round(recent - initial)
	}

	shown := len(ordered)
	if shown > recentResultsShown {
		shown = recentResultsShown
	}

	return domain.Analytics{
		TotalAttempts: len(ordered),
		AverageScore:  domain.Round(sumScore / n),
		BestScore:     best,
		AverageTime:   domain.Round(sumTime / n),
		Improvement:   improvement,
		RecentResults: ordered[:shown],
	}
}

func meanPercentage(results []domain.QuizResult) float64 {
	var sum float64
	for _, r := range results {
		sum += float64(r.Percentage)
	}
	return sum / float64(len(results))
}
