package domain

import (
	"fmt"
	"math"
	"strings"
)

// AnswerLetters are the option letters in display order.
var AnswerLetters = [4]string{"A", "B", "C", "D"}

// GradeFor buckets a percentage; boundaries are inclusive.
func GradeFor(percentage int) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B"
	case percentage >= 60:
		return "C"
	case percentage >= 50:
		return "D"
	default:
		return "F"
	}
}

// PerformanceMessage is the encouragement shown next to a result.
func PerformanceMessage(percentage int) string {
	switch {
	case percentage >= 90:
		return "Outstanding! You've mastered this topic!"
	case percentage >= 80:
		return "Excellent work! You're doing great!"
	case percentage >= 70:
		return "Good job! Keep up the momentum!"
	case percentage >= 60:
		return "Not bad! A bit more practice will help!"
	default:
		return "Keep practicing! Review the concepts and try again!"
	}
}

// Round rounds half toward positive infinity, matching the scores clients already display.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// IsAnswerLetter reports whether s is one of A..D.
func IsAnswerLetter(s string) bool {
	for _, l := range AnswerLetters {
		if s == l {
			return true
		}
	}
	return false
}

// Validate checks the four-option invariant of a question.
func (q Question) Validate() error {
	if strings.TrimSpace(q.QuestionText) == "" {
		return fmt.Errorf("%w: question text is empty", ErrValidation)
	}
	if len(q.Options) != len(AnswerLetters) {
		return fmt.Errorf("%w: expected %d options, got %d", ErrValidation, len(AnswerLetters), len(q.Options))
	}
	if !IsAnswerLetter(q.Answer) {
		return fmt.Errorf("%w: answer %q must be one of A, B, C, D", ErrValidation, q.Answer)
	}
	return nil
}

// FallbackQuestion is the canned question used whenever generation fails.
func FallbackQuestion(conceptName string) Question {
	return Question{
		QuestionText: fmt.Sprintf("What is the main concept of \"%s\"?", conceptName),
		Options: []string{
			"Option A - Please review the concept",
			"Option B - Question generation failed",
			"Option C - Try uploading clearer content",
			"Option D - Contact support if this persists",
		},
		Answer: "A",
	}
}

// HasContent reports whether the concept satisfies the description-or-image rule.
func (c Concept) HasContent() bool {
	return strings.TrimSpace(c.Description) != "" || c.ImageURL != ""
}
