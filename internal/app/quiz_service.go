package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"mindvault/internal/domain"
	"mindvault/internal/metrics"
)

// DefaultHistoryLimit caps folder history responses.
const DefaultHistoryLimit = 20

// Assembler builds quizzes straight from the concept store.
type Assembler struct {
	concepts ConceptRepository
}

func NewAssembler(concepts ConceptRepository) *Assembler {
	return &Assembler{concepts: concepts}
}

// LoadQuiz returns one item per question-bearing concept, in insertion order.
func (a *Assembler) LoadQuiz(ctx context.Context, ownerID, folderID string) (domain.Quiz, error) {
	concepts, err := a.concepts.ListConcepts(ctx, ownerID, folderID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("list concepts: %w", err)
	}
	quiz := domain.Quiz{FolderID: folderID}
	for _, c := range concepts {
		if c.Question == nil {
			continue
		}
		quiz.Items = append(quiz.Items, domain.QuizItem{
			ConceptID:   c.ID,
			ConceptName: c.Name,
			Question:    *c.Question,
			ImageURL:    c.ImageURL,
			Link:        domain.ConceptLink(c.ID),
		})
	}
	if len(quiz.Items) == 0 {
		return domain.Quiz{}, domain.ErrNoQuizAvailable
	}
	return quiz, nil
}

// Submission is a completed attempt as sent by a client. The claimed totals
// are informational; the server recomputes them from the stored questions.
type Submission struct {
	Answers            map[string]string
	TimeElapsedSeconds int
	ClaimedTotal       *int
	ClaimedCorrect     *int
	ClaimedPercentage  *int
}

// QuizService contains the quiz, scoring and history use cases.
type QuizService struct {
	quizzes      QuizRepository
	results      ResultRepository
	attempts     AttemptRepository
	events       EventPublisher
	historyLimit int
	now          func() time.Time
	newID        func() string
}

type QuizOption func(*QuizService)

// WithQuizClock is used by tests for deterministic timestamps.
func WithQuizClock(now func() time.Time) QuizOption {
	return func(s *QuizService) { s.now = now }
}

func WithHistoryLimit(limit int) QuizOption {
	return func(s *QuizService) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

func WithQuizEvents(events EventPublisher) QuizOption {
	return func(s *QuizService) {
		if events != nil {
			s.events = events
		}
	}
}

func NewQuizService(quizzes QuizRepository, results ResultRepository, attempts AttemptRepository, opts ...QuizOption) *QuizService {
	s := &QuizService{
		quizzes:      quizzes,
		results:      results,
		attempts:     attempts,
		events:       NopPublisher{},
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetQuiz returns the folder's quiz or domain.ErrNoQuizAvailable.
func (s *QuizService) GetQuiz(ctx context.Context, ownerID, folderID string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, ownerID, folderID)
}

// Submit scores a completed attempt and persists it.
func (s *QuizService) Submit(ctx context.Context, ownerID, folderID string, sub Submission) (domain.QuizResult, domain.ScoreSummary, error) {
	if sub.TimeElapsedSeconds < 0 {
		return domain.QuizResult{}, domain.ScoreSummary{}, fmt.Errorf("%w: timeElapsed must not be negative", domain.ErrValidation)
	}
	answers, err := normalizeAnswers(sub.Answers)
	if err != nil {
		return domain.QuizResult{}, domain.ScoreSummary{}, err
	}

	quiz, err := s.quizzes.GetQuiz(ctx, ownerID, folderID)
	if err != nil {
		return domain.QuizResult{}, domain.ScoreSummary{}, err
	}

	summary := ScoreAttempt(quiz, answers, sub.TimeElapsedSeconds)
	if claimsDiffer(sub, summary) {
		log.Printf("quiz %s: client totals differ from server scoring (server %d/%d %d%%)",
			folderID, summary.CorrectAnswers, summary.TotalQuestions, summary.Percentage)
	}

	result := domain.QuizResult{
		ID:                 s.newID(),
		OwnerID:            ownerID,
		FolderID:           folderID,
		Answers:            retainQuizAnswers(quiz, answers),
		TimeElapsedSeconds: sub.TimeElapsedSeconds,
		TotalQuestions:     summary.TotalQuestions,
		CorrectAnswers:     summary.CorrectAnswers,
		Percentage:         summary.Percentage,
		CompletedAt:        s.now().UTC(),
	}
	if err := s.results.CreateResult(ctx, result); err != nil {
		return domain.QuizResult{}, domain.ScoreSummary{}, fmt.Errorf("save quiz result: %w", err)
	}
	metrics.QuizResultRecorded(result.Grade())
	s.publish(ctx, "quiz.result.recorded", map[string]any{
		"resultId":   result.ID,
		"folderId":   folderID,
		"ownerId":    ownerID,
		"percentage": result.Percentage,
	})
	return result, summary, nil
}

// History returns the most recent results, newest first. An empty folderID
// covers every folder of the owner.
func (s *QuizService) History(ctx context.Context, ownerID, folderID string) ([]domain.QuizResult, error) {
	results, err := s.results.ListResults(ctx, ownerID, folderID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list quiz results: %w", err)
	}
	if results == nil {
		results = []domain.QuizResult{}
	}
	return results, nil
}

// Analytics aggregates every recorded attempt of the folder.
func (s *QuizService) Analytics(ctx context.Context, ownerID, folderID string) (domain.Analytics, error) {
	results, err := s.results.ListResults(ctx, ownerID, folderID, 0)
	if err != nil {
		return domain.Analytics{}, fmt.Errorf("list quiz results: %w", err)
	}
	return Analyze(results), nil
}

// StartAttempt opens (or resumes) a live attempt and returns the quiz without answers.
func (s *QuizService) StartAttempt(ctx context.Context, ownerID, folderID string) (domain.Quiz, domain.Attempt, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, ownerID, folderID)
	if err != nil {
		return domain.Quiz{}, domain.Attempt{}, err
	}
	attempt, err := s.attempts.Start(ctx, ownerID, folderID, s.now().UTC())
	if err != nil {
		return domain.Quiz{}, domain.Attempt{}, fmt.Errorf("start attempt: %w", err)
	}
	return quiz.Concealed(), attempt, nil
}

// RecordAnswer stores one live answer and reports progress.
func (s *QuizService) RecordAnswer(ctx context.Context, ownerID, folderID, conceptID, letter string) (answered, total int, err error) {
	if !domain.IsAnswerLetter(letter) {
		return 0, 0, fmt.Errorf("%w: answer %q must be one of A, B, C, D", domain.ErrValidation, letter)
	}
	quiz, err := s.quizzes.GetQuiz(ctx, ownerID, folderID)
	if err != nil {
		return 0, 0, err
	}
	if !quizHasConcept(quiz, conceptID) {
		return 0, 0, fmt.Errorf("%w: concept %s is not part of this quiz", domain.ErrValidation, conceptID)
	}
	if err := s.attempts.RecordAnswer(ctx, ownerID, folderID, conceptID, letter); err != nil {
		return 0, 0, err
	}
	attempt, err := s.attempts.Get(ctx, ownerID, folderID)
	if err != nil {
		return 0, 0, err
	}
	return len(retainQuizAnswers(quiz, attempt.Answers)), len(quiz.Items), nil
}

// FinishAttempt scores the live attempt. A nil elapsed uses the server clock
// since the attempt started.
func (s *QuizService) FinishAttempt(ctx context.Context, ownerID, folderID string, elapsed *int) (domain.QuizResult, domain.ScoreSummary, error) {
	attempt, err := s.attempts.Get(ctx, ownerID, folderID)
	if err != nil {
		return domain.QuizResult{}, domain.ScoreSummary{}, err
	}
	seconds := int(s.now().Sub(attempt.StartedAt) / time.Second)
	if elapsed != nil {
		seconds = *elapsed
	}
	if seconds < 0 {
		seconds = 0
	}
	result, summary, err := s.Submit(ctx, ownerID, folderID, Submission{
		Answers:            attempt.Answers,
		TimeElapsedSeconds: seconds,
	})
	if err != nil {
		return domain.QuizResult{}, domain.ScoreSummary{}, err
	}
	if err := s.attempts.Delete(ctx, ownerID, folderID); err != nil {
		log.Printf("clear attempt for folder %s: %v", folderID, err)
	}
	return result, summary, nil
}

func (s *QuizService) publish(ctx context.Context, eventType string, payload any) {
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		log.Printf("publish %s: %v", eventType, err)
	}
}

// normalizeAnswers drops empty letters (unanswered) and rejects anything outside A..D.
func normalizeAnswers(raw map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for conceptID, letter := range raw {
		if letter == "" {
			continue
		}
		if !domain.IsAnswerLetter(letter) {
			return nil, fmt.Errorf("%w: answer %q for concept %s must be one of A, B, C, D", domain.ErrValidation, letter, conceptID)
		}
		out[conceptID] = letter
	}
	return out, nil
}

func retainQuizAnswers(quiz domain.Quiz, answers map[string]string) map[string]string {
	out := make(map[string]string, len(quiz.Items))
	for _, item := range quiz.Items {
		if letter, ok := answers[item.ConceptID]; ok && letter != "" {
			out[item.ConceptID] = letter
		}
	}
	return out
}

func quizHasConcept(quiz domain.Quiz, conceptID string) bool {
	for _, item := range quiz.Items {
		if item.ConceptID == conceptID {
			return true
		}
	}
	return false
}

func claimsDiffer(sub Submission, summary domain.ScoreSummary) bool {
	differs := func(claim *int, actual int) bool { return claim != nil && *claim != actual }
	return differs(sub.ClaimedTotal, summary.TotalQuestions) ||
		differs(sub.ClaimedCorrect, summary.CorrectAnswers) ||
		differs(sub.ClaimedPercentage, summary.Percentage)
}
