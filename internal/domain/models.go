package domain

import (
	"encoding/json"
	"time"
)

// Folder groups a user's concepts.
type Folder struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Question is a single multiple-choice question with exactly four options.
type Question struct {
	QuestionText string   `json:"question"`
	Options      []string `json:"options"`
	Answer       string   `json:"answer"` // one of A..D
}

// QuestionSource records whether a question came from the model or the canned fallback.
type QuestionSource string

const (
	SourceGenerated QuestionSource = "generated"
	SourceFallback  QuestionSource = "fallback"
)

// GeneratedQuestion is the tagged result of a question generation call.
type GeneratedQuestion struct {
	Question Question
	Source   QuestionSource
}

// Extraction is the tagged outcome of an OCR call. Failed is set when the
// service could not be reached or answered with an error; Text is then empty.
type Extraction struct {
	Text   string
	Failed bool
}

// Concept is a named piece of study material with at most one derived question.
type Concept struct {
	ID             string         `json:"id"`
	OwnerID        string         `json:"ownerId"`
	FolderID       string         `json:"folderId"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	ImageURL       string         `json:"imageUrl,omitempty"`
	Question       *Question      `json:"question,omitempty"`
	QuestionSource QuestionSource `json:"questionSource,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// ConceptLink is the stable reference from a quiz item back to the concept view.
func ConceptLink(conceptID string) string {
	return "/concept/" + conceptID
}

// QuizItem is one question of an assembled quiz.
type QuizItem struct {
	ConceptID   string   `json:"conceptId"`
	ConceptName string   `json:"name"`
	Question    Question `json:"question"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Link        string   `json:"link"`
}

// Quiz is the ordered, ephemeral list of items built for a folder.
type Quiz struct {
	FolderID string     `json:"folderId"`
	Items    []QuizItem `json:"quiz"`
}

// Concealed returns a copy of the quiz with the correct letters removed.
func (q Quiz) Concealed() Quiz {
	items := make([]QuizItem, len(q.Items))
	for i, item := range q.Items {
		item.Question.Answer = ""
		item.Question.Options = append([]string(nil), item.Question.Options...)
		items[i] = item
	}
	return Quiz{FolderID: q.FolderID, Items: items}
}

// QuizResult is the immutable record of one completed attempt.
type QuizResult struct {
	ID                 string            `json:"id"`
	OwnerID            string            `json:"ownerId"`
	FolderID           string            `json:"folderId"`
	Answers            map[string]string `json:"answers"`
	TimeElapsedSeconds int               `json:"timeElapsed"`
	TotalQuestions     int               `json:"totalQuestions"`
	CorrectAnswers     int               `json:"correctAnswers"`
	Percentage         int               `json:"percentage"`
	CompletedAt        time.Time         `json:"completedAt"`
}

// Grade is derived from Percentage and never stored.
func (r QuizResult) Grade() string {
	return GradeFor(r.Percentage)
}

// MarshalJSON adds the derived grade to the wire form.
func (r QuizResult) MarshalJSON() ([]byte, error) {
	type plain QuizResult
	return json.Marshal(struct {
		plain
		Grade string `json:"grade"`
	}{plain(r), r.Grade()})
}

// QuestionReview is the per-question outcome of a scored attempt.
type QuestionReview struct {
	ConceptID     string `json:"conceptId"`
	ConceptName   string `json:"name"`
	Chosen        string `json:"chosen,omitempty"`
	CorrectAnswer string `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
	Link          string `json:"link"`
}

// ScoreSummary is the computed view of an attempt; only the QuizResult part is persisted.
type ScoreSummary struct {
	TotalQuestions      int              `json:"totalQuestions"`
	AnsweredQuestions   int              `json:"answeredQuestions"`
	CorrectAnswers      int              `json:"correctAnswers"`
	IncorrectAnswers    int              `json:"incorrectAnswers"`
	UnansweredQuestions int              `json:"unansweredQuestions"`
	Percentage          int              `json:"percentage"`
	TimeElapsedSeconds  int              `json:"timeElapsed"`
	Grade               string           `json:"grade"`
	Message             string           `json:"message"`
	Review              []QuestionReview `json:"review"`
}

// Analytics aggregates a folder's historical attempts.
type Analytics struct {
	TotalAttempts int          `json:"totalAttempts"`
	AverageScore  int          `json:"averageScore"`
	BestScore     int          `json:"bestScore"`
	AverageTime   int          `json:"averageTime"`
	Improvement   int          `json:"improvement"`
	RecentResults []QuizResult `json:"recentResults"`
}

// Attempt is an in-progress live quiz held server side.
type Attempt struct {
	OwnerID   string
	FolderID  string
	Answers   map[string]string
	StartedAt time.Time
}
