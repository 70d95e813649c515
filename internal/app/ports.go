package app

import (
	"context"
	"io"
	"time"

	"mindvault/internal/domain"
)

// FolderRepository persists folders. Every lookup is scoped to the owner.
type FolderRepository interface {
	CreateFolder(ctx context.Context, folder domain.Folder) error
	ListFolders(ctx context.Context, ownerID string) ([]domain.Folder, error)
	GetFolder(ctx context.Context, ownerID, folderID string) (domain.Folder, error)
	UpdateFolder(ctx context.Context, folder domain.Folder) error
	DeleteFolder(ctx context.Context, ownerID, folderID string) error
}

// ConceptRepository persists concepts. ListConcepts returns insertion order.
type ConceptRepository interface {
	CreateConcept(ctx context.Context, concept domain.Concept) error
	ListConcepts(ctx context.Context, ownerID, folderID string) ([]domain.Concept, error)
	GetConcept(ctx context.Context, ownerID, conceptID string) (domain.Concept, error)
	UpdateConcept(ctx context.Context, concept domain.Concept) error
	DeleteConcept(ctx context.Context, ownerID, conceptID string) error
	DeleteConceptsInFolder(ctx context.Context, ownerID, folderID string) (int, error)
}

// ResultRepository persists completed attempts. ListResults returns newest first;
// an empty folderID matches every folder and limit <= 0 means no limit.
type ResultRepository interface {
	CreateResult(ctx context.Context, result domain.QuizResult) error
	ListResults(ctx context.Context, ownerID, folderID string, limit int) ([]domain.QuizResult, error)
	DeleteResultsInFolder(ctx context.Context, ownerID, folderID string) (int, error)
}

// QuizLoader builds a quiz from the backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, ownerID, folderID string) (domain.Quiz, error)
}

// QuizRepository serves assembled quizzes (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, ownerID, folderID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, ownerID, folderID string)
}

// AttemptRepository holds live quiz attempts between websocket messages.
type AttemptRepository interface {
	// Start returns the existing attempt for the folder or creates one started at now.
	Start(ctx context.Context, ownerID, folderID string, now time.Time) (domain.Attempt, error)
	Get(ctx context.Context, ownerID, folderID string) (domain.Attempt, error)
	RecordAnswer(ctx context.Context, ownerID, folderID, conceptID, letter string) error
	Delete(ctx context.Context, ownerID, folderID string) error
}

// QuestionGenerator never fails; degraded output is tagged SourceFallback.
type QuestionGenerator interface {
	Generate(ctx context.Context, conceptName, sourceText string) domain.GeneratedQuestion
}

// TextExtractor runs OCR on an image URL and never fails.
type TextExtractor interface {
	ExtractText(ctx context.Context, imageURL string) domain.Extraction
}

// ImageStore writes uploaded images and returns a durable URL. KeyOf maps a
// URL this store handed out back to its key and rejects every other URL.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
	KeyOf(url string) (string, bool)
}

// EventPublisher emits domain events; publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
