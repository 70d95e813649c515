package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"mindvault/internal/app"
	"mindvault/internal/domain"
	"mindvault/internal/infra/memory"
)

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ any) error {
	p.events = append(p.events, eventType)
	return nil
}

func TestFolderNameValidation(t *testing.T) {
	store := memory.NewStore()
	svc := app.NewFolderService(store, store, store, memory.NewQuizRepository(app.NewAssembler(store), time.Minute), memory.NewAttemptStore())

	if _, err := svc.Create(context.Background(), "u1", "   "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	folder, err := svc.Create(context.Background(), "u1", "  Physics ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if folder.Name != "Physics" {
		t.Fatalf("expected trimmed name, got %q", folder.Name)
	}
	if _, err := svc.Rename(context.Background(), "u2", folder.ID, "Chemistry"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected other owner to get ErrNotFound, got %v", err)
	}
}

func TestDeleteFolderCascades(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	quizzes := memory.NewQuizRepository(app.NewAssembler(store), time.Minute)
	attempts := memory.NewAttemptStore()
	events := &recordingPublisher{}
	folders := app.NewFolderService(store, store, store, quizzes, attempts, app.WithFolderEvents(events))
	quiz := app.NewQuizService(quizzes, store, attempts)

	folder, err := folders.Create(ctx, "u1", "History")
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	keep, err := folders.Create(ctx, "u1", "Keep")
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	q := domain.Question{QuestionText: "When?", Options: []string{"1", "2", "3", "4"}, Answer: "B"}
	for _, c := range []domain.Concept{
		{ID: "c1", OwnerID: "u1", FolderID: folder.ID, Name: "c1", Description: "x", Question: &q},
		{ID: "c2", OwnerID: "u1", FolderID: keep.ID, Name: "c2", Description: "y", Question: &q},
	} {
		if err := store.CreateConcept(ctx, c); err != nil {
			t.Fatalf("create concept: %v", err)
		}
	}
	if _, _, err := quiz.Submit(ctx, "u1", folder.ID, app.Submission{Answers: map[string]string{"c1": "B"}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := quiz.StartAttempt(ctx, "u1", folder.ID); err != nil {
		t.Fatalf("start attempt: %v", err)
	}

	if err := folders.Delete(ctx, "u1", folder.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := folders.Get(ctx, "u1", folder.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected folder gone, got %v", err)
	}
	concepts, _ := store.ListConcepts(ctx, "u1", folder.ID)
	if len(concepts) != 0 {
		t.Fatalf("expected concepts removed, got %d", len(concepts))
	}
	results, _ := store.ListResults(ctx, "u1", folder.ID, 0)
	if len(results) != 0 {
		t.Fatalf("expected results removed, got %d", len(results))
	}
	if _, err := attempts.Get(ctx, "u1", folder.ID); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt removed, got %v", err)
	}
	if _, err := quiz.GetQuiz(ctx, "u1", folder.ID); !errors.Is(err, domain.ErrNoQuizAvailable) {
		t.Fatalf("expected cached quiz dropped, got %v", err)
	}
	remaining, _ := store.ListConcepts(ctx, "u1", keep.ID)
	if len(remaining) != 1 {
		t.Fatalf("expected sibling folder untouched, got %d concepts", len(remaining))
	}
	if len(events.events) != 3 || events.events[2] != "folder.deleted" {
		t.Fatalf("unexpected events %v", events.events)
	}
	if err := folders.Delete(ctx, "u1", folder.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected second delete to be ErrNotFound, got %v", err)
	}
}

// flakyResults fails the first results cleanup.
type flakyResults struct {
	*memory.Store
	failures int
}

func (r *flakyResults) DeleteResultsInFolder(ctx context.Context, ownerID, folderID string) (int, error) {
	if r.failures > 0 {
		r.failures--
		return 0, errors.New("connection reset")
	}
	return r.Store.DeleteResultsInFolder(ctx, ownerID, folderID)
}

func TestDeleteFolderKeepsFolderUntilChildrenAreGone(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	results := &flakyResults{Store: store, failures: 1}
	quizzes := memory.NewQuizRepository(app.NewAssembler(store), time.Minute)
	folders := app.NewFolderService(store, store, results, quizzes, memory.NewAttemptStore())

	folder, err := folders.Create(ctx, "u1", "Geology")
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if err := store.CreateResult(ctx, domain.QuizResult{ID: "r1", OwnerID: "u1", FolderID: folder.ID, Answers: map[string]string{}}); err != nil {
		t.Fatalf("create result: %v", err)
	}

	if err := folders.Delete(ctx, "u1", folder.ID); err == nil {
		t.Fatalf("expected results cleanup failure to surface")
	}
	if _, err := folders.Get(ctx, "u1", folder.ID); err != nil {
		t.Fatalf("folder must survive a failed cascade, got %v", err)
	}

	if err := folders.Delete(ctx, "u1", folder.ID); err != nil {
		t.Fatalf("retry delete: %v", err)
	}
	if _, err := folders.Get(ctx, "u1", folder.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected folder gone after retry, got %v", err)
	}
	if left, _ := store.ListResults(ctx, "u1", folder.ID, 0); len(left) != 0 {
		t.Fatalf("expected results removed, got %d", len(left))
	}
}
