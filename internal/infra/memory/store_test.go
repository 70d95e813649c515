package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"mindvault/internal/domain"
)

func TestStoreScopesByOwner(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_ = store.CreateFolder(ctx, domain.Folder{ID: "f1", OwnerID: "alice", Name: "Biology"})
	_ = store.CreateConcept(ctx, domain.Concept{ID: "c1", OwnerID: "alice", FolderID: "f1", Name: "Cell"})
	_ = store.CreateResult(ctx, domain.QuizResult{ID: "r1", OwnerID: "alice", FolderID: "f1", Percentage: 80})

	if _, err := store.GetFolder(ctx, "bob", "f1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for other owner, got %v", err)
	}
	if _, err := store.GetConcept(ctx, "bob", "c1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for other owner, got %v", err)
	}
	if err := store.DeleteConcept(ctx, "bob", "c1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected delete by other owner to fail, got %v", err)
	}
	if err := store.UpdateConcept(ctx, domain.Concept{ID: "c1", OwnerID: "bob", Name: "Hijack"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected update by other owner to fail, got %v", err)
	}
	concepts, _ := store.ListConcepts(ctx, "bob", "f1")
	if len(concepts) != 0 {
		t.Fatalf("expected no concepts for other owner, got %d", len(concepts))
	}
	results, _ := store.ListResults(ctx, "bob", "f1", 0)
	if len(results) != 0 {
		t.Fatalf("expected no results for other owner, got %d", len(results))
	}
}

func TestStoreListsResultsNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		_ = store.CreateResult(ctx, domain.QuizResult{
			ID:          "r" + string(rune('a'+i)),
			OwnerID:     "alice",
			FolderID:    "f1",
			Percentage:  i,
			CompletedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	_ = store.CreateResult(ctx, domain.QuizResult{ID: "other", OwnerID: "alice", FolderID: "f2", CompletedAt: base})

	results, err := store.ListResults(ctx, "alice", "f1", 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 20 {
		t.Fatalf("expected 20 results, got %d", len(results))
	}
	if results[0].Percentage != 24 || results[19].Percentage != 5 {
		t.Fatalf("expected newest first, got first=%d last=%d", results[0].Percentage, results[19].Percentage)
	}

	all, _ := store.ListResults(ctx, "alice", "", 0)
	if len(all) != 26 {
		t.Fatalf("expected results across folders, got %d", len(all))
	}
}

func TestStoreConceptsKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for _, id := range []string{"c3", "c1", "c2"} {
		_ = store.CreateConcept(ctx, domain.Concept{ID: id, OwnerID: "alice", FolderID: "f1"})
	}
	concepts, _ := store.ListConcepts(ctx, "alice", "f1")
	if len(concepts) != 3 || concepts[0].ID != "c3" || concepts[2].ID != "c2" {
		t.Fatalf("expected insertion order, got %+v", concepts)
	}

	n, _ := store.DeleteConceptsInFolder(ctx, "alice", "f1")
	if n != 3 {
		t.Fatalf("expected 3 deleted, got %d", n)
	}
}
