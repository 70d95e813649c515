package memory

import (
	"context"
	"sort"
	"sync"

	"mindvault/internal/domain"
)

// Store keeps folders, concepts and quiz results in process. It implements
// the three repository interfaces of the app package and is meant for tests
// and single-node demos.
type Store struct {
	mu       sync.RWMutex
	seq      int64
	folders  map[string]record[domain.Folder]
	concepts map[string]record[domain.Concept]
	results  map[string]record[domain.QuizResult]
}

// record remembers insertion order for stable listings.
type record[T any] struct {
	seq int64
	val T
}

func NewStore() *Store {
	return &Store{
		folders:  make(map[string]record[domain.Folder]),
		concepts: make(map[string]record[domain.Concept]),
		results:  make(map[string]record[domain.QuizResult]),
	}
}

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

func (s *Store) CreateFolder(_ context.Context, folder domain.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders[folder.ID] = record[domain.Folder]{seq: s.next(), val: folder}
	return nil
}

func (s *Store) ListFolders(_ context.Context, ownerID string) ([]domain.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]record[domain.Folder], 0)
	for _, rec := range s.folders {
		if rec.val.OwnerID == ownerID {
			recs = append(recs, rec)
		}
	}
	return values(recs), nil
}

func (s *Store) GetFolder(_ context.Context, ownerID, folderID string) (domain.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.folders[folderID]
	if !ok || rec.val.OwnerID != ownerID {
		return domain.Folder{}, domain.ErrNotFound
	}
	return rec.val, nil
}

func (s *Store) UpdateFolder(_ context.Context, folder domain.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.folders[folder.ID]
	if !ok || rec.val.OwnerID != folder.OwnerID {
		return domain.ErrNotFound
	}
	rec.val.Name = folder.Name
	rec.val.UpdatedAt = folder.UpdatedAt
	s.folders[folder.ID] = rec
	return nil
}

func (s *Store) DeleteFolder(_ context.Context, ownerID, folderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.folders[folderID]
	if !ok || rec.val.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(s.folders, folderID)
	return nil
}

func (s *Store) CreateConcept(_ context.Context, concept domain.Concept) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concepts[concept.ID] = record[domain.Concept]{seq: s.next(), val: cloneConcept(concept)}
	return nil
}

func (s *Store) ListConcepts(_ context.Context, ownerID, folderID string) ([]domain.Concept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]record[domain.Concept], 0)
	for _, rec := range s.concepts {
		if rec.val.OwnerID == ownerID && rec.val.FolderID == folderID {
			rec.val = cloneConcept(rec.val)
			recs = append(recs, rec)
		}
	}
	return values(recs), nil
}

func (s *Store) GetConcept(_ context.Context, ownerID, conceptID string) (domain.Concept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.concepts[conceptID]
	if !ok || rec.val.OwnerID != ownerID {
		return domain.Concept{}, domain.ErrNotFound
	}
	return cloneConcept(rec.val), nil
}

func (s *Store) UpdateConcept(_ context.Context, concept domain.Concept) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.concepts[concept.ID]
	if !ok || rec.val.OwnerID != concept.OwnerID {
		return domain.ErrNotFound
	}
	rec.val = cloneConcept(concept)
	s.concepts[concept.ID] = rec
	return nil
}

func (s *Store) DeleteConcept(_ context.Context, ownerID, conceptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.concepts[conceptID]
	if !ok || rec.val.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(s.concepts, conceptID)
	return nil
}

func (s *Store) DeleteConceptsInFolder(_ context.Context, ownerID, folderID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.concepts {
		if rec.val.OwnerID == ownerID && rec.val.FolderID == folderID {
			delete(s.concepts, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateResult(_ context.Context, result domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.ID] = record[domain.QuizResult]{seq: s.next(), val: cloneResult(result)}
	return nil
}

func (s *Store) ListResults(_ context.Context, ownerID, folderID string, limit int) ([]domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]record[domain.QuizResult], 0)
	for _, rec := range s.results {
		if rec.val.OwnerID != ownerID || (folderID != "" && rec.val.FolderID != folderID) {
			continue
		}
		rec.val = cloneResult(rec.val)
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		ti, tj := recs[i].val.CompletedAt, recs[j].val.CompletedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return recs[i].seq > recs[j].seq
	})
	out := make([]domain.QuizResult, 0, len(recs))
	for _, rec := range recs {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, rec.val)
	}
	return out, nil
}

func (s *Store) DeleteResultsInFolder(_ context.Context, ownerID, folderID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.results {
		if rec.val.OwnerID == ownerID && rec.val.FolderID == folderID {
			delete(s.results, id)
			n++
		}
	}
	return n, nil
}

// values sorts records by insertion order.
func values[T any](recs []record[T]) []T {
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	out := make([]T, len(recs))
	for i, rec := range recs {
		out[i] = rec.val
	}
	return out
}

func cloneConcept(c domain.Concept) domain.Concept {
	if c.Question != nil {
		q := *c.Question
		q.Options = append([]string(nil), q.Options...)
		c.Question = &q
	}
	return c
}

func cloneResult(r domain.QuizResult) domain.QuizResult {
	answers := make(map[string]string, len(r.Answers))
	for k, v := range r.Answers {
		answers[k] = v
	}
	r.Answers = answers
	return r
}
