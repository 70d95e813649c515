package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"mindvault/internal/domain"
)

// FolderService manages folders. Deleting a folder cascades to its concepts
// and recorded quiz results.
type FolderService struct {
	folders  FolderRepository
	concepts ConceptRepository
	results  ResultRepository
	quizzes  QuizRepository
	attempts AttemptRepository
	events   EventPublisher
	now      func() time.Time
	newID    func() string
}

type FolderOption func(*FolderService)

func WithFolderClock(now func() time.Time) FolderOption {
	return func(s *FolderService) { s.now = now }
}

func WithFolderEvents(events EventPublisher) FolderOption {
	return func(s *FolderService) {
		if events != nil {
			s.events = events
		}
	}
}

func NewFolderService(folders FolderRepository, concepts ConceptRepository, results ResultRepository, quizzes QuizRepository, attempts AttemptRepository, opts ...FolderOption) *FolderService {
	s := &FolderService{
		folders:  folders,
		concepts: concepts,
		results:  results,
		quizzes:  quizzes,
		attempts: attempts,
		events:   NopPublisher{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FolderService) Create(ctx context.Context, ownerID, name string) (domain.Folder, error) {
	name, err := folderName(name)
	if err != nil {
		return domain.Folder{}, err
	}
	now := s.now().UTC()
	folder := domain.Folder{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.folders.CreateFolder(ctx, folder); err != nil {
		return domain.Folder{}, fmt.Errorf("create folder: %w", err)
	}
	s.publish(ctx, "folder.created", map[string]any{"folderId": folder.ID, "ownerId": ownerID})
	return folder, nil
}

func (s *FolderService) List(ctx context.Context, ownerID string) ([]domain.Folder, error) {
	folders, err := s.folders.ListFolders(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	if folders == nil {
		folders = []domain.Folder{}
	}
	return folders, nil
}

func (s *FolderService) Get(ctx context.Context, ownerID, folderID string) (domain.Folder, error) {
	return s.folders.GetFolder(ctx, ownerID, folderID)
}

func (s *FolderService) Rename(ctx context.Context, ownerID, folderID, name string) (domain.Folder, error) {
	name, err := folderName(name)
	if err != nil {
		return domain.Folder{}, err
	}
	folder, err := s.folders.GetFolder(ctx, ownerID, folderID)
	if err != nil {
		return domain.Folder{}, err
	}
	folder.Name = name
	folder.UpdatedAt = s.now().UTC()
	if err := s.folders.UpdateFolder(ctx, folder); err != nil {
		return domain.Folder{}, fmt.Errorf("update folder: %w", err)
	}
	return folder, nil
}

// Delete removes the folder's concepts and results, then the folder itself.
// The folder row goes last so a failed delete can be retried.
func (s *FolderService) Delete(ctx context.Context, ownerID, folderID string) error {
	if _, err := s.folders.GetFolder(ctx, ownerID, folderID); err != nil {
		return err
	}
	concepts, err := s.concepts.DeleteConceptsInFolder(ctx, ownerID, folderID)
	if err != nil {
		return fmt.Errorf("delete folder concepts: %w", err)
	}
	s.quizzes.Invalidate(ctx, ownerID, folderID)
	results, err := s.results.DeleteResultsInFolder(ctx, ownerID, folderID)
	if err != nil {
		return fmt.Errorf("delete folder results: %w", err)
	}
	if err := s.folders.DeleteFolder(ctx, ownerID, folderID); err != nil {
		return err
	}
	if err := s.attempts.Delete(ctx, ownerID, folderID); err != nil {
		log.Printf("clear attempt for folder %s: %v", folderID, err)
	}
	log.Printf("deleted folder %s with %d concepts and %d results", folderID, concepts, results)
	s.publish(ctx, "folder.deleted", map[string]any{"folderId": folderID, "ownerId": ownerID})
	return nil
}

func (s *FolderService) publish(ctx context.Context, eventType string, payload any) {
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		log.Printf("publish %s: %v", eventType, err)
	}
}

func folderName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: folder name is required", domain.ErrValidation)
	}
	return name, nil
}
