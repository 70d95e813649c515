package app

import (
	"context"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"mindvault/internal/domain"
)

// CreateConceptInput carries the create form. Image is an upload to store;
// ImageURL references an image the caller uploaded earlier through this
// service and is ignored when Image is set.
type CreateConceptInput struct {
	FolderID    string
	Name        string
	Description string
	ImageURL    string
	Image       *ImageUpload
}

// UpdateConceptInput carries a partial update. Nil fields stay unchanged and
// an empty Description clears it.
type UpdateConceptInput struct {
	Name        *string
	Description *string
	Image       *ImageUpload
	Regenerate  bool
}

// ConceptService runs the upload, OCR, generation and store sequence for concepts.
type ConceptService struct {
	concepts  ConceptRepository
	folders   FolderRepository
	quizzes   QuizRepository
	generator QuestionGenerator
	ocr       TextExtractor
	images    ImageStore
	events    EventPublisher
	now       func() time.Time
	newID     func() string
}

type ConceptOption func(*ConceptService)

func WithConceptClock(now func() time.Time) ConceptOption {
	return func(s *ConceptService) { s.now = now }
}

func WithConceptEvents(events EventPublisher) ConceptOption {
	return func(s *ConceptService) {
		if events != nil {
			s.events = events
		}
	}
}

func NewConceptService(concepts ConceptRepository, folders FolderRepository, quizzes QuizRepository, generator QuestionGenerator, ocr TextExtractor, images ImageStore, opts ...ConceptOption) *ConceptService {
	s := &ConceptService{
		concepts:  concepts,
		folders:   folders,
		quizzes:   quizzes,
		generator: generator,
		ocr:       ocr,
		images:    images,
		events:    NopPublisher{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the input, stores the image, derives the question and
// writes the concept last so a failure never leaves a partial record.
func (s *ConceptService) Create(ctx context.Context, ownerID string, in CreateConceptInput) (domain.Concept, error) {
	folderID := strings.TrimSpace(in.FolderID)
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	imageURL := strings.TrimSpace(in.ImageURL)
	if folderID == "" {
		return domain.Concept{}, fmt.Errorf("%w: folderId is required", domain.ErrValidation)
	}
	if name == "" {
		return domain.Concept{}, fmt.Errorf("%w: concept name is required", domain.ErrValidation)
	}
	if description == "" && in.Image == nil && imageURL == "" {
		return domain.Concept{}, fmt.Errorf("%w: a description or an image is required", domain.ErrValidation)
	}
	if in.Image == nil && imageURL != "" && !s.ownsImage(ownerID, imageURL) {
		return domain.Concept{}, fmt.Errorf("%w: imageUrl must reference an image uploaded to this service", domain.ErrValidation)
	}
	if _, err := s.folders.GetFolder(ctx, ownerID, folderID); err != nil {
		return domain.Concept{}, err
	}

	now := s.now().UTC()
	concept := domain.Concept{
		ID:          s.newID(),
		OwnerID:     ownerID,
		FolderID:    folderID,
		Name:        name,
		Description: description,
		ImageURL:    imageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var imageKey string
	if in.Image != nil {
		key, url, err := s.storeImage(ctx, ownerID, *in.Image)
		if err != nil {
			return domain.Concept{}, err
		}
		imageKey = key
		concept.ImageURL = url
	}
	s.generateQuestion(ctx, &concept)

	if err := s.concepts.CreateConcept(ctx, concept); err != nil {
		s.discardImage(ctx, imageKey)
		return domain.Concept{}, fmt.Errorf("create concept: %w", err)
	}
	s.quizzes.Invalidate(ctx, ownerID, folderID)
	s.publish(ctx, "concept.created", conceptEvent(concept))
	return concept, nil
}

// List returns the folder's concepts, newest first.
func (s *ConceptService) List(ctx context.Context, ownerID, folderID string) ([]domain.Concept, error) {
	concepts, err := s.concepts.ListConcepts(ctx, ownerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}
	out := make([]domain.Concept, len(concepts))
	for i, c := range concepts {
		out[len(concepts)-1-i] = c
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *ConceptService) Get(ctx context.Context, ownerID, conceptID string) (domain.Concept, error) {
	return s.concepts.GetConcept(ctx, ownerID, conceptID)
}

// Update applies a partial update. A new image, or an explicit Regenerate,
// re-runs OCR and question generation and replaces the old question.
func (s *ConceptService) Update(ctx context.Context, ownerID, conceptID string, in UpdateConceptInput) (domain.Concept, error) {
	concept, err := s.concepts.GetConcept(ctx, ownerID, conceptID)
	if err != nil {
		return domain.Concept{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return domain.Concept{}, fmt.Errorf("%w: concept name is required", domain.ErrValidation)
		}
		concept.Name = name
	}
	if in.Description != nil {
		concept.Description = strings.TrimSpace(*in.Description)
	}
	if in.Image == nil && !concept.HasContent() {
		return domain.Concept{}, fmt.Errorf("%w: a description or an image is required", domain.ErrValidation)
	}

	var imageKey string
	if in.Image != nil {
		key, url, err := s.storeImage(ctx, ownerID, *in.Image)
		if err != nil {
			return domain.Concept{}, err
		}
		imageKey = key
		concept.ImageURL = url
	}
	if in.Image != nil || in.Regenerate {
		s.generateQuestion(ctx, &concept)
	}
	concept.UpdatedAt = s.now().UTC()

	if err := s.concepts.UpdateConcept(ctx, concept); err != nil {
		s.discardImage(ctx, imageKey)
		return domain.Concept{}, fmt.Errorf("update concept: %w", err)
	}
	s.quizzes.Invalidate(ctx, ownerID, concept.FolderID)
	s.publish(ctx, "concept.updated", conceptEvent(concept))
	return concept, nil
}

func (s *ConceptService) Delete(ctx context.Context, ownerID, conceptID string) error {
	concept, err := s.concepts.GetConcept(ctx, ownerID, conceptID)
	if err != nil {
		return err
	}
	if err := s.concepts.DeleteConcept(ctx, ownerID, conceptID); err != nil {
		return err
	}
	s.quizzes.Invalidate(ctx, ownerID, concept.FolderID)
	s.publish(ctx, "concept.deleted", conceptEvent(concept))
	return nil
}

func (s *ConceptService) storeImage(ctx context.Context, ownerID string, up ImageUpload) (key, url string, err error) {
	contentType, ext, body, err := sniffImage(up)
	if err != nil {
		return "", "", err
	}
	key = imageKeyPrefix(ownerID) + s.newID() + ext
	url, err = s.images.Put(ctx, key, contentType, body, up.Size)
	if err != nil {
		return "", "", fmt.Errorf("store image: %w", err)
	}
	return key, url, nil
}

// ownsImage reports whether url points at one of the owner's stored uploads.
func (s *ConceptService) ownsImage(ownerID, url string) bool {
	key, ok := s.images.KeyOf(url)
	return ok && path.Clean(key) == key && strings.HasPrefix(key, imageKeyPrefix(ownerID))
}

func imageKeyPrefix(ownerID string) string {
	return "concepts/" + ownerID + "/"
}

// discardImage removes an upload whose concept write failed.
func (s *ConceptService) discardImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		log.Printf("discard image %s: %v", key, err)
	}
}

// generateQuestion feeds OCR text, falling back to the description, to the generator.
func (s *ConceptService) generateQuestion(ctx context.Context, concept *domain.Concept) {
	var text string
	if concept.ImageURL != "" {
		extraction := s.ocr.ExtractText(ctx, concept.ImageURL)
		if extraction.Failed {
			log.Printf("concept %s: ocr unavailable, using description", concept.ID)
		}
		text = strings.TrimSpace(extraction.Text)
	}
	if text == "" {
		text = concept.Description
	}
	generated := s.generator.Generate(ctx, concept.Name, text)
	q := generated.Question
	concept.Question = &q
	concept.QuestionSource = generated.Source
	if generated.Source == domain.SourceFallback {
		log.Printf("concept %s: using fallback question", concept.ID)
	}
}

func (s *ConceptService) publish(ctx context.Context, eventType string, payload any) {
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		log.Printf("publish %s: %v", eventType, err)
	}
}

func conceptEvent(c domain.Concept) map[string]any {
	return map[string]any{
		"conceptId":      c.ID,
		"folderId":       c.FolderID,
		"ownerId":        c.OwnerID,
		"questionSource": c.QuestionSource,
	}
}
