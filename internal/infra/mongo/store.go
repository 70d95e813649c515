package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"mindvault/internal/domain"
)

// Store keeps folders, concepts and quiz results in three MongoDB collections.
type Store struct {
	folders  *mongo.Collection
	concepts *mongo.Collection
	results  *mongo.Collection
	seq      func() int64
}

// Connect opens a client and checks the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		folders:  db.Collection("folders"),
		concepts: db.Collection("concepts"),
		results:  db.Collection("quiz_results"),
		seq:      func() int64 { return time.Now().UnixNano() },
	}
}

// EnsureIndexes creates the owner scoped lookup indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		col  *mongo.Collection
		keys bson.D
	}{
		{s.folders, bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: 1}}},
		{s.concepts, bson.D{{Key: "ownerId", Value: 1}, {Key: "folderId", Value: 1}, {Key: "seq", Value: 1}}},
		{s.results, bson.D{{Key: "ownerId", Value: 1}, {Key: "folderId", Value: 1}, {Key: "completedAt", Value: -1}}},
	}
	for _, idx := range indexes {
		if _, err := idx.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: idx.keys}); err != nil {
			return fmt.Errorf("create index on %s: %w", idx.col.Name(), err)
		}
	}
	return nil
}

type folderDoc struct {
	ID        string    `bson:"_id"`
	OwnerID   string    `bson:"ownerId"`
	Name      string    `bson:"name"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type questionDoc struct {
	Question string   `bson:"question"`
	Options  []string `bson:"options"`
	Answer   string   `bson:"answer"`
}

type conceptDoc struct {
	ID             string       `bson:"_id"`
	Seq            int64        `bson:"seq"`
	OwnerID        string       `bson:"ownerId"`
	FolderID       string       `bson:"folderId"`
	Name           string       `bson:"name"`
	Description    string       `bson:"description"`
	ImageURL       string       `bson:"imageUrl"`
	Question       *questionDoc `bson:"question,omitempty"`
	QuestionSource string       `bson:"questionSource"`
	CreatedAt      time.Time    `bson:"createdAt"`
	UpdatedAt      time.Time    `bson:"updatedAt"`
}

type resultDoc struct {
	ID             string            `bson:"_id"`
	Seq            int64             `bson:"seq"`
	OwnerID        string            `bson:"ownerId"`
	FolderID       string            `bson:"folderId"`
	Answers        map[string]string `bson:"answers"`
	TimeElapsed    int               `bson:"timeElapsed"`
	TotalQuestions int               `bson:"totalQuestions"`
	CorrectAnswers int               `bson:"correctAnswers"`
	Percentage     int               `bson:"percentage"`
	CompletedAt    time.Time         `bson:"completedAt"`
}

func (s *Store) CreateFolder(ctx context.Context, folder domain.Folder) error {
	_, err := s.folders.InsertOne(ctx, folderDoc{
		ID:        folder.ID,
		OwnerID:   folder.OwnerID,
		Name:      folder.Name,
		CreatedAt: folder.CreatedAt,
		UpdatedAt: folder.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert folder: %w", err)
	}
	return nil
}

func (s *Store) ListFolders(ctx context.Context, ownerID string) ([]domain.Folder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.folders.Find(ctx, bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	var docs []folderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode folders: %w", err)
	}
	folders := make([]domain.Folder, 0, len(docs))
	for _, d := range docs {
		folders = append(folders, d.toDomain())
	}
	return folders, nil
}

func (s *Store) GetFolder(ctx context.Context, ownerID, folderID string) (domain.Folder, error) {
	var doc folderDoc
	err := s.folders.FindOne(ctx, bson.M{"_id": folderID, "ownerId": ownerID}).Decode(&doc)
	if err != nil {
		return domain.Folder{}, notFound("get folder", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) UpdateFolder(ctx context.Context, folder domain.Folder) error {
	res, err := s.folders.UpdateOne(ctx,
		bson.M{"_id": folder.ID, "ownerId": folder.OwnerID},
		bson.M{"$set": bson.M{"name": folder.Name, "updatedAt": folder.UpdatedAt}})
	if err != nil {
		return fmt.Errorf("update folder: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteFolder(ctx context.Context, ownerID, folderID string) error {
	res, err := s.folders.DeleteOne(ctx, bson.M{"_id": folderID, "ownerId": ownerID})
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) CreateConcept(ctx context.Context, concept domain.Concept) error {
	doc := newConceptDoc(concept)
	doc.Seq = s.seq()
	if _, err := s.concepts.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert concept: %w", err)
	}
	return nil
}

func (s *Store) ListConcepts(ctx context.Context, ownerID, folderID string) ([]domain.Concept, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cur, err := s.concepts.Find(ctx, bson.M{"ownerId": ownerID, "folderId": folderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}
	var docs []conceptDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode concepts: %w", err)
	}
	concepts := make([]domain.Concept, 0, len(docs))
	for _, d := range docs {
		concepts = append(concepts, d.toDomain())
	}
	return concepts, nil
}

func (s *Store) GetConcept(ctx context.Context, ownerID, conceptID string) (domain.Concept, error) {
	var doc conceptDoc
	err := s.concepts.FindOne(ctx, bson.M{"_id": conceptID, "ownerId": ownerID}).Decode(&doc)
	if err != nil {
		return domain.Concept{}, notFound("get concept", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) UpdateConcept(ctx context.Context, concept domain.Concept) error {
	doc := newConceptDoc(concept)
	set := bson.M{
		"name":           doc.Name,
		"description":    doc.Description,
		"imageUrl":       doc.ImageURL,
		"questionSource": doc.QuestionSource,
		"updatedAt":      doc.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if doc.Question != nil {
		set["question"] = doc.Question
	} else {
		update["$unset"] = bson.M{"question": ""}
	}
	res, err := s.concepts.UpdateOne(ctx, bson.M{"_id": concept.ID, "ownerId": concept.OwnerID}, update)
	if err != nil {
		return fmt.Errorf("update concept: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteConcept(ctx context.Context, ownerID, conceptID string) error {
	res, err := s.concepts.DeleteOne(ctx, bson.M{"_id": conceptID, "ownerId": ownerID})
	if err != nil {
		return fmt.Errorf("delete concept: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteConceptsInFolder(ctx context.Context, ownerID, folderID string) (int, error) {
	res, err := s.concepts.DeleteMany(ctx, bson.M{"ownerId": ownerID, "folderId": folderID})
	if err != nil {
		return 0, fmt.Errorf("delete concepts: %w", err)
	}
	return int(res.DeletedCount), nil
}

func (s *Store) CreateResult(ctx context.Context, r domain.QuizResult) error {
	_, err := s.results.InsertOne(ctx, resultDoc{
		ID:             r.ID,
		Seq:            s.seq(),
		OwnerID:        r.OwnerID,
		FolderID:       r.FolderID,
		Answers:        r.Answers,
		TimeElapsed:    r.TimeElapsedSeconds,
		TotalQuestions: r.TotalQuestions,
		CorrectAnswers: r.CorrectAnswers,
		Percentage:     r.Percentage,
		CompletedAt:    r.CompletedAt,
	})
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *Store) ListResults(ctx context.Context, ownerID, folderID string, limit int) ([]domain.QuizResult, error) {
	filter := bson.M{"ownerId": ownerID}
	if folderID != "" {
		filter["folderId"] = folderID
	}
	opts := options.Find().SetSort(bson.D{{Key: "completedAt", Value: -1}, {Key: "seq", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.results.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	var docs []resultDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	results := make([]domain.QuizResult, 0, len(docs))
	for _, d := range docs {
		results = append(results, d.toDomain())
	}
	return results, nil
}

func (s *Store) DeleteResultsInFolder(ctx context.Context, ownerID, folderID string) (int, error) {
	res, err := s.results.DeleteMany(ctx, bson.M{"ownerId": ownerID, "folderId": folderID})
	if err != nil {
		return 0, fmt.Errorf("delete results: %w", err)
	}
	return int(res.DeletedCount), nil
}

func (d folderDoc) toDomain() domain.Folder {
	return domain.Folder{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		Name:      d.Name,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

func newConceptDoc(c domain.Concept) conceptDoc {
	doc := conceptDoc{
		ID:             c.ID,
		OwnerID:        c.OwnerID,
		FolderID:       c.FolderID,
		Name:           c.Name,
		Description:    c.Description,
		ImageURL:       c.ImageURL,
		QuestionSource: string(c.QuestionSource),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.Question != nil {
		doc.Question = &questionDoc{
			Question: c.Question.QuestionText,
			Options:  append([]string(nil), c.Question.Options...),
			Answer:   c.Question.Answer,
		}
	}
	return doc
}

func (d conceptDoc) toDomain() domain.Concept {
	c := domain.Concept{
		ID:             d.ID,
		OwnerID:        d.OwnerID,
		FolderID:       d.FolderID,
		Name:           d.Name,
		Description:    d.Description,
		ImageURL:       d.ImageURL,
		QuestionSource: domain.QuestionSource(d.QuestionSource),
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
	if d.Question != nil {
		c.Question = &domain.Question{
			QuestionText: d.Question.Question,
			Options:      d.Question.Options,
			Answer:       d.Question.Answer,
		}
	}
	return c
}

func (d resultDoc) toDomain() domain.QuizResult {
	answers := d.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	return domain.QuizResult{
		ID:                 d.ID,
		OwnerID:            d.OwnerID,
		FolderID:           d.FolderID,
		Answers:            answers,
		TimeElapsedSeconds: d.TimeElapsed,
		TotalQuestions:     d.TotalQuestions,
		CorrectAnswers:     d.CorrectAnswers,
		Percentage:         d.Percentage,
		CompletedAt:        d.CompletedAt.UTC(),
	}
}

func notFound(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
