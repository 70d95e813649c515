package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mindvault/internal/domain"
)

// Store persists folders, concepts and quiz results in Postgres.
// Schema lives in the migrations package.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateFolder(ctx context.Context, folder domain.Folder) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO folders (id, owner_id, name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		folder.ID, folder.OwnerID, folder.Name, folder.CreatedAt, folder.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert folder: %w", err)
	}
	return nil
}

func (s *Store) ListFolders(ctx context.Context, ownerID string) ([]domain.Folder, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, name, created_at, updated_at FROM folders WHERE owner_id=$1 ORDER BY created_at, id`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := make([]domain.Folder, 0)
	for rows.Next() {
		var f domain.Folder
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.Name, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (s *Store) GetFolder(ctx context.Context, ownerID, folderID string) (domain.Folder, error) {
	var f domain.Folder
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, created_at, updated_at FROM folders WHERE id=$1 AND owner_id=$2`,
		folderID, ownerID).Scan(&f.ID, &f.OwnerID, &f.Name, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return domain.Folder{}, notFound("get folder", err)
	}
	return f, nil
}

func (s *Store) UpdateFolder(ctx context.Context, folder domain.Folder) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE folders SET name=$1, updated_at=$2 WHERE id=$3 AND owner_id=$4`,
		folder.Name, folder.UpdatedAt, folder.ID, folder.OwnerID)
	if err != nil {
		return fmt.Errorf("update folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteFolder(ctx context.Context, ownerID, folderID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM folders WHERE id=$1 AND owner_id=$2`, folderID, ownerID)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const conceptColumns = `id, owner_id, folder_id, name, description, image_url, question, question_source, created_at, updated_at`

func (s *Store) CreateConcept(ctx context.Context, c domain.Concept) error {
	question, err := marshalQuestion(c.Question)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO concepts (`+conceptColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.OwnerID, c.FolderID, c.Name, c.Description, c.ImageURL, question, string(c.QuestionSource), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert concept: %w", err)
	}
	return nil
}

func (s *Store) ListConcepts(ctx context.Context, ownerID, folderID string) ([]domain.Concept, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+conceptColumns+` FROM concepts WHERE owner_id=$1 AND folder_id=$2 ORDER BY seq`,
		ownerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}
	defer rows.Close()

	concepts := make([]domain.Concept, 0)
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}

func (s *Store) GetConcept(ctx context.Context, ownerID, conceptID string) (domain.Concept, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+conceptColumns+` FROM concepts WHERE id=$1 AND owner_id=$2`, conceptID, ownerID)
	c, err := scanConcept(row)
	if err != nil {
		return domain.Concept{}, notFound("get concept", err)
	}
	return c, nil
}

func (s *Store) UpdateConcept(ctx context.Context, c domain.Concept) error {
	question, err := marshalQuestion(c.Question)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE concepts SET name=$1, description=$2, image_url=$3, question=$4, question_source=$5, updated_at=$6
		 WHERE id=$7 AND owner_id=$8`,
		c.Name, c.Description, c.ImageURL, question, string(c.QuestionSource), c.UpdatedAt, c.ID, c.OwnerID)
	if err != nil {
		return fmt.Errorf("update concept: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteConcept(ctx context.Context, ownerID, conceptID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM concepts WHERE id=$1 AND owner_id=$2`, conceptID, ownerID)
	if err != nil {
		return fmt.Errorf("delete concept: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteConceptsInFolder(ctx context.Context, ownerID, folderID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM concepts WHERE owner_id=$1 AND folder_id=$2`, ownerID, folderID)
	if err != nil {
		return 0, fmt.Errorf("delete concepts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) CreateResult(ctx context.Context, r domain.QuizResult) error {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_results (id, owner_id, folder_id, answers, time_elapsed, total_questions, correct_answers, percentage, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.OwnerID, r.FolderID, answers, r.TimeElapsedSeconds, r.TotalQuestions, r.CorrectAnswers, r.Percentage, r.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *Store) ListResults(ctx context.Context, ownerID, folderID string, limit int) ([]domain.QuizResult, error) {
	query := `SELECT id, owner_id, folder_id, answers, time_elapsed, total_questions, correct_answers, percentage, completed_at
		FROM quiz_results WHERE owner_id=$1 AND ($2 = '' OR folder_id=$2)
		ORDER BY completed_at DESC, seq DESC`
	args := []interface{}{ownerID, folderID}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	results := make([]domain.QuizResult, 0)
	for rows.Next() {
		var (
			r   domain.QuizResult
			raw []byte
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.FolderID, &raw, &r.TimeElapsedSeconds,
			&r.TotalQuestions, &r.CorrectAnswers, &r.Percentage, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal(raw, &r.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		r.CompletedAt = r.CompletedAt.UTC()
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Store) DeleteResultsInFolder(ctx context.Context, ownerID, folderID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quiz_results WHERE owner_id=$1 AND folder_id=$2`, ownerID, folderID)
	if err != nil {
		return 0, fmt.Errorf("delete results: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanConcept(row pgx.Row) (domain.Concept, error) {
	var (
		c        domain.Concept
		question []byte
		source   string
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &c.FolderID, &c.Name, &c.Description, &c.ImageURL,
		&question, &source, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Concept{}, err
	}
	if len(question) > 0 {
		var q domain.Question
		if err := json.Unmarshal(question, &q); err != nil {
			return domain.Concept{}, fmt.Errorf("unmarshal question: %w", err)
		}
		c.Question = &q
	}
	c.QuestionSource = domain.QuestionSource(source)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func marshalQuestion(q *domain.Question) ([]byte, error) {
	if q == nil {
		return nil, nil
	}
	raw, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("marshal question: %w", err)
	}
	return raw, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
