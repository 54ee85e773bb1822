package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/history/entity"
	"github.com/ovaphlow/pitchfork/service-analogy-go/pkg/database"
)

var (
	ErrNotFound  = errors.New("history entry not found")
	ErrDuplicate = errors.New("history entry already exists")
)

// Repository is the append-only history store. ListForUser returns a
// snapshot ordered newest first.
type Repository interface {
	AppendAnalogy(ctx context.Context, a *entity.Analogy) error
	AppendQuiz(ctx context.Context, q *entity.Quiz) error
	GetAnalogy(ctx context.Context, id string) (*entity.Analogy, error)
	ListForUser(ctx context.Context, owner int64, kind entity.Kind) ([]entity.Entry, error)
}

// HistoryRepo stores analogies and quizzes in Postgres. Both tables draw
// seq from history_seq, which breaks created_at ties in append order.
type HistoryRepo struct {
	db *sqlx.DB
}

func NewHistoryRepo(db *sqlx.DB) *HistoryRepo { return &HistoryRepo{db: db} }

func insertErr(what string, err error) error {
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return fmt.Errorf("insert %s: %w", what, err)
}

func (r *HistoryRepo) AppendAnalogy(ctx context.Context, a *entity.Analogy) error {
	mapping, err := json.Marshal(nonNil(a.Mapping))
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	limitations, err := json.Marshal(nonNil(a.Limitations))
	if err != nil {
		return fmt.Errorf("encode limitations: %w", err)
	}
	const q = `INSERT INTO analogies (id, owner_id, concept, level, tagline, body, mapping, limitations, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, q, a.ID, a.Owner, a.Concept, a.Level, a.Tagline, a.Body,
		string(mapping), string(limitations), a.CreatedAt); err != nil {
		return insertErr("analogy", err)
	}
	return nil
}

func (r *HistoryRepo) AppendQuiz(ctx context.Context, qz *entity.Quiz) error {
	questions, err := json.Marshal(nonNil(qz.Questions))
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	const q = `INSERT INTO quizzes (id, owner_id, source_analogy_id, concept, questions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, q, qz.ID, qz.Owner, qz.SourceAnalogy, qz.Concept,
		string(questions), qz.CreatedAt); err != nil {
		return insertErr("quiz", err)
	}
	return nil
}

type analogyRow struct {
	ID          string    `db:"id"`
	OwnerID     int64     `db:"owner_id"`
	Concept     string    `db:"concept"`
	Level       string    `db:"level"`
	Tagline     string    `db:"tagline"`
	Body        string    `db:"body"`
	Mapping     []byte    `db:"mapping"`
	Limitations []byte    `db:"limitations"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row analogyRow) toEntity() (*entity.Analogy, error) {
	a := &entity.Analogy{
		ID:        row.ID,
		Owner:     row.OwnerID,
		Concept:   row.Concept,
		Level:     row.Level,
		Tagline:   row.Tagline,
		Body:      row.Body,
		CreatedAt: row.CreatedAt,
	}
	if err := decodeJSON(row.Mapping, &a.Mapping); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	if err := decodeJSON(row.Limitations, &a.Limitations); err != nil {
		return nil, fmt.Errorf("decode limitations: %w", err)
	}
	return a, nil
}

func (r *HistoryRepo) GetAnalogy(ctx context.Context, id string) (*entity.Analogy, error) {
	const q = `SELECT id, owner_id, concept, level, tagline, body, mapping, limitations, created_at
		FROM analogies WHERE id=$1`
	var row analogyRow
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get analogy: %w", err)
	}
	return row.toEntity()
}

const (
	listAnalogies = `SELECT 'analogy' AS kind, id, seq, owner_id, concept, level, tagline, body, mapping, limitations,
		'' AS source_analogy_id, NULL::jsonb AS questions, created_at
		FROM analogies WHERE owner_id=$1`
	listQuizzes = `SELECT 'quiz' AS kind, id, seq, owner_id, concept, '' AS level, '' AS tagline, '' AS body, NULL::jsonb AS mapping, NULL::jsonb AS limitations,
		source_analogy_id, questions, created_at
		FROM quizzes WHERE owner_id=$1`
	listOrder = `
		ORDER BY created_at DESC, seq DESC`
)

type entryRow struct {
	analogyRow
	Kind            string `db:"kind"`
	Seq             int64  `db:"seq"`
	SourceAnalogyID string `db:"source_analogy_id"`
	Questions       []byte `db:"questions"`
}

func (r *HistoryRepo) ListForUser(ctx context.Context, owner int64, kind entity.Kind) ([]entity.Entry, error) {
	var q string
	switch kind {
	case entity.KindAnalogy:
		q = listAnalogies + listOrder
	case entity.KindQuiz:
		q = listQuizzes + listOrder
	default:
		q = listAnalogies + `
		UNION ALL
		` + listQuizzes + listOrder
	}
	var rows []entryRow
	if err := r.db.SelectContext(ctx, &rows, q, owner); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	out := make([]entity.Entry, 0, len(rows))
	for _, row := range rows {
		switch entity.Kind(row.Kind) {
		case entity.KindAnalogy:
			a, err := row.analogyRow.toEntity()
			if err != nil {
				return nil, err
			}
			out = append(out, entity.AnalogyEntry(a))
		case entity.KindQuiz:
			qz := &entity.Quiz{
				ID:            row.ID,
				Owner:         row.OwnerID,
				SourceAnalogy: row.SourceAnalogyID,
				Concept:       row.Concept,
				CreatedAt:     row.CreatedAt,
			}
			if err := decodeJSON(row.Questions, &qz.Questions); err != nil {
				return nil, fmt.Errorf("decode questions: %w", err)
			}
			out = append(out, entity.QuizEntry(qz))
		default:
			return nil, fmt.Errorf("list history: unknown kind %q", row.Kind)
		}
	}
	return out, nil
}

func decodeJSON(b []byte, dst any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}

// nonNil keeps empty slices encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
