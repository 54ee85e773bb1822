package analogy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/generation"
	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/history/entity"
	historyrepo "github.com/ovaphlow/pitchfork/service-analogy-go/internal/history/repo"
	"github.com/ovaphlow/pitchfork/service-analogy-go/pkg/utilities"
)

var (
	ErrNotFound  = errors.New("analogy not found")
	ErrForbidden = errors.New("analogy belongs to another user")
)

// ValidationError reports a bad request field. It is returned before any
// provider call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Reason }

// Generator is the generation engine as seen by the orchestrator.
type Generator interface {
	GenerateAnalogy(ctx context.Context, concept, level string) (generation.AnalogyContent, error)
	GenerateQuiz(ctx context.Context, concept, body string) ([]entity.Question, error)
}

const DefaultMaxConceptLength = 200

var Levels = []string{"beginner", "intermediate", "advanced"}

type Config struct {
	MaxConceptLength int
	DefaultLevel     string
}

// ConfigFromEnv reads MAX_CONCEPT_LENGTH.
func ConfigFromEnv() Config {
	cfg := Config{MaxConceptLength: DefaultMaxConceptLength, DefaultLevel: Levels[0]}
	if n, err := strconv.Atoi(os.Getenv("MAX_CONCEPT_LENGTH")); err == nil && n > 0 {
		cfg.MaxConceptLength = n
	}
	return cfg
}

// Service composes generation and history per request. It keeps no
// per-request state.
type Service struct {
	gen      Generator
	history  historyrepo.Repository
	cfg      Config
	validate *validator.Validate
	logger   *zap.SugaredLogger
	newID    func() string
	now      func() time.Time
}

func NewService(gen Generator, history historyrepo.Repository, cfg Config, logger *zap.SugaredLogger) *Service {
	if cfg.MaxConceptLength <= 0 {
		cfg.MaxConceptLength = DefaultMaxConceptLength
	}
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = Levels[0]
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		gen:      gen,
		history:  history,
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		newID:    utilities.NewKSUID,
		now:      time.Now,
	}
}

func (s *Service) checkInput(concept, level string) (string, string, error) {
	concept = strings.TrimSpace(concept)
	if err := s.validate.Var(concept, "required"); err != nil {
		return "", "", &ValidationError{Field: "concept", Reason: "must not be empty"}
	}
	if err := s.validate.Var(concept, fmt.Sprintf("max=%d", s.cfg.MaxConceptLength)); err != nil {
		return "", "", &ValidationError{Field: "concept", Reason: fmt.Sprintf("must be at most %d characters", s.cfg.MaxConceptLength)}
	}
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = s.cfg.DefaultLevel
	}
	if err := s.validate.Var(level, "oneof="+strings.Join(Levels, " ")); err != nil {
		return "", "", &ValidationError{Field: "level", Reason: "must be one of " + strings.Join(Levels, ", ")}
	}
	return concept, level, nil
}

// CreateAnalogy validates the concept, generates an analogy and appends it
// to the owner's history. Nothing is stored if generation fails.
func (s *Service) CreateAnalogy(ctx context.Context, owner int64, concept, level string) (*entity.Analogy, error) {
	concept, level, err := s.checkInput(concept, level)
	if err != nil {
		return nil, err
	}
	content, err := s.gen.GenerateAnalogy(ctx, concept, level)
	if err != nil {
		return nil, err
	}
	a := &entity.Analogy{
		ID:          s.newID(),
		Owner:       owner,
		Concept:     concept,
		Level:       level,
		Tagline:     content.Tagline,
		Body:        content.Body,
		Mapping:     content.Mapping,
		Limitations: content.Limitations,
		CreatedAt:   s.now().UTC(),
	}
	// the result is valid; finish the write even if the client went away
	if err := s.history.AppendAnalogy(context.WithoutCancel(ctx), a); err != nil {
		return nil, fmt.Errorf("store analogy: %w", err)
	}
	s.logger.Infow("analogy created", "user_id", owner, "analogy_id", a.ID)
	return a, nil
}

// CreateQuiz derives a quiz from an analogy the owner already has.
func (s *Service) CreateQuiz(ctx context.Context, owner int64, analogyID string) (*entity.Quiz, error) {
	src, err := s.history.GetAnalogy(ctx, analogyID)
	if err != nil {
		if errors.Is(err, historyrepo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load analogy: %w", err)
	}
	if src.Owner != owner {
		return nil, ErrForbidden
	}
	questions, err := s.gen.GenerateQuiz(ctx, src.Concept, src.Body)
	if err != nil {
		return nil, err
	}
	q := &entity.Quiz{
		ID:            s.newID(),
		Owner:         owner,
		SourceAnalogy: src.ID,
		Concept:       src.Concept,
		Questions:     questions,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.history.AppendQuiz(context.WithoutCancel(ctx), q); err != nil {
		return nil, fmt.Errorf("store quiz: %w", err)
	}
	s.logger.Infow("quiz created", "user_id", owner, "quiz_id", q.ID, "analogy_id", src.ID)
	return q, nil
}

// History lists the owner's entries newest first, optionally by kind.
func (s *Service) History(ctx context.Context, owner int64, kind string) ([]entity.Entry, error) {
	k, ok := entity.ParseKind(kind)
	if !ok {
		return nil, &ValidationError{Field: "kind", Reason: "must be analogy or quiz"}
	}
	entries, err := s.history.ListForUser(ctx, owner, k)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}
