package generation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/history/entity"
)

// Engine builds prompts, calls the provider and validates what comes back.
// Its results are either fully valid or an error; nothing partial.
type Engine struct {
	provider Provider
	cfg      Config
	logger   *zap.SugaredLogger
}

// NewEngine wraps provider in the retry policy from cfg.
func NewEngine(provider Provider, cfg Config, logger *zap.SugaredLogger) *Engine {
	return NewEngineWithBackoff(provider, cfg, ExponentialBackoff(cfg.Backoff, cfg.MaxBackoff), logger)
}

// NewEngineWithBackoff is NewEngine with an explicit backoff schedule.
func NewEngineWithBackoff(provider Provider, cfg Config, backoff BackoffFactory, logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		provider: NewRetrying(provider, cfg.MaxAttempts, backoff, logger),
		cfg:      cfg,
		logger:   logger,
	}
}

func (e *Engine) complete(ctx context.Context, op string, p Prompt) (string, error) {
	start := time.Now()
	text, err := e.provider.Complete(ctx, p)
	if err != nil {
		e.logger.Warnw("provider call failed", "op", op, "duration_ms", time.Since(start).Milliseconds(), "err", err)
		if !errors.Is(err, ErrProvider) {
			err = &ProviderError{Err: err}
		}
		return "", err
	}
	e.logger.Debugw("provider call", "op", op, "duration_ms", time.Since(start).Milliseconds(), "bytes", len(text))
	return text, nil
}

// GenerateAnalogy returns validated analogy content for concept.
func (e *Engine) GenerateAnalogy(ctx context.Context, concept, level string) (AnalogyContent, error) {
	text, err := e.complete(ctx, "analogy", AnalogyPrompt(concept, level, e.cfg.AnalogyMaxTokens))
	if err != nil {
		return AnalogyContent{}, err
	}
	out, err := ParseAnalogy(text, e.cfg.MaxBodyRunes)
	if err != nil {
		e.logger.Warnw("rejected analogy output", "err", err)
		return AnalogyContent{}, err
	}
	return out, nil
}

// GenerateQuiz derives questions from a stored analogy body with a second,
// independent provider call.
func (e *Engine) GenerateQuiz(ctx context.Context, concept, body string) ([]entity.Question, error) {
	text, err := e.complete(ctx, "quiz", QuizPrompt(concept, body, e.cfg.QuizQuestionCount, e.cfg.QuizMaxTokens))
	if err != nil {
		return nil, err
	}
	qs, err := ParseQuiz(text)
	if err != nil {
		e.logger.Warnw("rejected quiz output", "err", err)
		return nil, err
	}
	return qs, nil
}
