package generation

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
	// MaxBodyRunes bounds the accepted analogy body.
	MaxBodyRunes      int
	AnalogyMaxTokens  int
	QuizMaxTokens     int
	QuizQuestionCount int
}

func DefaultConfig() Config {
	return Config{
		Model:             "gpt-4o-mini",
		Temperature:       0.7,
		Timeout:           30 * time.Second,
		MaxAttempts:       3,
		Backoff:           200 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		MaxBodyRunes:      4000,
		AnalogyMaxTokens:  500,
		QuizMaxTokens:     600,
		QuizQuestionCount: 5,
	}
}

// ConfigFromEnv reads OPENAI_* and GENERATION_* variables over DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.Model = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("OPENAI_TEMPERATURE"), 32); err == nil && v >= 0 {
		cfg.Temperature = float32(v)
	}
	if d, err := time.ParseDuration(os.Getenv("GENERATION_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	if n, err := strconv.Atoi(os.Getenv("GENERATION_MAX_ATTEMPTS")); err == nil && n > 0 {
		cfg.MaxAttempts = n
	}
	if d, err := time.ParseDuration(os.Getenv("GENERATION_BACKOFF")); err == nil && d > 0 {
		cfg.Backoff = d
	}
	if d, err := time.ParseDuration(os.Getenv("GENERATION_MAX_BACKOFF")); err == nil && d > 0 {
		cfg.MaxBackoff = d
	}
	if cfg.MaxBackoff < cfg.Backoff {
		cfg.MaxBackoff = cfg.Backoff
	}
	if n, err := strconv.Atoi(os.Getenv("GENERATION_MAX_BODY_RUNES")); err == nil && n > 0 {
		cfg.MaxBodyRunes = n
	}
	if n, err := strconv.Atoi(os.Getenv("QUIZ_QUESTION_COUNT")); err == nil && n > 0 {
		cfg.QuizQuestionCount = n
	}
	return cfg
}
