package entity

import "time"

// Kind discriminates history entries.
type Kind string

const (
	KindAnalogy Kind = "analogy"
	KindQuiz    Kind = "quiz"
)

// ParseKind accepts "", "analogy" and "quiz"; "" means all kinds.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case "", KindAnalogy, KindQuiz:
		return Kind(s), true
	}
	return "", false
}

// MappingPair links a technical term to its real-world counterpart.
type MappingPair struct {
	Technical string `json:"technical"`
	RealWorld string `json:"real_world"`
}

// Analogy is a generated explanation of a concept. Immutable once stored.
type Analogy struct {
	ID          string        `json:"id"`
	Owner       int64         `json:"owner,string"`
	Concept     string        `json:"concept"`
	Level       string        `json:"level"`
	Tagline     string        `json:"tagline"`
	Body        string        `json:"body"`
	Mapping     []MappingPair `json:"mapping"`
	Limitations []string      `json:"limitations"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Question is one multiple choice item. CorrectIndex points into Choices.
type Question struct {
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
}

// Quiz is derived from an analogy owned by the same user.
type Quiz struct {
	ID            string     `json:"id"`
	Owner         int64      `json:"owner,string"`
	SourceAnalogy string     `json:"source_analogy"`
	Concept       string     `json:"concept"`
	Questions     []Question `json:"questions"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Entry is the read-time union of analogies and quizzes.
type Entry struct {
	Kind      Kind      `json:"kind"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Analogy   *Analogy  `json:"analogy,omitempty"`
	Quiz      *Quiz     `json:"quiz,omitempty"`
}

func AnalogyEntry(a *Analogy) Entry {
	return Entry{Kind: KindAnalogy, ID: a.ID, CreatedAt: a.CreatedAt, Analogy: a}
}

func QuizEntry(q *Quiz) Entry {
	return Entry{Kind: KindQuiz, ID: q.ID, CreatedAt: q.CreatedAt, Quiz: q}
}
