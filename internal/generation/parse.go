package generation

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/history/entity"
)

// maxQuizQuestions bounds what a single quiz may contain.
const maxQuizQuestions = 20

// AnalogyContent is validated analogy output.
type AnalogyContent struct {
	Tagline     string
	Body        string
	Mapping     []entity.MappingPair
	Limitations []string
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return ""
	}
	lines = lines[1:]
	if last := strings.TrimSpace(lines[len(lines)-1]); last == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func decodeStrict(raw string, dst any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON")
	}
	return nil
}

type analogyPayload struct {
	Tagline string `json:"tagline"`
	Analogy string `json:"analogy"`
	Mapping []struct {
		Technical string `json:"technical"`
		RealWorld string `json:"real-world"`
		// some models answer with snake_case regardless of the prompt
		RealWorldSnake string `json:"real_world"`
	} `json:"mapping"`
	Limitations []string `json:"limitations"`
}

// ParseAnalogy validates provider text. A JSON object must match the
// analogy shape with a non-empty "analogy"; any other JSON value is
// rejected and text that is not JSON is taken as the body verbatim. The
// body must be non-empty and at most maxRunes long.
func ParseAnalogy(raw string, maxRunes int) (AnalogyContent, error) {
	text := stripFences(raw)
	if text == "" {
		return AnalogyContent{}, malformed("empty output")
	}

	var out AnalogyContent
	isObject := strings.HasPrefix(text, "{")
	if !isObject && (strings.HasPrefix(text, "[") || json.Valid([]byte(text))) {
		return AnalogyContent{}, malformed("analogy JSON must be an object")
	}
	if isObject {
		var p analogyPayload
		if err := decodeStrict(text, &p); err != nil {
			return AnalogyContent{}, malformed("analogy JSON: %v", err)
		}
		out.Tagline = strings.TrimSpace(p.Tagline)
		out.Body = strings.TrimSpace(p.Analogy)
		for i, m := range p.Mapping {
			rw := m.RealWorld
			if rw == "" {
				rw = m.RealWorldSnake
			}
			pair := entity.MappingPair{Technical: strings.TrimSpace(m.Technical), RealWorld: strings.TrimSpace(rw)}
			if pair.Technical == "" || pair.RealWorld == "" {
				return AnalogyContent{}, malformed("mapping[%d] incomplete", i)
			}
			out.Mapping = append(out.Mapping, pair)
		}
		for i, l := range p.Limitations {
			l = strings.TrimSpace(l)
			if l == "" {
				return AnalogyContent{}, malformed("limitations[%d] empty", i)
			}
			out.Limitations = append(out.Limitations, l)
		}
	} else {
		out.Body = text
	}

	if out.Body == "" {
		return AnalogyContent{}, malformed("empty analogy body")
	}
	if maxRunes > 0 && utf8.RuneCountInString(out.Body) > maxRunes {
		return AnalogyContent{}, malformed("analogy body exceeds %d characters", maxRunes)
	}
	if out.Mapping == nil {
		out.Mapping = []entity.MappingPair{}
	}
	if out.Limitations == nil {
		out.Limitations = []string{}
	}
	return out, nil
}

type quizPayload struct {
	Questions []struct {
		Question     string   `json:"question"`
		Prompt       string   `json:"prompt"`
		Options      []string `json:"options"`
		Choices      []string `json:"choices"`
		Answer       *string  `json:"answer"`
		CorrectIndex *int     `json:"correct_index"`
	} `json:"questions"`
}

// ParseQuiz validates quiz JSON. Every question needs a prompt, at least
// two distinct choices and exactly one correct choice given either as
// correct_index or as an answer equal to one of the choices. Prompts must
// be unique. Nothing is repaired.
func ParseQuiz(raw string) ([]entity.Question, error) {
	text := stripFences(raw)
	if text == "" {
		return nil, malformed("empty output")
	}
	var p quizPayload
	if err := decodeStrict(text, &p); err != nil {
		return nil, malformed("quiz JSON: %v", err)
	}
	if len(p.Questions) == 0 {
		return nil, malformed("no questions")
	}
	if len(p.Questions) > maxQuizQuestions {
		return nil, malformed("too many questions: %d", len(p.Questions))
	}

	seen := make(map[string]struct{}, len(p.Questions))
	out := make([]entity.Question, 0, len(p.Questions))
	for i, q := range p.Questions {
		prompt := strings.TrimSpace(q.Question)
		if prompt == "" {
			prompt = strings.TrimSpace(q.Prompt)
		}
		if prompt == "" {
			return nil, malformed("question %d has no prompt", i)
		}
		key := strings.ToLower(prompt)
		if _, dup := seen[key]; dup {
			return nil, malformed("question %d duplicates an earlier question", i)
		}
		seen[key] = struct{}{}

		opts := q.Options
		if len(opts) == 0 {
			opts = q.Choices
		}
		if len(opts) < 2 {
			return nil, malformed("question %d has %d choices, need at least 2", i, len(opts))
		}
		choices := make([]string, len(opts))
		distinct := make(map[string]struct{}, len(opts))
		for j, c := range opts {
			c = strings.TrimSpace(c)
			if c == "" {
				return nil, malformed("question %d choice %d empty", i, j)
			}
			k := strings.ToLower(c)
			if _, dup := distinct[k]; dup {
				return nil, malformed("question %d has duplicate choices", i)
			}
			distinct[k] = struct{}{}
			choices[j] = c
		}

		idx, err := correctIndex(i, choices, q.CorrectIndex, q.Answer)
		if err != nil {
			return nil, err
		}
		out = append(out, entity.Question{Prompt: prompt, Choices: choices, CorrectIndex: idx})
	}
	return out, nil
}

func correctIndex(i int, choices []string, index *int, answer *string) (int, error) {
	fromAnswer := -1
	if answer != nil {
		a := strings.TrimSpace(*answer)
		for j, c := range choices {
			if c == a {
				fromAnswer = j
				break
			}
		}
		if fromAnswer < 0 {
			return 0, malformed("question %d answer is not one of its choices", i)
		}
	}
	switch {
	case index != nil:
		if *index < 0 || *index >= len(choices) {
			return 0, malformed("question %d correct_index %d out of range", i, *index)
		}
		if fromAnswer >= 0 && fromAnswer != *index {
			return 0, malformed("question %d answer and correct_index disagree", i)
		}
		return *index, nil
	case fromAnswer >= 0:
		return fromAnswer, nil
	default:
		return 0, malformed("question %d has no correct answer", i)
	}
}
