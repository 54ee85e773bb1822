package generation

import (
	"fmt"
	"strings"
)

const analogySystemPrompt = `You are an expert teacher. For any technical concept provided, output ONLY a valid JSON object
with these exact keys:
- tagline: (string) a 1-line analogy
- analogy: (string) 2-5 sentence explanation
- mapping: (array of objects) each object MUST have:
    - technical: (string) the technical term
    - real-world: (string) the corresponding real-world analogy
- limitations: (array of strings) caveats or limitations of the analogy
Return ONLY valid JSON. Do NOT include explanations, markdown, or code fences.`

const quizSystemPrompt = `You are an expert teacher. Based on the concept and the analogy provided, generate %d multiple-choice questions.
Each question must have exactly 4 distinct options and exactly 1 correct answer.
No two questions may be the same.
Return ONLY valid JSON in this format:
{
  "questions": [
    {
      "question": "Question text",
      "options": ["Option1", "Option2", "Option3", "Option4"],
      "answer": "Option2"
    }
  ]
}
The "answer" value must be copied exactly from "options".
Do NOT include explanations, markdown, or code fences.`

// AnalogyPrompt builds the prompt for a concept at a level. Same input,
// same prompt.
func AnalogyPrompt(concept, level string, maxTokens int) Prompt {
	return Prompt{
		System:    analogySystemPrompt,
		User:      fmt.Sprintf("Concept: %s\nLevel: %s", concept, level),
		MaxTokens: maxTokens,
	}
}

// QuizPrompt builds the prompt deriving questions from a stored analogy.
func QuizPrompt(concept, body string, questions, maxTokens int) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Concept: %s\n", concept)
	fmt.Fprintf(&b, "Analogy: %s", body)
	return Prompt{
		System:    fmt.Sprintf(quizSystemPrompt, questions),
		User:      b.String(),
		MaxTokens: maxTokens,
	}
}
