package generation

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/history/entity"
)

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```\n"))
	assert.Equal(t, `plain`, stripFences("  plain \n"))
	assert.Equal(t, ``, stripFences("```"))
}

func TestParseAnalogy_JSON(t *testing.T) {
	raw := "```json\n" + `{
  "tagline": "A polite phone call",
  "analogy": "Two people confirm they can hear each other before talking.",
  "mapping": [{"technical": "SYN", "real-world": "Hello?"}, {"technical": "ACK", "real_world": "Yes, I hear you"}],
  "limitations": ["Phones do not retransmit"],
  "extra": true
}` + "\n```"
	got, err := ParseAnalogy(raw, 4000)
	require.NoError(t, err)
	want := AnalogyContent{
		Tagline: "A polite phone call",
		Body:    "Two people confirm they can hear each other before talking.",
		Mapping: []entity.MappingPair{
			{Technical: "SYN", RealWorld: "Hello?"},
			{Technical: "ACK", RealWorld: "Yes, I hear you"},
		},
		Limitations: []string{"Phones do not retransmit"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ParseAnalogy mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAnalogy_PlainText(t *testing.T) {
	got, err := ParseAnalogy("  Like a handshake between strangers. ", 100)
	require.NoError(t, err)
	assert.Equal(t, "Like a handshake between strangers.", got.Body)
	assert.NotNil(t, got.Mapping)
	assert.NotNil(t, got.Limitations)
}

func TestParseAnalogy_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":             "   ",
		"only fence":        "```\n```",
		"missing analogy":   `{"tagline":"x"}`,
		"blank analogy":     `{"analogy":"   "}`,
		"wrong type":        `{"analogy": 5}`,
		"broken json":       `{"analogy": "x"`,
		"incomplete map":    `{"analogy":"x","mapping":[{"technical":"SYN"}]}`,
		"mapping as object": `{"analogy":"x","mapping":{"technical":"SYN"}}`,
		"empty limitation":  `{"analogy":"x","limitations":[""]}`,
		"trailing":          `{"analogy":"x"} {"analogy":"y"}`,
		"too long":          strings.Repeat("a", 11),
		"array":             `["not","an"]`,
		"fenced array":      "```json\n[1,2]\n```",
		"broken array":      `["x",`,
		"json string":       `"quoted"`,
		"null":              `null`,
		"number":            `42`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAnalogy(raw, 10)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedOutput)
			var me *MalformedError
			assert.True(t, errors.As(err, &me))
			assert.NotEmpty(t, me.Reason)
			assert.NotContains(t, me.Reason, ErrMalformedOutput.Error())
		})
	}
}

func TestParseAnalogy_LengthBoundary(t *testing.T) {
	_, err := ParseAnalogy(strings.Repeat("é", 10), 10)
	assert.NoError(t, err)
	_, err = ParseAnalogy(strings.Repeat("é", 11), 10)
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestParseQuiz_Valid(t *testing.T) {
	raw := "```json\n" + `{
  "concept": "TCP handshake",
  "questions": [
    {"question": "What starts the handshake?", "options": ["SYN", "ACK", "FIN", "RST"], "answer": "SYN"},
    {"prompt": "How many steps?", "choices": ["Two", "Three"], "correct_index": 1}
  ]
}` + "\n```"
	got, err := ParseQuiz(raw)
	require.NoError(t, err)
	want := []entity.Question{
		{Prompt: "What starts the handshake?", Choices: []string{"SYN", "ACK", "FIN", "RST"}, CorrectIndex: 0},
		{Prompt: "How many steps?", Choices: []string{"Two", "Three"}, CorrectIndex: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ParseQuiz mismatch (-want +got):\n%s", diff)
	}
}

func TestParseQuiz_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":           "Here is your quiz!",
		"no questions":       `{"questions": []}`,
		"null questions":     `{"questions": null}`,
		"array root":         `[{"question":"q","options":["a","b"],"answer":"a"}]`,
		"one choice":         `{"questions":[{"question":"q","options":["a"],"correct_index":0}]}`,
		"no choices":         `{"questions":[{"question":"q","answer":"a"}]}`,
		"index too high":     `{"questions":[{"question":"q","options":["a","b"],"correct_index":2}]}`,
		"index negative":     `{"questions":[{"question":"q","options":["a","b"],"correct_index":-1}]}`,
		"index not int":      `{"questions":[{"question":"q","options":["a","b"],"correct_index":"1"}]}`,
		"answer not option":  `{"questions":[{"question":"q","options":["a","b"],"answer":"c"}]}`,
		"no correct":         `{"questions":[{"question":"q","options":["a","b"]}]}`,
		"disagree":           `{"questions":[{"question":"q","options":["a","b"],"answer":"a","correct_index":1}]}`,
		"duplicate choices":  `{"questions":[{"question":"q","options":["a","A "],"answer":"a"}]}`,
		"empty choice":       `{"questions":[{"question":"q","options":["a",""],"answer":"a"}]}`,
		"no prompt":          `{"questions":[{"options":["a","b"],"answer":"a"}]}`,
		"duplicate question": `{"questions":[{"question":"Q?","options":["a","b"],"answer":"a"},{"question":" q? ","options":["c","d"],"answer":"d"}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			qs, err := ParseQuiz(raw)
			assert.Nil(t, qs)
			assert.ErrorIs(t, err, ErrMalformedOutput)
		})
	}
}

func TestParseQuiz_TooMany(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"questions":[`)
	for i := 0; i <= maxQuizQuestions; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"question":"q` + strings.Repeat("x", i) + `","options":["a","b"],"correct_index":0}`)
	}
	b.WriteString(`]}`)
	_, err := ParseQuiz(b.String())
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestProviderErrorIs(t *testing.T) {
	err := &ProviderError{Status: 503, Retryable: true, Err: errors.New("unavailable")}
	assert.ErrorIs(t, err, ErrProvider)
	assert.NotErrorIs(t, err, ErrMalformedOutput)
	assert.Contains(t, err.Error(), "503")
}
