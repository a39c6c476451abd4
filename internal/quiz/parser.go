// Package quiz turns raw model output into a validated multiple-choice quiz.
package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tutor-backend/internal/model"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrMalformed is wrapped by every Parse failure.
var ErrMalformed = errors.New("malformed quiz")

type rawQuiz struct {
	Title     string        `json:"title"`
	Questions []rawQuestion `json:"questions"`
}

type rawQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Parse decodes raw as a quiz with exactly questionCount questions. Text
// around the JSON object (prose, code fences) is tolerated. The returned
// quiz has question ids assigned by position; its own id and creation time
// are left for the caller.
func Parse(raw string, questionCount int) (*model.Quiz, error) {
	if questionCount < 1 {
		return nil, fmt.Errorf("%w: question count must be positive, got %d", ErrMalformed, questionCount)
	}

	doc, body, err := decode(raw)
	if err != nil {
		return nil, err
	}

	schema, err := compiledSchema(questionCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var parsed rawQuiz
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	quiz := &model.Quiz{
		Title:     parsed.Title,
		Questions: make([]model.QuizQuestion, 0, len(parsed.Questions)),
	}
	for i, q := range parsed.Questions {
		if q.CorrectAnswer >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d: correctAnswer %d out of range for %d options",
				ErrMalformed, i, q.CorrectAnswer, len(q.Options))
		}
		quiz.Questions = append(quiz.Questions, model.QuizQuestion{
			ID:            strconv.Itoa(i),
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}

	return quiz, nil
}

// decode returns the JSON object found in raw along with the exact text it
// was decoded from. When raw as a whole is not an object, the span from the
// first '{' to the last '}' is tried instead.
func decode(raw string) (any, string, error) {
	text := strings.TrimSpace(raw)
	if doc, err := decodeObject(text); err == nil {
		return doc, text, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, "", fmt.Errorf("%w: no JSON object in model output", ErrMalformed)
	}

	candidate := text[start : end+1]
	doc, err := decodeObject(candidate)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return doc, candidate, nil
}

func decodeObject(text string) (any, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, errors.New("not a JSON object")
	}
	return doc, nil
}
