package quiz

import "fmt"

// SystemPrompt is the instruction sent ahead of the conversation when asking
// the model for a quiz.
func SystemPrompt(topic string, questionCount int) string {
	return fmt.Sprintf(`Generate a quiz about %s based on the conversation. Return only a JSON object with this structure: {
  "title": "Quiz Title",
  "questions": [
    {
      "question": "Question text",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correctAnswer": 0,
      "explanation": "Explanation for the correct answer"
    }
  ]
}
correctAnswer is the zero-based index of the right option. Make sure there are exactly %d questions in the quiz.`, topic, questionCount)
}
