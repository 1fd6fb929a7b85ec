package quiz

import "errors"

var (
	// ErrNotFound means the requested test id has no backing module/bank.
	ErrNotFound = errors.New("test not found")
	// ErrInvalidInput means the submission payload is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
)

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is one bank entry. CorrectAnswer holds the id of the correct
// option and is stripped before a question is served to a client.
type Question struct {
	ID            int      `json:"id"`
	Prompt        string   `json:"question"`
	Options       []Option `json:"options"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
}

// SubmittedAnswer is one per-question selection in a submit request. A nil
// SelectedOption means the question was left unanswered.
type SubmittedAnswer struct {
	QuestionID     int     `json:"question_id"`
	SelectedOption *string `json:"selected_option"`
}

// ReviewQuestion is a Question annotated with a reconstructed selection. It
// is derived on every review view and never persisted.
type ReviewQuestion struct {
	Question
	SelectedOption *string `json:"selected_option"`
	IsCorrect      bool    `json:"is_correct"`
}

// Summary is what a submit returns to the client.
type Summary struct {
	Score            int `json:"score"`
	CorrectAnswers   int `json:"correct_answers"`
	IncorrectAnswers int `json:"incorrect_answers"`
	TotalQuestions   int `json:"total_questions"`
}

const (
	TestTypePractice = "practice"
	TestTypeFinal    = "final"
)

// TestSummary is one entry in a dashboard section.
type TestSummary struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	TestType    string `json:"test_type"`
	DurationMin int    `json:"duration,omitempty"`
}

// Section groups the tests generated for one question module.
type Section struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Tests []TestSummary `json:"tests"`
}

// Test is an assembled quiz as served to a client, answer keys stripped.
type Test struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	TestType    string     `json:"test_type"`
	DurationMin int        `json:"duration,omitempty"`
	Module      string     `json:"module"`
	Questions   []Question `json:"questions"`
}
