package quiz

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/edututor-ai/backend/internal/domain/questionbank"
)

var (
	ErrNoQuestions     = errors.New("no questions available for the selected subject")
	ErrUnknownQuestion = errors.New("question is not part of this quiz")
	ErrUnknownOption   = errors.New("option is not offered for this question")
	ErrAlreadyGraded   = errors.New("quiz has already been submitted")
)

// Quiz is one sampled set of questions plus the user's selections.
// It lives only as long as the browsing session that drew it.
type Quiz struct {
	Subject   string                  `json:"subject"`
	Questions []questionbank.Question `json:"questions"`
	Answers   map[string]string       `json:"answers"` // question text → selected option
	Result    *Result                 `json:"result,omitempty"`
}

// Result is the outcome of a submitted quiz.
type Result struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

func (r Result) String() string {
	return fmt.Sprintf("✅ You scored %d/%d", r.Score, r.Total)
}

// New draws a quiz for subject from questions. It returns ErrNoQuestions
// when there is nothing to draw from.
func New(subject string, questions []questionbank.Question) (*Quiz, error) {
	return NewWithConfig(subject, questions, DefaultConfig())
}

// NewWithConfig draws min(config.MaxQuestions, len(questions)) questions
// uniformly at random without replacement.
func NewWithConfig(subject string, questions []questionbank.Question, config Config) (*Quiz, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	limit := config.MaxQuestions
	if limit <= 0 {
		limit = MaxQuestions
	}

	return &Quiz{
		Subject:   subject,
		Questions: Sample(questions, limit, config.Rand),
		Answers:   make(map[string]string),
	}, nil
}

// Sample returns min(n, len(questions)) distinct questions in random order.
// The input slice is left untouched.
func Sample(questions []questionbank.Question, n int, rng *rand.Rand) []questionbank.Question {
	shuffled := make([]questionbank.Question, len(questions))
	copy(shuffled, questions)

	swap := func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	if rng != nil {
		rng.Shuffle(len(shuffled), swap)
	} else {
		rand.Shuffle(len(shuffled), swap)
	}

	if n >= 0 && n < len(shuffled) {
		shuffled = shuffled[:n]
	}
	return shuffled
}

// Select records the option chosen for a sampled question.
func (q *Quiz) Select(question, option string) error {
	if q.Result != nil {
		return ErrAlreadyGraded
	}
	sampled, ok := q.find(question)
	if !ok {
		return ErrUnknownQuestion
	}
	for _, o := range sampled.Options {
		if o == option {
			if q.Answers == nil {
				q.Answers = make(map[string]string)
			}
			q.Answers[question] = option
			return nil
		}
	}
	return ErrUnknownOption
}

// Submit merges the given selections into the quiz and grades it.
// Selections for questions outside the quiz, or naming an option the
// question does not offer, are dropped and count as unanswered.
func (q *Quiz) Submit(answers map[string]string) (Result, error) {
	if q.Result != nil {
		return *q.Result, ErrAlreadyGraded
	}
	for question, option := range answers {
		_ = q.Select(question, option)
	}

	result := Result{
		Score: Score(q.Questions, q.Answers),
		Total: len(q.Questions),
	}
	q.Result = &result
	return result, nil
}

// Submitted reports whether the quiz has been graded.
func (q *Quiz) Submitted() bool {
	return q.Result != nil
}

// Score counts the questions whose selected option equals the recorded
// answer exactly. Missing selections never match.
func Score(questions []questionbank.Question, answers map[string]string) int {
	score := 0
	for _, q := range questions {
		if selected, ok := answers[q.Question]; ok && selected == q.Answer {
			score++
		}
	}
	return score
}

func (q *Quiz) find(question string) (questionbank.Question, bool) {
	for _, s := range q.Questions {
		if s.Question == question {
			return s, true
		}
	}
	return questionbank.Question{}, false
}
