package questionbank

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// DefaultSubjects in the order the subject selector shows them.
var DefaultSubjects = []string{
	"Artificial Intelligence",
	"Machine Learning",
	"Generative AI",
	"Mathematics",
}

// ErrInvalidBank is returned when a question set cannot be imported.
var ErrInvalidBank = errors.New("invalid question bank")

//go:embed questions.json
var embeddedBank []byte

// Question is a single multiple-choice item. Answer is expected to be one of
// Options; the bank does not check it.
type Question struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// QuestionBank maps a subject to its ordered questions. It is read-only once
// loaded and safe to share between sessions.
type QuestionBank struct {
	subjects  []string
	questions map[string][]Question
}

// New builds a bank from an in-memory mapping. Subjects keep the order of
// DefaultSubjects first, followed by any extra subjects in the order given.
func New(questions map[string][]Question, extra ...string) *QuestionBank {
	qb := &QuestionBank{questions: make(map[string][]Question, len(questions))}
	for subject, qs := range questions {
		cp := make([]Question, len(qs))
		copy(cp, qs)
		qb.questions[subject] = cp
	}
	qb.subjects = append(qb.subjects, DefaultSubjects...)
	qb.subjects = append(qb.subjects, extra...)
	return qb
}

// Default returns the bank compiled into the binary.
func Default() (*QuestionBank, error) {
	return Parse(embeddedBank)
}

// Load reads a bank from a JSON object of the form
// {"Subject": [{"question": ..., "options": [...], "answer": ...}]}.
func Load(r io.Reader) (*QuestionBank, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBank, err)
	}
	return Parse(data)
}

// LoadFile reads a bank from a JSON file on disk.
func LoadFile(path string) (*QuestionBank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBank, err)
	}
	defer f.Close()
	return Load(f)
}

// Parse decodes a JSON-encoded bank.
func Parse(data []byte) (*QuestionBank, error) {
	var raw map[string][]Question
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBank, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no subjects", ErrInvalidBank)
	}

	known := make(map[string]bool, len(DefaultSubjects))
	for _, s := range DefaultSubjects {
		known[s] = true
	}

	var extra []string
	for subject, qs := range raw {
		for i, q := range qs {
			if q.Question == "" {
				return nil, fmt.Errorf("%w: %s question %d has no text", ErrInvalidBank, subject, i+1)
			}
			if len(q.Options) == 0 {
				return nil, fmt.Errorf("%w: %s question %d has no options", ErrInvalidBank, subject, i+1)
			}
		}
		if !known[subject] {
			extra = append(extra, subject)
		}
	}
	slices.Sort(extra)

	return New(raw, extra...), nil
}

// Lookup returns the questions for a subject, or an empty slice when the
// subject is unknown. The returned slice must not be modified.
func (qb *QuestionBank) Lookup(subject string) []Question {
	qs, ok := qb.questions[subject]
	if !ok {
		return []Question{}
	}
	return qs
}

// Subjects lists the selectable subjects.
func (qb *QuestionBank) Subjects() []string {
	out := make([]string, len(qb.subjects))
	copy(out, qb.subjects)
	return out
}

// HasSubject reports whether subject is selectable.
func (qb *QuestionBank) HasSubject(subject string) bool {
	return slices.Contains(qb.subjects, subject)
}
