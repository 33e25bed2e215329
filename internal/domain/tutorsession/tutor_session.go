package tutorsession

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/edututor-ai/backend/internal/domain/questionbank"
	"github.com/edututor-ai/backend/internal/domain/quiz"
	"github.com/edututor-ai/backend/internal/id"
)

type Panel string

const (
	PanelStudent  Panel = "student"
	PanelEducator Panel = "educator"
)

type Tab string

const (
	TabQuiz    Tab = "quiz"
	TabHistory Tab = "history"
	TabAsk     Tab = "ask"
)

const (
	NoQuestionsWarning = "⚠️ No questions available for the selected subject."
	HistoryPlaceholder = "📌 Quiz history will be available after backend integration."
)

var (
	ErrInvalidPanel  = errors.New("invalid panel")
	ErrInvalidTab    = errors.New("invalid tab")
	ErrNoQuiz        = errors.New("no quiz in progress")
	ErrEmptyQuestion = errors.New("question cannot be empty")
)

// HistoryEntry is one answered free-text question. Entries are never
// changed once recorded.
type HistoryEntry struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

// Session is the view model of one browsing session: what the page shows
// and everything the user has done so far. Event methods advance it; the
// caller owns loading and saving it.
type Session struct {
	ID         string        `json:"id"`
	Panel      Panel         `json:"panel"`
	Tab        Tab           `json:"tab"`
	Subject    string        `json:"subject"`
	Quiz       *quiz.Quiz    `json:"quiz,omitempty"`
	Warning    string        `json:"warning,omitempty"`
	LastAnswer *HistoryEntry `json:"last_answer,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`

	// History is kept in insertion order and stored separately from the
	// rest of the state.
	History []HistoryEntry `json:"-"`
}

// New creates a session on the student panel's quiz tab.
func New(now time.Time) *Session {
	return &Session{
		ID:        id.GenerateID(),
		Panel:     PanelStudent,
		Tab:       TabQuiz,
		History:   []HistoryEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ParsePanel validates a panel name.
func ParsePanel(s string) (Panel, error) {
	switch p := Panel(s); p {
	case PanelStudent, PanelEducator:
		return p, nil
	}
	return "", ErrInvalidPanel
}

// ParseTab validates a tab name.
func ParseTab(s string) (Tab, error) {
	switch t := Tab(s); t {
	case TabQuiz, TabHistory, TabAsk:
		return t, nil
	}
	return "", ErrInvalidTab
}

// SelectPanel switches the visible panel and, for the student panel, the tab.
// An empty tab keeps the current one.
func (s *Session) SelectPanel(panel Panel, tab Tab) error {
	if _, err := ParsePanel(string(panel)); err != nil {
		return err
	}
	if tab != "" {
		if _, err := ParseTab(string(tab)); err != nil {
			return err
		}
		s.Tab = tab
	}
	s.Panel = panel
	s.LastAnswer = nil
	return nil
}

// SelectSubject draws a fresh quiz for subject from questions. With no
// questions the quiz is cleared and a warning is shown instead.
func (s *Session) SelectSubject(subject string, questions []questionbank.Question, config quiz.Config) {
	s.Panel = PanelStudent
	s.Tab = TabQuiz
	s.Subject = subject
	s.Warning = ""
	s.LastAnswer = nil

	q, err := quiz.NewWithConfig(subject, questions, config)
	if err != nil {
		s.Quiz = nil
		s.Warning = NoQuestionsWarning
		return
	}
	s.Quiz = q
}

// SubmitQuiz grades the current quiz.
func (s *Session) SubmitQuiz(answers map[string]string) (quiz.Result, error) {
	if s.Quiz == nil {
		return quiz.Result{}, ErrNoQuiz
	}
	s.Panel = PanelStudent
	s.Tab = TabQuiz
	s.LastAnswer = nil
	return s.Quiz.Submit(answers)
}

// NormalizeQuestion trims a free-text question and rejects blank input.
func NormalizeQuestion(question string) (string, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return "", ErrEmptyQuestion
	}
	return q, nil
}

// RecordAnswer appends a history entry and makes it the latest answer.
// The latest answer is shown until the next panel, subject or quiz event;
// after that the entry appears only in the history.
func (s *Session) RecordAnswer(question, answer string, at time.Time) HistoryEntry {
	entry := HistoryEntry{
		Question: question,
		Answer:   answer,
		AskedAt:  at,
	}
	s.History = append(s.History, entry)
	s.LastAnswer = &entry
	s.Panel = PanelStudent
	s.Tab = TabAsk
	return entry
}

// RecentHistory returns the history most recent first.
func (s *Session) RecentHistory() []HistoryEntry {
	out := slices.Clone(s.History)
	slices.Reverse(out)
	return out
}

// Touch marks the session as used at now.
func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now
}
