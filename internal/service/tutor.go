// internal/service/tutor.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/edututor-ai/backend/internal/domain/questionbank"
	"github.com/edututor-ai/backend/internal/domain/quiz"
	"github.com/edututor-ai/backend/internal/domain/tutorsession"
	"github.com/edututor-ai/backend/internal/inference"
	"github.com/edututor-ai/backend/internal/metrics"
	"github.com/edututor-ai/backend/internal/store"
)

// Options tunes a TutorService. Zero values fall back to defaults.
type Options struct {
	SessionTTL time.Duration    // idle sessions older than this are purged; 0 disables
	Quiz       quiz.Config      // sampling parameters
	Now        func() time.Time // clock, for tests
}

// TutorService applies page events to session view models: it loads the
// session, advances it, and stores the result. It owns the per-session
// locks so the store stays a pure persistence layer.
type TutorService struct {
	store  store.Store
	bank   *questionbank.QuestionBank
	asker  inference.Asker
	logger *slog.Logger
	opts   Options

	mu    sync.Mutex
	locks map[string]*sync.Mutex // sessionID → lock
}

// NewTutorService creates a TutorService.
func NewTutorService(s store.Store, bank *questionbank.QuestionBank, asker inference.Asker, logger *slog.Logger, opts Options) *TutorService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Quiz.MaxQuestions <= 0 {
		opts.Quiz.MaxQuestions = quiz.MaxQuestions
	}
	return &TutorService{
		store:  s,
		bank:   bank,
		asker:  asker,
		logger: logger,
		opts:   opts,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Subjects lists the selectable subjects in display order.
func (ts *TutorService) Subjects() []string {
	return ts.bank.Subjects()
}

// QuestionCount reports how many questions subject has.
func (ts *TutorService) QuestionCount(subject string) int {
	return len(ts.bank.Lookup(subject))
}

// StartSession creates a session showing a quiz for the first subject.
// Expired sessions are purged on the way.
func (ts *TutorService) StartSession(ctx context.Context) (*tutorsession.Session, error) {
	ts.purgeExpired(ctx)

	now := ts.opts.Now()
	sess := tutorsession.New(now)
	if subjects := ts.bank.Subjects(); len(subjects) > 0 {
		sess.SelectSubject(subjects[0], ts.bank.Lookup(subjects[0]), ts.opts.Quiz)
	}

	if err := ts.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	ts.logger.Info("session started", "session_id", sess.ID)
	return sess, nil
}

// GetSession loads a session and its history.
func (ts *TutorService) GetSession(ctx context.Context, sessionID string) (*tutorsession.Session, error) {
	return ts.store.GetSession(ctx, sessionID)
}

// SelectPanel switches panel and tab.
func (ts *TutorService) SelectPanel(ctx context.Context, sessionID string, panel tutorsession.Panel, tab tutorsession.Tab) (*tutorsession.Session, error) {
	return ts.update(ctx, sessionID, func(sess *tutorsession.Session) error {
		return sess.SelectPanel(panel, tab)
	})
}

// SelectSubject draws a new quiz. Unknown subjects behave like subjects
// with no questions: the session carries a warning and no quiz.
func (ts *TutorService) SelectSubject(ctx context.Context, sessionID, subject string) (*tutorsession.Session, error) {
	return ts.update(ctx, sessionID, func(sess *tutorsession.Session) error {
		sess.SelectSubject(subject, ts.bank.Lookup(subject), ts.opts.Quiz)
		if sess.Quiz == nil {
			ts.logger.Warn("no questions for subject", "session_id", sessionID, "subject", subject)
		}
		return nil
	})
}

// SubmitQuiz grades the session's current quiz.
func (ts *TutorService) SubmitQuiz(ctx context.Context, sessionID string, answers map[string]string) (*tutorsession.Session, quiz.Result, error) {
	var result quiz.Result
	sess, err := ts.update(ctx, sessionID, func(sess *tutorsession.Session) error {
		var err error
		result, err = sess.SubmitQuiz(answers)
		if err != nil {
			return err
		}
		metrics.QuizzesScored.WithLabelValues(sess.Subject).Inc()
		ts.logger.Info("quiz scored",
			"session_id", sessionID,
			"subject", sess.Subject,
			"score", result.Score,
			"total", result.Total,
		)
		return nil
	})
	return sess, result, err
}

// AskQuestion forwards a question to the inference endpoint and appends
// the exchange to the session history. The call blocks until the endpoint
// answers, fails, or times out; failures come back as answer text.
func (ts *TutorService) AskQuestion(ctx context.Context, sessionID, question string) (*tutorsession.Session, tutorsession.HistoryEntry, error) {
	q, err := tutorsession.NormalizeQuestion(question)
	if err != nil {
		return nil, tutorsession.HistoryEntry{}, err
	}

	// Fail fast on unknown sessions before spending an inference call.
	if _, err := ts.store.GetSession(ctx, sessionID); err != nil {
		return nil, tutorsession.HistoryEntry{}, err
	}

	answer := ts.asker.Ask(ctx, q)

	var entry tutorsession.HistoryEntry
	sess, err := ts.update(ctx, sessionID, func(sess *tutorsession.Session) error {
		entry = sess.RecordAnswer(q, answer, ts.opts.Now())
		return ts.store.AppendHistory(ctx, sessionID, entry)
	})
	return sess, entry, err
}

// update runs fn against the stored session under the session's lock and
// saves the result.
func (ts *TutorService) update(ctx context.Context, sessionID string, fn func(*tutorsession.Session) error) (*tutorsession.Session, error) {
	unlock := ts.lock(sessionID)
	defer unlock()

	sess, err := ts.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := fn(sess); err != nil {
		return sess, err
	}

	sess.Touch(ts.opts.Now())
	if err := ts.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

func (ts *TutorService) lock(sessionID string) func() {
	ts.mu.Lock()
	l, ok := ts.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		ts.locks[sessionID] = l
	}
	ts.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// purgeExpired drops idle sessions. Failures are logged, not returned:
// a missed purge only delays cleanup.
func (ts *TutorService) purgeExpired(ctx context.Context) {
	if ts.opts.SessionTTL <= 0 {
		return
	}
	cutoff := ts.opts.Now().Add(-ts.opts.SessionTTL)

	deleted, err := ts.store.DeleteExpiredSessions(ctx, cutoff)
	if err != nil {
		ts.logger.Error("failed to purge expired sessions", "error", err)
		return
	}
	if deleted > 0 {
		ts.logger.Info("purged expired sessions", "count", deleted)
		ts.dropStaleLocks(ctx)
	}
}

// dropStaleLocks forgets locks of sessions that no longer exist.
func (ts *TutorService) dropStaleLocks(ctx context.Context) {
	ts.mu.Lock()
	ids := make([]string, 0, len(ts.locks))
	for id := range ts.locks {
		ids = append(ids, id)
	}
	ts.mu.Unlock()

	for _, id := range ids {
		if _, err := ts.store.GetSession(ctx, id); errors.Is(err, store.ErrNotFound) {
			ts.mu.Lock()
			delete(ts.locks, id)
			ts.mu.Unlock()
		}
	}
}
