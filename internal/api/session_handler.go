package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/edututor-ai/backend/internal/domain/quiz"
	"github.com/edututor-ai/backend/internal/domain/tutorsession"
)

// ── Request / Response types ────────────────────────────────────────────────

type QuizQuestionResponse struct {
	Number   int      `json:"number"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Selected string   `json:"selected,omitempty"`
	Answer   string   `json:"answer,omitempty"` // only after submission
}

type QuizResultResponse struct {
	Score   int    `json:"score"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

type QuizResponse struct {
	Subject   string                 `json:"subject"`
	Questions []QuizQuestionResponse `json:"questions"`
	Submitted bool                   `json:"submitted"`
	Result    *QuizResultResponse    `json:"result,omitempty"`
}

type HistoryEntryResponse struct {
	Number   int       `json:"number"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

type SessionResponse struct {
	ID           string                `json:"id"`
	Panel        string                `json:"panel"`
	Tab          string                `json:"tab"`
	Subject      string                `json:"subject"`
	Quiz         *QuizResponse         `json:"quiz,omitempty"`
	Warning      string                `json:"warning,omitempty"`
	LastAnswer   *HistoryEntryResponse `json:"last_answer,omitempty"`
	HistoryCount int                   `json:"history_count"`
}

type SelectPanelRequest struct {
	Panel string `json:"panel"`
	Tab   string `json:"tab,omitempty"`
}

func (r *SelectPanelRequest) Validate() error {
	if _, err := tutorsession.ParsePanel(r.Panel); err != nil {
		return err
	}
	if r.Tab != "" {
		if _, err := tutorsession.ParseTab(r.Tab); err != nil {
			return err
		}
	}
	return nil
}

type StartQuizRequest struct {
	Subject string `json:"subject"`
}

func (r *StartQuizRequest) Validate() error {
	if r.Subject == "" {
		return errors.New("subject is required")
	}
	return nil
}

type SubmitQuizRequest struct {
	Answers map[string]string `json:"answers"` // question text → selected option
}

type AskQuestionRequest struct {
	Question string `json:"question"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// createSession godoc
// @Summary      Start a session
// @Description  Creates a session on the student quiz tab with a quiz for the first subject.
// @Tags         sessions
// @Produce      json
// @Success      201  {object}  SessionResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/sessions [post]
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.tutor.StartSession(r.Context())
	if h.handleServiceError(w, err) {
		return
	}
	respondJSON(w, http.StatusCreated, toSessionResponse(sess))
}

// getSession godoc
// @Summary      Get a session
// @Tags         sessions
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Success      200  {object}  SessionResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/sessions/{sessionID} [get]
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.tutor.GetSession(r.Context(), r.PathValue("sessionID"))
	if h.handleServiceError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(sess))
}

// selectPanel godoc
// @Summary      Switch panel or tab
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string              true  "Session ID"
// @Param        request    body  SelectPanelRequest  true  "Panel (student|educator) and optional tab (quiz|history|ask)"
// @Success      200  {object}  SessionResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/sessions/{sessionID}/panel [put]
func (h *Handler) selectPanel(w http.ResponseWriter, r *http.Request) {
	var req SelectPanelRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sess, err := h.tutor.SelectPanel(r.Context(), r.PathValue("sessionID"),
		tutorsession.Panel(req.Panel), tutorsession.Tab(req.Tab))
	if h.handleServiceError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(sess))
}

// startQuiz godoc
// @Summary      Sample a quiz
// @Description  Draws up to 10 questions for the subject. A subject without questions yields a warning and no quiz.
// @Tags         quiz
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string            true  "Session ID"
// @Param        request    body  StartQuizRequest  true  "Subject"
// @Success      200  {object}  SessionResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/sessions/{sessionID}/quiz [post]
func (h *Handler) startQuiz(w http.ResponseWriter, r *http.Request) {
	var req StartQuizRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sess, err := h.tutor.SelectSubject(r.Context(), r.PathValue("sessionID"), req.Subject)
	if h.handleServiceError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(sess))
}

// submitQuiz godoc
// @Summary      Submit quiz answers
// @Description  Grades the current quiz by exact match. Unanswered questions count as wrong.
// @Tags         quiz
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string             true  "Session ID"
// @Param        request    body  SubmitQuizRequest  true  "Selected options keyed by question text"
// @Success      200  {object}  QuizResultResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /api/sessions/{sessionID}/quiz/submit [post]
func (h *Handler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var req SubmitQuizRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	_, result, err := h.tutor.SubmitQuiz(r.Context(), r.PathValue("sessionID"), req.Answers)
	if h.handleServiceError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, toResultResponse(result))
}

// askQuestion godoc
// @Summary      Ask a free-text question
// @Description  Forwards the question to the inference endpoint and records the exchange. Endpoint failures are returned as answer text.
// @Tags         questions
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string              true  "Session ID"
// @Param        request    body  AskQuestionRequest  true  "Question"
// @Success      201  {object}  HistoryEntryResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/sessions/{sessionID}/questions [post]
func (h *Handler) askQuestion(w http.ResponseWriter, r *http.Request) {
	var req AskQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	_, entry, err := h.tutor.AskQuestion(r.Context(), r.PathValue("sessionID"), req.Question)
	if h.handleServiceError(w, err) {
		return
	}
	// The newest entry heads the most-recent-first history.
	respondJSON(w, http.StatusCreated, HistoryEntryResponse{
		Number:   1,
		Question: entry.Question,
		Answer:   entry.Answer,
		AskedAt:  entry.AskedAt,
	})
}

// getHistory godoc
// @Summary      Question and answer history
// @Description  Most recent first; numbering follows display order.
// @Tags         questions
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Success      200  {array}   HistoryEntryResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/sessions/{sessionID}/history [get]
func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := h.tutor.GetSession(r.Context(), r.PathValue("sessionID"))
	if h.handleServiceError(w, err) {
		return
	}

	recent := sess.RecentHistory()
	response := make([]HistoryEntryResponse, len(recent))
	for i, e := range recent {
		response[i] = HistoryEntryResponse{
			Number:   i + 1,
			Question: e.Question,
			Answer:   e.Answer,
			AskedAt:  e.AskedAt,
		}
	}
	respondJSON(w, http.StatusOK, response)
}

// ── Mapping ─────────────────────────────────────────────────────────────────

func toSessionResponse(sess *tutorsession.Session) SessionResponse {
	resp := SessionResponse{
		ID:           sess.ID,
		Panel:        string(sess.Panel),
		Tab:          string(sess.Tab),
		Subject:      sess.Subject,
		Warning:      sess.Warning,
		HistoryCount: len(sess.History),
	}

	if sess.Quiz != nil {
		resp.Quiz = toQuizResponse(sess.Quiz)
	}
	if sess.LastAnswer != nil {
		resp.LastAnswer = &HistoryEntryResponse{
			Number:   1,
			Question: sess.LastAnswer.Question,
			Answer:   sess.LastAnswer.Answer,
			AskedAt:  sess.LastAnswer.AskedAt,
		}
	}
	return resp
}

func toQuizResponse(q *quiz.Quiz) *QuizResponse {
	questions := make([]QuizQuestionResponse, len(q.Questions))
	for i, question := range q.Questions {
		questions[i] = QuizQuestionResponse{
			Number:   i + 1,
			Question: question.Question,
			Options:  question.Options,
			Selected: q.Answers[question.Question],
		}
		if q.Submitted() {
			questions[i].Answer = question.Answer
		}
	}

	resp := &QuizResponse{
		Subject:   q.Subject,
		Questions: questions,
		Submitted: q.Submitted(),
	}
	if q.Result != nil {
		result := toResultResponse(*q.Result)
		resp.Result = &result
	}
	return resp
}

func toResultResponse(r quiz.Result) QuizResultResponse {
	return QuizResultResponse{
		Score:   r.Score,
		Total:   r.Total,
		Message: r.String(),
	}
}

// ── Decoding ────────────────────────────────────────────────────────────────

type validator interface {
	Validate() error
}

// decodeAndValidate decodes the body and runs its Validate method. On
// failure it writes a 400 and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v validator) bool {
	if !decodeJSON(w, r, v) {
		return false
	}
	if err := v.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
