package api

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/edututor-ai/backend/internal/domain/quiz"
	"github.com/edututor-ai/backend/internal/domain/tutorsession"
	"github.com/edututor-ai/backend/internal/store"
)

// sessionCookie carries the session ID. It has no expiry, so the browser
// drops it when the browsing session ends.
const sessionCookie = "edututor_session"

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ── View model ──────────────────────────────────────────────────────────────

type tabView struct {
	Tab    string
	Label  string
	Active bool
}

type optionView struct {
	Value   string
	Checked bool
}

type questionView struct {
	Index   int
	Number  int
	Text    string
	Options []optionView
}

type quizView struct {
	Questions []questionView
	Submitted bool
	Result    string
}

type historyView struct {
	Number   int
	Question string
	Answer   string
}

type pageView struct {
	Student            bool
	Tabs               []tabView
	Tab                string
	Subjects           []string
	Subject            string
	Warning            string
	Quiz               *quizView
	HistoryPlaceholder string
	LastAnswer         *tutorsession.HistoryEntry
	History            []historyView
	Notice             string
}

var studentTabs = []struct {
	tab   tutorsession.Tab
	label string
}{
	{tutorsession.TabQuiz, "📚 Take Quiz"},
	{tutorsession.TabHistory, "📊 Quiz History"},
	{tutorsession.TabAsk, "❓ Ask a Question"},
}

func (h *Handler) buildPageView(sess *tutorsession.Session) pageView {
	view := pageView{
		Student:            sess.Panel == tutorsession.PanelStudent,
		Tab:                string(sess.Tab),
		Subjects:           h.tutor.Subjects(),
		Subject:            sess.Subject,
		Warning:            sess.Warning,
		HistoryPlaceholder: tutorsession.HistoryPlaceholder,
		LastAnswer:         sess.LastAnswer,
	}

	for _, t := range studentTabs {
		view.Tabs = append(view.Tabs, tabView{
			Tab:    string(t.tab),
			Label:  t.label,
			Active: sess.Tab == t.tab,
		})
	}

	if q := sess.Quiz; q != nil {
		qv := &quizView{Submitted: q.Submitted()}
		for i, question := range q.Questions {
			v := questionView{
				Index:  i,
				Number: i + 1,
				Text:   question.Question,
			}
			for _, o := range question.Options {
				v.Options = append(v.Options, optionView{
					Value:   o,
					Checked: q.Answers[question.Question] == o,
				})
			}
			qv.Questions = append(qv.Questions, v)
		}
		if q.Result != nil {
			qv.Result = q.Result.String()
		}
		view.Quiz = qv
	}

	for i, e := range sess.RecentHistory() {
		view.History = append(view.History, historyView{
			Number:   i + 1,
			Question: e.Question,
			Answer:   e.Answer,
		})
	}

	return view
}

// ── Session resolution ──────────────────────────────────────────────────────

// pageSession returns the session named by the cookie, starting a new one
// (and setting the cookie) when there is none or it has expired. fresh
// reports that the session was started by this request, so nothing the
// browser posted refers to it.
func (h *Handler) pageSession(w http.ResponseWriter, r *http.Request) (sess *tutorsession.Session, fresh bool, err error) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		sess, err := h.tutor.GetSession(r.Context(), c.Value)
		if err == nil {
			return sess, false, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, false, err
		}
	}

	sess, err = h.tutor.StartSession(r.Context())
	if err != nil {
		return nil, false, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	return sess, true, nil
}

func (h *Handler) renderPage(w http.ResponseWriter, status int, view pageView) {
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, "page.html", view); err != nil {
		h.logger.Error("failed to render page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *Handler) pageError(w http.ResponseWriter, err error) {
	h.logger.Error("page error", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// parseForm bounds the body and parses it. On failure it writes a 400.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return false
	}
	return true
}

// ── Handlers ────────────────────────────────────────────────────────────────

// GET /
func (h *Handler) showPage(w http.ResponseWriter, r *http.Request) {
	sess, _, err := h.pageSession(w, r)
	if err != nil {
		h.pageError(w, err)
		return
	}
	h.renderPage(w, http.StatusOK, h.buildPageView(sess))
}

// POST /panel
func (h *Handler) postPanel(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	sess, _, err := h.pageSession(w, r)
	if err != nil {
		h.pageError(w, err)
		return
	}

	panel, err := tutorsession.ParsePanel(r.FormValue("panel"))
	if err != nil {
		panel = sess.Panel
	}
	tab, err := tutorsession.ParseTab(r.FormValue("tab"))
	if err != nil {
		tab = ""
	}

	if _, err := h.tutor.SelectPanel(r.Context(), sess.ID, panel, tab); err != nil {
		h.pageError(w, err)
		return
	}
	redirectHome(w, r)
}

// POST /quiz
func (h *Handler) postSubject(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	sess, _, err := h.pageSession(w, r)
	if err != nil {
		h.pageError(w, err)
		return
	}

	subject := r.FormValue("subject")
	if subject == "" {
		subject = sess.Subject
	}

	if _, err := h.tutor.SelectSubject(r.Context(), sess.ID, subject); err != nil {
		h.pageError(w, err)
		return
	}
	redirectHome(w, r)
}

// POST /quiz/submit
func (h *Handler) postQuiz(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	sess, fresh, err := h.pageSession(w, r)
	if err != nil {
		h.pageError(w, err)
		return
	}
	// A fresh session holds a quiz the browser never showed.
	if fresh || sess.Quiz == nil {
		redirectHome(w, r)
		return
	}

	// Radio groups are named q_<index> after the question's position.
	answers := make(map[string]string)
	for i, q := range sess.Quiz.Questions {
		if v := r.PostFormValue("q_" + strconv.Itoa(i)); v != "" {
			answers[q.Question] = v
		}
	}

	if _, _, err := h.tutor.SubmitQuiz(r.Context(), sess.ID, answers); err != nil {
		if !errors.Is(err, tutorsession.ErrNoQuiz) && !errors.Is(err, quiz.ErrAlreadyGraded) {
			h.pageError(w, err)
			return
		}
	}
	redirectHome(w, r)
}

// POST /ask
func (h *Handler) postQuestion(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	sess, _, err := h.pageSession(w, r)
	if err != nil {
		h.pageError(w, err)
		return
	}

	_, _, err = h.tutor.AskQuestion(r.Context(), sess.ID, r.PostFormValue("question"))
	if errors.Is(err, tutorsession.ErrEmptyQuestion) {
		view := h.buildPageView(sess)
		view.Tab = string(tutorsession.TabAsk)
		for i := range view.Tabs {
			view.Tabs[i].Active = view.Tabs[i].Tab == view.Tab
		}
		view.Student = true
		view.Notice = "Please enter a question."
		h.renderPage(w, http.StatusBadRequest, view)
		return
	}
	if err != nil {
		h.pageError(w, err)
		return
	}
	redirectHome(w, r)
}
