package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/edututor-ai/backend/internal/api"
	"github.com/edututor-ai/backend/internal/domain/questionbank"
	"github.com/edututor-ai/backend/internal/inference"
	"github.com/edututor-ai/backend/internal/service"
	"github.com/edututor-ai/backend/internal/store"
)

var testQuestions = map[string][]questionbank.Question{
	"Artificial Intelligence": {
		{Question: "What does AI stand for?", Options: []string{"Artificial Intelligence", "Apple Inc"}, Answer: "Artificial Intelligence"},
	},
	"Mathematics": {
		{Question: "2+2?", Options: []string{"3", "4"}, Answer: "4"},
		{Question: "3*3?", Options: []string{"9", "6"}, Answer: "9"},
		{Question: "10/2?", Options: []string{"5", "2"}, Answer: "5"},
	},
}

func correctAnswer(question string) string {
	for _, qs := range testQuestions {
		for _, q := range qs {
			if q.Question == question {
				return q.Answer
			}
		}
	}
	return ""
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	s, err := store.NewSQLite(store.MemoryPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	asker := inference.AskerFunc(func(ctx context.Context, q string) string {
		return "answer to " + q
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewTutorService(s, questionbank.New(testQuestions), asker, logger, service.Options{})

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.NewHandler(svc, logger))

	srv := httptest.NewServer(api.Recover(logger)(mux))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func createSession(t *testing.T, srv *httptest.Server) api.SessionResponse {
	t.Helper()
	var sess api.SessionResponse
	if status := doJSON(t, http.MethodPost, srv.URL+"/api/sessions", nil, &sess); status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	return sess
}

func TestListSubjects(t *testing.T) {
	srv := newTestServer(t)

	var subjects []api.SubjectResponse
	if status := doJSON(t, http.MethodGet, srv.URL+"/api/subjects", nil, &subjects); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	if len(subjects) != 4 {
		t.Fatalf("expected 4 subjects, got %+v", subjects)
	}
	if subjects[0].Name != "Artificial Intelligence" || subjects[0].QuestionCount != 1 {
		t.Errorf("unexpected first subject %+v", subjects[0])
	}
	if subjects[2].Name != "Generative AI" || subjects[2].QuestionCount != 0 {
		t.Errorf("expected Generative AI without questions, got %+v", subjects[2])
	}
}

func TestGetSession_NotFound(t *testing.T) {
	srv := newTestServer(t)

	var errResp api.ErrorResponse
	status := doJSON(t, http.MethodGet, srv.URL+"/api/sessions/missing", nil, &errResp)
	if status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
	if errResp.Error != "session not found" {
		t.Errorf("unexpected error body %q", errResp.Error)
	}
}

func TestQuizFlow_MathematicsScenario(t *testing.T) {
	srv := newTestServer(t)
	sess := createSession(t, srv)
	base := srv.URL + "/api/sessions/" + sess.ID

	var started api.SessionResponse
	status := doJSON(t, http.MethodPost, base+"/quiz", api.StartQuizRequest{Subject: "Mathematics"}, &started)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if started.Quiz == nil || len(started.Quiz.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %+v", started.Quiz)
	}
	for _, q := range started.Quiz.Questions {
		if q.Answer != "" {
			t.Errorf("answer leaked before submission for %q", q.Question)
		}
	}

	// Two right, one left blank.
	answers := map[string]string{}
	for _, q := range started.Quiz.Questions[:2] {
		answers[q.Question] = correctAnswer(q.Question)
	}

	var result api.QuizResultResponse
	status = doJSON(t, http.MethodPost, base+"/quiz/submit", api.SubmitQuizRequest{Answers: answers}, &result)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if result.Score != 2 || result.Total != 3 {
		t.Errorf("expected 2/3, got %d/%d", result.Score, result.Total)
	}
	if result.Message != "✅ You scored 2/3" {
		t.Errorf("unexpected message %q", result.Message)
	}

	var errResp api.ErrorResponse
	status = doJSON(t, http.MethodPost, base+"/quiz/submit", api.SubmitQuizRequest{Answers: answers}, &errResp)
	if status != http.StatusConflict {
		t.Errorf("expected 409 on second submission, got %d", status)
	}
}

func TestStartQuiz_SubjectWithoutQuestions(t *testing.T) {
	srv := newTestServer(t)
	sess := createSession(t, srv)

	var updated api.SessionResponse
	status := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+sess.ID+"/quiz",
		api.StartQuizRequest{Subject: "Generative AI"}, &updated)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if updated.Quiz != nil {
		t.Errorf("expected no quiz, got %+v", updated.Quiz)
	}
	if updated.Warning == "" {
		t.Error("expected a warning")
	}
}

func TestSelectPanel_InvalidPanel(t *testing.T) {
	srv := newTestServer(t)
	sess := createSession(t, srv)

	status := doJSON(t, http.MethodPut, srv.URL+"/api/sessions/"+sess.ID+"/panel",
		api.SelectPanelRequest{Panel: "admin"}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestSelectPanel_Educator(t *testing.T) {
	srv := newTestServer(t)
	sess := createSession(t, srv)

	var updated api.SessionResponse
	status := doJSON(t, http.MethodPut, srv.URL+"/api/sessions/"+sess.ID+"/panel",
		api.SelectPanelRequest{Panel: "educator"}, &updated)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if updated.Panel != "educator" {
		t.Errorf("expected educator panel, got %q", updated.Panel)
	}
}

func TestAskQuestion_EmptyQuestion(t *testing.T) {
	srv := newTestServer(t)
	sess := createSession(t, srv)

	status := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+sess.ID+"/questions",
		api.AskQuestionRequest{Question: "   "}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestAskQuestion_HistoryMostRecentFirst(t *testing.T) {
	srv := newTestServer(t)
	sess := createSession(t, srv)
	base := srv.URL + "/api/sessions/" + sess.ID

	for _, q := range []string{"What is ML?", "  What is a GAN?  "} {
		var entry api.HistoryEntryResponse
		status := doJSON(t, http.MethodPost, base+"/questions", api.AskQuestionRequest{Question: q}, &entry)
		if status != http.StatusCreated {
			t.Fatalf("expected 201, got %d", status)
		}
	}

	var history []api.HistoryEntryResponse
	if status := doJSON(t, http.MethodGet, base+"/history", nil, &history); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].Question != "What is a GAN?" || history[0].Number != 1 {
		t.Errorf("expected newest entry first, got %+v", history[0])
	}
	if history[1].Answer != "answer to What is ML?" {
		t.Errorf("unexpected answer %q", history[1].Answer)
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	srv := newTestServer(t)
	sess := createSession(t, srv)

	resp, err := http.Post(srv.URL+"/api/sessions/"+sess.ID+"/questions", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

// ── Page ────────────────────────────────────────────────────────────────────

// browser keeps cookies and stops at redirects so both hops can be checked.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
	cookie *http.Cookie
}

func newBrowser(t *testing.T, srv *httptest.Server) *browser {
	return &browser{
		t:    t,
		base: srv.URL,
		client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(req *http.Request) (int, string) {
	b.t.Helper()
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		b.t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == "edututor_session" {
			b.cookie = c
		}
	}
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func (b *browser) get() string {
	b.t.Helper()
	req, _ := http.NewRequest(http.MethodGet, b.base+"/", nil)
	status, body := b.do(req)
	if status != http.StatusOK {
		b.t.Fatalf("expected 200, got %d", status)
	}
	return body
}

func (b *browser) post(path string, form url.Values) int {
	b.t.Helper()
	req, _ := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	status, _ := b.do(req)
	return status
}

func TestPage_InitialRender(t *testing.T) {
	b := newBrowser(t, newTestServer(t))

	body := b.get()

	for _, want := range []string{
		"🎓 EduTutor AI",
		"Welcome to your personalized AI learning assistant!",
		"Student Panel",
		"Educator Panel",
		"📚 Take Quiz",
		"📊 Quiz History",
		"❓ Ask a Question",
		"Q1: What does AI stand for?",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}
	if b.cookie == nil {
		t.Fatal("expected a session cookie")
	}
	if !b.cookie.HttpOnly {
		t.Error("expected an HttpOnly cookie")
	}
}

func TestPage_QuizSubmission(t *testing.T) {
	b := newBrowser(t, newTestServer(t))
	b.get()

	if status := b.post("/quiz/submit", url.Values{"q_0": {"Artificial Intelligence"}}); status != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", status)
	}

	body := b.get()
	if !strings.Contains(body, "✅ You scored 1/1") {
		t.Errorf("expected score on page, got:\n%s", body)
	}
}

func TestPage_SubjectWithoutQuestions(t *testing.T) {
	b := newBrowser(t, newTestServer(t))
	b.get()

	b.post("/quiz", url.Values{"subject": {"Generative AI"}})

	body := b.get()
	if !strings.Contains(body, "No questions available") {
		t.Error("expected no-questions warning")
	}
	if strings.Contains(body, "Submit Quiz") {
		t.Error("expected no quiz form")
	}
}

func TestPage_AskQuestion(t *testing.T) {
	b := newBrowser(t, newTestServer(t))
	b.get()

	if status := b.post("/ask", url.Values{"question": {"What is ML?"}}); status != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", status)
	}
	b.post("/ask", url.Values{"question": {"What is a GAN?"}})

	body := b.get()
	for _, want := range []string{
		"🤖 Ask a Question (powered by Hugging Face)",
		"Answer:",
		"🧾 Your Question & Answer Dashboard",
		"🧠 A:",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}

	newest := strings.Index(body, "What is a GAN?")
	older := strings.Index(body, "What is ML?")
	if newest < 0 || older < 0 || newest > older {
		t.Error("expected the newest question to be listed first")
	}
}

func TestPage_BlankQuestionRejected(t *testing.T) {
	b := newBrowser(t, newTestServer(t))
	b.get()

	if status := b.post("/ask", url.Values{"question": {"   "}}); status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestPage_EducatorPanel(t *testing.T) {
	b := newBrowser(t, newTestServer(t))
	b.get()

	b.post("/panel", url.Values{"panel": {"educator"}})

	body := b.get()
	for _, want := range []string{
		"📊 Educator Dashboard",
		"Monitor student engagement and quiz performance.",
		"🚧 More analytics features coming soon!",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}
	if strings.Contains(body, "📚 Take Quiz") {
		t.Error("expected student tabs to be hidden")
	}
}

func TestPage_HistoryTab(t *testing.T) {
	b := newBrowser(t, newTestServer(t))
	b.get()

	b.post("/panel", url.Values{"panel": {"student"}, "tab": {"history"}})

	body := b.get()
	if !strings.Contains(body, "Quiz history will be available after backend integration.") {
		t.Error("expected history placeholder")
	}
}

func TestPage_QuizSubmissionWithUnknownSession(t *testing.T) {
	b := newBrowser(t, newTestServer(t))
	b.cookie = &http.Cookie{Name: "edututor_session", Value: "expired-session-id"}

	if status := b.post("/quiz/submit", url.Values{"q_0": {"Artificial Intelligence"}}); status != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", status)
	}
	if b.cookie.Value == "expired-session-id" {
		t.Fatal("expected a new session cookie")
	}

	body := b.get()
	if strings.Contains(body, "You scored") {
		t.Error("expected the new session's quiz to stay ungraded")
	}
	if !strings.Contains(body, "Submit Quiz") {
		t.Error("expected the new quiz to be offered")
	}
}

func TestPage_AnswerShownOnlyUntilNextEvent(t *testing.T) {
	b := newBrowser(t, newTestServer(t))
	b.get()

	b.post("/ask", url.Values{"question": {"What is ML?"}})
	if body := b.get(); !strings.Contains(body, "<h3>Answer:</h3>") {
		t.Fatal("expected the answer right after asking")
	}

	b.post("/panel", url.Values{"panel": {"student"}, "tab": {"history"}})
	b.post("/panel", url.Values{"panel": {"student"}, "tab": {"ask"}})

	body := b.get()
	if strings.Contains(body, "<h3>Answer:</h3>") {
		t.Error("expected the answer heading to be gone after switching tabs")
	}
	if !strings.Contains(body, "answer to What is ML?") {
		t.Error("expected the exchange to remain in the dashboard")
	}
}

func TestPage_Labels(t *testing.T) {
	b := newBrowser(t, newTestServer(t))

	body := b.get()
	for _, want := range []string{"Select Panel", "Choose Subject"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}

	b.post("/panel", url.Values{"panel": {"student"}, "tab": {"ask"}})
	if body := b.get(); !strings.Contains(body, "Ask your question:") {
		t.Error(`expected page to contain "Ask your question:"`)
	}
}
