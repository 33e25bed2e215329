// internal/api/router.go
package api

import "net/http"

// RegisterRoutes mounts the page and the JSON API on mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Page
	mux.HandleFunc("GET /{$}", h.showPage)
	mux.HandleFunc("POST /panel", h.postPanel)
	mux.HandleFunc("POST /quiz", h.postSubject)
	mux.HandleFunc("POST /quiz/submit", h.postQuiz)
	mux.HandleFunc("POST /ask", h.postQuestion)

	// Subjects
	mux.HandleFunc("GET /api/subjects", h.listSubjects)

	// Sessions
	mux.HandleFunc("POST /api/sessions", h.createSession)
	mux.HandleFunc("GET /api/sessions/{sessionID}", h.getSession)
	mux.HandleFunc("PUT /api/sessions/{sessionID}/panel", h.selectPanel)
	mux.HandleFunc("POST /api/sessions/{sessionID}/quiz", h.startQuiz)
	mux.HandleFunc("POST /api/sessions/{sessionID}/quiz/submit", h.submitQuiz)
	mux.HandleFunc("POST /api/sessions/{sessionID}/questions", h.askQuestion)
	mux.HandleFunc("GET /api/sessions/{sessionID}/history", h.getHistory)
}
