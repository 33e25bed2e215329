package api

import "net/http"

// ── Request / Response types ────────────────────────────────────────────────

type SubjectResponse struct {
	Name          string `json:"name"`
	QuestionCount int    `json:"question_count"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// listSubjects godoc
// @Summary      List subjects
// @Description  Subjects in selector order with the number of stored questions.
// @Tags         subjects
// @Produce      json
// @Success      200  {array}  SubjectResponse
// @Router       /api/subjects [get]
func (h *Handler) listSubjects(w http.ResponseWriter, r *http.Request) {
	subjects := h.tutor.Subjects()

	response := make([]SubjectResponse, len(subjects))
	for i, name := range subjects {
		response[i] = SubjectResponse{
			Name:          name,
			QuestionCount: h.tutor.QuestionCount(name),
		}
	}

	respondJSON(w, http.StatusOK, response)
}
