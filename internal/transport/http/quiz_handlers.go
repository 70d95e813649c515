package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mindvault/internal/app"
	"mindvault/internal/domain"
)

type quizHandler struct {
	service *app.QuizService
}

type quizResponse struct {
	Quiz           []domain.QuizItem `json:"quiz"`
	TotalQuestions int               `json:"totalQuestions"`
}

type submitRequest struct {
	Answers        map[string]string `json:"answers"`
	TimeElapsed    int               `json:"timeElapsed"`
	TotalQuestions *int              `json:"totalQuestions"`
	CorrectAnswers *int              `json:"correctAnswers"`
	Percentage     *int              `json:"percentage"`
}

type submitResponse struct {
	Message string              `json:"message"`
	Result  domain.QuizResult   `json:"result"`
	Summary domain.ScoreSummary `json:"summary"`
}

func (h *quizHandler) get(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.GetQuiz(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "folderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizResponse{Quiz: quiz.Items, TotalQuestions: len(quiz.Items)})
}

func (h *quizHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, summary, err := h.service.Submit(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "folderId"), app.Submission{
		Answers:            req.Answers,
		TimeElapsedSeconds: req.TimeElapsed,
		ClaimedTotal:       req.TotalQuestions,
		ClaimedCorrect:     req.CorrectAnswers,
		ClaimedPercentage:  req.Percentage,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		Message: "Quiz result saved successfully",
		Result:  result,
		Summary: summary,
	})
}

// history serves both /history and /history/{folderId}.
func (h *quizHandler) history(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.History(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "folderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *quizHandler) analytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.service.Analytics(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "folderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}
