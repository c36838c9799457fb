package http

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
)

// AdminHandler exposes the moderator's management surface: login, question
// bank CRUD, room listing and deletion. Everything except login requires the
// admin password in the X-Admin-Password header.
type AdminHandler struct {
	service *app.GameService
	bank    app.QuestionBank
}

func NewAdminHandler(service *app.GameService, bank app.QuestionBank) *AdminHandler {
	return &AdminHandler{service: service, bank: bank}
}

func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/admin/login", h.login)
	mux.HandleFunc("GET /api/admin/questions", h.requireAdmin(h.listQuestions))
	mux.HandleFunc("POST /api/admin/questions", h.requireAdmin(h.createQuestion))
	mux.HandleFunc("PUT /api/admin/questions/{id}", h.requireAdmin(h.updateQuestion))
	mux.HandleFunc("DELETE /api/admin/questions/{id}", h.requireAdmin(h.deleteQuestion))
	mux.HandleFunc("GET /api/admin/rooms", h.requireAdmin(h.listRooms))
	mux.HandleFunc("DELETE /api/admin/rooms/{code}", h.requireAdmin(h.deleteRoom))
}

func (h *AdminHandler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.service.CheckAdminPassword(r.Header.Get("X-Admin-Password")) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (h *AdminHandler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !h.service.CheckAdminPassword(req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.bank.ListQuestions(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list questions")
		writeError(w, http.StatusInternalServerError, "list questions failed")
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *AdminHandler) createQuestion(w http.ResponseWriter, r *http.Request) {
	var q domain.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if msg, ok := validateQuestion(q); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	created, err := h.bank.CreateQuestion(r.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("create question")
		writeError(w, http.StatusInternalServerError, "create question failed")
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (h *AdminHandler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var q domain.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	q.ID = r.PathValue("id")
	if msg, ok := validateQuestion(q); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	updated, err := h.bank.UpdateQuestion(r.Context(), q)
	if err == domain.ErrQuestionNotFound {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("update question")
		writeError(w, http.StatusInternalServerError, "update question failed")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.bank.DeleteQuestion(r.Context(), r.PathValue("id")); err != nil {
		log.Error().Err(err).Msg("delete question")
		writeError(w, http.StatusInternalServerError, "delete question failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.ListRooms(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list rooms")
		writeError(w, http.StatusInternalServerError, "list rooms failed")
		return
	}
	if rooms == nil {
		rooms = []domain.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *AdminHandler) deleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRoom(r.Context(), r.PathValue("code")); err != nil {
		log.Error().Err(err).Msg("delete room")
		writeError(w, http.StatusInternalServerError, "delete room failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func validateQuestion(q domain.Question) (string, bool) {
	if q.Type != domain.QuestionTypeText && q.Type != domain.QuestionTypeImage {
		return "type must be text or image", false
	}
	if q.Content == "" {
		return "content is required", false
	}
	if q.CorrectAnswer != domain.AnswerReal && q.CorrectAnswer != domain.AnswerAI {
		return "correctAnswer must be REAL or AI", false
	}
	return "", true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
