package app

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chevai/smartchat/common/version"
	"github.com/chevai/smartchat/internal/smartchat/chat"
)

func (a *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/ws", chat.NewHandler(a.hub, a.cfg.AdminKey, a.cfg.AllowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/chat/history", a.handleHistory)
		r.Post("/chat/feedback", a.handleFeedback)
		r.Get("/ai/stats", a.handleAIStats)
		r.Get("/learning/stats/{userID}", a.handleLearningStats)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (a *App) handleHistory(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "roomId is required")
		return
	}

	messages, err := a.transcript().RecentMessages(r.Context(), roomID, 50)
	if err != nil {
		slog.Warn("history query failed", "room", roomID, "err", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, chat.HistoryPayload{RoomID: roomID, Messages: messages})
}

// feedbackRequest is the body of POST /api/chat/feedback. Rating is 1 to 5
// stars on the assistant's last reply.
type feedbackRequest struct {
	UserID string `json:"userId"`
	Rating int    `json:"rating"`
}

func (a *App) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	a.router.ReceiveFeedback(req.UserID, req.Rating)
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (a *App) handleAIStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.router.Stats())
}

func (a *App) handleLearningStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	stats, err := a.learner.Stats(r.Context(), userID)
	if err != nil {
		slog.Warn("learning stats failed", "user", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
