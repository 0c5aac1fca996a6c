package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/session"
)

// StatusProvider is the slice of the session manager the operator surface
// needs.
type StatusProvider interface {
	GetStatus() session.Status
	Disconnect(ctx context.Context) error
}

type OperatorHandler struct {
	session StatusProvider
	auth    func(http.Handler) http.Handler
	limit   func(http.Handler) http.Handler
}

func NewOperatorHandler(
	sessionManager StatusProvider,
	auth func(http.Handler) http.Handler,
	limit func(http.Handler) http.Handler,
) *OperatorHandler {
	return &OperatorHandler{
		session: sessionManager,
		auth:    auth,
		limit:   limit,
	}
}

func (h *OperatorHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(h.limit)
		r.Use(h.auth)
		r.Get("/status", h.Status)
		r.Get("/config", h.ConfigPage)
		r.Post("/disconnect", h.Disconnect)
	})

	return r
}

func (h *OperatorHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *OperatorHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.GetStatus())
}

func (h *OperatorHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Disconnect(r.Context()); err != nil {
		log.Error().Err(err).Msg("operator disconnect failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "Erro ao desconectar WhatsApp",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "WhatsApp desconectado com sucesso",
	})
}
