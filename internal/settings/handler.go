package settings

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/karyana-pos/karyana-pos/internal/platform/httpx"
	"github.com/karyana-pos/karyana-pos/internal/shared"
)

// Handler wires HTTP endpoints for settings.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs settings handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/settings", h.handleAll)
	r.Get("/settings/{key}", h.handleGet)
	r.Put("/settings/{key}", h.handleSet)
}

type settingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type setRequest struct {
	Value string `json:"value"`
}

func (h *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.All(r.Context())
	if err != nil {
		h.respondError(w, "list settings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, all)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := h.service.Get(r.Context(), key)
	if err != nil {
		h.respondError(w, "get setting", err)
		return
	}
	httpx.JSON(w, http.StatusOK, settingResponse{Key: key, Value: value})
}

func (h *Handler) handleSet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req setRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.service.Set(r.Context(), key, req.Value); err != nil {
		h.respondError(w, "set setting", err)
		return
	}
	httpx.JSON(w, http.StatusOK, settingResponse{Key: key, Value: req.Value})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrKeyRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error(op, slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
