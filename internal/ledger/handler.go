package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/karyana-pos/karyana-pos/internal/platform/httpx"
	"github.com/karyana-pos/karyana-pos/internal/shared"
)

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/movements", h.handleListMovements)
	r.Post("/movements", h.handleRecordMovement)
	r.Post("/receipts", h.handleReceivePacks)
}

type movementRequest struct {
	ProductID   int64               `json:"product_id" validate:"required,gt=0"`
	Qty         decimal.Decimal     `json:"qty" validate:"required"`
	Reason      string              `json:"reason" validate:"required"`
	ReferenceID string              `json:"reference_id"`
	RelatedDoc  string              `json:"related_doc"`
	Unit        string              `json:"unit"`
	CostTotal   decimal.NullDecimal `json:"cost_total"`
}

type receiptRequest struct {
	ProductID   int64               `json:"product_id" validate:"required,gt=0"`
	NumPacks    int64               `json:"num_packs" validate:"required,gt=0"`
	CostTotal   decimal.NullDecimal `json:"cost_total"`
	ReferenceID string              `json:"reference_id"`
}

type movementResponse struct {
	MovementID int64 `json:"movement_id"`
}

func (h *Handler) handleRecordMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, err := h.service.RecordMovement(r.Context(), MovementInput{
		ProductID:   req.ProductID,
		Qty:         req.Qty,
		Reason:      req.Reason,
		ReferenceID: req.ReferenceID,
		RelatedDoc:  req.RelatedDoc,
		Unit:        req.Unit,
		CostTotal:   req.CostTotal,
		CreatedBy:   shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondError(w, "record movement", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movementResponse{MovementID: id})
}

func (h *Handler) handleReceivePacks(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, err := h.service.ReceivePacks(r.Context(), ReceiveInput{
		ProductID:   req.ProductID,
		NumPacks:    req.NumPacks,
		CostTotal:   req.CostTotal,
		ReferenceID: req.ReferenceID,
		CreatedBy:   shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondError(w, "receive packs", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movementResponse{MovementID: id})
}

func (h *Handler) handleListMovements(w http.ResponseWriter, r *http.Request) {
	filter := MovementFilter{Reason: r.URL.Query().Get("reason")}
	if v := r.URL.Query().Get("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product_id must be an integer")
			return
		}
		filter.ProductID = id
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			filter.Limit = limit
		}
	}
	movements, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list movements", err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidProduct), errors.Is(err, ErrReasonRequired), errors.Is(err, ErrInvalidPackCount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error(op, slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
