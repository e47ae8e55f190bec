package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/karyana-pos/karyana-pos/internal/platform/httpx"
	"github.com/karyana-pos/karyana-pos/internal/shared"
)

// Handler wires HTTP endpoints for sales.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs sales handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sales", h.handleCreate)
	r.Get("/sales", h.handleList)
	r.Get("/sales/{id}", h.handleGet)
}

type saleItemRequest struct {
	ProductID        int64           `json:"product_id" validate:"required,gt=0"`
	Qty              decimal.Decimal `json:"qty" validate:"required"`
	PricePerUnit     decimal.Decimal `json:"price_per_unit"`
	BasePricePerUnit decimal.Decimal `json:"base_price_per_unit"`
	InputUnit        string          `json:"input_unit"`
	LineDiscount     decimal.Decimal `json:"line_discount"`
}

type createSaleRequest struct {
	Items         []saleItemRequest `json:"items" validate:"dive"`
	PaymentMethod string            `json:"payment_method"`
	Note          string            `json:"note"`
}

type createSaleResponse struct {
	SaleID int64 `json:"sale_id"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateSaleInput{
		CreatedBy:     shared.ActorFromContext(r.Context()),
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
	}
	for _, it := range req.Items {
		input.Items = append(input.Items, SaleItemInput{
			ProductID:        it.ProductID,
			Qty:              it.Qty,
			PricePerUnit:     it.PricePerUnit,
			BasePricePerUnit: it.BasePricePerUnit,
			InputUnit:        it.InputUnit,
			LineDiscount:     it.LineDiscount,
		})
	}
	id, err := h.service.CreateSale(r.Context(), input)
	if err != nil {
		h.respondError(w, "create sale", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, createSaleResponse{SaleID: id})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be an integer")
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.respondError(w, "get sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
			return
		}
		filter.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
			return
		}
		filter.To = t
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			filter.Limit = limit
		}
	}
	result, err := h.service.ListSales(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list sales", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidItemQty), errors.Is(err, ErrInvalidItemProduct):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error(op, slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
