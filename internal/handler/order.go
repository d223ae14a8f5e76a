package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderlab/order-intake/internal/domain/order"
)

// orderRequest is the creation payload. Validation happens here, before the
// service runs: malformed input never reaches the core.
type orderRequest struct {
	OrderID  uuid.UUID       `json:"orderId" validate:"required"`
	BarCode  string          `json:"barCode" validate:"required"`
	Quantity int             `json:"quantity" validate:"gte=1"`
	Price    decimal.Decimal `json:"price" validate:"gt=0"`
}

// orderResponse mirrors the persisted order, including the derived total.
type orderResponse struct {
	OrderID    uuid.UUID       `json:"orderId"`
	BarCode    string          `json:"barCode"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	TotalValue decimal.Decimal `json:"totalValue"`
	CreatedAt  time.Time       `json:"createdAt"`
	Status     order.Status    `json:"status"`
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		OrderID:    o.ID,
		BarCode:    o.BarCode,
		Quantity:   o.Quantity,
		Price:      o.UnitPrice,
		TotalValue: o.TotalValue,
		CreatedAt:  o.CreatedAt,
		Status:     o.Status,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	o, err := h.service.CreateOrder(r.Context(), order.CreateOrderRequest{
		OrderID:   req.OrderID,
		BarCode:   req.BarCode,
		Quantity:  req.Quantity,
		UnitPrice: req.Price,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("orderId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id: must be a UUID")
		return
	}

	o, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) totalOrderValue(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.TotalOrderValue(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	// A bare decimal number is the whole body.
	writeJSON(w, http.StatusOK, total)
}

// validationMessage renders the first field violation as a client-facing
// sentence ("The quantity must be at least 1.").
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}

	fe := verrs[0]
	switch fe.StructField() {
	case "OrderID":
		return "The orderId must be provided."
	case "BarCode":
		return "The barCode must be provided."
	case "Quantity":
		return "The quantity must be at least 1."
	case "Price":
		// An absent price decodes to zero, so missing and non-positive inputs
		// share one constraint and one message.
		return "The price must be greater than zero."
	}
	return "invalid request"
}
