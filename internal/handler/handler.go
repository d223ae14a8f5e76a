// Package handler is the HTTP boundary adapter: it deserializes and validates
// requests, invokes the order service, and maps results and domain errors to
// the transport format.
package handler

import (
	"encoding/json"
	"net/http"
	"reflect"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orderlab/order-intake/internal/domain/order"
)

// Timestamps in error bodies use this layout, e.g. "2026-08-29 14:03:07".
const timestampLayout = "2006-01-02 15:04:05"

func init() {
	// Monetary fields are serialized as bare JSON numbers with their exact
	// decimal digits rather than quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Handler serves the order-intake API.
type Handler struct {
	service  *order.Service
	validate *validator.Validate
}

// New constructs a Handler around the given order service.
func New(service *order.Service) *Handler {
	v := validator.New()
	// Expose decimal values to the validator as floats so numeric tags
	// (gt=0) apply. Validation only gates the request; the exact decimal
	// flows to the service untouched.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return &Handler{
		service:  service,
		validate: v,
	}
}

// Routes registers the API endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/api/orders", h.createOrder)
	mux.HandleFunc("GET /v1/api/orders/total-value", h.totalOrderValue)
	mux.HandleFunc("GET /v1/api/orders/{orderId}", h.getOrder)
}

// errorResponse is the transport shape for every error produced by the API.
type errorResponse struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Best effort: the status code is already written. A failure here means
	// the client disconnected.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().Format(timestampLayout),
	})
}

// writeDomainError maps domain error kinds to transport status codes. Causes
// are logged but never leak verbatim to the client beyond the summary message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var nfErr *order.NotFoundError
	if errors.As(err, &nfErr) {
		writeError(w, http.StatusNotFound, nfErr.Error())
		return
	}

	var pErr *order.PersistenceError
	if errors.As(err, &pErr) {
		zctx.From(r.Context()).Error("Persistence failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database Persistence Error: "+pErr.Message)
		return
	}

	zctx.From(r.Context()).Error("Unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}
