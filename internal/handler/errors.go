package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/checkout-core/internal/domain/auth"
	"github.com/xenking/checkout-core/internal/domain/order"
	"github.com/xenking/checkout-core/internal/domain/payment"
)

// Stable machine-readable error kinds of the API.
const (
	codeValidation = "validation_error"
	codeNotFound   = "not_found"
	codeUnauth     = "unauthorized"
	codeForbidden  = "forbidden"
	codeConflict   = "conflict"
	codeSecurity   = "security_error"
	codeUpstream   = "upstream_error"
	codeInternal   = "internal_error"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Code: code, Message: message}); err != nil {
		zctx.From(ctx).Warn("write error response", zap.Error(err))
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(ctx).Warn("write response", zap.Error(err))
	}
}

// writeDomainError maps domain errors to the wire taxonomy. Unknown errors
// are logged and reported as opaque 500s.
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		iqErr      *order.InvalidQuantityError
		pnfErr     *order.ProductNotFoundError
		stockErr   *order.InsufficientStockError
		addrErr    *order.IncompleteAddressError
		ceilErr    *order.PaymentCeilingError
		statusErr  *order.InvalidStatusError
		gatewayErr *order.GatewayError
	)

	switch {
	case errors.Is(err, order.ErrEmptyItems):
		writeError(ctx, w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.As(err, &iqErr):
		writeError(ctx, w, http.StatusBadRequest, codeValidation, iqErr.Error())
	case errors.As(err, &addrErr):
		writeError(ctx, w, http.StatusBadRequest, codeValidation, addrErr.Error())
	case errors.As(err, &statusErr):
		writeError(ctx, w, http.StatusBadRequest, codeValidation, statusErr.Error())
	case errors.As(err, &pnfErr):
		writeError(ctx, w, http.StatusNotFound, codeNotFound, pnfErr.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(ctx, w, http.StatusNotFound, codeNotFound, "order not found")
	case errors.As(err, &stockErr):
		writeError(ctx, w, http.StatusConflict, codeConflict, stockErr.Error())
	case errors.As(err, &ceilErr):
		writeError(ctx, w, http.StatusConflict, codeConflict, ceilErr.Error())
	case errors.Is(err, payment.ErrInvalidSignature):
		// Deliberately vague: no hint about which part of the payload failed.
		writeError(ctx, w, http.StatusBadRequest, codeSecurity, "payment verification failed")
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(ctx, w, http.StatusUnauthorized, codeUnauth, "unauthorized")
	case errors.As(err, &gatewayErr):
		zctx.From(ctx).Error("payment gateway failure", zap.Error(err))
		writeError(ctx, w, http.StatusBadGateway, codeUpstream, "payment gateway unavailable")
	default:
		zctx.From(ctx).Error("unhandled error", zap.Error(err))
		writeError(ctx, w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
