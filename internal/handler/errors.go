package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/instasupply/internal/domain/apperr"
	"github.com/xenking/instasupply/internal/domain/auth"
	"github.com/xenking/instasupply/internal/domain/order"
)

// classify maps a domain error to its HTTP status and client message. A zero
// status means the error is internal and must not reach the client.
func classify(err error) (int, string) {
	var (
		validation *apperr.ValidationError
		notFound   *apperr.NotFoundError
		conflict   *apperr.ConflictError
		badID      *order.InvalidProductIDError
		badQty     *order.InvalidQuantityError
		noStock    *order.InsufficientStockError
		noProduct  *order.ProductNotFoundError
		transition *order.TransitionError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case errors.As(err, &badID):
		return http.StatusBadRequest, badID.Error()
	case errors.As(err, &badQty):
		return http.StatusBadRequest, badQty.Error()
	case errors.As(err, &noStock):
		return http.StatusBadRequest, noStock.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.As(err, &noProduct):
		return http.StatusNotFound, noProduct.Error()
	case errors.As(err, &conflict):
		return http.StatusConflict, conflict.Error()
	case errors.As(err, &transition):
		return http.StatusConflict, transition.Error()
	}
	return 0, ""
}

// handleError writes err as a JSON error. Internal failures are logged and
// answered with fallback.
func handleError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if code, msg := classify(err); code != 0 {
		writeError(w, r, code, msg)
		return
	}
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	if errors.Is(err, auth.ErrMailDelivery) {
		fallback = auth.ErrMailDelivery.Error()
	}
	writeError(w, r, http.StatusInternalServerError, fallback)
}
