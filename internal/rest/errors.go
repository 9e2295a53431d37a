package rest

import (
	"errors"
	"net/http"

	"vinmarket-be/internal/address"
	"vinmarket-be/internal/cart"
	"vinmarket-be/internal/inventory"
	"vinmarket-be/internal/logger"
	"vinmarket-be/internal/order"
	"vinmarket-be/internal/payment"
	"vinmarket-be/internal/utils"
	"vinmarket-be/internal/wine"

	"go.uber.org/zap"
)

var errBadRequest = errors.New("bad request")

const (
	codeValidation       = "VALIDATION_ERROR"
	codeNotFound         = "NOT_FOUND"
	codeForbidden        = "FORBIDDEN"
	codeUnauthorized     = "UNAUTHORIZED"
	codeConflict         = "CONFLICT"
	codeInsufficientQty  = "INSUFFICIENT_QUANTITY"
	codeOwnListing       = "CANNOT_BUY_OWN_LISTING"
	codeItemUnavailable  = "ITEM_UNAVAILABLE"
	codeEmptyCart        = "EMPTY_CART"
	codeAddressRequired  = "SHIPPING_ADDRESS_REQUIRED"
	codeCannotCancel     = "CANNOT_CANCEL_SHIPPED_OR_DELIVERED"
	codeUnsupported      = "UNSUPPORTED_PROVIDER"
	codeInvalidSignature = "INVALID_SIGNATURE"
	codeInternal         = "INTERNAL_ERROR"
)

type mappedError struct {
	status  int
	code    string
	details map[string]any
}

// mapError translates a domain error into an HTTP status and error code.
// ItemUnavailable wraps the ledger error that caused it, so it is matched
// before the ledger sentinels.
func mapError(err error) mappedError {
	var unavailable *order.ItemUnavailableError
	if errors.As(err, &unavailable) {
		details := map[string]any{
			"wineId": unavailable.WineID.String(),
			"title":  unavailable.Title,
		}
		var short *inventory.InsufficientQuantityError
		if errors.As(unavailable.Cause, &short) {
			details["available"] = short.Available
			details["requested"] = short.Requested
		}
		return mappedError{http.StatusConflict, codeItemUnavailable, details}
	}

	var short *inventory.InsufficientQuantityError
	if errors.As(err, &short) {
		return mappedError{http.StatusConflict, codeInsufficientQty, map[string]any{
			"available": short.Available,
			"requested": short.Requested,
		}}
	}

	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, wine.ErrWineNotFound),
		errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrCartItemNotFound),
		errors.Is(err, address.ErrAddressNotFound):
		return mappedError{status: http.StatusNotFound, code: codeNotFound}

	case errors.Is(err, order.ErrForbidden):
		return mappedError{status: http.StatusForbidden, code: codeForbidden}

	case errors.Is(err, address.ErrUnauthenticated):
		return mappedError{status: http.StatusUnauthorized, code: codeUnauthorized}

	case errors.Is(err, errBadRequest),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, address.ErrInvalidAddress):
		return mappedError{status: http.StatusBadRequest, code: codeValidation}

	case errors.Is(err, order.ErrEmptyCart):
		return mappedError{status: http.StatusBadRequest, code: codeEmptyCart}

	case errors.Is(err, order.ErrShippingAddressRequired):
		return mappedError{status: http.StatusBadRequest, code: codeAddressRequired}

	case errors.Is(err, payment.ErrUnsupportedProvider):
		return mappedError{status: http.StatusBadRequest, code: codeUnsupported}

	case errors.Is(err, payment.ErrInvalidSignature):
		return mappedError{status: http.StatusBadRequest, code: codeInvalidSignature}

	case errors.Is(err, inventory.ErrCannotBuyOwnListing):
		return mappedError{status: http.StatusConflict, code: codeOwnListing}

	case errors.Is(err, order.ErrCannotCancelShippedOrDelivered):
		return mappedError{status: http.StatusConflict, code: codeCannotCancel}

	case errors.Is(err, order.ErrInvalidStatusTransition),
		errors.Is(err, order.ErrOrderNotPayable),
		errors.Is(err, inventory.ErrListingUnavailable),
		errors.Is(err, wine.ErrQuantityConflict):
		return mappedError{status: http.StatusConflict, code: codeConflict}
	}

	return mappedError{status: http.StatusInternalServerError, code: codeInternal}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	m := mapError(err)

	msg := err.Error()
	if m.status == http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("layer", "handler"),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal server error"
	}

	utils.WriteJSON(w, m.status, utils.ErrorBody{
		Error:   m.code,
		Message: msg,
		Details: m.details,
	})
}
