package rpc

import (
	"errors"
	"net/http"

	"github.com/zapit-io/p2p-evmContract/dispatch"
	"github.com/zapit-io/p2p-evmContract/native/common"
	"github.com/zapit-io/p2p-evmContract/native/escrow"
	"github.com/zapit-io/p2p-evmContract/state"
)

const (
	codeInvalidParams = -32602
	codeUnauthorized  = -32001
	codeNotFound      = -32004
	codeConflict      = -32009
	codeServerError   = -32000
)

// APIError is the wire representation of a failed request.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// statusFor maps domain errors onto an HTTP status and an error code. Unknown
// errors surface as a plain server error so internals never leak.
func statusFor(err error) (int, int) {
	switch {
	case errors.Is(err, dispatch.ErrRouteNotFound),
		errors.Is(err, escrow.ErrEscrowDoesNotExist),
		errors.Is(err, dispatch.ErrOperationMissing):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, escrow.ErrNotBuyer),
		errors.Is(err, escrow.ErrInvalidSellerSignature),
		errors.Is(err, escrow.ErrInvalidArbitratorSignature):
		return http.StatusForbidden, codeUnauthorized
	case errors.Is(err, escrow.ErrTradeExists),
		errors.Is(err, dispatch.ErrDuplicateOperation),
		errors.Is(err, dispatch.ErrAlreadyInitialized),
		errors.Is(err, common.ErrPaused):
		return http.StatusConflict, codeConflict
	case errors.Is(err, escrow.ErrIncorrectAmount),
		errors.Is(err, escrow.ErrCurrencyNotWhitelisted),
		errors.Is(err, state.ErrInsufficientBalance),
		errors.Is(err, dispatch.ErrModuleUnknown):
		return http.StatusBadRequest, codeInvalidParams
	default:
		return http.StatusInternalServerError, codeServerError
	}
}
