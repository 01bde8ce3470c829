package dispatch

import "errors"

var (
	errNilState = errors.New("dispatcher: state not configured")

	// ErrRouteNotFound is returned when an invoked operation has no module
	// bound to it.
	ErrRouteNotFound = errors.New("dispatcher: route not found")
	// ErrDuplicateOperation is returned by Add cuts targeting an operation
	// that already routes to a module.
	ErrDuplicateOperation = errors.New("dispatcher: operation already bound")
	// ErrOperationMissing is returned by Replace cuts targeting an
	// operation with no current binding.
	ErrOperationMissing = errors.New("dispatcher: operation not bound")
	// ErrModuleUnknown is returned when a cut names a module that was never
	// registered with the dispatcher.
	ErrModuleUnknown = errors.New("dispatcher: module not registered")
	// ErrAlreadyInitialized is returned when an upgrade carries an init
	// call after the initialization epoch has closed.
	ErrAlreadyInitialized = errors.New("dispatcher: already initialized")
)
