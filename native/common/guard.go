package common

import "errors"

var (
	// ErrPaused is returned when trade creation is attempted while the
	// global circuit breaker is engaged.
	ErrPaused = errors.New("market paused")
	// ErrUnauthorized is returned when a caller lacks the owner or role
	// privilege an administrative operation requires.
	ErrUnauthorized = errors.New("unauthorized account")
)

// PauseView exposes the creation circuit breaker to the engines.
type PauseView interface {
	Paused() (bool, error)
}

// Guard returns ErrPaused when the market is paused. A nil view means no
// pause gating.
func Guard(p PauseView) error {
	if p == nil {
		return nil
	}
	paused, err := p.Paused()
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}
	return nil
}
