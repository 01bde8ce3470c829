package escrow

import "errors"

var (
	errNilState = errors.New("escrow engine: state not configured")

	// ErrTradeExists is returned when the derived trade identifier already
	// names an active trade.
	ErrTradeExists = errors.New("escrow: trade already exists")
	// ErrEscrowDoesNotExist is returned by terminal operations on an
	// identifier that was never created or is already resolved.
	ErrEscrowDoesNotExist = errors.New("escrow: escrow does not exist")
	// ErrIncorrectAmount is returned when the attached native value does
	// not equal value plus the seller's half-fee.
	ErrIncorrectAmount = errors.New("escrow: incorrect amount")
	// ErrCurrencyNotWhitelisted is returned when a token trade references
	// an asset outside the whitelist.
	ErrCurrencyNotWhitelisted = errors.New("escrow: currency not whitelisted")
	// ErrNotBuyer is returned when anyone but the trade's buyer attempts a
	// cancellation.
	ErrNotBuyer = errors.New("escrow: caller is not the buyer")
	// ErrInvalidSellerSignature is returned when the completion proof was
	// not signed by the trade's seller.
	ErrInvalidSellerSignature = errors.New("escrow: invalid seller signature")
	// ErrInvalidArbitratorSignature is returned when a dispute claim was
	// not signed by the current arbitrator.
	ErrInvalidArbitratorSignature = errors.New("escrow: invalid arbitrator signature")
)
