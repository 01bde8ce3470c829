package admin

import (
	"errors"
	"fmt"

	"github.com/zapit-io/p2p-evmContract/dispatch"
	"github.com/zapit-io/p2p-evmContract/native/common"
	"github.com/zapit-io/p2p-evmContract/native/escrow"
	"github.com/zapit-io/p2p-evmContract/state"
)

// RoleAdmin tags principals allowed to run the administrative setters that do
// not require full ownership.
const RoleAdmin = "ROLE_ADMIN"

var errNilState = errors.New("admin engine: state not configured")

// Engine owns the global market configuration: ownership, arbitration, fee
// policy, the pause circuit breaker, the asset whitelist and the role table.
// It carries no business logic beyond guard predicates.
type Engine struct {
	state *state.Manager
}

// NewEngine creates an admin engine over the shared storage root.
func NewEngine(st *state.Manager) *Engine {
	return &Engine{state: st}
}

func (e *Engine) config() (*state.MarketConfig, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.MarketConfig()
}

func (e *Engine) requireOwner(caller [20]byte) (*state.MarketConfig, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	if cfg.Owner != caller {
		return nil, fmt.Errorf("%w: owner required", common.ErrUnauthorized)
	}
	return cfg, nil
}

func (e *Engine) requireAdmin(caller [20]byte) (*state.MarketConfig, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	if cfg.Owner == caller {
		return cfg, nil
	}
	isAdmin, err := e.state.HasRole(RoleAdmin, caller)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, fmt.Errorf("%w: owner or admin role required", common.ErrUnauthorized)
	}
	return cfg, nil
}

// Init performs the one-shot post-upgrade configuration: fee recipient, fee
// rate and arbitrator. Ownership is recorded at bootstrap and left untouched.
// Only the owner may call, and only while the init epoch is still open.
func (e *Engine) Init(caller, feeAddress [20]byte, feeBps uint32, arbitrator [20]byte) error {
	cfg, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	done, err := e.state.InitializationDone()
	if err != nil {
		return err
	}
	if done {
		return fmt.Errorf("%w: market already configured", dispatch.ErrAlreadyInitialized)
	}
	cfg.FeeAddress = feeAddress
	cfg.FeeBps = feeBps
	cfg.Arbitrator = arbitrator
	return e.state.SetMarketConfig(cfg)
}

// TransferOwnership hands the owner privilege to another principal in a
// single step.
func (e *Engine) TransferOwnership(caller, newOwner [20]byte) error {
	cfg, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	if newOwner == ([20]byte{}) {
		return fmt.Errorf("admin: new owner must not be the zero address")
	}
	cfg.Owner = newOwner
	return e.state.SetMarketConfig(cfg)
}

// SetArbitrator updates the principal authorised to sign dispute resolutions.
// Open trades are unaffected until their claims are verified, which always
// checks the current arbitrator.
func (e *Engine) SetArbitrator(caller, arbitrator [20]byte) error {
	cfg, err := e.requireAdmin(caller)
	if err != nil {
		return err
	}
	cfg.Arbitrator = arbitrator
	return e.state.SetMarketConfig(cfg)
}

// SetFeeAddress updates the fee recipient.
func (e *Engine) SetFeeAddress(caller, feeAddress [20]byte) error {
	cfg, err := e.requireAdmin(caller)
	if err != nil {
		return err
	}
	cfg.FeeAddress = feeAddress
	return e.state.SetMarketConfig(cfg)
}

// SetFees updates the default fee rate copied into new trades. Trades already
// open keep the rate captured at creation.
func (e *Engine) SetFees(caller [20]byte, feeBps uint32) error {
	cfg, err := e.requireAdmin(caller)
	if err != nil {
		return err
	}
	cfg.FeeBps = feeBps
	return e.state.SetMarketConfig(cfg)
}

// Pause engages the circuit breaker. Creation is blocked; resolution of
// already-active trades never is, so counterparties can always exit.
func (e *Engine) Pause(caller [20]byte) error {
	return e.setPaused(caller, true)
}

// Unpause releases the circuit breaker.
func (e *Engine) Unpause(caller [20]byte) error {
	return e.setPaused(caller, false)
}

func (e *Engine) setPaused(caller [20]byte, paused bool) error {
	cfg, err := e.requireAdmin(caller)
	if err != nil {
		return err
	}
	cfg.Paused = paused
	return e.state.SetMarketConfig(cfg)
}

// SetWhitelistedAsset marks an asset as eligible (or not) for token trades.
func (e *Engine) SetWhitelistedAsset(caller [20]byte, asset string, allowed bool) error {
	if _, err := e.requireAdmin(caller); err != nil {
		return err
	}
	normalized, err := escrow.NormalizeAsset(asset)
	if err != nil {
		return err
	}
	return e.state.SetAssetWhitelisted(normalized, allowed)
}

// GrantRole adds a principal to a role set. Idempotent.
func (e *Engine) GrantRole(caller [20]byte, role string, member [20]byte) error {
	if _, err := e.requireOwner(caller); err != nil {
		return err
	}
	return e.state.GrantRole(role, member)
}

// RevokeRole removes a principal from a role set. Revoking an unheld role is
// a no-op.
func (e *Engine) RevokeRole(caller [20]byte, role string, member [20]byte) error {
	if _, err := e.requireOwner(caller); err != nil {
		return err
	}
	return e.state.RevokeRole(role, member)
}

// RenounceRole lets a principal drop its own role membership.
func (e *Engine) RenounceRole(caller [20]byte, role string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.state.RevokeRole(role, caller)
}

// HasRole reports role membership.
func (e *Engine) HasRole(role string, member [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.HasRole(role, member)
}

// Owner returns the current contract owner.
func (e *Engine) Owner() ([20]byte, error) {
	cfg, err := e.config()
	if err != nil {
		return [20]byte{}, err
	}
	return cfg.Owner, nil
}

// Arbitrator returns the current dispute arbitrator.
func (e *Engine) Arbitrator() ([20]byte, error) {
	cfg, err := e.config()
	if err != nil {
		return [20]byte{}, err
	}
	return cfg.Arbitrator, nil
}

// FeeAddress returns the current fee recipient.
func (e *Engine) FeeAddress() ([20]byte, error) {
	cfg, err := e.config()
	if err != nil {
		return [20]byte{}, err
	}
	return cfg.FeeAddress, nil
}

// Fees returns the current default fee rate in basis points.
func (e *Engine) Fees() (uint32, error) {
	cfg, err := e.config()
	if err != nil {
		return 0, err
	}
	return cfg.FeeBps, nil
}

// Paused reports whether trade creation is blocked.
func (e *Engine) Paused() (bool, error) {
	cfg, err := e.config()
	if err != nil {
		return false, err
	}
	return cfg.Paused, nil
}

// WhitelistedCurrency reports whether the asset may back new token trades.
func (e *Engine) WhitelistedCurrency(asset string) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	normalized, err := escrow.NormalizeAsset(asset)
	if err != nil {
		return false, err
	}
	return e.state.AssetWhitelisted(normalized)
}

// GetEscrow returns the stored trade record for the identifier, resolved or
// active. The second return reports existence.
func (e *Engine) GetEscrow(tradeID [32]byte) (*escrow.Trade, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	return escrow.LoadTrade(e.state, tradeID)
}
