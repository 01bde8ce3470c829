package escrow

import (
	"fmt"
	"math/big"

	"github.com/zapit-io/p2p-evmContract/core/events"
	"github.com/zapit-io/p2p-evmContract/core/types"
	"github.com/zapit-io/p2p-evmContract/native/common"
)

type engineState interface {
	KVGet(key []byte) ([]byte, error)
	KVPut(key, value []byte) error
	FeeParameters() (uint32, [20]byte, error)
	Arbitrator() ([20]byte, error)
	Paused() (bool, error)
	AssetWhitelisted(asset string) (bool, error)
	VaultAddress(asset string) [20]byte
	NativeTransfer(from, to [20]byte, amount *big.Int) error
	TokenTransfer(asset string, from, to [20]byte, amount *big.Int) error
	TokenTransferFrom(asset string, owner, spender, to [20]byte, amount *big.Int) error
}

// Engine is the escrow state machine. One engine serves both funding models:
// creation differs (attached native value versus an allowance pull), while
// the terminal transitions resolve against whichever vault the trade's asset
// selects. Every terminal transition commits the Active=false tombstone
// before moving funds, so a failing transfer aborts the whole call.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

// NewEngine creates an escrow engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the shared storage root used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: event})
}

// CreateNative opens a native-value trade. The caller is the seller and must
// attach exactly value plus the seller's half-fee; the fee rate in force at
// creation is captured into the trade.
func (e *Engine) CreateNative(seller, buyer [20]byte, value *big.Int, extRef [32]byte, attached *big.Int) (*Trade, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	trade, required, err := e.prepareTrade(seller, buyer, value, extRef, NativeAsset)
	if err != nil {
		return nil, err
	}
	if attached == nil || attached.Cmp(required) != 0 {
		return nil, ErrIncorrectAmount
	}
	if err := e.state.NativeTransfer(seller, e.state.VaultAddress(NativeAsset), required); err != nil {
		return nil, err
	}
	if err := StoreTrade(e.state, trade); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(trade))
	return trade.Clone(), nil
}

// CreateToken opens a token-denominated trade. The asset must be whitelisted
// and the seller must have pre-approved the asset vault for value plus the
// half-fee; the engine pulls the total from that allowance.
func (e *Engine) CreateToken(seller, buyer [20]byte, value *big.Int, extRef [32]byte, asset string) (*Trade, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		return nil, err
	}
	whitelisted, err := e.state.AssetWhitelisted(normalized)
	if err != nil {
		return nil, err
	}
	if !whitelisted {
		return nil, ErrCurrencyNotWhitelisted
	}
	trade, required, err := e.prepareTrade(seller, buyer, value, extRef, normalized)
	if err != nil {
		return nil, err
	}
	vault := e.state.VaultAddress(normalized)
	if err := e.state.TokenTransferFrom(normalized, seller, vault, vault, required); err != nil {
		return nil, err
	}
	if err := StoreTrade(e.state, trade); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(trade))
	return trade.Clone(), nil
}

func (e *Engine) prepareTrade(seller, buyer [20]byte, value *big.Int, extRef [32]byte, asset string) (*Trade, *big.Int, error) {
	if err := common.Guard(e.state); err != nil {
		return nil, nil, err
	}
	if value == nil || value.Sign() <= 0 {
		return nil, nil, fmt.Errorf("escrow: value must be positive")
	}
	if buyer == ([20]byte{}) {
		return nil, nil, fmt.Errorf("escrow: buyer must not be the zero address")
	}
	id := DeriveTradeID(seller, buyer, extRef)
	existing, ok, err := LoadTrade(e.state, id)
	if err != nil {
		return nil, nil, err
	}
	if ok && existing.Active {
		return nil, nil, ErrTradeExists
	}
	feeBps, _, err := e.state.FeeParameters()
	if err != nil {
		return nil, nil, err
	}
	trade := &Trade{
		ID:     id,
		Seller: seller,
		Buyer:  buyer,
		Value:  new(big.Int).Set(value),
		Asset:  asset,
		FeeBps: feeBps,
		Active: true,
		ExtRef: extRef,
	}
	required := new(big.Int).Add(trade.Value, HalfFee(trade.Value, feeBps))
	return trade, required, nil
}

// Execute completes an active trade. Any caller may submit it; authorisation
// is the seller's signature over the digest binding the trade to the buyer,
// which stands in for a second transaction by the seller once the off-chain
// condition is met. The buyer receives value minus the half-fee and the fee
// recipient collects both halves.
func (e *Engine) Execute(tradeID [32]byte, sig []byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	trade, err := e.loadActive(tradeID)
	if err != nil {
		return err
	}
	recovered, err := RecoverSigner(MessageDigest(trade.ID, trade.Buyer), sig)
	if err != nil || recovered != trade.Seller {
		return ErrInvalidSellerSignature
	}
	if err := e.release(trade, trade.Buyer); err != nil {
		return err
	}
	e.emit(NewTradeCompletedEvent(trade))
	return nil
}

// Cancel returns the full locked amount, including the seller's pre-paid
// half-fee, to the seller. Only the trade's buyer may cancel, at any time
// while the trade is active; no fee is charged.
func (e *Engine) Cancel(tradeID [32]byte, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	trade, err := e.loadActive(tradeID)
	if err != nil {
		return err
	}
	if caller != trade.Buyer {
		return ErrNotBuyer
	}
	refund := new(big.Int).Add(trade.Value, HalfFee(trade.Value, trade.FeeBps))
	trade.Active = false
	if err := StoreTrade(e.state, trade); err != nil {
		return err
	}
	if err := e.transfer(trade.Asset, e.state.VaultAddress(trade.Asset), trade.Seller, refund); err != nil {
		return err
	}
	e.emit(NewCancelledByBuyerEvent(trade))
	return nil
}

// ClaimDisputed resolves an active trade in favour of the caller. The
// arbitrator decides who prevails by signing the digest binding the trade to
// that party's address; the prevailing party submits the claim. Payout
// mirrors Execute, keyed to the claimant.
func (e *Engine) ClaimDisputed(tradeID [32]byte, caller [20]byte, sig []byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	trade, err := e.loadActive(tradeID)
	if err != nil {
		return err
	}
	arbitrator, err := e.state.Arbitrator()
	if err != nil {
		return err
	}
	if arbitrator == ([20]byte{}) {
		return ErrInvalidArbitratorSignature
	}
	recovered, err := RecoverSigner(MessageDigest(trade.ID, caller), sig)
	if err != nil || recovered != arbitrator {
		return ErrInvalidArbitratorSignature
	}
	if err := e.release(trade, caller); err != nil {
		return err
	}
	e.emit(NewDisputeClaimedEvent(trade, caller))
	return nil
}

func (e *Engine) loadActive(tradeID [32]byte) (*Trade, error) {
	trade, ok, err := LoadTrade(e.state, tradeID)
	if err != nil {
		return nil, err
	}
	if !ok || !trade.Active {
		return nil, ErrEscrowDoesNotExist
	}
	return trade, nil
}

// release marks the trade resolved, then pays value minus the half-fee to the
// recipient and both fee halves to the current fee recipient. The fee amount
// is twice the half-fee so the vault is always emptied exactly.
func (e *Engine) release(trade *Trade, recipient [20]byte) error {
	halfFee := HalfFee(trade.Value, trade.FeeBps)
	payout := new(big.Int).Sub(trade.Value, halfFee)
	feeTotal := new(big.Int).Lsh(halfFee, 1)
	_, feeAddress, err := e.state.FeeParameters()
	if err != nil {
		return err
	}
	trade.Active = false
	if err := StoreTrade(e.state, trade); err != nil {
		return err
	}
	vault := e.state.VaultAddress(trade.Asset)
	if err := e.transfer(trade.Asset, vault, recipient, payout); err != nil {
		return err
	}
	return e.transfer(trade.Asset, vault, feeAddress, feeTotal)
}

func (e *Engine) transfer(asset string, from, to [20]byte, amount *big.Int) error {
	if asset == NativeAsset {
		return e.state.NativeTransfer(from, to, amount)
	}
	return e.state.TokenTransfer(asset, from, to, amount)
}
