package escrow

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/zapit-io/p2p-evmContract/crypto"
	"github.com/zapit-io/p2p-evmContract/dispatch"
)

// Module names under which the two engine variants are registered.
const (
	ModuleNative = "escrow"
	ModuleToken  = "escrow-erc20"
)

// Operation signatures bound through the routing table. The routing id is the
// first 4 bytes of the keccak256 hash of the full signature, so the argument
// shape is part of the identifier.
const (
	OpCreateNative  = "createEscrowNative(address,uint256,bytes32)"
	OpExecute       = "executeOrder(bytes32,bytes)"
	OpBuyerCancel   = "buyerCancel(bytes32)"
	OpClaimDisputed = "claimDisputedOrder(bytes32,bytes)"

	OpCreateToken        = "createEscrowERC20(address,uint256,bytes32,string)"
	OpExecuteToken       = "executeOrderERC20(bytes32,bytes)"
	OpBuyerCancelToken   = "buyerCancelERC20(bytes32)"
	OpClaimDisputedToken = "claimDisputedOrderERC20(bytes32,bytes)"
)

// TradeResult is the JSON rendering of a trade record.
type TradeResult struct {
	TradeID           string `json:"tradeId"`
	Seller            string `json:"seller"`
	Buyer             string `json:"buyer"`
	Value             string `json:"value"`
	Asset             string `json:"asset,omitempty"`
	FeeBps            uint32 `json:"feeBps"`
	Active            bool   `json:"active"`
	ExternalReference string `json:"externalReference"`
}

// NewTradeResult converts a trade record for the RPC surface.
func NewTradeResult(t *Trade) *TradeResult {
	if t == nil {
		return nil
	}
	value := "0"
	if t.Value != nil {
		value = t.Value.String()
	}
	return &TradeResult{
		TradeID:           "0x" + hex.EncodeToString(t.ID[:]),
		Seller:            crypto.NewAddress(t.Seller).String(),
		Buyer:             crypto.NewAddress(t.Buyer).String(),
		Value:             value,
		Asset:             t.Asset,
		FeeBps:            t.FeeBps,
		Active:            t.Active,
		ExternalReference: "0x" + hex.EncodeToString(t.ExtRef[:]),
	}
}

// NativeModule exposes the native-value engine operations to the dispatcher.
type NativeModule struct {
	engine *Engine
}

// NewNativeModule wraps the engine for routing.
func NewNativeModule(engine *Engine) *NativeModule {
	return &NativeModule{engine: engine}
}

func (m *NativeModule) Name() string { return ModuleNative }

func (m *NativeModule) Handlers() map[string]dispatch.Handler {
	return map[string]dispatch.Handler{
		OpCreateNative:  m.createEscrowNative,
		OpExecute:       m.executeOrder,
		OpBuyerCancel:   m.buyerCancel,
		OpClaimDisputed: m.claimDisputedOrder,
	}
}

type createParams struct {
	Buyer             string `json:"buyer"`
	Value             string `json:"value"`
	ExternalReference string `json:"externalReference"`
	Asset             string `json:"asset,omitempty"`
}

type terminalParams struct {
	TradeID   string `json:"tradeId"`
	Signature string `json:"signature,omitempty"`
}

func (m *NativeModule) createEscrowNative(call *dispatch.Call) (interface{}, error) {
	params, buyer, value, extRef, err := decodeCreateParams(call.Params)
	if err != nil {
		return nil, err
	}
	if params.Asset != "" {
		return nil, fmt.Errorf("escrow: native trades carry no asset identifier")
	}
	trade, err := m.engine.CreateNative(call.Caller, buyer, value, extRef, call.AttachedValue())
	if err != nil {
		return nil, err
	}
	return NewTradeResult(trade), nil
}

func (m *NativeModule) executeOrder(call *dispatch.Call) (interface{}, error) {
	tradeID, sig, err := decodeTerminalParams(call.Params, true)
	if err != nil {
		return nil, err
	}
	if err := m.engine.Execute(tradeID, sig); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *NativeModule) buyerCancel(call *dispatch.Call) (interface{}, error) {
	tradeID, _, err := decodeTerminalParams(call.Params, false)
	if err != nil {
		return nil, err
	}
	if err := m.engine.Cancel(tradeID, call.Caller); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *NativeModule) claimDisputedOrder(call *dispatch.Call) (interface{}, error) {
	tradeID, sig, err := decodeTerminalParams(call.Params, true)
	if err != nil {
		return nil, err
	}
	if err := m.engine.ClaimDisputed(tradeID, call.Caller, sig); err != nil {
		return nil, err
	}
	return true, nil
}

// TokenModule exposes the token engine operations to the dispatcher.
type TokenModule struct {
	engine *Engine
}

// NewTokenModule wraps the engine for routing.
func NewTokenModule(engine *Engine) *TokenModule {
	return &TokenModule{engine: engine}
}

func (m *TokenModule) Name() string { return ModuleToken }

func (m *TokenModule) Handlers() map[string]dispatch.Handler {
	return map[string]dispatch.Handler{
		OpCreateToken:        m.createEscrowERC20,
		OpExecuteToken:       m.executeOrderERC20,
		OpBuyerCancelToken:   m.buyerCancelERC20,
		OpClaimDisputedToken: m.claimDisputedOrderERC20,
	}
}

func (m *TokenModule) createEscrowERC20(call *dispatch.Call) (interface{}, error) {
	params, buyer, value, extRef, err := decodeCreateParams(call.Params)
	if err != nil {
		return nil, err
	}
	trade, err := m.engine.CreateToken(call.Caller, buyer, value, extRef, params.Asset)
	if err != nil {
		return nil, err
	}
	return NewTradeResult(trade), nil
}

func (m *TokenModule) executeOrderERC20(call *dispatch.Call) (interface{}, error) {
	tradeID, sig, err := decodeTerminalParams(call.Params, true)
	if err != nil {
		return nil, err
	}
	if err := m.engine.Execute(tradeID, sig); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *TokenModule) buyerCancelERC20(call *dispatch.Call) (interface{}, error) {
	tradeID, _, err := decodeTerminalParams(call.Params, false)
	if err != nil {
		return nil, err
	}
	if err := m.engine.Cancel(tradeID, call.Caller); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *TokenModule) claimDisputedOrderERC20(call *dispatch.Call) (interface{}, error) {
	tradeID, sig, err := decodeTerminalParams(call.Params, true)
	if err != nil {
		return nil, err
	}
	if err := m.engine.ClaimDisputed(tradeID, call.Caller, sig); err != nil {
		return nil, err
	}
	return true, nil
}

func decodeCreateParams(raw json.RawMessage) (*createParams, [20]byte, *big.Int, [32]byte, error) {
	params := new(createParams)
	var buyer [20]byte
	var extRef [32]byte
	if err := json.Unmarshal(raw, params); err != nil {
		return nil, buyer, nil, extRef, fmt.Errorf("escrow: decode create params: %w", err)
	}
	buyerAddr, err := crypto.DecodeAddress(params.Buyer)
	if err != nil {
		return nil, buyer, nil, extRef, fmt.Errorf("escrow: invalid buyer: %w", err)
	}
	buyer = buyerAddr.Bytes()
	value, ok := new(big.Int).SetString(strings.TrimSpace(params.Value), 10)
	if !ok {
		return nil, buyer, nil, extRef, fmt.Errorf("escrow: invalid value %q", params.Value)
	}
	extRef, err = ParseHash(params.ExternalReference)
	if err != nil {
		return nil, buyer, nil, extRef, fmt.Errorf("escrow: invalid external reference: %w", err)
	}
	return params, buyer, value, extRef, nil
}

func decodeTerminalParams(raw json.RawMessage, needSig bool) ([32]byte, []byte, error) {
	params := new(terminalParams)
	var tradeID [32]byte
	if err := json.Unmarshal(raw, params); err != nil {
		return tradeID, nil, fmt.Errorf("escrow: decode params: %w", err)
	}
	tradeID, err := ParseHash(params.TradeID)
	if err != nil {
		return tradeID, nil, fmt.Errorf("escrow: invalid trade id: %w", err)
	}
	if !needSig {
		return tradeID, nil, nil
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(params.Signature, "0x"))
	if err != nil {
		return tradeID, nil, fmt.Errorf("escrow: invalid signature encoding: %w", err)
	}
	return tradeID, sig, nil
}

// ParseHash decodes a 0x-prefixed 32-byte hex string.
func ParseHash(s string) ([32]byte, error) {
	var out [32]byte
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return out, err
	}
	if len(decoded) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}
