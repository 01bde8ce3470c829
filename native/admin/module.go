package admin

import (
	"encoding/json"
	"fmt"

	"github.com/zapit-io/p2p-evmContract/crypto"
	"github.com/zapit-io/p2p-evmContract/dispatch"
	"github.com/zapit-io/p2p-evmContract/native/escrow"
)

// ModuleName is the routing name of the admin module.
const ModuleName = "admin"

// Operation signatures bound through the routing table. Routing ids hash the
// full signature, argument shape included.
const (
	OpInit                = "init(address,uint32,address)"
	OpTransferOwnership   = "transferOwnership(address)"
	OpSetArbitrator       = "setArbitrator(address)"
	OpSetFeeAddress       = "setFeeAddress(address)"
	OpSetFees             = "setFees(uint32)"
	OpPause               = "pause()"
	OpUnpause             = "unpause()"
	OpSetWhitelistedAsset = "setWhitelistedAsset(string,bool)"
	OpGrantRole           = "grantRole(string,address)"
	OpRevokeRole          = "revokeRole(string,address)"
	OpRenounceRole        = "renounceRole(string)"
	OpHasRole             = "hasRole(string,address)"
	OpGetEscrow           = "getEscrow(bytes32)"
	OpOwner               = "owner()"
	OpGetArbitrator       = "getArbitrator()"
	OpGetFeeAddress       = "getFeeAddress()"
	OpGetFees             = "getFees()"
	OpWhitelistedCurrency = "getWhitelistedCurrencies(string)"
	OpPaused              = "paused()"
)

// Module adapts the admin engine to the dispatcher.
type Module struct {
	engine *Engine
}

// NewModule wraps the engine for routing.
func NewModule(engine *Engine) *Module {
	return &Module{engine: engine}
}

func (m *Module) Name() string { return ModuleName }

func (m *Module) Handlers() map[string]dispatch.Handler {
	return map[string]dispatch.Handler{
		OpInit:                m.init,
		OpTransferOwnership:   m.transferOwnership,
		OpSetArbitrator:       m.setArbitrator,
		OpSetFeeAddress:       m.setFeeAddress,
		OpSetFees:             m.setFees,
		OpPause:               m.pause,
		OpUnpause:             m.unpause,
		OpSetWhitelistedAsset: m.setWhitelistedAsset,
		OpGrantRole:           m.grantRole,
		OpRevokeRole:          m.revokeRole,
		OpRenounceRole:        m.renounceRole,
		OpHasRole:             m.hasRole,
		OpGetEscrow:           m.getEscrow,
		OpOwner:               m.owner,
		OpGetArbitrator:       m.getArbitrator,
		OpGetFeeAddress:       m.getFeeAddress,
		OpGetFees:             m.getFees,
		OpWhitelistedCurrency: m.whitelistedCurrency,
		OpPaused:              m.paused,
	}
}

type initParams struct {
	FeeAddress string `json:"feeAddress"`
	FeeBps     uint32 `json:"feeBps"`
	Arbitrator string `json:"arbitrator,omitempty"`
}

type addressParams struct {
	Address string `json:"address"`
}

type feesParams struct {
	FeeBps uint32 `json:"feeBps"`
}

type whitelistParams struct {
	Asset   string `json:"asset"`
	Allowed bool   `json:"allowed"`
}

type roleParams struct {
	Role    string `json:"role"`
	Address string `json:"address,omitempty"`
}

type assetParams struct {
	Asset string `json:"asset"`
}

type tradeParams struct {
	TradeID string `json:"tradeId"`
}

func decodeAddress(s string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(s)
	if err != nil {
		return [20]byte{}, fmt.Errorf("admin: invalid address: %w", err)
	}
	return addr.Bytes(), nil
}

func (m *Module) init(call *dispatch.Call) (interface{}, error) {
	var params initParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, fmt.Errorf("admin: decode init params: %w", err)
	}
	feeAddress, err := decodeAddress(params.FeeAddress)
	if err != nil {
		return nil, err
	}
	arbitrator := [20]byte{}
	if params.Arbitrator != "" {
		if arbitrator, err = decodeAddress(params.Arbitrator); err != nil {
			return nil, err
		}
	}
	if err := m.engine.Init(call.Caller, feeAddress, params.FeeBps, arbitrator); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *Module) transferOwnership(call *dispatch.Call) (interface{}, error) {
	var params addressParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, fmt.Errorf("admin: decode params: %w", err)
	}
	newOwner, err := decodeAddress(params.Address)
	if err != nil {
		return nil, err
	}
	if err := m.engine.TransferOwnership(call.Caller, newOwner); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *Module) setArbitrator(call *dispatch.Call) (interface{}, error) {
	var params addressParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, fmt.Errorf("admin: decode params: %w", err)
	}
	arbitrator, err := decodeAddress(params.Address)
	if err != nil {
		return nil, err
	}
	if err := m.engine.SetArbitrator(call.Caller, arbitrator); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *Module) setFeeAddress(call *dispatch.Call) (interface{}, error) {
	var params addressParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, fmt.Errorf("admin: decode params: %w", err)
	}
	feeAddress, err := decodeAddress(params.Address)
	if err != nil {
		return nil, err
	}
	if err := m.engine.SetFeeAddress(call.Caller, feeAddress); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *Module) setFees(call *dispatch.Call) (interface{}, error) {
	var params feesParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, fmt.Errorf("admin: decode params: %w", err)
	}
	if err := m.engine.SetFees(call.Caller, params.FeeBps); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *Module) pause(call *dispatch.Call) (interface{}, error) {
	if err := m.engine.Pause(call.Caller); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *Module) unpause(call *dispatch.Call) (interface{}, error) {
	if err := m.engine.Unpause(call.Caller); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *Module) setWhitelistedAsset(call *dispatch.Call) (interface{}, error) {
	var params whitelistParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, fmt.Errorf("admin: decode params: %w", err)
	}
	if err := m.engine.SetWhitelistedAsset(call.Caller, params.Asset, params.Allowed); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *Module) grantRole(call *dispatch.Call) (interface{}, error) {
	role, member, err := decodeRoleParams(call.Params)
	if err != nil {
		return nil, err
	}
	if err := m.engine.GrantRole(call.Caller, role, member); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *Module) revokeRole(call *dispatch.Call) (interface{}, error) {
	role, member, err := decodeRoleParams(call.Params)
	if err != nil {
		return nil, err
	}
	if err := m.engine.RevokeRole(call.Caller, role, member); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *Module) renounceRole(call *dispatch.Call) (interface{}, error) {
	var params roleParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, fmt.Errorf("admin: decode params: %w", err)
	}
	if err := m.engine.RenounceRole(call.Caller, params.Role); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *Module) hasRole(call *dispatch.Call) (interface{}, error) {
	role, member, err := decodeRoleParams(call.Params)
	if err != nil {
		return nil, err
	}
	return m.engine.HasRole(role, member)
}

func decodeRoleParams(raw json.RawMessage) (string, [20]byte, error) {
	var params roleParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return "", [20]byte{}, fmt.Errorf("admin: decode params: %w", err)
	}
	member, err := decodeAddress(params.Address)
	if err != nil {
		return "", [20]byte{}, err
	}
	return params.Role, member, nil
}

func (m *Module) getEscrow(call *dispatch.Call) (interface{}, error) {
	var params tradeParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, fmt.Errorf("admin: decode params: %w", err)
	}
	tradeID, err := escrow.ParseHash(params.TradeID)
	if err != nil {
		return nil, fmt.Errorf("admin: invalid trade id: %w", err)
	}
	trade, ok, err := m.engine.GetEscrow(tradeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, escrow.ErrEscrowDoesNotExist
	}
	return escrow.NewTradeResult(trade), nil
}

func (m *Module) owner(call *dispatch.Call) (interface{}, error) {
	owner, err := m.engine.Owner()
	if err != nil {
		return nil, err
	}
	return crypto.NewAddress(owner).String(), nil
}

func (m *Module) getArbitrator(call *dispatch.Call) (interface{}, error) {
	arbitrator, err := m.engine.Arbitrator()
	if err != nil {
		return nil, err
	}
	return crypto.NewAddress(arbitrator).String(), nil
}

func (m *Module) getFeeAddress(call *dispatch.Call) (interface{}, error) {
	feeAddress, err := m.engine.FeeAddress()
	if err != nil {
		return nil, err
	}
	return crypto.NewAddress(feeAddress).String(), nil
}

func (m *Module) getFees(call *dispatch.Call) (interface{}, error) {
	return m.engine.Fees()
}

func (m *Module) whitelistedCurrency(call *dispatch.Call) (interface{}, error) {
	var params assetParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, fmt.Errorf("admin: decode params: %w", err)
	}
	return m.engine.WhitelistedCurrency(params.Asset)
}

func (m *Module) paused(call *dispatch.Call) (interface{}, error) {
	return m.engine.Paused()
}
