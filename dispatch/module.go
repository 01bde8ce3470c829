package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"
)

const dispatcherModuleName = "dispatcher"

// Operation signatures the dispatcher binds for itself at bootstrap.
const (
	OpDiamondCut = "diamondCut((string,uint8,string[])[],string,bytes)"
	OpFacets     = "facets()"
)

type dispatcherModule struct {
	d *Dispatcher
}

func (m *dispatcherModule) Name() string { return dispatcherModuleName }

func (m *dispatcherModule) Handlers() map[string]Handler {
	return map[string]Handler{
		OpDiamondCut: m.diamondCut,
		OpFacets:     m.facets,
	}
}

type cutParam struct {
	Module     string   `json:"module"`
	Action     string   `json:"action"`
	Operations []string `json:"operations"`
}

type initParam struct {
	Module    string          `json:"module"`
	Operation string          `json:"operation"`
	Params    json.RawMessage `json:"params,omitempty"`
}

type diamondCutParams struct {
	Cuts []cutParam `json:"cuts"`
	Init *initParam `json:"init,omitempty"`
}

func parseCutAction(action string) (CutAction, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "add":
		return CutAdd, nil
	case "replace":
		return CutReplace, nil
	case "remove":
		return CutRemove, nil
	default:
		return 0, fmt.Errorf("dispatcher: invalid cut action %q", action)
	}
}

func (m *dispatcherModule) diamondCut(call *Call) (interface{}, error) {
	var params diamondCutParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, fmt.Errorf("dispatcher: decode cut params: %w", err)
	}
	cuts := make([]Cut, 0, len(params.Cuts))
	for _, cut := range params.Cuts {
		action, err := parseCutAction(cut.Action)
		if err != nil {
			return nil, err
		}
		cuts = append(cuts, Cut{Module: cut.Module, Action: action, Operations: cut.Operations})
	}
	var init *InitCall
	if params.Init != nil {
		init = &InitCall{Module: params.Init.Module, Operation: params.Init.Operation, Params: params.Init.Params}
	}
	// The routed handler runs inside Invoke's overlay, so the cuts and init
	// call stay atomic with the rest of the call without a second commit.
	if err := m.d.upgrade(call.Caller, cuts, init); err != nil {
		return nil, err
	}
	return true, nil
}

func (m *dispatcherModule) facets(call *Call) (interface{}, error) {
	return m.d.ListModules()
}
