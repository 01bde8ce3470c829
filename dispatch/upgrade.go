package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/zapit-io/p2p-evmContract/native/common"
	"github.com/zapit-io/p2p-evmContract/state"
)

// CutAction selects how a cut mutates the routing table.
type CutAction uint8

const (
	CutAdd CutAction = iota
	CutReplace
	CutRemove
)

// Cut is one routing-table mutation: bind, rebind or unbind a set of
// operations for a module.
type Cut struct {
	Module     string
	Action     CutAction
	Operations []string
}

// InitCall names a one-shot configuration call executed atomically after the
// cuts of an upgrade are applied.
type InitCall struct {
	Module    string
	Operation string
	Params    json.RawMessage
}

// Upgrade applies a batch of cuts and an optional init call as one atomic
// step. Only the recorded owner may upgrade. Either every cut plus the init
// call succeeds, or the routing table is left untouched.
func (d *Dispatcher) Upgrade(caller [20]byte, cuts []Cut, init *InitCall) error {
	if d == nil || d.state == nil {
		return errNilState
	}
	if err := d.upgrade(caller, cuts, init); err != nil {
		d.state.Discard()
		d.events.Drain()
		return err
	}
	return d.state.Commit()
}

func (d *Dispatcher) upgrade(caller [20]byte, cuts []Cut, init *InitCall) error {
	cfg, err := d.state.MarketConfig()
	if err != nil {
		return err
	}
	if cfg.Owner != caller {
		return fmt.Errorf("%w: upgrade requires contract owner", common.ErrUnauthorized)
	}
	for _, cut := range cuts {
		if err := d.applyCut(cut); err != nil {
			return err
		}
	}
	if init == nil {
		return nil
	}
	done, err := d.state.InitializationDone()
	if err != nil {
		return err
	}
	if done {
		return ErrAlreadyInitialized
	}
	module, ok := d.modules[init.Module]
	if !ok {
		return fmt.Errorf("%w: %s", ErrModuleUnknown, init.Module)
	}
	handler, ok := module.Handlers()[init.Operation]
	if !ok {
		return fmt.Errorf("%w: %s has no operation %s", ErrModuleUnknown, init.Module, init.Operation)
	}
	if _, err := handler(&Call{Caller: caller, Params: init.Params}); err != nil {
		return fmt.Errorf("dispatcher: init call: %w", err)
	}
	return d.state.MarkInitialized()
}

func (d *Dispatcher) applyCut(cut Cut) error {
	if len(cut.Operations) == 0 {
		return fmt.Errorf("dispatcher: cut for %q names no operations", cut.Module)
	}
	switch cut.Action {
	case CutAdd, CutReplace:
		module, ok := d.modules[cut.Module]
		if !ok {
			return fmt.Errorf("%w: %s", ErrModuleUnknown, cut.Module)
		}
		handlers := module.Handlers()
		for _, op := range cut.Operations {
			if _, ok := handlers[op]; !ok {
				return fmt.Errorf("%w: %s has no operation %s", ErrModuleUnknown, cut.Module, op)
			}
			id := OpIDFor(op)
			_, bound, err := d.state.RouteGet(id)
			if err != nil {
				return err
			}
			if cut.Action == CutAdd && bound {
				return fmt.Errorf("%w: %s", ErrDuplicateOperation, op)
			}
			if cut.Action == CutReplace && !bound {
				return fmt.Errorf("%w: %s", ErrOperationMissing, op)
			}
			if err := d.state.RouteSet(id, state.RouteBinding{Module: cut.Module, Operation: op}); err != nil {
				return err
			}
		}
	case CutRemove:
		for _, op := range cut.Operations {
			if err := d.state.RouteDelete(OpIDFor(op)); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("dispatcher: unknown cut action %d", cut.Action)
	}
	return nil
}

// ListModules returns the routing table grouped by module, for introspection.
func (d *Dispatcher) ListModules() ([]state.ModuleRoutes, error) {
	if d == nil || d.state == nil {
		return nil, errNilState
	}
	return d.state.RouteIndex()
}
