package dispatch

import (
	"encoding/json"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/zapit-io/p2p-evmContract/core/events"
	"github.com/zapit-io/p2p-evmContract/core/types"
	"github.com/zapit-io/p2p-evmContract/state"
)

// OpID is the stable 4-byte identifier an operation routes by, derived from
// the keccak256 hash of the operation signature.
type OpID [4]byte

// OpIDFor derives the routing identifier for an operation signature. The
// argument shape is part of the hashed string, so two operations sharing a
// name but not a shape route independently.
func OpIDFor(operation string) OpID {
	var id OpID
	copy(id[:], ethcrypto.Keccak256([]byte(operation)))
	return id
}

// Call is the envelope every handler executes under: the authenticated
// caller, any attached native value and the JSON-encoded operation
// parameters.
type Call struct {
	Caller [20]byte
	Value  *big.Int
	Params json.RawMessage
}

// AttachedValue returns the native value attached to the call, never nil.
func (c *Call) AttachedValue() *big.Int {
	if c == nil || c.Value == nil {
		return big.NewInt(0)
	}
	return c.Value
}

// Handler executes one operation against the shared storage root.
type Handler func(call *Call) (interface{}, error)

// Module is an independently upgradable unit of behaviour. All modules share
// the dispatcher's storage root; a module holds no state of its own.
type Module interface {
	Name() string
	Handlers() map[string]Handler
}

// Dispatcher routes every external call to the module bound to the requested
// operation. The routing table lives in the storage root so bindings survive
// restarts and upgrades are atomic with the rest of the call's effects.
type Dispatcher struct {
	state   *state.Manager
	modules map[string]Module
	events  *events.Collector
}

// New constructs a dispatcher over the shared storage root. The dispatcher
// registers itself as a module so its cut and loupe operations are routable
// like any other.
func New(st *state.Manager, collector *events.Collector, modules ...Module) *Dispatcher {
	if collector == nil {
		collector = events.NewCollector()
	}
	d := &Dispatcher{
		state:   st,
		modules: make(map[string]Module),
		events:  collector,
	}
	d.modules[dispatcherModuleName] = &dispatcherModule{d: d}
	for _, module := range modules {
		if module == nil {
			continue
		}
		d.modules[module.Name()] = module
	}
	return d
}

// Bootstrap records the contract owner and seeds the dispatcher's own routes.
// It is a no-op when an owner is already recorded, so restarts are safe.
func (d *Dispatcher) Bootstrap(owner [20]byte) error {
	if d == nil || d.state == nil {
		return errNilState
	}
	cfg, err := d.state.MarketConfig()
	if err != nil {
		d.state.Discard()
		return err
	}
	if cfg.Owner != ([20]byte{}) {
		return nil
	}
	cfg.Owner = owner
	if err := d.state.SetMarketConfig(cfg); err != nil {
		d.state.Discard()
		return err
	}
	for _, op := range []string{OpDiamondCut, OpFacets} {
		if err := d.state.RouteSet(OpIDFor(op), state.RouteBinding{Module: dispatcherModuleName, Operation: op}); err != nil {
			d.state.Discard()
			return err
		}
	}
	return d.state.Commit()
}

// Invoke routes one external call. The call runs against a write overlay on
// the storage root: on success every staged mutation commits and the events
// emitted during the call are returned; on failure nothing is observable.
func (d *Dispatcher) Invoke(operation string, call *Call) (interface{}, []*types.Event, error) {
	if d == nil || d.state == nil {
		return nil, nil, errNilState
	}
	d.events.Drain()
	result, err := d.route(operation, call)
	if err != nil {
		d.state.Discard()
		d.events.Drain()
		return nil, nil, err
	}
	if err := d.state.Commit(); err != nil {
		d.state.Discard()
		d.events.Drain()
		return nil, nil, err
	}
	return result, drainTyped(d.events), nil
}

func (d *Dispatcher) route(operation string, call *Call) (interface{}, error) {
	binding, ok, err := d.state.RouteGet(OpIDFor(operation))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, operation)
	}
	module, ok := d.modules[binding.Module]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, operation)
	}
	handler, ok := module.Handlers()[binding.Operation]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, operation)
	}
	return handler(call)
}

func drainTyped(collector *events.Collector) []*types.Event {
	drained := collector.Drain()
	if len(drained) == 0 {
		return nil
	}
	typed := make([]*types.Event, 0, len(drained))
	for _, ev := range drained {
		carrier, ok := ev.(interface{ Event() *types.Event })
		if !ok {
			continue
		}
		if evt := carrier.Event(); evt != nil {
			typed = append(typed, evt)
		}
	}
	return typed
}
