package escrow

import (
	"encoding/hex"
	"strconv"

	"github.com/zapit-io/p2p-evmContract/core/types"
)

const (
	EventTypeCreated          = "escrow.created"
	EventTypeTradeCompleted   = "escrow.trade_completed"
	EventTypeCancelledByBuyer = "escrow.cancelled_by_buyer"
	EventTypeDisputeClaimed   = "escrow.dispute_claimed"
)

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// NewCreatedEvent returns the canonical event payload for a newly created
// trade, echoing the derived identifier the way the creation log does.
func NewCreatedEvent(t *Trade) *types.Event {
	evt := newTradeEvent(EventTypeCreated, t)
	if t != nil {
		evt.Attributes["seller"] = hex.EncodeToString(t.Seller[:])
		evt.Attributes["buyer"] = hex.EncodeToString(t.Buyer[:])
		evt.Attributes["asset"] = t.Asset
		if t.Value != nil {
			evt.Attributes["value"] = t.Value.String()
		}
		evt.Attributes["feeBps"] = strconv.FormatUint(uint64(t.FeeBps), 10)
	}
	return evt
}

// NewTradeCompletedEvent returns the payload emitted when a seller-authorised
// completion releases the escrow to the buyer.
func NewTradeCompletedEvent(t *Trade) *types.Event {
	return newTradeEvent(EventTypeTradeCompleted, t)
}

// NewCancelledByBuyerEvent returns the payload emitted when the buyer cancels
// and the locked funds return to the seller.
func NewCancelledByBuyerEvent(t *Trade) *types.Event {
	return newTradeEvent(EventTypeCancelledByBuyer, t)
}

// NewDisputeClaimedEvent returns the payload emitted when an
// arbitrator-authorised claim resolves the trade in favour of the claimant.
func NewDisputeClaimedEvent(t *Trade, claimant [20]byte) *types.Event {
	evt := newTradeEvent(EventTypeDisputeClaimed, t)
	evt.Attributes["claimant"] = hex.EncodeToString(claimant[:])
	return evt
}

func newTradeEvent(eventType string, t *Trade) *types.Event {
	attrs := make(map[string]string)
	if t != nil {
		attrs["id"] = hex.EncodeToString(t.ID[:])
		attrs["externalReference"] = hex.EncodeToString(t.ExtRef[:])
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
