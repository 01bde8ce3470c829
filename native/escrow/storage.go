package escrow

import (
	"github.com/ethereum/go-ethereum/rlp"
)

// tradePrefix is the escrow module's slice of the shared key namespace.
var tradePrefix = []byte("escrow/trade/")

func tradeKey(id [32]byte) []byte {
	buf := make([]byte, 0, len(tradePrefix)+len(id))
	buf = append(buf, tradePrefix...)
	return append(buf, id[:]...)
}

// KVGetter is the read half of the keyed storage surface.
type KVGetter interface {
	KVGet(key []byte) ([]byte, error)
}

// KVPutter is the write half of the keyed storage surface.
type KVPutter interface {
	KVPut(key, value []byte) error
}

// LoadTrade reads a trade record from the shared storage root. The second
// return reports whether the identifier has ever been created.
func LoadTrade(kv KVGetter, id [32]byte) (*Trade, bool, error) {
	data, err := kv.KVGet(tradeKey(id))
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	trade := new(Trade)
	if err := rlp.DecodeBytes(data, trade); err != nil {
		return nil, false, err
	}
	return trade, true, nil
}

// StoreTrade validates and persists a trade record.
func StoreTrade(kv KVPutter, t *Trade) error {
	sanitized, err := SanitizeTrade(t)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(sanitized)
	if err != nil {
		return err
	}
	return kv.KVPut(tradeKey(sanitized.ID), encoded)
}
