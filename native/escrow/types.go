package escrow

import (
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// NativeAsset is the asset identifier carried by native-value trades.
const NativeAsset = ""

// Trade captures one escrow agreement between a buyer and a seller. The
// identifier is the keccak256 hash of the seller, buyer and a caller-supplied
// reference, ensuring deterministic ids without a stored counter. Value and
// fee rate are immutable after creation; Active flips to false exactly once.
type Trade struct {
	ID     [32]byte
	Seller [20]byte
	Buyer  [20]byte
	Value  *big.Int
	Asset  string
	FeeBps uint32
	Active bool
	ExtRef [32]byte
}

// DeriveTradeID computes the deterministic trade identifier.
func DeriveTradeID(seller, buyer [20]byte, extRef [32]byte) [32]byte {
	return ethcrypto.Keccak256Hash(seller[:], buyer[:], extRef[:])
}

// Clone returns a deep copy of the trade so callers can safely mutate the
// copy without affecting the stored instance.
func (t *Trade) Clone() *Trade {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Value != nil {
		clone.Value = new(big.Int).Set(t.Value)
	} else {
		clone.Value = big.NewInt(0)
	}
	return &clone
}

// NormalizeAsset canonicalises a token asset identifier. The empty native
// marker is not a valid token asset.
func NormalizeAsset(asset string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(asset))
	if trimmed == "" {
		return "", fmt.Errorf("escrow: asset identifier must not be empty")
	}
	return trimmed, nil
}

// SanitizeTrade validates and normalises a trade record, returning a cloned
// instance with a non-nil value. The original is not mutated.
func SanitizeTrade(t *Trade) (*Trade, error) {
	if t == nil {
		return nil, fmt.Errorf("escrow: nil trade")
	}
	clone := t.Clone()
	if clone.Value.Sign() <= 0 {
		return nil, fmt.Errorf("escrow: trade value must be positive")
	}
	if clone.FeeBps > 10_000 {
		return nil, fmt.Errorf("escrow: fee bps out of range: %d", clone.FeeBps)
	}
	if clone.Asset != NativeAsset {
		normalized, err := NormalizeAsset(clone.Asset)
		if err != nil {
			return nil, err
		}
		clone.Asset = normalized
	}
	return clone, nil
}

// HalfFee computes one party's share of the protocol fee,
// value*feeBps/20000. The seller pre-pays this amount at creation and the
// buyer's payout is reduced by the same amount at resolution, so the total
// protocol take is value*feeBps/10000.
func HalfFee(value *big.Int, feeBps uint32) *big.Int {
	if value == nil || value.Sign() <= 0 || feeBps == 0 {
		return big.NewInt(0)
	}
	half := new(big.Int).Mul(value, new(big.Int).SetUint64(uint64(feeBps)))
	return half.Div(half, big.NewInt(20_000))
}
