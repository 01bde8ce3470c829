package escrow

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/zapit-io/p2p-evmContract/crypto"
)

// MessageDigest binds a trade identifier to one counterparty address. The
// counterparty is part of the digest so a signature authorising payout to the
// buyer cannot be replayed to pay the seller, or reused on another trade.
func MessageDigest(tradeID [32]byte, counterparty [20]byte) [32]byte {
	return ethcrypto.Keccak256Hash(tradeID[:], counterparty[:])
}

// RecoverSigner recovers the address that signed the digest. Malformed
// signatures surface as an error; callers compare the recovered address
// against the expected signer either way.
func RecoverSigner(digest [32]byte, sig []byte) ([20]byte, error) {
	return crypto.RecoverSigner(digest, sig)
}
