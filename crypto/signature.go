package crypto

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const signedMessagePrefix = "\x19Ethereum Signed Message:\n32"

// SignedMessageHash wraps a 32-byte digest in the personal-message envelope so
// signatures produced by standard wallet tooling verify against it.
func SignedMessageHash(digest [32]byte) [32]byte {
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256([]byte(signedMessagePrefix), digest[:]))
	return out
}

// Sign produces a 65-byte recoverable signature over the personal-message
// envelope of the digest.
func Sign(digest [32]byte, key *PrivateKey) ([]byte, error) {
	if key == nil || key.PrivateKey == nil {
		return nil, fmt.Errorf("crypto: private key not configured")
	}
	envelope := SignedMessageHash(digest)
	return ethcrypto.Sign(envelope[:], key.PrivateKey)
}

// RecoverSigner recovers the address that signed the personal-message envelope
// of the digest. Malformed signatures yield an error; callers must compare the
// recovered address against the expected signer either way.
func RecoverSigner(digest [32]byte, sig []byte) ([20]byte, error) {
	var addr [20]byte
	if len(sig) != 65 {
		return addr, fmt.Errorf("crypto: signature must be 65 bytes, got %d", len(sig))
	}
	normalized := append([]byte(nil), sig...)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	envelope := SignedMessageHash(digest)
	pub, err := ethcrypto.SigToPub(envelope[:], normalized)
	if err != nil {
		return addr, fmt.Errorf("crypto: recover signer: %w", err)
	}
	recovered := ethcrypto.PubkeyToAddress(*pub)
	copy(addr[:], recovered.Bytes())
	return addr, nil
}
