package crypto

import (
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestSignRecoverRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	digest := ethcrypto.Keccak256Hash([]byte("payload"))

	sig, err := Sign(digest, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("expected 65-byte signature, got %d", len(sig))
	}

	recovered, err := RecoverSigner(digest, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered != key.PubKey().Address().Bytes() {
		t.Fatalf("recovered address mismatch")
	}
}

func TestRecoverSignerRejectsShortSignature(t *testing.T) {
	digest := ethcrypto.Keccak256Hash([]byte("payload"))
	if _, err := RecoverSigner(digest, make([]byte, 64)); err == nil {
		t.Fatalf("expected error for truncated signature")
	}
}

func TestRecoverSignerDifferentDigestYieldsDifferentSigner(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sig, err := Sign(ethcrypto.Keccak256Hash([]byte("one")), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	recovered, err := RecoverSigner(ethcrypto.Keccak256Hash([]byte("two")), sig)
	if err == nil && recovered == key.PubKey().Address().Bytes() {
		t.Fatalf("signature verified against the wrong digest")
	}
}

func TestAddressBech32RoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()
	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bytes() != addr.Bytes() {
		t.Fatalf("round trip mismatch")
	}
}

func TestDecodeAddressRejectsForeignPrefix(t *testing.T) {
	if _, err := DecodeAddress("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"); err == nil {
		t.Fatalf("expected prefix rejection")
	}
}
