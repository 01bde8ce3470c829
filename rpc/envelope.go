package rpc

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/zapit-io/p2p-evmContract/crypto"
)

// SignedRequest is the authenticated call envelope accepted by POST
// /v1/invoke. The caller is never named in the payload: it is recovered from
// the signature over the request digest, and the nonce pins the envelope to a
// single use.
type SignedRequest struct {
	Operation string          `json:"operation"`
	Params    json.RawMessage `json:"params,omitempty"`
	Value     string          `json:"value,omitempty"`
	Nonce     uint64          `json:"nonce"`
	Signature string          `json:"signature"`
}

// Digest computes the hash the envelope signature must cover. Fields are
// length-prefixed so no two distinct envelopes share a digest.
func (r *SignedRequest) Digest() [32]byte {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], r.Nonce)
	parts := [][]byte{
		[]byte(r.Operation),
		[]byte(r.Params),
		[]byte(strings.TrimSpace(r.Value)),
		nonce[:],
	}
	buf := make([]byte, 0, 64)
	var size [8]byte
	for _, part := range parts {
		binary.BigEndian.PutUint64(size[:], uint64(len(part)))
		buf = append(buf, size[:]...)
		buf = append(buf, part...)
	}
	return ethcrypto.Keccak256Hash(buf)
}

// RecoverCaller validates the envelope signature and returns the signing
// address.
func (r *SignedRequest) RecoverCaller() ([20]byte, error) {
	var caller [20]byte
	sigHex := strings.TrimPrefix(strings.TrimSpace(r.Signature), "0x")
	if sigHex == "" {
		return caller, fmt.Errorf("rpc: missing signature")
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return caller, fmt.Errorf("rpc: invalid signature encoding: %w", err)
	}
	return crypto.RecoverSigner(r.Digest(), sig)
}

// AttachedValue parses the optional decimal value field. An empty field means
// no native value rides along with the call.
func (r *SignedRequest) AttachedValue() (*big.Int, error) {
	trimmed := strings.TrimSpace(r.Value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("rpc: invalid value %q", r.Value)
	}
	return value, nil
}

// SignRequest fills in the envelope signature for the given key. Intended for
// clients and tests.
func SignRequest(r *SignedRequest, key *crypto.PrivateKey) error {
	sig, err := crypto.Sign(r.Digest(), key)
	if err != nil {
		return err
	}
	r.Signature = "0x" + hex.EncodeToString(sig)
	return nil
}
