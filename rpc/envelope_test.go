package rpc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zapit-io/p2p-evmContract/crypto"
)

func TestDigestBindsEveryField(t *testing.T) {
	base := SignedRequest{Operation: "pause", Params: []byte(`{}`), Value: "10", Nonce: 1}

	variants := []SignedRequest{
		{Operation: "unpause", Params: []byte(`{}`), Value: "10", Nonce: 1},
		{Operation: "pause", Params: []byte(`{"a":1}`), Value: "10", Nonce: 1},
		{Operation: "pause", Params: []byte(`{}`), Value: "11", Nonce: 1},
		{Operation: "pause", Params: []byte(`{}`), Value: "10", Nonce: 2},
	}
	for i, variant := range variants {
		require.NotEqual(t, base.Digest(), variant.Digest(), "variant %d shares the base digest", i)
	}
	require.Equal(t, base.Digest(), base.Digest(), "digest must be deterministic")
}

func TestRecoverCallerRoundTrip(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	req := &SignedRequest{Operation: "paused", Nonce: 3}
	require.NoError(t, SignRequest(req, key))

	caller, err := req.RecoverCaller()
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().Bytes(), caller)
}

func TestRecoverCallerRejectsMissingSignature(t *testing.T) {
	req := &SignedRequest{Operation: "paused"}
	_, err := req.RecoverCaller()
	require.Error(t, err)
}

func TestAttachedValueParsing(t *testing.T) {
	for _, tc := range []struct {
		value string
		want  string
		ok    bool
	}{
		{"", "0", true},
		{"05", "5", true},
		{"1000000000000000000", "1000000000000000000", true},
		{"-1", "", false},
		{"1.5", "", false},
		{"abc", "", false},
	} {
		req := &SignedRequest{Value: tc.value}
		got, err := req.AttachedValue()
		if !tc.ok {
			require.Error(t, err, "value %q", tc.value)
			continue
		}
		require.NoError(t, err, "value %q", tc.value)
		require.Equal(t, tc.want, got.String(), "value %q", tc.value)
	}
}
