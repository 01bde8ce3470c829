package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zapit-io/p2p-evmContract/core/events"
	"github.com/zapit-io/p2p-evmContract/crypto"
	"github.com/zapit-io/p2p-evmContract/dispatch"
	"github.com/zapit-io/p2p-evmContract/native/admin"
	"github.com/zapit-io/p2p-evmContract/native/escrow"
	"github.com/zapit-io/p2p-evmContract/state"
	"github.com/zapit-io/p2p-evmContract/storage"
)

type testNode struct {
	server *httptest.Server
	state  *state.Manager

	sellerKey *crypto.PrivateKey
	buyerKey  *crypto.PrivateKey
	seller    [20]byte
	buyer     [20]byte
	owner     [20]byte
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()
	n := &testNode{state: state.NewManager(storage.NewMemDB())}

	var err error
	if n.sellerKey, err = crypto.GeneratePrivateKey(); err != nil {
		t.Fatalf("seller key: %v", err)
	}
	if n.buyerKey, err = crypto.GeneratePrivateKey(); err != nil {
		t.Fatalf("buyer key: %v", err)
	}
	n.seller = n.sellerKey.PubKey().Address().Bytes()
	n.buyer = n.buyerKey.PubKey().Address().Bytes()
	n.owner = [20]byte{0x01}

	collector := events.NewCollector()
	engine := escrow.NewEngine()
	engine.SetState(n.state)
	engine.SetEmitter(collector)
	adminEngine := admin.NewEngine(n.state)

	modules := []dispatch.Module{
		escrow.NewNativeModule(engine),
		escrow.NewTokenModule(engine),
		admin.NewModule(adminEngine),
	}
	d := dispatch.New(n.state, collector, modules...)
	if err := d.Bootstrap(n.owner); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	cuts := make([]dispatch.Cut, 0, len(modules))
	for _, module := range modules {
		operations := make([]string, 0, len(module.Handlers()))
		for op := range module.Handlers() {
			if op == admin.OpInit {
				continue
			}
			operations = append(operations, op)
		}
		cuts = append(cuts, dispatch.Cut{Module: module.Name(), Action: dispatch.CutAdd, Operations: operations})
	}
	initParams, _ := json.Marshal(map[string]interface{}{
		"feeAddress": crypto.NewAddress([20]byte{0xFE}).String(),
		"feeBps":     uint32(100),
	})
	init := &dispatch.InitCall{Module: admin.ModuleName, Operation: admin.OpInit, Params: initParams}
	if err := d.Upgrade(n.owner, cuts, init); err != nil {
		t.Fatalf("genesis upgrade: %v", err)
	}

	if err := n.state.Mint(n.seller, new(big.Int).Mul(big.NewInt(2), exp18())); err != nil {
		t.Fatalf("fund seller: %v", err)
	}
	if err := n.state.Commit(); err != nil {
		t.Fatalf("commit funding: %v", err)
	}

	srv := NewServer(nil, d, n.state)
	n.server = httptest.NewServer(srv.Router())
	t.Cleanup(n.server.Close)
	return n
}

func exp18() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
}

func (n *testNode) invoke(t *testing.T, key *crypto.PrivateKey, req *SignedRequest) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	if err := SignRequest(req, key); err != nil {
		t.Fatalf("sign request: %v", err)
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(n.server.URL+"/v1/invoke", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestInvokeCreatesEscrowEndToEnd(t *testing.T) {
	n := newTestNode(t)
	value := exp18()
	halfFee := escrow.HalfFee(value, 100)
	attached := new(big.Int).Add(value, halfFee)

	params, err := json.Marshal(map[string]string{
		"buyer":             crypto.NewAddress(n.buyer).String(),
		"value":             value.String(),
		"externalReference": "0x0101010101010101010101010101010101010101010101010101010101010101",
	})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}

	resp, body := n.invoke(t, n.sellerKey, &SignedRequest{
		Operation: escrow.OpCreateNative,
		Params:    params,
		Value:     attached.String(),
		Nonce:     0,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body["error"])
	}

	var result escrow.TradeResult
	if err := json.Unmarshal(body["result"], &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !result.Active || result.Value != value.String() {
		t.Fatalf("unexpected trade result %+v", result)
	}

	// The envelope nonce was consumed.
	var nonce uint64
	if err := json.Unmarshal(body["nonce"], &nonce); err != nil {
		t.Fatalf("decode nonce: %v", err)
	}
	if nonce != 1 {
		t.Fatalf("nonce = %d, want 1", nonce)
	}

	// The seller's committed balance reflects the deposit: funded with 2e18,
	// the escrow locked value plus the seller's fee half.
	account, err := n.state.GetAccount(n.seller)
	if err != nil {
		t.Fatalf("seller account: %v", err)
	}
	wantBalance := new(big.Int).Sub(new(big.Int).Mul(big.NewInt(2), exp18()), attached)
	if account.Balance.Cmp(wantBalance) != 0 {
		t.Fatalf("seller balance = %s, want %s", account.Balance, wantBalance)
	}
	if account.Nonce != 1 {
		t.Fatalf("stored nonce = %d, want 1", account.Nonce)
	}

	// The stored trade is visible through the read path.
	readResp, err := http.Get(n.server.URL + "/v1/escrows/" + result.TradeID)
	if err != nil {
		t.Fatalf("get escrow: %v", err)
	}
	defer readResp.Body.Close()
	if readResp.StatusCode != http.StatusOK {
		t.Fatalf("read status %d", readResp.StatusCode)
	}
}

func TestInvokeRejectsStaleNonce(t *testing.T) {
	n := newTestNode(t)
	resp, _ := n.invoke(t, n.sellerKey, &SignedRequest{
		Operation: admin.OpPaused,
		Nonce:     5,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status %d, want 409", resp.StatusCode)
	}
}

func TestInvokeCannotReconfigureMarketViaInit(t *testing.T) {
	n := newTestNode(t)
	params, err := json.Marshal(map[string]interface{}{
		"feeAddress": crypto.NewAddress(n.buyer).String(),
		"feeBps":     uint32(5000),
		"arbitrator": crypto.NewAddress(n.buyer).String(),
	})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}

	// The init operation is never routed; it runs only inside the genesis
	// upgrade. A signed envelope from an arbitrary principal must bounce.
	resp, _ := n.invoke(t, n.buyerKey, &SignedRequest{
		Operation: admin.OpInit,
		Params:    params,
		Nonce:     0,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}

	cfg, err := n.state.MarketConfig()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Arbitrator == n.buyer || cfg.FeeBps != 100 {
		t.Fatalf("market config rewritten: arbitrator %x feeBps %d", cfg.Arbitrator, cfg.FeeBps)
	}
}

func TestInvokeUnknownOperationIs404(t *testing.T) {
	n := newTestNode(t)
	resp, _ := n.invoke(t, n.sellerKey, &SignedRequest{
		Operation: "noSuchOperation",
		Nonce:     0,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
}

func TestInvokeRejectsTamperedEnvelope(t *testing.T) {
	n := newTestNode(t)
	req := &SignedRequest{Operation: admin.OpPaused, Nonce: 0}
	if err := SignRequest(req, n.sellerKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	// Changing a signed field after signing shifts the recovered caller, so
	// the call runs as an unrelated principal and is rejected downstream.
	req.Operation = admin.OpPause
	body, _ := json.Marshal(req)
	resp, err := http.Post(n.server.URL+"/v1/invoke", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Fatalf("tampered envelope accepted")
	}
}

func TestModulesEndpointListsRoutes(t *testing.T) {
	n := newTestNode(t)
	resp, err := http.Get(n.server.URL + "/v1/modules")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body struct {
		Modules []state.ModuleRoutes `json:"modules"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	names := make(map[string]bool, len(body.Modules))
	for _, entry := range body.Modules {
		names[entry.Module] = true
	}
	for _, want := range []string{"escrow", "escrow-erc20", "admin", "dispatcher"} {
		if !names[want] {
			t.Fatalf("module %q missing from %v", want, names)
		}
	}
}

func TestAccountEndpoint(t *testing.T) {
	n := newTestNode(t)
	addr := crypto.NewAddress(n.seller).String()
	resp, err := http.Get(n.server.URL + "/v1/accounts/" + addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body struct {
		Address string `json:"address"`
		Balance string `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Address != addr {
		t.Fatalf("address echo mismatch: %s", body.Address)
	}
	if body.Balance != new(big.Int).Mul(big.NewInt(2), exp18()).String() {
		t.Fatalf("unexpected balance %s", body.Balance)
	}
}

func TestHealthz(t *testing.T) {
	n := newTestNode(t)
	resp, err := http.Get(n.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
