package admin

import (
	"errors"
	"testing"

	"github.com/zapit-io/p2p-evmContract/dispatch"
	"github.com/zapit-io/p2p-evmContract/native/common"
	"github.com/zapit-io/p2p-evmContract/state"
	"github.com/zapit-io/p2p-evmContract/storage"
)

var (
	owner      = [20]byte{0x01}
	operator   = [20]byte{0x02}
	outsider   = [20]byte{0x03}
	feeAddr    = [20]byte{0x04}
	arbitrator = [20]byte{0x05}
)

func newTestEngine(t *testing.T) (*Engine, *state.Manager) {
	t.Helper()
	st := state.NewManager(storage.NewMemDB())
	cfg, err := st.MarketConfig()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Owner = owner
	if err := st.SetMarketConfig(cfg); err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	return NewEngine(st), st
}

func TestInitSetsMarketParametersAndKeepsOwner(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.Init(owner, feeAddr, 100, arbitrator); err != nil {
		t.Fatalf("init: %v", err)
	}

	gotOwner, err := e.Owner()
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if gotOwner != owner {
		t.Fatalf("init must not change the owner")
	}
	gotFee, err := e.Fees()
	if err != nil || gotFee != 100 {
		t.Fatalf("fees = %d, err %v", gotFee, err)
	}
	gotArb, err := e.Arbitrator()
	if err != nil || gotArb != arbitrator {
		t.Fatalf("arbitrator mismatch: %v", err)
	}
	gotFeeAddr, err := e.FeeAddress()
	if err != nil || gotFeeAddr != feeAddr {
		t.Fatalf("fee address mismatch: %v", err)
	}
}

func TestInitIsOwnerGatedAndRunsOnce(t *testing.T) {
	e, st := newTestEngine(t)

	if err := e.Init(outsider, feeAddr, 100, arbitrator); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := e.Init(owner, feeAddr, 100, arbitrator); err != nil {
		t.Fatalf("init: %v", err)
	}

	// Once the init epoch closes, even the owner may not re-run it.
	if err := st.MarkInitialized(); err != nil {
		t.Fatalf("mark initialized: %v", err)
	}
	if err := e.Init(owner, feeAddr, 250, [20]byte{0x09}); !errors.Is(err, dispatch.ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
	gotFee, err := e.Fees()
	if err != nil || gotFee != 100 {
		t.Fatalf("closed-epoch init changed fees: %d %v", gotFee, err)
	}
}

func TestTransferOwnership(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.TransferOwnership(outsider, outsider); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := e.TransferOwnership(owner, [20]byte{}); err == nil {
		t.Fatalf("zero owner must be rejected")
	}
	if err := e.TransferOwnership(owner, operator); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	// The old owner loses the privilege immediately.
	if err := e.TransferOwnership(owner, owner); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("old owner still authorised: %v", err)
	}
	if err := e.TransferOwnership(operator, owner); err != nil {
		t.Fatalf("new owner rejected: %v", err)
	}
}

func TestAdminRoleUnlocksSetters(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.SetFees(operator, 250); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := e.GrantRole(operator, RoleAdmin, operator); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("role grants are owner-only, got %v", err)
	}
	if err := e.GrantRole(owner, RoleAdmin, operator); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if err := e.SetFees(operator, 250); err != nil {
		t.Fatalf("admin setter: %v", err)
	}
	if err := e.SetArbitrator(operator, arbitrator); err != nil {
		t.Fatalf("set arbitrator: %v", err)
	}
	if err := e.SetFeeAddress(operator, feeAddr); err != nil {
		t.Fatalf("set fee address: %v", err)
	}
	if err := e.SetWhitelistedAsset(operator, "usdt", true); err != nil {
		t.Fatalf("whitelist: %v", err)
	}

	whitelisted, err := e.WhitelistedCurrency("USDT")
	if err != nil || !whitelisted {
		t.Fatalf("asset not whitelisted: %v", err)
	}

	if err := e.RevokeRole(owner, RoleAdmin, operator); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := e.SetFees(operator, 300); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("revoked admin still authorised: %v", err)
	}
}

func TestRenounceRole(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.GrantRole(owner, RoleAdmin, operator); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := e.RenounceRole(operator, RoleAdmin); err != nil {
		t.Fatalf("renounce: %v", err)
	}
	has, err := e.HasRole(RoleAdmin, operator)
	if err != nil {
		t.Fatalf("has role: %v", err)
	}
	if has {
		t.Fatalf("role survived renounce")
	}
}

func TestPauseRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)

	paused, err := e.Paused()
	if err != nil || paused {
		t.Fatalf("fresh market paused: %v", err)
	}
	if err := e.Pause(outsider); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := e.Pause(owner); err != nil {
		t.Fatalf("pause: %v", err)
	}
	paused, err = e.Paused()
	if err != nil || !paused {
		t.Fatalf("pause not applied: %v", err)
	}
	if err := e.Unpause(owner); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	paused, err = e.Paused()
	if err != nil || paused {
		t.Fatalf("unpause not applied: %v", err)
	}
}

func TestGetEscrowOnEmptyState(t *testing.T) {
	e, _ := newTestEngine(t)
	_, ok, err := e.GetEscrow([32]byte{0x01})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ok {
		t.Fatalf("unexpected trade on empty state")
	}
}
