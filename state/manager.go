package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/zapit-io/p2p-evmContract/core/types"
	"github.com/zapit-io/p2p-evmContract/storage"
)

// ErrInsufficientBalance is returned when a transfer would overdraw the
// sender.
var ErrInsufficientBalance = errors.New("state: insufficient balance")

type dirtyEntry struct {
	value   []byte
	deleted bool
}

// Manager is the single storage root shared by every module. Writes are
// buffered in an overlay and only reach the backing database on Commit, so a
// failed call can discard every mutation it staged. The dispatcher owns the
// Commit/Discard cycle; modules just read and write.
type Manager struct {
	db    storage.Database
	dirty map[string]dirtyEntry
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:    db,
		dirty: make(map[string]dirtyEntry),
	}
}

func (m *Manager) get(key []byte) ([]byte, error) {
	if entry, ok := m.dirty[string(key)]; ok {
		if entry.deleted {
			return nil, nil
		}
		return entry.value, nil
	}
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	return value, err
}

func (m *Manager) put(key, value []byte) {
	m.dirty[string(key)] = dirtyEntry{value: value}
}

func (m *Manager) delete(key []byte) {
	m.dirty[string(key)] = dirtyEntry{deleted: true}
}

// Commit flushes every buffered write to the backing database.
func (m *Manager) Commit() error {
	for key, entry := range m.dirty {
		if entry.deleted {
			if err := m.db.Delete([]byte(key)); err != nil {
				return fmt.Errorf("state: commit delete: %w", err)
			}
			continue
		}
		if err := m.db.Put([]byte(key), entry.value); err != nil {
			return fmt.Errorf("state: commit put: %w", err)
		}
	}
	m.dirty = make(map[string]dirtyEntry)
	return nil
}

// Discard drops every buffered write, restoring the view to the last commit.
func (m *Manager) Discard() {
	m.dirty = make(map[string]dirtyEntry)
}

func (m *Manager) loadRecord(key []byte, out interface{}) (bool, error) {
	data, err := m.get(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) storeRecord(key []byte, record interface{}) error {
	encoded, err := rlp.EncodeToBytes(record)
	if err != nil {
		return err
	}
	m.put(key, encoded)
	return nil
}

// KVGet reads a raw keyed record. Absent keys yield a nil value, not an
// error. Modules that persist their own record types (the escrow trade table)
// go through this surface with their own key namespace.
func (m *Manager) KVGet(key []byte) ([]byte, error) {
	return m.get(key)
}

// KVPut stages a raw keyed record write.
func (m *Manager) KVPut(key, value []byte) error {
	m.put(key, value)
	return nil
}

// KVDelete stages removal of a raw keyed record.
func (m *Manager) KVDelete(key []byte) error {
	m.delete(key)
	return nil
}

func accountKey(addr [20]byte) []byte {
	return joinKey(accountPrefix, addr[:])
}

// GetAccount loads the account for the supplied address, returning a zeroed
// account when none has been stored yet.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	acc := new(types.Account)
	ok, err := m.loadRecord(accountKey(addr), acc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.EnsureAccount(nil), nil
	}
	return types.EnsureAccount(acc), nil
}

// PutAccount persists the account record for the address.
func (m *Manager) PutAccount(addr [20]byte, acc *types.Account) error {
	return m.storeRecord(accountKey(addr), types.EnsureAccount(acc))
}

// NativeTransfer moves native value between two accounts. Zero-amount
// transfers are a no-op; negative amounts are rejected.
func (m *Manager) NativeTransfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative transfer amount")
	}
	fromAcc, err := m.GetAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toAcc, err := m.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := m.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return m.PutAccount(to, toAcc)
}

// Mint credits native value to an account. Used by genesis and tests.
func (m *Manager) Mint(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("state: mint amount must be positive")
	}
	acc, err := m.GetAccount(addr)
	if err != nil {
		return err
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return m.PutAccount(addr, acc)
}
