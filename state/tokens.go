package state

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const vaultDomain = "p2p/vault/"

// VaultAddress derives the module vault holding escrowed funds for the given
// asset. The empty identifier is the native vault; token vaults are distinct
// principals per symbol so per-asset balances never mix.
func VaultAddress(asset string) [20]byte {
	tag := vaultDomain + "native"
	if asset != "" {
		tag = vaultDomain + "token/" + asset
	}
	hash := ethcrypto.Keccak256([]byte(tag))
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

func tokenBalanceKey(asset string, addr [20]byte) []byte {
	return joinKey(tokenBalancePrefix, []byte(asset), []byte("/"), addr[:])
}

func tokenAllowanceKey(asset string, owner, spender [20]byte) []byte {
	return joinKey(tokenAllowPrefix, []byte(asset), []byte("/"), owner[:], []byte("/"), spender[:])
}

// TokenBalance returns the fungible-token balance for the address.
func (m *Manager) TokenBalance(asset string, addr [20]byte) (*big.Int, error) {
	balance := new(big.Int)
	ok, err := m.loadRecord(tokenBalanceKey(asset, addr), balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return balance, nil
}

// SetTokenBalance stores the fungible-token balance for the address.
func (m *Manager) SetTokenBalance(asset string, addr [20]byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: token balance must be non-negative")
	}
	return m.storeRecord(tokenBalanceKey(asset, addr), amount)
}

// TokenAllowance returns how much the spender may pull from the owner.
func (m *Manager) TokenAllowance(asset string, owner, spender [20]byte) (*big.Int, error) {
	allowance := new(big.Int)
	ok, err := m.loadRecord(tokenAllowanceKey(asset, owner, spender), allowance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return allowance, nil
}

// TokenApprove sets the spender's allowance over the owner's balance.
func (m *Manager) TokenApprove(asset string, owner, spender [20]byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: token allowance must be non-negative")
	}
	return m.storeRecord(tokenAllowanceKey(asset, owner, spender), amount)
}

// TokenTransfer moves token balance between two addresses.
func (m *Manager) TokenTransfer(asset string, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative transfer amount")
	}
	fromBalance, err := m.TokenBalance(asset, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := m.TokenBalance(asset, to)
	if err != nil {
		return err
	}
	if err := m.SetTokenBalance(asset, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return m.SetTokenBalance(asset, to, new(big.Int).Add(toBalance, amount))
}

// TokenTransferFrom consumes the spender's allowance and moves the owner's
// balance, the pull half of the pull-then-push deposit model.
func (m *Manager) TokenTransferFrom(asset string, owner, spender, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative transfer amount")
	}
	allowance, err := m.TokenAllowance(asset, owner, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("state: transfer amount exceeds allowance")
	}
	if err := m.TokenTransfer(asset, owner, to, amount); err != nil {
		return err
	}
	return m.TokenApprove(asset, owner, spender, new(big.Int).Sub(allowance, amount))
}
