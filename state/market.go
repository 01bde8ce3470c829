package state

import (
	"bytes"
	"fmt"
	"sort"
)

// MarketConfig is the global mutable configuration shared by every module:
// ownership, dispute arbitration, fee policy and the creation circuit
// breaker. Fee changes never touch open trades, which carry the rate captured
// at creation.
type MarketConfig struct {
	Owner      [20]byte
	Arbitrator [20]byte
	FeeAddress [20]byte
	FeeBps     uint32
	Paused     bool
}

// MarketConfig loads the stored configuration, returning a zero value when
// the system has not been initialised yet.
func (m *Manager) MarketConfig() (*MarketConfig, error) {
	cfg := new(MarketConfig)
	if _, err := m.loadRecord(marketConfigKey, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetMarketConfig persists the configuration record.
func (m *Manager) SetMarketConfig(cfg *MarketConfig) error {
	if cfg == nil {
		return fmt.Errorf("state: nil market config")
	}
	if cfg.FeeBps > 10_000 {
		return fmt.Errorf("state: fee bps out of range: %d", cfg.FeeBps)
	}
	return m.storeRecord(marketConfigKey, cfg)
}

// FeeParameters returns the current default fee rate and recipient.
func (m *Manager) FeeParameters() (uint32, [20]byte, error) {
	cfg, err := m.MarketConfig()
	if err != nil {
		return 0, [20]byte{}, err
	}
	return cfg.FeeBps, cfg.FeeAddress, nil
}

// Arbitrator returns the principal authorised to sign dispute resolutions.
func (m *Manager) Arbitrator() ([20]byte, error) {
	cfg, err := m.MarketConfig()
	if err != nil {
		return [20]byte{}, err
	}
	return cfg.Arbitrator, nil
}

// Paused reports whether new trade creation is blocked.
func (m *Manager) Paused() (bool, error) {
	cfg, err := m.MarketConfig()
	if err != nil {
		return false, err
	}
	return cfg.Paused, nil
}

// VaultAddress exposes the vault derivation so engines reach it through their
// state interface.
func (m *Manager) VaultAddress(asset string) [20]byte {
	return VaultAddress(asset)
}

func whitelistKey(asset string) []byte {
	return joinKey(whitelistPrefix, []byte(asset))
}

// SetAssetWhitelisted marks an asset as eligible (or not) for token trades.
func (m *Manager) SetAssetWhitelisted(asset string, allowed bool) error {
	if asset == "" {
		return fmt.Errorf("state: asset identifier must not be empty")
	}
	if !allowed {
		m.delete(whitelistKey(asset))
		return nil
	}
	m.put(whitelistKey(asset), []byte{0x01})
	return nil
}

// AssetWhitelisted reports whether the asset may back new token trades.
func (m *Manager) AssetWhitelisted(asset string) (bool, error) {
	data, err := m.get(whitelistKey(asset))
	if err != nil {
		return false, err
	}
	return len(data) > 0, nil
}

func roleKey(role string) []byte {
	return joinKey(rolePrefix, []byte(role))
}

// RoleMembers returns the sorted member set for the role tag.
func (m *Manager) RoleMembers(role string) ([][20]byte, error) {
	var members [][20]byte
	if _, err := m.loadRecord(roleKey(role), &members); err != nil {
		return nil, err
	}
	return members, nil
}

// HasRole reports membership of the address in the role set.
func (m *Manager) HasRole(role string, addr [20]byte) (bool, error) {
	members, err := m.RoleMembers(role)
	if err != nil {
		return false, err
	}
	for _, member := range members {
		if member == addr {
			return true, nil
		}
	}
	return false, nil
}

// GrantRole adds the address to the role set. Granting an already-held role
// is a no-op.
func (m *Manager) GrantRole(role string, addr [20]byte) error {
	members, err := m.RoleMembers(role)
	if err != nil {
		return err
	}
	for _, member := range members {
		if member == addr {
			return nil
		}
	}
	members = append(members, addr)
	sort.Slice(members, func(i, j int) bool {
		return bytes.Compare(members[i][:], members[j][:]) < 0
	})
	return m.storeRecord(roleKey(role), members)
}

// RevokeRole removes the address from the role set. Revoking an unheld role
// is a no-op.
func (m *Manager) RevokeRole(role string, addr [20]byte) error {
	members, err := m.RoleMembers(role)
	if err != nil {
		return err
	}
	filtered := members[:0]
	removed := false
	for _, member := range members {
		if member == addr {
			removed = true
			continue
		}
		filtered = append(filtered, member)
	}
	if !removed {
		return nil
	}
	if len(filtered) == 0 {
		m.delete(roleKey(role))
		return nil
	}
	return m.storeRecord(roleKey(role), filtered)
}

// InitializationDone reports whether the one-shot upgrade init has run.
func (m *Manager) InitializationDone() (bool, error) {
	data, err := m.get(initGuardKey)
	if err != nil {
		return false, err
	}
	return len(data) > 0, nil
}

// MarkInitialized sets the init guard, closing the initialization epoch.
func (m *Manager) MarkInitialized() error {
	m.put(initGuardKey, []byte{0x01})
	return nil
}
