package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zapit-io/p2p-evmContract/crypto"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8545" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	if cfg.Genesis.FeeBps != 100 {
		t.Fatalf("unexpected default fee %d", cfg.Genesis.FeeBps)
	}
	if _, err := crypto.DecodeAddress(cfg.Genesis.Owner); err != nil {
		t.Fatalf("generated owner is not a valid address: %v", err)
	}

	// The config file and the owner key were persisted.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	keyBytes, err := os.ReadFile(filepath.Join(dir, "owner.key"))
	if err != nil {
		t.Fatalf("owner key not written: %v", err)
	}
	key, err := crypto.PrivateKeyFromHex(strings.TrimSpace(string(keyBytes)))
	if err != nil {
		t.Fatalf("owner key unreadable: %v", err)
	}
	if key.PubKey().Address().String() != cfg.Genesis.Owner {
		t.Fatalf("owner key does not match configured owner")
	}

	// Loading again returns the persisted config rather than a new one.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Genesis.Owner != cfg.Genesis.Owner {
		t.Fatalf("reload produced a different owner")
	}
}

func TestLoadAppliesDefaultsToSparseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	sparse := "ListenAddress = \"\"\n"
	if err := os.WriteFile(path, []byte(sparse), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8545" || cfg.DataDir != "./p2p-data" || cfg.Environment != "local" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestValidateRejectsBadGenesis(t *testing.T) {
	if err := Validate(&Config{Genesis: Genesis{FeeBps: 10001}}); err == nil {
		t.Fatalf("excessive fee accepted")
	}
	if err := Validate(&Config{Genesis: Genesis{Owner: "not-an-address"}}); err == nil {
		t.Fatalf("malformed owner accepted")
	}
	if err := Validate(&Config{Genesis: Genesis{FeeBps: 100}}); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
