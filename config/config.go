package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/zapit-io/p2p-evmContract/crypto"
)

// Genesis holds the market parameters applied on first boot, before any routed
// operation can run.
type Genesis struct {
	Owner             string   `toml:"Owner"`
	FeeAddress        string   `toml:"FeeAddress"`
	Arbitrator        string   `toml:"Arbitrator"`
	FeeBps            uint32   `toml:"FeeBps"`
	WhitelistedAssets []string `toml:"WhitelistedAssets"`
}

type Config struct {
	ListenAddress string  `toml:"ListenAddress"`
	DataDir       string  `toml:"DataDir"`
	Environment   string  `toml:"Environment"`
	LogFile       string  `toml:"LogFile"`
	LogMaxSizeMB  int     `toml:"LogMaxSizeMB"`
	LogMaxBackups int     `toml:"LogMaxBackups"`
	Genesis       Genesis `toml:"Genesis"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8545"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./p2p-data"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if cfg.Genesis.WhitelistedAssets == nil {
		cfg.Genesis.WhitelistedAssets = []string{}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the loaded configuration for values that would leave the
// market in an unusable state.
func Validate(cfg *Config) error {
	if cfg.Genesis.FeeBps > 10000 {
		return fmt.Errorf("genesis: FeeBps %d exceeds 10000", cfg.Genesis.FeeBps)
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"Owner", cfg.Genesis.Owner},
		{"FeeAddress", cfg.Genesis.FeeAddress},
		{"Arbitrator", cfg.Genesis.Arbitrator},
	} {
		trimmed := strings.TrimSpace(field.value)
		if trimmed == "" {
			continue
		}
		if _, err := crypto.DecodeAddress(trimmed); err != nil {
			return fmt.Errorf("genesis: invalid %s: %w", field.name, err)
		}
	}
	return nil
}

// createDefault creates and saves a default configuration file. The genesis
// owner is freshly generated so a local node is usable immediately; the key is
// written next to the configuration for operator use.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	owner := key.PubKey().Address()

	keyPath := defaultKeyPath(path)
	if err := os.WriteFile(keyPath, []byte(key.Hex()+"\n"), 0o600); err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddress: ":8545",
		DataDir:       "./p2p-data",
		Environment:   "local",
		Genesis: Genesis{
			Owner:             owner.String(),
			FeeAddress:        owner.String(),
			Arbitrator:        owner.String(),
			FeeBps:            100,
			WhitelistedAssets: []string{},
		},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeyPath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "owner.key")
}
