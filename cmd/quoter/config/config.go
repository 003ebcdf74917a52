// Package config loads the quoter's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

// QuoterConfig selects where pool state comes from: a Solana RPC endpoint or
// a previously saved snapshot file. Exactly one source must be set.
type QuoterConfig struct {
	RPCURL    string `yaml:"rpc_url"`
	ProgramID string `yaml:"program_id"`

	SnapshotPath string `yaml:"snapshot_path"`
}

// validate checks if the configuration is valid, ensuring required dependencies are present.
func (c *QuoterConfig) validate() error {
	if c.RPCURL == "" && c.SnapshotPath == "" {
		return errors.New("config: either rpc_url or snapshot_path must be set")
	}
	if c.RPCURL != "" && c.SnapshotPath != "" {
		return errors.New("config: rpc_url and snapshot_path are mutually exclusive")
	}
	if c.RPCURL != "" {
		if c.ProgramID == "" {
			return errors.New("config: program_id is required with rpc_url")
		}
		if _, err := solana.PublicKeyFromBase58(c.ProgramID); err != nil {
			return fmt.Errorf("config: invalid program_id: %w", err)
		}
	}
	return nil
}

// Program returns the parsed program ID. Call only after a successful load.
func (c *QuoterConfig) Program() solana.PublicKey {
	key, _ := solana.PublicKeyFromBase58(c.ProgramID)
	return key
}

// LoadConfig reads and validates the configuration at path.
func LoadConfig(path string) (*QuoterConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := new(QuoterConfig)
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
