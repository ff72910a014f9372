// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package config loads the daemon configuration. Values are layered with
// increasing priority: built-in defaults, the config file (TOML or YAML),
// then the environment (including .env files).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/zerowaste-dao/govcore/genesis"
	"github.com/zerowaste-dao/govcore/governance"
	"github.com/zerowaste-dao/govcore/storage"
	"github.com/zerowaste-dao/govcore/token"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. DAO_OWNER.
const EnvPrefix = "DAO"

var ErrUnsupportedFormat = errors.New("unsupported config file format")

// Config is the complete daemon configuration.
type Config struct {
	Owner           common.Address `toml:"owner" yaml:"owner" envconfig:"OWNER"`
	CoreAddress     common.Address `toml:"core_address" yaml:"coreAddress" envconfig:"CORE_ADDRESS"`
	TokenAddress    common.Address `toml:"token_address" yaml:"tokenAddress" envconfig:"TOKEN_ADDRESS"`
	TreasuryAddress common.Address `toml:"treasury_address" yaml:"treasuryAddress" envconfig:"TREASURY_ADDRESS"`

	Peers      PeersConfig      `toml:"peers" yaml:"peers" envconfig:"PEER"`
	Governance GovernanceConfig `toml:"governance" yaml:"governance" envconfig:"GOV"`
	Token      TokenConfig      `toml:"token" yaml:"token" envconfig:"TOKEN"`
	Storage    StorageConfig    `toml:"storage" yaml:"storage" envconfig:"STORAGE"`
	Log        LogConfig        `toml:"log" yaml:"log" envconfig:"LOG"`
}

// PeersConfig holds the identities serving each governance peer role. A
// zero address leaves the role unconfigured.
type PeersConfig struct {
	Submission         common.Address `toml:"submission" yaml:"submission" envconfig:"SUBMISSION"`
	VotingMechanism    common.Address `toml:"voting_mechanism" yaml:"votingMechanism" envconfig:"VOTING_MECHANISM"`
	ExecutionEngine    common.Address `toml:"execution_engine" yaml:"executionEngine" envconfig:"EXECUTION_ENGINE"`
	StakingVault       common.Address `toml:"staking_vault" yaml:"stakingVault" envconfig:"STAKING_VAULT"`
	RewardsDistributor common.Address `toml:"rewards_distributor" yaml:"rewardsDistributor" envconfig:"REWARDS_DISTRIBUTOR"`
}

// Roles maps the configured peers to their governance roles.
func (p PeersConfig) Roles() map[governance.PeerRole]common.Address {
	return map[governance.PeerRole]common.Address{
		governance.PeerSubmission:         p.Submission,
		governance.PeerVotingMechanism:    p.VotingMechanism,
		governance.PeerExecutionEngine:    p.ExecutionEngine,
		governance.PeerStakingVault:       p.StakingVault,
		governance.PeerRewardsDistributor: p.RewardsDistributor,
	}
}

// GovernanceConfig holds the voting parameters.
type GovernanceConfig struct {
	QuorumThreshold       uint64 `toml:"quorum_threshold" yaml:"quorumThreshold" envconfig:"QUORUM"`
	VotingPeriod          uint64 `toml:"voting_period" yaml:"votingPeriod" envconfig:"VOTING_PERIOD"`
	DelegationPolicy      string `toml:"delegation_policy" yaml:"delegationPolicy" envconfig:"DELEGATION_POLICY"`
	RejectOnQuorumFailure bool   `toml:"reject_on_quorum_failure" yaml:"rejectOnQuorumFailure" envconfig:"REJECT_ON_QUORUM_FAILURE"`

	RewardBase        uint64 `toml:"reward_base" yaml:"rewardBase" envconfig:"REWARD_BASE"`
	RewardDecayPeriod uint64 `toml:"reward_decay_period" yaml:"rewardDecayPeriod" envconfig:"REWARD_DECAY_PERIOD"`
	RewardDecayRate   uint64 `toml:"reward_decay_rate" yaml:"rewardDecayRate" envconfig:"REWARD_DECAY_RATE"`
	RewardMin         uint64 `toml:"reward_min" yaml:"rewardMin" envconfig:"REWARD_MIN"`
}

// Core converts the section into the governance core configuration.
func (g GovernanceConfig) Core() *governance.Config {
	return &governance.Config{
		QuorumThreshold:       g.QuorumThreshold,
		VotingPeriod:          g.VotingPeriod,
		DelegationPolicy:      governance.DelegationPolicy(g.DelegationPolicy),
		RejectOnQuorumFailure: g.RejectOnQuorumFailure,
		Reward: &governance.RewardConfig{
			BaseReward:  g.RewardBase,
			DecayPeriod: g.RewardDecayPeriod,
			DecayRate:   g.RewardDecayRate,
			MinReward:   g.RewardMin,
		},
	}
}

// Allocation is a genesis token credit.
type Allocation struct {
	Account common.Address `toml:"account" yaml:"account"`
	Amount  uint64         `toml:"amount" yaml:"amount"`
}

// TokenConfig describes the governance token.
type TokenConfig struct {
	Name        string       `toml:"name" yaml:"name" envconfig:"NAME"`
	Symbol      string       `toml:"symbol" yaml:"symbol" envconfig:"SYMBOL"`
	Decimals    uint8        `toml:"decimals" yaml:"decimals" envconfig:"DECIMALS"`
	MaxSupply   uint64       `toml:"max_supply" yaml:"maxSupply" envconfig:"MAX_SUPPLY"`
	Allocations []Allocation `toml:"allocations" yaml:"allocations" ignored:"true"`
}

// Ledger converts the section into the token ledger configuration.
func (t TokenConfig) Ledger(address, owner common.Address) token.Config {
	return token.Config{
		Address: address,
		Owner:   owner,
		Metadata: token.Metadata{
			Name:     t.Name,
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
		},
		MaxSupply: t.MaxSupply,
	}
}

// GenesisAllocations converts the configured allocations.
func (t TokenConfig) GenesisAllocations() []token.Allocation {
	allocs := make([]token.Allocation, 0, len(t.Allocations))
	for _, a := range t.Allocations {
		allocs = append(allocs, token.Allocation{Account: a.Account, Amount: a.Amount})
	}
	return allocs
}

// StorageConfig selects the database backend.
type StorageConfig struct {
	Engine  string `toml:"engine" yaml:"engine" envconfig:"ENGINE"`
	Dir     string `toml:"dir" yaml:"dir" envconfig:"DIR"`
	Cache   int    `toml:"cache" yaml:"cache" envconfig:"CACHE"`
	Handles int    `toml:"handles" yaml:"handles" envconfig:"HANDLES"`
}

// Store converts the section into the storage configuration.
func (s StorageConfig) Store() storage.Config {
	return storage.Config{Engine: s.Engine, Dir: s.Dir, Cache: s.Cache, Handles: s.Handles}
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level      string `toml:"level" yaml:"level" envconfig:"LEVEL"`   // trace, debug, info, warn, error, crit
	Format     string `toml:"format" yaml:"format" envconfig:"FORMAT"` // terminal or json
	Vmodule    string `toml:"vmodule" yaml:"vmodule" envconfig:"VMODULE"`
	File       string `toml:"file" yaml:"file" envconfig:"FILE"` // empty logs to stderr
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"maxSizeMB" envconfig:"MAX_SIZE_MB"`
	MaxBackups int    `toml:"max_backups" yaml:"maxBackups" envconfig:"MAX_BACKUPS"`
	MaxAgeDays int    `toml:"max_age_days" yaml:"maxAgeDays" envconfig:"MAX_AGE_DAYS"`
	Compress   bool   `toml:"compress" yaml:"compress" envconfig:"COMPRESS"`
}

// Default returns the built-in configuration. Addresses are left zero; Load
// derives the component addresses from the owner when they are not set.
func Default() *Config {
	gov := governance.DefaultConfig()
	meta := token.DefaultMetadata()
	return &Config{
		Governance: GovernanceConfig{
			QuorumThreshold:       gov.QuorumThreshold,
			VotingPeriod:          gov.VotingPeriod,
			DelegationPolicy:      string(gov.DelegationPolicy),
			RejectOnQuorumFailure: gov.RejectOnQuorumFailure,
			RewardBase:            gov.Reward.BaseReward,
			RewardDecayPeriod:     gov.Reward.DecayPeriod,
			RewardDecayRate:       gov.Reward.DecayRate,
			RewardMin:             gov.Reward.MinReward,
		},
		Token: TokenConfig{
			Name:      meta.Name,
			Symbol:    meta.Symbol,
			Decimals:  meta.Decimals,
			MaxSupply: token.DefaultMaxSupply,
		},
		Storage: StorageConfig{
			Engine:  storage.EngineLevelDB,
			Dir:     "govcore-data",
			Cache:   16,
			Handles: 16,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "terminal",
			MaxSizeMB:  100,
			MaxBackups: 10,
			MaxAgeDays: 30,
		},
	}
}

// Load builds the configuration from the defaults, the file at path (if
// not empty) and the environment. Variables from envFiles are loaded first
// but never override variables already set in the process environment.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if cfg.Owner != (common.Address{}) {
		cfg.fillAddresses()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(buf), c); err != nil {
			return fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(buf, c); err != nil {
			return fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return nil
}

// fillAddresses derives the component addresses left unset from the owner.
func (c *Config) fillAddresses() {
	addrs := genesis.Addresses{Core: c.CoreAddress, Token: c.TokenAddress, Treasury: c.TreasuryAddress}
	addrs.Fill(c.Owner)
	c.CoreAddress, c.TokenAddress, c.TreasuryAddress = addrs.Core, addrs.Token, addrs.Treasury
}

// loadEnvFiles loads the given .env files, skipping those that do not exist.
func loadEnvFiles(files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("error loading env file %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks the parameter ranges and the identities the daemon needs.
func (c *Config) Validate() error {
	if c.Owner == (common.Address{}) {
		return errors.New("owner address is required")
	}
	addrs := map[string]common.Address{
		"core":     c.CoreAddress,
		"token":    c.TokenAddress,
		"treasury": c.TreasuryAddress,
	}
	seen := make(map[common.Address]string, len(addrs))
	for name, addr := range addrs {
		if addr == (common.Address{}) {
			return fmt.Errorf("%s address is required", name)
		}
		if other, dup := seen[addr]; dup {
			return fmt.Errorf("%s and %s share address %s", name, other, addr.Hex())
		}
		seen[addr] = name
	}
	if err := c.Governance.Core().Validate(); err != nil {
		return fmt.Errorf("invalid governance config: %w", err)
	}
	if c.Token.MaxSupply == 0 {
		return errors.New("token max supply must be positive")
	}
	var total uint64
	for _, a := range c.Token.Allocations {
		if a.Amount == 0 {
			return fmt.Errorf("zero genesis allocation for %s", a.Account.Hex())
		}
		if a.Amount > c.Token.MaxSupply-total {
			return fmt.Errorf("genesis allocations exceed max supply %d", c.Token.MaxSupply)
		}
		total += a.Amount
	}
	switch c.Storage.Engine {
	case storage.EngineMemory:
	case storage.EngineLevelDB:
		if c.Storage.Dir == "" {
			return errors.New("storage dir is required for leveldb")
		}
	default:
		return fmt.Errorf("%w: %q", storage.ErrUnknownEngine, c.Storage.Engine)
	}
	switch c.Log.Format {
	case "terminal", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
