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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerowaste-dao/govcore/genesis"
	"github.com/zerowaste-dao/govcore/governance"
	"github.com/zerowaste-dao/govcore/storage"
)

const tomlConfig = `
owner = "0x0000000000000000000000000000000000000001"
core_address = "0x00000000000000000000000000000000000000c0"
token_address = "0x00000000000000000000000000000000000000c1"
treasury_address = "0x00000000000000000000000000000000000000c2"

[peers]
submission = "0x00000000000000000000000000000000000000e0"
execution_engine = "0x00000000000000000000000000000000000000e1"

[governance]
quorum_threshold = 40
voting_period = 100
delegation_policy = "chain"

[token]
max_supply = 1000

[[token.allocations]]
account = "0x000000000000000000000000000000000000a11c"
amount = 700

[[token.allocations]]
account = "0x0000000000000000000000000000000000000b0b"
amount = 300

[storage]
engine = "memory"
`

const yamlConfig = `
owner: "0x0000000000000000000000000000000000000001"
coreAddress: "0x00000000000000000000000000000000000000c0"
tokenAddress: "0x00000000000000000000000000000000000000c1"
treasuryAddress: "0x00000000000000000000000000000000000000c2"
governance:
  quorumThreshold: 60
  rejectOnQuorumFailure: false
token:
  symbol: ZW
  allocations:
    - account: "0x000000000000000000000000000000000000a11c"
      amount: 5
storage:
  engine: memory
log:
  format: json
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultRequiresAddresses(t *testing.T) {
	cfg := Default()
	assert.Equal(t, uint64(50), cfg.Governance.QuorumThreshold)
	assert.Equal(t, storage.EngineLevelDB, cfg.Storage.Engine)
	assert.Error(t, cfg.Validate())

	cfg.Owner = common.HexToAddress("0x01")
	cfg.CoreAddress = common.HexToAddress("0xc0")
	cfg.TokenAddress = common.HexToAddress("0xc1")
	cfg.TreasuryAddress = common.HexToAddress("0xc2")
	assert.NoError(t, cfg.Validate())
}

func TestLoadTOML(t *testing.T) {
	cfg, err := Load(writeFile(t, "dao.toml", tomlConfig))
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress("0x01"), cfg.Owner)
	assert.Equal(t, common.HexToAddress("0xe1"), cfg.Peers.ExecutionEngine)
	assert.Equal(t, common.Address{}, cfg.Peers.VotingMechanism)
	assert.Equal(t, uint64(40), cfg.Governance.QuorumThreshold)
	assert.Equal(t, uint64(100), cfg.Governance.VotingPeriod)
	assert.Equal(t, governance.DelegationChain, cfg.Governance.Core().DelegationPolicy)
	assert.True(t, cfg.Governance.RejectOnQuorumFailure, "unset keys keep their defaults")
	assert.Equal(t, "ZWD", cfg.Token.Symbol)
	require.Len(t, cfg.Token.Allocations, 2)
	assert.Equal(t, uint64(300), cfg.Token.GenesisAllocations()[1].Amount)

	roles := cfg.Peers.Roles()
	assert.Equal(t, common.HexToAddress("0xe0"), roles[governance.PeerSubmission])
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "dao.yaml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress("0xc2"), cfg.TreasuryAddress)
	assert.Equal(t, uint64(60), cfg.Governance.QuorumThreshold)
	assert.False(t, cfg.Governance.RejectOnQuorumFailure)
	assert.Equal(t, "ZW", cfg.Token.Symbol)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, storage.EngineMemory, cfg.Storage.Store().Engine)
}

func TestDerivedAddresses(t *testing.T) {
	owner := "0x0000000000000000000000000000000000000001"
	cfg, err := Load(writeFile(t, "dao.toml", "owner = \""+owner+"\"\n[storage]\nengine = \"memory\"\n"))
	require.NoError(t, err)

	predicted := genesis.PredictAddresses(common.HexToAddress(owner))
	assert.Equal(t, predicted.Core, cfg.CoreAddress)
	assert.Equal(t, predicted.Token, cfg.TokenAddress)
	assert.Equal(t, predicted.Treasury, cfg.TreasuryAddress)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DAO_GOV_QUORUM", "75")
	t.Setenv("DAO_PEER_STAKING_VAULT", "0x00000000000000000000000000000000000000e2")
	t.Setenv("DAO_LOG_LEVEL", "debug")

	cfg, err := Load(writeFile(t, "dao.toml", tomlConfig))
	require.NoError(t, err)

	assert.Equal(t, uint64(75), cfg.Governance.QuorumThreshold)
	assert.Equal(t, common.HexToAddress("0xe2"), cfg.Peers.StakingVault)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvFile(t *testing.T) {
	t.Cleanup(func() { os.Unsetenv("DAO_TOKEN_NAME") })
	envFile := writeFile(t, ".env", "DAO_TOKEN_NAME=Compost\n")

	cfg, err := Load(writeFile(t, "dao.toml", tomlConfig), envFile, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "Compost", cfg.Token.Name)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "dao.json", "{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)

	t.Run("quorum out of range", func(t *testing.T) {
		t.Setenv("DAO_GOV_QUORUM", "101")
		_, err := Load(writeFile(t, "dao.toml", tomlConfig))
		assert.ErrorIs(t, err, governance.ErrInvalidQuorum)
	})
	t.Run("allocations above max supply", func(t *testing.T) {
		t.Setenv("DAO_TOKEN_MAX_SUPPLY", "999")
		_, err := Load(writeFile(t, "dao.toml", tomlConfig))
		assert.ErrorContains(t, err, "exceed max supply")
	})
	t.Run("shared address", func(t *testing.T) {
		t.Setenv("DAO_TOKEN_ADDRESS", "0x00000000000000000000000000000000000000c0")
		_, err := Load(writeFile(t, "dao.toml", tomlConfig))
		assert.ErrorContains(t, err, "share address")
	})
	t.Run("unknown engine", func(t *testing.T) {
		t.Setenv("DAO_STORAGE_ENGINE", "pebble")
		_, err := Load(writeFile(t, "dao.toml", tomlConfig))
		assert.ErrorIs(t, err, storage.ErrUnknownEngine)
	})
}
