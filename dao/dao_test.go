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

package dao

import (
	"bytes"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerowaste-dao/govcore/governance"
	"github.com/zerowaste-dao/govcore/internal/config"
	"github.com/zerowaste-dao/govcore/ledger"
	"github.com/zerowaste-dao/govcore/storage"
	"github.com/zerowaste-dao/govcore/treasury"
	"go.uber.org/goleak"
)

var (
	owner  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	core   = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	engine = common.HexToAddress("0x00000000000000000000000000000000000000e0")

	alice = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x00000000000000000000000000000000000ca201")
)

func TestMain(m *testing.M) {
	// goleveldb keeps draining its memdb pool for up to a second after Close.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/syndtr/goleveldb/leveldb.(*DB).mpoolDrain"))
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Owner = owner
	cfg.CoreAddress = core
	cfg.TokenAddress = common.HexToAddress("0xc1")
	cfg.TreasuryAddress = common.HexToAddress("0xc2")
	cfg.Peers = config.PeersConfig{
		Submission:      engine,
		VotingMechanism: engine,
		ExecutionEngine: engine,
		StakingVault:    engine,
	}
	cfg.Governance.VotingPeriod = 10
	cfg.Token.Allocations = []config.Allocation{
		{Account: alice, Amount: 700},
		{Account: bob, Amount: 300},
	}
	cfg.Storage = config.StorageConfig{Engine: storage.EngineMemory}
	return cfg
}

func openTest(t *testing.T, cfg *config.Config) *DAO {
	t.Helper()
	d, err := Open(cfg, NewChain(100))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

// snapshot returns every committed record of the store.
func snapshot(t *testing.T, s *storage.Store) map[string][]byte {
	t.Helper()
	records := make(map[string][]byte)
	require.NoError(t, s.Iterate(nil, func(key, value []byte) error {
		records[string(key)] = value
		return nil
	}))
	return records
}

func TestGenesis(t *testing.T) {
	d := openTest(t, testConfig())

	assert.Equal(t, uint64(1000), d.TotalSupply())
	assert.Equal(t, uint64(700), d.BalanceOf(alice))
	assert.Equal(t, core, d.token.Orchestrator())
	assert.Equal(t, core, d.treasury.Orchestrator())
	assert.Equal(t, engine, d.core.Peer(governance.PeerExecutionEngine))
	assert.Equal(t, common.Address{}, d.core.Peer(governance.PeerRewardsDistributor))

	// Allocation is closed once the orchestrator is set.
	err := d.apply(func() error { return d.token.Allocate(owner, nil) })
	assert.Error(t, err)
}

func TestProposalLifecycle(t *testing.T) {
	d := openTest(t, testConfig())
	require.NoError(t, d.Deposit(bob, 5000))

	id, err := d.SubmitProposal(carol, "neighbourhood repair cafe", 1000, governance.ProposalFunding, "items repaired", []uint64{400, 600})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	require.NoError(t, d.VoteOnProposal(alice, id, true))
	require.NoError(t, d.VoteOnProposal(bob, id, false))
	assert.ErrorIs(t, d.VoteOnProposal(alice, id, false), governance.ErrAlreadyVoted)

	p, ok := d.Proposal(id)
	require.True(t, ok)
	assert.Equal(t, uint64(700), p.VotesFor)
	assert.Equal(t, uint64(300), p.VotesAgainst)

	d.Chain().SetHeight(p.EndBlock)
	_, err = d.FinalizeProposal(engine, id)
	assert.ErrorIs(t, err, governance.ErrVotingInProgress)
	assert.ErrorIs(t, err, governance.ErrProposalNotActive)

	d.Chain().Advance(1)
	result, err := d.FinalizeProposal(engine, id)
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalStatusExecuted, result.Status)
	assert.Equal(t, uint64(4000), d.TreasuryBalance())
	assert.Equal(t, uint64(1000), d.ReleasedForProposal(id))
	assert.Equal(t, uint64(1000), d.TotalReleased())
}

func TestImpactMilestones(t *testing.T) {
	d := openTest(t, testConfig())
	require.NoError(t, d.Deposit(owner, 10000))

	id, err := d.SubmitProposal(carol, "textile sorting", 5000, governance.ProposalImpact, "kg sorted", []uint64{3000, 2000})
	require.NoError(t, err)
	require.NoError(t, d.VoteOnProposal(alice, id, true))
	d.Chain().Advance(d.VotingPeriod() + 1)
	_, err = d.FinalizeProposal(engine, id)
	require.NoError(t, err)

	require.NoError(t, d.ReleaseMilestone(engine, id, 0))
	assert.ErrorIs(t, d.ReleaseMilestone(engine, id, 0), treasury.ErrAlreadyReleased)
	assert.Equal(t, uint64(3000), d.MilestoneRelease(id, 0))
	assert.Equal(t, uint64(7000), d.TreasuryBalance())
}

func TestFailedOperationLeavesStoreUnchanged(t *testing.T) {
	d := openTest(t, testConfig())
	require.NoError(t, d.Deposit(owner, 100))

	id, err := d.SubmitProposal(carol, "too expensive", 5000, governance.ProposalFunding, "kg", []uint64{5000})
	require.NoError(t, err)
	require.NoError(t, d.VoteOnProposal(alice, id, true))
	d.Chain().Advance(d.VotingPeriod() + 1)

	before := snapshot(t, d.store)
	_, err = d.FinalizeProposal(engine, id)
	require.ErrorIs(t, err, governance.ErrExecutionFailed)
	after := snapshot(t, d.store)

	require.Equal(t, len(before), len(after))
	for key, value := range before {
		assert.True(t, bytes.Equal(value, after[key]), "record %x changed", key)
	}
	p, _ := d.Proposal(id)
	assert.Equal(t, governance.ProposalStatusActive, p.Status)
	assert.Equal(t, uint64(100), d.TreasuryBalance())

	// The ledgers keep working after the failure.
	require.NoError(t, d.Deposit(owner, 4900))
	result, err := d.FinalizeProposal(engine, id)
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalStatusExecuted, result.Status)
	assert.Equal(t, uint64(0), d.TreasuryBalance())
}

func TestRejectedOperationsAreNotPersisted(t *testing.T) {
	d := openTest(t, testConfig())
	before := snapshot(t, d.store)

	assert.ErrorIs(t, d.Transfer(carol, alice, 1), ledger.ErrInsufficientBalance)
	assert.ErrorIs(t, d.Mint(alice, alice, 1), ledger.ErrNotAuthorized)
	assert.ErrorIs(t, d.SetQuorumThreshold(alice, 10), ledger.ErrNotAuthorized)
	_, err := d.EmergencyWithdraw(owner, 1, alice)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	assert.Equal(t, before, snapshot(t, d.store))
}

func TestFinalizeDue(t *testing.T) {
	d := openTest(t, testConfig())
	require.NoError(t, d.Deposit(owner, 100))

	first, err := d.SubmitProposal(carol, "a", 50, governance.ProposalFunding, "kg", []uint64{50})
	require.NoError(t, err)
	d.Chain().Advance(5)
	second, err := d.SubmitProposal(carol, "b", 10, governance.ProposalGovernance, "kg", []uint64{10})
	require.NoError(t, err)
	require.NoError(t, d.VoteOnProposal(alice, first, true))

	d.Chain().Advance(6)
	assert.Equal(t, []uint64{first}, d.Finalizable())

	results, err := d.FinalizeDue(engine)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, governance.ProposalStatusExecuted, results[0].Status)

	d.Chain().Advance(10)
	results, err = d.FinalizeDue(engine)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, second, results[0].ProposalID)
	assert.False(t, results[0].QuorumReached)
	assert.Empty(t, d.Finalizable())
}

func TestConcurrentVotes(t *testing.T) {
	cfg := testConfig()
	var voters []common.Address
	cfg.Token.Allocations = nil
	for i := 0; i < 32; i++ {
		addr := common.BytesToAddress([]byte{0x10, byte(i)})
		voters = append(voters, addr)
		cfg.Token.Allocations = append(cfg.Token.Allocations, config.Allocation{Account: addr, Amount: uint64(i + 1)})
	}
	d := openTest(t, cfg)
	id, err := d.SubmitProposal(carol, "c", 1, governance.ProposalGovernance, "kg", []uint64{1})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, voter := range voters {
		wg.Add(2)
		go func(voter common.Address) {
			defer wg.Done()
			d.VoteOnProposal(voter, id, true)
		}(voter)
		go func(voter common.Address) {
			defer wg.Done()
			d.VoteOnProposal(voter, id, false)
		}(voter)
	}
	wg.Wait()

	p, _ := d.Proposal(id)
	assert.Equal(t, d.TotalSupply(), p.VotesFor+p.VotesAgainst, "each voter counted exactly once")
}

func TestReopen(t *testing.T) {
	cfg := testConfig()
	cfg.Storage = config.StorageConfig{Engine: storage.EngineLevelDB, Dir: t.TempDir(), Cache: 16, Handles: 16}
	chain := NewChain(100)

	d, err := Open(cfg, chain)
	require.NoError(t, err)
	require.NoError(t, d.Deposit(owner, 2500))
	require.NoError(t, d.Transfer(alice, carol, 200))
	id, err := d.SubmitProposal(carol, "bulk refill station", 2000, governance.ProposalFunding, "litres", []uint64{2000})
	require.NoError(t, err)
	require.NoError(t, d.VoteOnProposal(alice, id, true))
	require.NoError(t, d.DelegateVote(bob, carol))
	require.NoError(t, d.StakeForProposal(bob, id, 30))
	require.NoError(t, d.SetQuorumThreshold(owner, 20))

	_, err = Open(cfg, chain)
	assert.ErrorIs(t, err, storage.ErrDirLocked)
	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Deposit(owner, 1), ErrClosed)

	reopened, err := Open(cfg, chain)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, uint64(1000), reopened.TotalSupply(), "genesis applied once")
	assert.Equal(t, uint64(500), reopened.BalanceOf(alice))
	assert.Equal(t, uint64(200), reopened.BalanceOf(carol))
	assert.Equal(t, uint64(2500), reopened.TreasuryBalance())
	assert.Equal(t, uint64(20), reopened.QuorumThreshold())
	assert.Equal(t, carol, reopened.Delegate(bob))
	assert.Equal(t, uint64(30), reopened.Stake(id, bob))
	vote, ok := reopened.Vote(id, alice)
	require.True(t, ok)
	assert.Equal(t, uint64(500), vote.Weight)

	chain.Advance(cfg.Governance.VotingPeriod + 1)
	result, err := reopened.FinalizeProposal(engine, id)
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalStatusExecuted, result.Status)
	assert.Equal(t, uint64(500), reopened.TreasuryBalance())
}
