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

// Package dao wires the governance core, the token ledger and the treasury
// over one store and applies every mutating operation atomically.
package dao

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/zerowaste-dao/govcore/governance"
	"github.com/zerowaste-dao/govcore/internal/config"
	"github.com/zerowaste-dao/govcore/storage"
	"github.com/zerowaste-dao/govcore/token"
	"github.com/zerowaste-dao/govcore/treasury"
)

var (
	ErrClosed = errors.New("dao closed")

	// errUnrecoverable wraps the reload failure that poisoned the instance.
	errUnrecoverable = errors.New("dao state unrecoverable")

	genesisKey = []byte("dao-genesis")
)

// DAO is the composition root. Mutating operations are serialized and each
// runs inside its own storage batch: it lands completely or not at all.
type DAO struct {
	mu     sync.Mutex
	closed bool
	failed error

	owner    common.Address
	chain    *Chain
	store    *storage.Store
	token    *token.Ledger
	treasury *treasury.Treasury
	core     *governance.Core
	log      log.Logger
}

// Open opens the store described by cfg, restores the three ledgers and
// wires them together. On a fresh store the genesis allocations, the
// orchestrators and the configured peers are applied once.
func Open(cfg *config.Config, chain *Chain) (*DAO, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.Storage.Store())
	if err != nil {
		return nil, err
	}
	d, err := open(cfg, chain, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return d, nil
}

func open(cfg *config.Config, chain *Chain, store *storage.Store) (*DAO, error) {
	d := &DAO{
		owner: cfg.Owner,
		chain: chain,
		store: store,
		log:   log.New("module", "dao"),
	}

	var err error
	if d.token, err = token.New(cfg.Token.Ledger(cfg.TokenAddress, cfg.Owner), store); err != nil {
		return nil, fmt.Errorf("open token ledger: %w", err)
	}
	if d.treasury, err = treasury.New(cfg.TreasuryAddress, cfg.Owner, store); err != nil {
		return nil, fmt.Errorf("open treasury: %w", err)
	}
	if d.core, err = governance.NewCore(cfg.CoreAddress, cfg.Owner, cfg.Governance.Core(), chain, store); err != nil {
		return nil, fmt.Errorf("open governance core: %w", err)
	}
	if err := d.core.SetToken(cfg.Owner, d.token); err != nil {
		return nil, err
	}
	if err := d.core.SetTreasury(cfg.Owner, d.treasury); err != nil {
		return nil, err
	}

	var genesisHeight uint64
	initialized, err := store.ReadRLP(genesisKey, &genesisHeight)
	if err != nil {
		return nil, err
	}
	if !initialized {
		if err := d.apply(func() error { return d.genesis(cfg) }); err != nil {
			return nil, fmt.Errorf("apply genesis: %w", err)
		}
	}
	d.log.Info("DAO opened", "height", chain.CurrentBlock(), "proposals", d.core.ProposalCount(),
		"supply", d.token.TotalSupply(), "treasury", d.treasury.Balance(), "fresh", !initialized)
	return d, nil
}

func (d *DAO) genesis(cfg *config.Config) error {
	if allocs := cfg.Token.GenesisAllocations(); len(allocs) > 0 {
		if err := d.token.Allocate(cfg.Owner, allocs); err != nil {
			return err
		}
	}
	if err := d.token.SetOrchestrator(cfg.Owner, cfg.CoreAddress); err != nil {
		return err
	}
	if err := d.treasury.SetOrchestrator(cfg.Owner, cfg.CoreAddress); err != nil {
		return err
	}
	for role, peer := range cfg.Peers.Roles() {
		if peer == (common.Address{}) {
			continue
		}
		if err := d.core.SetPeer(cfg.Owner, role, peer); err != nil {
			return err
		}
	}
	return d.store.WriteRLP(genesisKey, d.chain.CurrentBlock())
}

// apply runs fn as one atomic operation.
func (d *DAO) apply(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.failed != nil {
		return d.failed
	}
	if err := d.store.Begin(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		d.store.Discard()
		// Execution may fail after a leaf ledger accepted part of it.
		if errors.Is(err, governance.ErrExecutionFailed) {
			d.reload()
		}
		return err
	}
	if err := d.store.Commit(); err != nil {
		d.log.Error("Failed to commit operation", "err", err)
		d.reload()
		return err
	}
	return nil
}

// reload resets the ledgers to the committed state. The caller must hold d.mu.
func (d *DAO) reload() {
	for _, r := range []interface{ Reload() error }{d.token, d.treasury, d.core} {
		if err := r.Reload(); err != nil {
			d.failed = fmt.Errorf("%w: %w", errUnrecoverable, err)
			d.log.Error("Failed to restore committed state", "err", err)
			return
		}
	}
}

// Close releases the store. Further operations fail with ErrClosed.
func (d *DAO) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.store.Close()
}

// Chain returns the height source.
func (d *DAO) Chain() *Chain { return d.chain }

// Owner returns the deployer identity.
func (d *DAO) Owner() common.Address { return d.owner }

// SubmitProposal creates a proposal and returns its id.
func (d *DAO) SubmitProposal(caller common.Address, description string, budget uint64, proposalType governance.ProposalType, impactMetric string, milestones []uint64) (uint64, error) {
	var id uint64
	err := d.apply(func() (err error) {
		id, err = d.core.SubmitProposal(caller, description, budget, proposalType, impactMetric, milestones)
		return err
	})
	return id, err
}

// VoteOnProposal records a vote weighted by the caller's token balance.
func (d *DAO) VoteOnProposal(caller common.Address, id uint64, support bool) error {
	return d.apply(func() error { return d.core.VoteOnProposal(caller, id, support) })
}

// FinalizeProposal closes voting on a proposal and executes it if approved.
func (d *DAO) FinalizeProposal(caller common.Address, id uint64) (*governance.FinalizeResult, error) {
	var result *governance.FinalizeResult
	err := d.apply(func() (err error) {
		result, err = d.core.FinalizeProposal(caller, id)
		return err
	})
	return result, err
}

// FinalizeDue finalizes every proposal whose deadline has passed. Each
// proposal is finalized in its own operation; failures are collected and
// do not stop the remaining ones.
func (d *DAO) FinalizeDue(caller common.Address) ([]*governance.FinalizeResult, error) {
	var (
		results []*governance.FinalizeResult
		errs    []error
	)
	for _, id := range d.core.Finalizable(d.chain.CurrentBlock()) {
		result, err := d.FinalizeProposal(caller, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("proposal %d: %w", id, err))
			continue
		}
		results = append(results, result)
	}
	return results, errors.Join(errs...)
}

// ReleaseMilestone pays one milestone of an executed impact proposal.
func (d *DAO) ReleaseMilestone(caller common.Address, id, index uint64) error {
	return d.apply(func() error { return d.core.ReleaseMilestone(caller, id, index) })
}

// DelegateVote records a delegation from caller to delegate.
func (d *DAO) DelegateVote(caller, delegate common.Address) error {
	return d.apply(func() error { return d.core.DelegateVote(caller, delegate) })
}

// RevokeDelegation removes the caller's delegation.
func (d *DAO) RevokeDelegation(caller common.Address) error {
	return d.apply(func() error { return d.core.RevokeDelegation(caller) })
}

// StakeForProposal records the caller's stake on a proposal.
func (d *DAO) StakeForProposal(caller common.Address, id, amount uint64) error {
	return d.apply(func() error { return d.core.StakeForProposal(caller, id, amount) })
}

// SetQuorumThreshold changes the quorum percentage. Owner only.
func (d *DAO) SetQuorumThreshold(caller common.Address, quorum uint64) error {
	return d.apply(func() error { return d.core.SetQuorumThreshold(caller, quorum) })
}

// SetVotingPeriod changes the voting period. Owner only.
func (d *DAO) SetVotingPeriod(caller common.Address, period uint64) error {
	return d.apply(func() error { return d.core.SetVotingPeriod(caller, period) })
}

// SetPeer changes the identity serving a peer role. Owner only.
func (d *DAO) SetPeer(caller common.Address, role governance.PeerRole, peer common.Address) error {
	return d.apply(func() error { return d.core.SetPeer(caller, role, peer) })
}

// Transfer moves tokens between accounts.
func (d *DAO) Transfer(sender, recipient common.Address, amount uint64) error {
	return d.apply(func() error { return d.token.Transfer(sender, recipient, amount) })
}

// Mint creates tokens. Only the token orchestrator may mint.
func (d *DAO) Mint(caller, recipient common.Address, amount uint64) error {
	return d.apply(func() error { return d.token.Mint(caller, recipient, amount) })
}

// Burn destroys tokens held by sender.
func (d *DAO) Burn(sender common.Address, amount uint64) error {
	return d.apply(func() error { return d.token.Burn(sender, amount) })
}

// SetTokenOrchestrator changes the identity allowed to mint. Owner only.
func (d *DAO) SetTokenOrchestrator(caller, orchestrator common.Address) error {
	return d.apply(func() error { return d.token.SetOrchestrator(caller, orchestrator) })
}

// Deposit adds funds to the treasury.
func (d *DAO) Deposit(caller common.Address, amount uint64) error {
	return d.apply(func() error { return d.treasury.Deposit(caller, amount) })
}

// EmergencyWithdraw pays treasury funds outside the proposal path. Owner
// only.
func (d *DAO) EmergencyWithdraw(caller common.Address, amount uint64, recipient common.Address) (*treasury.Payout, error) {
	var payout *treasury.Payout
	err := d.apply(func() (err error) {
		payout, err = d.treasury.EmergencyWithdraw(caller, amount, recipient)
		return err
	})
	return payout, err
}

// SetTreasuryOrchestrator changes the identity allowed to release funds.
// Owner only.
func (d *DAO) SetTreasuryOrchestrator(caller, orchestrator common.Address) error {
	return d.apply(func() error { return d.treasury.SetOrchestrator(caller, orchestrator) })
}

// Proposal returns a copy of a proposal.
func (d *DAO) Proposal(id uint64) (*governance.Proposal, bool) { return d.core.GetProposal(id) }

// ProposalCount returns the number of proposals ever submitted.
func (d *DAO) ProposalCount() uint64 { return d.core.ProposalCount() }

// Vote returns the vote of voter on a proposal.
func (d *DAO) Vote(id uint64, voter common.Address) (governance.Vote, bool) {
	return d.core.GetVote(id, voter)
}

// Delegate returns the delegate of an account.
func (d *DAO) Delegate(delegator common.Address) common.Address { return d.core.GetDelegate(delegator) }

// Stake returns the stake of an account on a proposal.
func (d *DAO) Stake(id uint64, staker common.Address) uint64 { return d.core.GetStake(id, staker) }

// QuorumThreshold returns the quorum percentage.
func (d *DAO) QuorumThreshold() uint64 { return d.core.GetQuorumThreshold() }

// VotingPeriod returns the voting period in blocks.
func (d *DAO) VotingPeriod() uint64 { return d.core.GetVotingPeriod() }

// Finalizable returns the proposals finalizable at the current height.
func (d *DAO) Finalizable() []uint64 { return d.core.Finalizable(d.chain.CurrentBlock()) }

// BalanceOf returns the token balance of an account.
func (d *DAO) BalanceOf(account common.Address) uint64 { return d.token.BalanceOf(account) }

// TotalSupply returns the token supply.
func (d *DAO) TotalSupply() uint64 { return d.token.TotalSupply() }

// TreasuryBalance returns the pooled treasury balance.
func (d *DAO) TreasuryBalance() uint64 { return d.treasury.Balance() }

// TotalReleased returns the funds released through proposals.
func (d *DAO) TotalReleased() uint64 { return d.treasury.TotalReleased() }

// ReleasedForProposal returns the funds released for a proposal.
func (d *DAO) ReleasedForProposal(id uint64) uint64 { return d.treasury.ReleasedForProposal(id) }

// MilestoneRelease returns the amount released for a milestone.
func (d *DAO) MilestoneRelease(id, index uint64) uint64 { return d.treasury.MilestoneRelease(id, index) }

// SubscribeProposalEvents delivers proposal lifecycle events to ch.
func (d *DAO) SubscribeProposalEvents(ch chan<- governance.ProposalEvent) event.Subscription {
	return d.core.SubscribeProposalEvents(ch)
}
