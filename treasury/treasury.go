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

// Package treasury implements the pooled fund ledger of the DAO. Funds come
// in through public deposits and leave only through releases requested by the
// configured orchestrator, or through the owner's emergency withdrawal.
package treasury

import (
	"math"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/zerowaste-dao/govcore/ledger"
	"github.com/zerowaste-dao/govcore/storage"
)

var (
	depositMeter   = metrics.NewRegisteredCounter("dao/treasury/deposited", nil)
	releaseMeter   = metrics.NewRegisteredCounter("dao/treasury/released", nil)
	emergencyMeter = metrics.NewRegisteredCounter("dao/treasury/emergency", nil)
	balanceGauge   = metrics.NewRegisteredGauge("dao/treasury/balance", nil)
)

// MilestoneKey identifies one milestone of one proposal.
type MilestoneKey struct {
	ProposalID uint64
	Index      uint64
}

// Payout records funds leaving the treasury.
type Payout struct {
	ProposalID uint64
	Milestone  *uint64 // nil for plain releases and emergency withdrawals
	Recipient  common.Address
	Amount     uint64
	Emergency  bool
}

// Treasury is the pooled fund ledger.
type Treasury struct {
	address common.Address
	auth    *ledger.Authority

	mu            sync.RWMutex
	balance       uint64
	totalReleased uint64
	released      map[uint64]uint64
	milestones    map[MilestoneKey]uint64

	store *storage.Store
	log   log.Logger
}

// New creates a treasury identified by address and owned by owner, and
// restores any state held in store.
func New(address, owner common.Address, store *storage.Store) (*Treasury, error) {
	t := &Treasury{
		address:    address,
		auth:       ledger.NewAuthority(owner),
		released:   make(map[uint64]uint64),
		milestones: make(map[MilestoneKey]uint64),
		store:      store,
		log:        log.New("module", "treasury"),
	}
	if err := t.load(); err != nil {
		return nil, err
	}
	balanceGauge.Update(int64(t.balance))
	return t, nil
}

// Address returns the treasury's own identity.
func (t *Treasury) Address() common.Address { return t.address }

// Orchestrator returns the identity allowed to release funds.
func (t *Treasury) Orchestrator() common.Address { return t.auth.Orchestrator() }

// SetOrchestrator sets the identity allowed to release funds. Owner only.
func (t *Treasury) SetOrchestrator(caller, orchestrator common.Address) error {
	if err := t.auth.SetOrchestrator(caller, orchestrator); err != nil {
		return err
	}
	if err := t.saveOrchestrator(orchestrator); err != nil {
		return err
	}
	t.log.Info("Treasury orchestrator updated", "orchestrator", orchestrator)
	return nil
}

// Deposit adds amount to the pool. Anyone may deposit.
func (t *Treasury) Deposit(caller common.Address, amount uint64) error {
	if amount == 0 {
		return ledger.ErrInvalidAmount
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if amount > math.MaxUint64-t.balance {
		return ErrBalanceOverflow
	}
	if err := t.saveBalance(t.balance + amount); err != nil {
		return err
	}
	t.balance += amount
	balanceGauge.Update(int64(t.balance))

	depositMeter.Inc(int64(amount))
	t.log.Info("Treasury deposit", "from", caller, "amount", amount, "balance", t.balance)
	return nil
}

// ReleaseFunds pays amount to recipient on behalf of a proposal. Only the
// orchestrator may release.
func (t *Treasury) ReleaseFunds(caller common.Address, proposalID, amount uint64, recipient common.Address) (*Payout, error) {
	if err := t.auth.CheckOrchestrator(caller); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkPayout(amount, recipient); err != nil {
		return nil, err
	}
	if err := t.release(proposalID, amount); err != nil {
		return nil, err
	}
	t.log.Info("Treasury funds released", "proposal", proposalID, "to", recipient, "amount", amount, "balance", t.balance)
	return &Payout{ProposalID: proposalID, Recipient: recipient, Amount: amount}, nil
}

// ReleaseMilestone pays one milestone of a proposal. Each (proposal,
// milestone) pair is released at most once, whatever the amount.
func (t *Treasury) ReleaseMilestone(caller common.Address, proposalID, index, amount uint64, recipient common.Address) (*Payout, error) {
	if err := t.auth.CheckOrchestrator(caller); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := MilestoneKey{ProposalID: proposalID, Index: index}
	if _, exists := t.milestones[key]; exists {
		return nil, ErrAlreadyReleased
	}
	if err := t.checkPayout(amount, recipient); err != nil {
		return nil, err
	}
	if err := t.saveMilestone(key, amount); err != nil {
		return nil, err
	}
	if err := t.release(proposalID, amount); err != nil {
		return nil, err
	}
	t.milestones[key] = amount

	t.log.Info("Treasury milestone released", "proposal", proposalID, "milestone", index, "to", recipient, "amount", amount)
	return &Payout{ProposalID: proposalID, Milestone: &index, Recipient: recipient, Amount: amount}, nil
}

// EmergencyWithdraw lets the owner drain funds without going through the
// orchestrator. Release totals are not affected.
func (t *Treasury) EmergencyWithdraw(caller common.Address, amount uint64, recipient common.Address) (*Payout, error) {
	if err := t.auth.CheckOwner(caller); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, ledger.ErrInvalidAmount
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.balance < amount {
		return nil, ledger.ErrInsufficientBalance
	}
	if err := t.saveBalance(t.balance - amount); err != nil {
		return nil, err
	}
	t.balance -= amount
	balanceGauge.Update(int64(t.balance))

	emergencyMeter.Inc(int64(amount))
	t.log.Warn("Treasury emergency withdrawal", "to", recipient, "amount", amount, "balance", t.balance)
	return &Payout{Recipient: recipient, Amount: amount, Emergency: true}, nil
}

// Balance returns the pooled balance.
func (t *Treasury) Balance() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balance
}

// TotalReleased returns the amount released through the orchestrator path.
func (t *Treasury) TotalReleased() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalReleased
}

// ReleasedForProposal returns the cumulative amount released for a proposal.
func (t *Treasury) ReleasedForProposal(proposalID uint64) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.released[proposalID]
}

// MilestoneRelease returns the amount released for a milestone, zero if it
// has not been released.
func (t *Treasury) MilestoneRelease(proposalID, index uint64) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.milestones[MilestoneKey{ProposalID: proposalID, Index: index}]
}

// checkPayout validates an orchestrator payout. The caller must hold t.mu.
func (t *Treasury) checkPayout(amount uint64, recipient common.Address) error {
	if amount == 0 {
		return ledger.ErrInvalidAmount
	}
	if recipient == t.address {
		return ledger.ErrInvalidRecipient
	}
	if t.balance < amount {
		return ledger.ErrInsufficientBalance
	}
	return nil
}

// release debits the pool and credits the release totals. The caller must
// hold t.mu and have validated the payout.
func (t *Treasury) release(proposalID, amount uint64) error {
	perProposal := t.released[proposalID] + amount
	if err := t.saveBalance(t.balance - amount); err != nil {
		return err
	}
	if err := t.saveReleased(proposalID, perProposal); err != nil {
		return err
	}
	if err := t.saveTotalReleased(t.totalReleased + amount); err != nil {
		return err
	}
	t.balance -= amount
	t.released[proposalID] = perProposal
	t.totalReleased += amount
	balanceGauge.Update(int64(t.balance))
	releaseMeter.Inc(int64(amount))
	return nil
}

// Reload discards the in-memory state and restores it from the store.
func (t *Treasury) Reload() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.auth.SetOrchestrator(t.auth.Owner(), common.Address{}); err != nil {
		return err
	}
	t.balance, t.totalReleased = 0, 0
	t.released = make(map[uint64]uint64)
	t.milestones = make(map[MilestoneKey]uint64)
	if err := t.load(); err != nil {
		return err
	}
	balanceGauge.Update(int64(t.balance))
	return nil
}
