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

// Package token implements the governance token ledger: account balances,
// total supply bounded by a maximum, and an orchestrator-gated mint.
package token

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/zerowaste-dao/govcore/ledger"
	"github.com/zerowaste-dao/govcore/storage"
)

// DefaultMaxSupply is the supply cap in minor units.
const DefaultMaxSupply uint64 = 100_000_000_000_000

var (
	mintedMeter   = metrics.NewRegisteredCounter("dao/token/minted", nil)
	burnedMeter   = metrics.NewRegisteredCounter("dao/token/burned", nil)
	transferMeter = metrics.NewRegisteredCounter("dao/token/transfers", nil)
	supplyGauge   = metrics.NewRegisteredGauge("dao/token/supply", nil)
)

// Metadata describes the token.
type Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// DefaultMetadata returns the metadata of the DAO token.
func DefaultMetadata() Metadata {
	return Metadata{Name: "ZeroWasteDAO", Symbol: "ZWD", Decimals: 6}
}

// Allocation credits an account at genesis.
type Allocation struct {
	Account common.Address
	Amount  uint64
}

// Config holds the construction parameters of a Ledger.
type Config struct {
	Address   common.Address // identity of the ledger itself
	Owner     common.Address // deployer, may rotate the orchestrator
	Metadata  Metadata
	MaxSupply uint64
}

// Ledger is the governance token ledger.
type Ledger struct {
	address   common.Address
	meta      Metadata
	maxSupply uint64
	auth      *ledger.Authority

	mu          sync.RWMutex
	totalSupply uint64
	balances    map[common.Address]uint64

	store *storage.Store
	log   log.Logger
}

// New creates a token ledger and restores any state held in store.
func New(config Config, store *storage.Store) (*Ledger, error) {
	l := &Ledger{
		address:   config.Address,
		meta:      config.Metadata,
		maxSupply: config.MaxSupply,
		auth:      ledger.NewAuthority(config.Owner),
		balances:  make(map[common.Address]uint64),
		store:     store,
		log:       log.New("module", "token"),
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	supplyGauge.Update(int64(l.totalSupply))
	return l, nil
}

// Address returns the identity of the ledger.
func (l *Ledger) Address() common.Address { return l.address }

// Name returns the token name.
func (l *Ledger) Name() string { return l.meta.Name }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.meta.Symbol }

// Decimals returns the number of decimals of the minor unit.
func (l *Ledger) Decimals() uint8 { return l.meta.Decimals }

// MaxSupply returns the supply cap.
func (l *Ledger) MaxSupply() uint64 { return l.maxSupply }

// Orchestrator returns the identity allowed to mint.
func (l *Ledger) Orchestrator() common.Address { return l.auth.Orchestrator() }

// SetOrchestrator sets the identity allowed to mint. Owner only.
func (l *Ledger) SetOrchestrator(caller, orchestrator common.Address) error {
	if err := l.auth.SetOrchestrator(caller, orchestrator); err != nil {
		return err
	}
	if err := l.saveOrchestrator(orchestrator); err != nil {
		return err
	}
	l.log.Info("Token orchestrator updated", "orchestrator", orchestrator)
	return nil
}

// BalanceOf returns the balance of account, zero if unknown.
func (l *Ledger) BalanceOf(account common.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account]
}

// TotalSupply returns the sum of all balances.
func (l *Ledger) TotalSupply() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalSupply
}

// Transfer moves amount from sender to recipient. Supply is unchanged.
func (l *Ledger) Transfer(sender, recipient common.Address, amount uint64) error {
	if amount == 0 {
		return ledger.ErrInvalidAmount
	}
	if sender == recipient {
		return ledger.ErrInvalidRecipient
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	senderBal := l.balances[sender]
	if senderBal < amount {
		return ledger.ErrInsufficientBalance
	}
	recipientBal := l.balances[recipient]

	if err := l.saveBalance(sender, senderBal-amount); err != nil {
		return err
	}
	if err := l.saveBalance(recipient, recipientBal+amount); err != nil {
		return err
	}
	l.setBalance(sender, senderBal-amount)
	l.setBalance(recipient, recipientBal+amount)

	transferMeter.Inc(1)
	l.log.Debug("Tokens transferred", "from", sender, "to", recipient, "amount", amount)
	return nil
}

// Mint creates amount new tokens for recipient. Only the orchestrator may
// mint, and never past the supply cap.
func (l *Ledger) Mint(caller, recipient common.Address, amount uint64) error {
	if amount == 0 {
		return ledger.ErrInvalidAmount
	}
	if err := l.auth.CheckOrchestrator(caller); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.credit(recipient, amount); err != nil {
		return err
	}
	mintedMeter.Inc(int64(amount))
	l.log.Info("Tokens minted", "to", recipient, "amount", amount, "supply", l.totalSupply)
	return nil
}

// Burn destroys amount tokens held by sender.
func (l *Ledger) Burn(sender common.Address, amount uint64) error {
	if amount == 0 {
		return ledger.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balances[sender]
	if bal < amount {
		return ledger.ErrInsufficientBalance
	}
	if err := l.saveBalance(sender, bal-amount); err != nil {
		return err
	}
	if err := l.saveSupply(l.totalSupply - amount); err != nil {
		return err
	}
	l.setBalance(sender, bal-amount)
	l.totalSupply -= amount
	supplyGauge.Update(int64(l.totalSupply))

	burnedMeter.Inc(int64(amount))
	l.log.Info("Tokens burned", "from", sender, "amount", amount, "supply", l.totalSupply)
	return nil
}

// Allocate credits the genesis allocations. It is owner only and closes as
// soon as an orchestrator has been configured.
func (l *Ledger) Allocate(caller common.Address, allocs []Allocation) error {
	if err := l.auth.CheckOwner(caller); err != nil {
		return err
	}
	if l.auth.Orchestrator() != (common.Address{}) {
		return ErrAllocationClosed
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var total uint64
	for _, a := range allocs {
		if a.Amount == 0 {
			return ledger.ErrInvalidAmount
		}
		if a.Amount > l.maxSupply-l.totalSupply-total {
			return ErrSupplyExceeded
		}
		total += a.Amount
	}
	for _, a := range allocs {
		if err := l.credit(a.Account, a.Amount); err != nil {
			return err
		}
	}
	l.log.Info("Genesis allocation applied", "accounts", len(allocs), "amount", total)
	return nil
}

// credit increases recipient's balance and the supply together. The caller
// must hold l.mu.
func (l *Ledger) credit(recipient common.Address, amount uint64) error {
	if amount > l.maxSupply-l.totalSupply {
		return ErrSupplyExceeded
	}
	bal := l.balances[recipient] + amount
	if err := l.saveBalance(recipient, bal); err != nil {
		return err
	}
	if err := l.saveSupply(l.totalSupply + amount); err != nil {
		return err
	}
	l.setBalance(recipient, bal)
	l.totalSupply += amount
	supplyGauge.Update(int64(l.totalSupply))
	return nil
}

func (l *Ledger) setBalance(account common.Address, amount uint64) {
	if amount == 0 {
		delete(l.balances, account)
		return
	}
	l.balances[account] = amount
}

// Reload discards the in-memory state and restores it from the store.
func (l *Ledger) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.auth.SetOrchestrator(l.auth.Owner(), common.Address{}); err != nil {
		return err
	}
	l.balances = make(map[common.Address]uint64)
	l.totalSupply = 0
	if err := l.load(); err != nil {
		return err
	}
	supplyGauge.Update(int64(l.totalSupply))
	return nil
}
