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

package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/zerowaste-dao/govcore/storage"
)

var (
	// Storage key prefixes
	balancePrefix   = []byte("tok-b") // tok-b + account -> uint64
	supplyKey       = []byte("tok-supply")
	orchestratorKey = []byte("tok-orchestrator")
)

func (l *Ledger) saveBalance(account common.Address, amount uint64) error {
	key := storage.Key(balancePrefix, account.Bytes())
	if amount == 0 {
		return l.store.Delete(key)
	}
	return l.store.WriteRLP(key, amount)
}

func (l *Ledger) saveSupply(total uint64) error {
	return l.store.WriteRLP(supplyKey, total)
}

func (l *Ledger) saveOrchestrator(addr common.Address) error {
	return l.store.WriteRLP(orchestratorKey, addr)
}

// load restores balances, supply and orchestrator from the store and checks
// that the stored supply equals the sum of balances.
func (l *Ledger) load() error {
	var sum uint64
	err := l.store.Iterate(balancePrefix, func(key, value []byte) error {
		var amount uint64
		if err := rlp.DecodeBytes(value, &amount); err != nil {
			return err
		}
		l.balances[common.BytesToAddress(key)] = amount
		sum += amount
		return nil
	})
	if err != nil {
		return fmt.Errorf("load token balances: %w", err)
	}

	var total uint64
	if _, err := l.store.ReadRLP(supplyKey, &total); err != nil {
		return fmt.Errorf("load token supply: %w", err)
	}
	if total != sum {
		return fmt.Errorf("%w: supply %d, balances %d", errSupplyMismatch, total, sum)
	}
	if total > l.maxSupply {
		return fmt.Errorf("%w: supply %d above cap %d", ErrSupplyExceeded, total, l.maxSupply)
	}
	l.totalSupply = total

	var orchestrator common.Address
	found, err := l.store.ReadRLP(orchestratorKey, &orchestrator)
	if err != nil {
		return fmt.Errorf("load token orchestrator: %w", err)
	}
	if found {
		return l.auth.SetOrchestrator(l.auth.Owner(), orchestrator)
	}
	return nil
}
