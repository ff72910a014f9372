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

package treasury

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/zerowaste-dao/govcore/storage"
)

var (
	// Storage key prefixes
	balanceKey       = []byte("trs-balance")
	totalReleasedKey = []byte("trs-total")
	orchestratorKey  = []byte("trs-orchestrator")
	releasedPrefix   = []byte("trs-p") // trs-p + proposal id -> cumulative amount
	milestonePrefix  = []byte("trs-m") // trs-m + proposal id + index -> amount
)

func (t *Treasury) saveBalance(balance uint64) error {
	return t.store.WriteRLP(balanceKey, balance)
}

func (t *Treasury) saveTotalReleased(total uint64) error {
	return t.store.WriteRLP(totalReleasedKey, total)
}

func (t *Treasury) saveOrchestrator(addr common.Address) error {
	return t.store.WriteRLP(orchestratorKey, addr)
}

func (t *Treasury) saveReleased(proposalID, amount uint64) error {
	return t.store.WriteRLP(storage.Key(releasedPrefix, storage.EncodeUint64(proposalID)), amount)
}

func (t *Treasury) saveMilestone(key MilestoneKey, amount uint64) error {
	return t.store.WriteRLP(storage.Key(milestonePrefix, storage.EncodeUint64(key.ProposalID), storage.EncodeUint64(key.Index)), amount)
}

func (t *Treasury) load() error {
	if _, err := t.store.ReadRLP(balanceKey, &t.balance); err != nil {
		return fmt.Errorf("load treasury balance: %w", err)
	}
	if _, err := t.store.ReadRLP(totalReleasedKey, &t.totalReleased); err != nil {
		return fmt.Errorf("load treasury totals: %w", err)
	}

	var sum uint64
	err := t.store.Iterate(releasedPrefix, func(key, value []byte) error {
		var amount uint64
		if err := rlp.DecodeBytes(value, &amount); err != nil {
			return err
		}
		t.released[storage.DecodeUint64(key)] = amount
		sum += amount
		return nil
	})
	if err != nil {
		return fmt.Errorf("load treasury releases: %w", err)
	}
	if sum != t.totalReleased {
		return fmt.Errorf("%w: total %d, per proposal %d", errTotalsMismatch, t.totalReleased, sum)
	}

	err = t.store.Iterate(milestonePrefix, func(key, value []byte) error {
		var amount uint64
		if err := rlp.DecodeBytes(value, &amount); err != nil {
			return err
		}
		if len(key) != 16 {
			return fmt.Errorf("malformed milestone key %x", key)
		}
		t.milestones[MilestoneKey{ProposalID: storage.DecodeUint64(key[:8]), Index: storage.DecodeUint64(key[8:])}] = amount
		return nil
	})
	if err != nil {
		return fmt.Errorf("load treasury milestones: %w", err)
	}

	var orchestrator common.Address
	found, err := t.store.ReadRLP(orchestratorKey, &orchestrator)
	if err != nil {
		return fmt.Errorf("load treasury orchestrator: %w", err)
	}
	if found {
		return t.auth.SetOrchestrator(t.auth.Owner(), orchestrator)
	}
	return nil
}
