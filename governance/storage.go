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

package governance

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/zerowaste-dao/govcore/storage"
)

var (
	// Storage key prefixes
	proposalPrefix   = []byte("gov-prop-") // gov-prop- + id -> Proposal
	votePrefix       = []byte("gov-vote-") // gov-vote- + id + voter -> Vote
	delegationPrefix = []byte("gov-dlg-")  // gov-dlg- + delegator -> delegate
	stakePrefix      = []byte("gov-stk-")  // gov-stk- + id + staker -> uint64
	peerPrefix       = []byte("gov-peer-") // gov-peer- + role -> address
	paramsKey        = []byte("gov-config")
)

// storedParams is the persisted form of the mutable parameters.
type storedParams struct {
	QuorumThreshold uint64
	VotingPeriod    uint64
	NextID          uint64
}

func (c *Core) saveParams(quorum, period, nextID uint64) error {
	return c.store.WriteRLP(paramsKey, &storedParams{
		QuorumThreshold: quorum,
		VotingPeriod:    period,
		NextID:          nextID,
	})
}

func (c *Core) saveProposal(p *Proposal) error {
	return c.store.WriteRLP(storage.Key(proposalPrefix, storage.EncodeUint64(p.ID)), p)
}

func (c *Core) saveVote(v *Vote) error {
	return c.store.WriteRLP(storage.Key(votePrefix, storage.EncodeUint64(v.ProposalID), v.Voter.Bytes()), v)
}

func (c *Core) saveDelegation(delegator, delegate common.Address) error {
	return c.store.WriteRLP(storage.Key(delegationPrefix, delegator.Bytes()), delegate)
}

func (c *Core) deleteDelegation(delegator common.Address) error {
	return c.store.Delete(storage.Key(delegationPrefix, delegator.Bytes()))
}

func (c *Core) saveStake(key StakeKey, amount uint64) error {
	return c.store.WriteRLP(storage.Key(stakePrefix, storage.EncodeUint64(key.ProposalID), key.Staker.Bytes()), amount)
}

func (c *Core) savePeer(role PeerRole, peer common.Address) error {
	key := storage.Key(peerPrefix, []byte{byte(role)})
	if peer == (common.Address{}) {
		return c.store.Delete(key)
	}
	return c.store.WriteRLP(key, peer)
}

// load restores the core from the store and rebuilds the deadline index.
func (c *Core) load() error {
	var params storedParams
	found, err := c.store.ReadRLP(paramsKey, &params)
	if err != nil {
		return fmt.Errorf("load governance params: %w", err)
	}
	if found {
		c.config.QuorumThreshold = params.QuorumThreshold
		c.config.VotingPeriod = params.VotingPeriod
		c.nextID = params.NextID
	}

	err = c.store.Iterate(proposalPrefix, func(key, value []byte) error {
		p := new(Proposal)
		if err := rlp.DecodeBytes(value, p); err != nil {
			return err
		}
		if p.ID >= c.nextID {
			return fmt.Errorf("proposal %d beyond next id %d", p.ID, c.nextID)
		}
		c.proposals[p.ID] = p
		if p.Status == ProposalStatusActive {
			c.deadlines.add(p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load proposals: %w", err)
	}

	err = c.store.Iterate(votePrefix, func(key, value []byte) error {
		v := new(Vote)
		if err := rlp.DecodeBytes(value, v); err != nil {
			return err
		}
		c.votes[VoteKey{ProposalID: v.ProposalID, Voter: v.Voter}] = v
		return nil
	})
	if err != nil {
		return fmt.Errorf("load votes: %w", err)
	}

	err = c.store.Iterate(delegationPrefix, func(key, value []byte) error {
		var delegate common.Address
		if err := rlp.DecodeBytes(value, &delegate); err != nil {
			return err
		}
		c.delegations[common.BytesToAddress(key)] = delegate
		return nil
	})
	if err != nil {
		return fmt.Errorf("load delegations: %w", err)
	}

	err = c.store.Iterate(stakePrefix, func(key, value []byte) error {
		var amount uint64
		if err := rlp.DecodeBytes(value, &amount); err != nil {
			return err
		}
		if len(key) != 8+common.AddressLength {
			return fmt.Errorf("malformed stake key %x", key)
		}
		c.stakes[StakeKey{
			ProposalID: storage.DecodeUint64(key),
			Staker:     common.BytesToAddress(key[8:]),
		}] = amount
		return nil
	})
	if err != nil {
		return fmt.Errorf("load stakes: %w", err)
	}

	err = c.store.Iterate(peerPrefix, func(key, value []byte) error {
		var peer common.Address
		if err := rlp.DecodeBytes(value, &peer); err != nil {
			return err
		}
		if len(key) != 1 || !PeerRole(key[0]).IsValid() {
			return fmt.Errorf("%w: %x", ErrInvalidPeerRole, key)
		}
		c.peers[PeerRole(key[0])] = peer
		return nil
	})
	if err != nil {
		return fmt.Errorf("load peers: %w", err)
	}

	if len(c.proposals) > 0 {
		c.log.Info("Restored governance state", "proposals", len(c.proposals), "votes", len(c.votes),
			"delegations", len(c.delegations), "stakes", len(c.stakes), "active", c.deadlines.len())
	}
	return nil
}
