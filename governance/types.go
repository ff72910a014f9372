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
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ProposalType represents the type of governance proposal
type ProposalType uint8

const (
	ProposalFunding    ProposalType = 0x01 // pays the budget to the proposer on execution
	ProposalGovernance ProposalType = 0x02 // no fund movement
	ProposalImpact     ProposalType = 0x03 // pays milestone by milestone after execution
)

// ParseProposalType parses the textual proposal type.
func ParseProposalType(s string) (ProposalType, error) {
	switch strings.ToLower(s) {
	case "funding":
		return ProposalFunding, nil
	case "governance":
		return ProposalGovernance, nil
	case "impact":
		return ProposalImpact, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidProposalType, s)
}

// IsValid reports whether t is a known proposal type.
func (t ProposalType) IsValid() bool {
	return t >= ProposalFunding && t <= ProposalImpact
}

func (t ProposalType) String() string {
	switch t {
	case ProposalFunding:
		return "funding"
	case ProposalGovernance:
		return "governance"
	case ProposalImpact:
		return "impact"
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// ProposalStatus represents the status of a proposal
type ProposalStatus uint8

const (
	ProposalStatusActive   ProposalStatus = 0x00 // voting or awaiting finalization
	ProposalStatusApproved ProposalStatus = 0x01 // never stored, execution happens in the same step
	ProposalStatusRejected ProposalStatus = 0x02 // terminal
	ProposalStatusExecuted ProposalStatus = 0x03 // terminal
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusActive:
		return "active"
	case ProposalStatusApproved:
		return "approved"
	case ProposalStatusRejected:
		return "rejected"
	case ProposalStatusExecuted:
		return "executed"
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// Proposal represents a governance proposal
type Proposal struct {
	ID           uint64         // monotonic, never reused
	Hash         common.Hash    // keccak256 of the submission payload
	Proposer     common.Address
	Description  string
	Budget       uint64 // minor token units
	StartBlock   uint64
	EndBlock     uint64 // StartBlock + voting period at submission
	VotesFor     uint64
	VotesAgainst uint64
	Status       ProposalStatus
	Type         ProposalType
	ImpactMetric string
	Milestones   []uint64 // milestone amounts in minor token units
	FinalizedAt  uint64   // block of finalization, zero while active
}

// Copy returns a deep copy of the proposal.
func (p *Proposal) Copy() *Proposal {
	cpy := *p
	cpy.Milestones = append([]uint64(nil), p.Milestones...)
	return &cpy
}

// VoteKey identifies the vote of one account on one proposal.
type VoteKey struct {
	ProposalID uint64
	Voter      common.Address
}

// Vote represents a vote on a proposal
type Vote struct {
	ProposalID uint64
	Voter      common.Address
	Support    bool   // true = for, false = against
	Weight     uint64 // token balance at vote time
	Block      uint64
}

// StakeKey identifies the stake of one account on one proposal.
type StakeKey struct {
	ProposalID uint64
	Staker     common.Address
}

// PeerRole names a peer identity the core relies on.
type PeerRole uint8

const (
	PeerSubmission         PeerRole = 0x01 // gates proposal submission
	PeerVotingMechanism    PeerRole = 0x02 // gates voting
	PeerExecutionEngine    PeerRole = 0x03 // gates finalization, may trigger milestone releases
	PeerStakingVault       PeerRole = 0x04 // gates proposal staking
	PeerRewardsDistributor PeerRole = 0x05 // enables proposer rewards on execution
)

func (r PeerRole) String() string {
	switch r {
	case PeerSubmission:
		return "submission"
	case PeerVotingMechanism:
		return "voting-mechanism"
	case PeerExecutionEngine:
		return "execution-engine"
	case PeerStakingVault:
		return "staking-vault"
	case PeerRewardsDistributor:
		return "rewards-distributor"
	}
	return fmt.Sprintf("unknown(%d)", uint8(r))
}

// IsValid reports whether r is a known peer role.
func (r PeerRole) IsValid() bool {
	return r >= PeerSubmission && r <= PeerRewardsDistributor
}

// DelegationPolicy selects how delegation loops are detected.
type DelegationPolicy string

const (
	// DelegationShallow rejects delegating to an account that already has an
	// outgoing delegation.
	DelegationShallow DelegationPolicy = "shallow"
	// DelegationChain follows the delegation chain from the target and
	// rejects only if it leads back to the delegator.
	DelegationChain DelegationPolicy = "chain"
)

// FinalizeResult describes the outcome of a finalization.
type FinalizeResult struct {
	ProposalID    uint64
	Status        ProposalStatus
	QuorumReached bool
	VotesFor      uint64
	VotesAgainst  uint64
	TotalSupply   uint64
	Released      uint64 // treasury funds paid to the proposer
	Reward        uint64 // tokens minted to the proposer
}

// Config holds the governance parameters
type Config struct {
	QuorumThreshold       uint64 // percentage of total supply that must vote, (0, 100]
	VotingPeriod          uint64 // blocks
	DelegationPolicy      DelegationPolicy
	RejectOnQuorumFailure bool // reject instead of failing when quorum is missed after the deadline
	Reward                *RewardConfig
}

// DefaultConfig returns the default governance configuration
func DefaultConfig() *Config {
	return &Config{
		QuorumThreshold:       50,
		VotingPeriod:          1440, // ~10 days of 10 minute blocks
		DelegationPolicy:      DelegationShallow,
		RejectOnQuorumFailure: true,
		Reward:                DefaultRewardConfig(),
	}
}

// Validate checks the configuration ranges.
func (c *Config) Validate() error {
	if c.QuorumThreshold == 0 || c.QuorumThreshold > 100 {
		return ErrInvalidQuorum
	}
	if c.VotingPeriod == 0 {
		return ErrInvalidVotingPeriod
	}
	switch c.DelegationPolicy {
	case DelegationShallow, DelegationChain:
	default:
		return fmt.Errorf("unknown delegation policy %q", c.DelegationPolicy)
	}
	if c.Reward != nil {
		return c.Reward.Validate()
	}
	return nil
}
