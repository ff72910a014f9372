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
	"math"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/zerowaste-dao/govcore/ledger"
	"github.com/zerowaste-dao/govcore/storage"
)

var (
	submittedMeter = metrics.NewRegisteredCounter("dao/proposals/submitted", nil)
	votesMeter     = metrics.NewRegisteredCounter("dao/proposals/votes", nil)
	executedMeter  = metrics.NewRegisteredCounter("dao/proposals/executed", nil)
	rejectedMeter  = metrics.NewRegisteredCounter("dao/proposals/rejected", nil)
	rewardMeter    = metrics.NewRegisteredCounter("dao/proposals/rewards", nil)
)

// Core owns proposals, votes, delegations and stakes, and is the sole
// orchestrator of the token and treasury ledgers.
type Core struct {
	address common.Address // identity presented to the leaf ledgers
	owner   common.Address
	chain   BlockContext

	base        Config // construction parameters, restored on reload
	mu          sync.RWMutex
	config      Config
	token       TokenLedger
	treasury    FundLedger
	peers       map[PeerRole]common.Address
	nextID      uint64
	proposals   map[uint64]*Proposal
	votes       map[VoteKey]*Vote
	delegations map[common.Address]common.Address
	stakes      map[StakeKey]uint64
	deadlines   *deadlineIndex
	rewards     *RewardCalculator

	feed  event.Feed
	store *storage.Store
	log   log.Logger
}

// NewCore creates the governance core and restores any state held in store.
// Parameters changed through the admin setters and persisted in store take
// precedence over config.
func NewCore(address, owner common.Address, config *Config, chain BlockContext, store *storage.Store) (*Core, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := &Core{
		address:     address,
		owner:       owner,
		chain:       chain,
		base:        *config,
		config:      *config,
		peers:       make(map[PeerRole]common.Address),
		proposals:   make(map[uint64]*Proposal),
		votes:       make(map[VoteKey]*Vote),
		delegations: make(map[common.Address]common.Address),
		stakes:      make(map[StakeKey]uint64),
		deadlines:   newDeadlineIndex(),
		rewards:     NewRewardCalculator(config.Reward),
		store:       store,
		log:         log.New("module", "governance"),
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload discards the in-memory state and restores it from the store. The
// token and treasury capabilities and event subscriptions are kept.
func (c *Core) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.config = c.base
	c.nextID = 0
	c.peers = make(map[PeerRole]common.Address)
	c.proposals = make(map[uint64]*Proposal)
	c.votes = make(map[VoteKey]*Vote)
	c.delegations = make(map[common.Address]common.Address)
	c.stakes = make(map[StakeKey]uint64)
	c.deadlines = newDeadlineIndex()
	return c.load()
}

// Address returns the identity the core presents to the leaf ledgers.
func (c *Core) Address() common.Address { return c.address }

// Owner returns the deployer identity.
func (c *Core) Owner() common.Address { return c.owner }

// SetQuorumThreshold sets the quorum percentage. Owner only.
func (c *Core) SetQuorumThreshold(caller common.Address, quorum uint64) error {
	if caller != c.owner {
		return ledger.ErrNotAuthorized
	}
	if quorum == 0 || quorum > 100 {
		return ErrInvalidQuorum
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.saveParams(quorum, c.config.VotingPeriod, c.nextID); err != nil {
		return err
	}
	c.config.QuorumThreshold = quorum
	c.log.Info("Quorum threshold updated", "quorum", quorum)
	return nil
}

// SetVotingPeriod sets the voting period of future proposals. Owner only.
func (c *Core) SetVotingPeriod(caller common.Address, period uint64) error {
	if caller != c.owner {
		return ledger.ErrNotAuthorized
	}
	if period == 0 {
		return ErrInvalidVotingPeriod
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.saveParams(c.config.QuorumThreshold, period, c.nextID); err != nil {
		return err
	}
	c.config.VotingPeriod = period
	c.log.Info("Voting period updated", "period", period)
	return nil
}

// SetToken installs the governance token capability. Owner only.
func (c *Core) SetToken(caller common.Address, token TokenLedger) error {
	if caller != c.owner {
		return ledger.ErrNotAuthorized
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

// SetTreasury installs the treasury capability. Owner only.
func (c *Core) SetTreasury(caller common.Address, treasury FundLedger) error {
	if caller != c.owner {
		return ledger.ErrNotAuthorized
	}
	c.mu.Lock()
	c.treasury = treasury
	c.mu.Unlock()
	return nil
}

// SetPeer records the identity serving a peer role. Owner only.
func (c *Core) SetPeer(caller common.Address, role PeerRole, peer common.Address) error {
	if caller != c.owner {
		return ledger.ErrNotAuthorized
	}
	if !role.IsValid() {
		return ErrInvalidPeerRole
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.savePeer(role, peer); err != nil {
		return err
	}
	if peer == (common.Address{}) {
		delete(c.peers, role)
	} else {
		c.peers[role] = peer
	}
	c.log.Info("Governance peer updated", "role", role, "peer", peer)
	return nil
}

// Peer returns the identity serving role, or the zero address.
func (c *Core) Peer(role PeerRole) common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peers[role]
}

// SubmitProposal creates a new proposal and returns its id.
func (c *Core) SubmitProposal(
	caller common.Address,
	description string,
	budget uint64,
	proposalType ProposalType,
	impactMetric string,
	milestones []uint64,
) (uint64, error) {
	proposal, err := c.submit(caller, description, budget, proposalType, impactMetric, milestones)
	if err != nil {
		return 0, err
	}
	c.feed.Send(ProposalEvent{Kind: EventSubmitted, Proposal: proposal})
	return proposal.ID, nil
}

func (c *Core) submit(
	caller common.Address,
	description string,
	budget uint64,
	proposalType ProposalType,
	impactMetric string,
	milestones []uint64,
) (*Proposal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.peers[PeerSubmission]; !ok {
		return nil, ErrSubmissionNotConfigured
	}
	if budget == 0 {
		return nil, ErrInvalidBudget
	}
	if !proposalType.IsValid() {
		return nil, ErrInvalidProposalType
	}
	if impactMetric == "" {
		return nil, ErrInvalidImpactMetric
	}
	if len(milestones) == 0 {
		return nil, ErrInvalidMilestone
	}
	for _, m := range milestones {
		if m == 0 {
			return nil, ErrInvalidMilestone
		}
	}

	start := c.chain.CurrentBlock()
	proposal := &Proposal{
		ID:           c.nextID,
		Proposer:     caller,
		Description:  description,
		Budget:       budget,
		StartBlock:   start,
		EndBlock:     start + c.config.VotingPeriod,
		Status:       ProposalStatusActive,
		Type:         proposalType,
		ImpactMetric: impactMetric,
		Milestones:   append([]uint64(nil), milestones...),
	}
	hash, err := proposalHash(proposal)
	if err != nil {
		return nil, err
	}
	proposal.Hash = hash

	if err := c.saveProposal(proposal); err != nil {
		return nil, err
	}
	if err := c.saveParams(c.config.QuorumThreshold, c.config.VotingPeriod, c.nextID+1); err != nil {
		return nil, err
	}
	c.proposals[proposal.ID] = proposal
	c.deadlines.add(proposal)
	c.nextID++

	submittedMeter.Inc(1)
	c.log.Info("Proposal submitted", "id", proposal.ID, "proposer", caller, "type", proposalType,
		"budget", budget, "endBlock", proposal.EndBlock, "hash", hash)
	return proposal.Copy(), nil
}

// VoteOnProposal records the caller's vote, weighted by its token balance at
// the current block.
func (c *Core) VoteOnProposal(caller common.Address, id uint64, support bool) error {
	proposal, vote, err := c.vote(caller, id, support)
	if err != nil {
		return err
	}
	c.feed.Send(ProposalEvent{Kind: EventVoted, Proposal: proposal, Vote: vote})
	return nil
}

func (c *Core) vote(caller common.Address, id uint64, support bool) (*Proposal, *Vote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	proposal, exists := c.proposals[id]
	if !exists {
		return nil, nil, ErrProposalNotFound
	}
	if _, ok := c.peers[PeerVotingMechanism]; !ok {
		return nil, nil, ErrVotingMechanismNotConfigured
	}
	if c.token == nil {
		return nil, nil, ErrTokenNotConfigured
	}
	if proposal.Status != ProposalStatusActive {
		return nil, nil, ErrProposalNotActive
	}
	height := c.chain.CurrentBlock()
	if height > proposal.EndBlock {
		return nil, nil, ErrProposalExpired
	}
	key := VoteKey{ProposalID: id, Voter: caller}
	if _, voted := c.votes[key]; voted {
		return nil, nil, ErrAlreadyVoted
	}

	weight := c.token.BalanceOf(caller)
	vote := &Vote{
		ProposalID: id,
		Voter:      caller,
		Support:    support,
		Weight:     weight,
		Block:      height,
	}

	// Balances may move after a vote, so tallies are not bounded by supply.
	updated := proposal.Copy()
	tally := &updated.VotesAgainst
	if support {
		tally = &updated.VotesFor
	}
	if weight > math.MaxUint64-*tally {
		return nil, nil, ErrTallyOverflow
	}
	*tally += weight
	if err := c.saveVote(vote); err != nil {
		return nil, nil, err
	}
	if err := c.saveProposal(updated); err != nil {
		return nil, nil, err
	}
	c.votes[key] = vote
	c.proposals[id] = updated

	votesMeter.Inc(1)
	c.log.Debug("Vote recorded", "id", id, "voter", caller, "support", support, "weight", weight)
	voteCopy := *vote
	return updated.Copy(), &voteCopy, nil
}

// FinalizeProposal closes voting on a proposal whose deadline has passed.
// A proposal that reaches quorum with more votes for than against is
// executed in the same step; otherwise it is rejected.
func (c *Core) FinalizeProposal(caller common.Address, id uint64) (*FinalizeResult, error) {
	proposal, result, err := c.finalize(caller, id)
	if err != nil {
		return nil, err
	}
	c.feed.Send(ProposalEvent{Kind: EventFinalized, Proposal: proposal, Result: result})
	return result, nil
}

func (c *Core) finalize(caller common.Address, id uint64) (*Proposal, *FinalizeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	proposal, exists := c.proposals[id]
	if !exists {
		return nil, nil, ErrProposalNotFound
	}
	if c.token == nil {
		return nil, nil, ErrTokenNotConfigured
	}
	if _, ok := c.peers[PeerExecutionEngine]; !ok || c.treasury == nil {
		return nil, nil, ErrTreasuryNotConfigured
	}
	if proposal.Status != ProposalStatusActive {
		return nil, nil, ErrProposalNotActive
	}
	height := c.chain.CurrentBlock()
	if height <= proposal.EndBlock {
		return nil, nil, ErrVotingInProgress
	}

	supply := c.token.TotalSupply()
	result := &FinalizeResult{
		ProposalID:    id,
		QuorumReached: QuorumReached(proposal.VotesFor, proposal.VotesAgainst, c.config.QuorumThreshold, supply),
		VotesFor:      proposal.VotesFor,
		VotesAgainst:  proposal.VotesAgainst,
		TotalSupply:   supply,
	}
	if !result.QuorumReached && !c.config.RejectOnQuorumFailure {
		return nil, nil, ErrInsufficientQuorum
	}

	updated := proposal.Copy()
	updated.FinalizedAt = height
	if result.QuorumReached && proposal.VotesFor > proposal.VotesAgainst {
		if err := c.execute(updated, height, result); err != nil {
			return nil, nil, fmt.Errorf("%w: proposal %d: %w", ErrExecutionFailed, id, err)
		}
		updated.Status = ProposalStatusExecuted
	} else {
		updated.Status = ProposalStatusRejected
	}
	result.Status = updated.Status

	if err := c.saveProposal(updated); err != nil {
		return nil, nil, err
	}
	c.proposals[id] = updated
	c.deadlines.remove(updated)

	if updated.Status == ProposalStatusExecuted {
		executedMeter.Inc(1)
	} else {
		rejectedMeter.Inc(1)
	}
	c.log.Info("Proposal finalized", "id", id, "by", caller, "status", updated.Status,
		"quorum", result.QuorumReached, "for", result.VotesFor, "against", result.VotesAgainst,
		"supply", supply, "released", result.Released, "reward", result.Reward)
	return updated.Copy(), result, nil
}

// execute performs the side effects of an approved proposal. Everything that
// could make a leaf ledger refuse is checked before the first mutation.
// The caller must hold c.mu.
func (c *Core) execute(p *Proposal, height uint64, result *FinalizeResult) error {
	var release uint64
	if p.Type == ProposalFunding {
		release = p.Budget
		if c.treasury.Orchestrator() != c.address {
			return ledger.ErrNotAuthorized
		}
		if c.treasury.Balance() < release {
			return ledger.ErrInsufficientBalance
		}
	}

	var reward uint64
	if _, ok := c.peers[PeerRewardsDistributor]; ok {
		reward = c.rewards.ProposerReward(height)
		if headroom := c.token.MaxSupply() - c.token.TotalSupply(); reward > headroom {
			reward = headroom
		}
		if reward > 0 && c.token.Orchestrator() != c.address {
			return ledger.ErrNotAuthorized
		}
	}

	if release > 0 {
		if _, err := c.treasury.ReleaseFunds(c.address, p.ID, release, p.Proposer); err != nil {
			return err
		}
		result.Released = release
	}
	if reward > 0 {
		if err := c.token.Mint(c.address, p.Proposer, reward); err != nil {
			return err
		}
		result.Reward = reward
		rewardMeter.Inc(int64(reward))
	}
	return nil
}

// ReleaseMilestone pays one milestone of an executed impact proposal to its
// proposer. The execution engine or the owner may trigger it.
func (c *Core) ReleaseMilestone(caller common.Address, id, index uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	engine, ok := c.peers[PeerExecutionEngine]
	if caller != c.owner && (!ok || caller != engine) {
		return ledger.ErrNotAuthorized
	}
	if c.treasury == nil {
		return ErrTreasuryNotConfigured
	}
	proposal, exists := c.proposals[id]
	if !exists {
		return ErrProposalNotFound
	}
	if proposal.Type != ProposalImpact {
		return ErrInvalidProposalType
	}
	if proposal.Status != ProposalStatusExecuted {
		return ErrInvalidStatus
	}
	if index >= uint64(len(proposal.Milestones)) {
		return ErrInvalidMilestone
	}

	amount := proposal.Milestones[index]
	if _, err := c.treasury.ReleaseMilestone(c.address, id, index, amount, proposal.Proposer); err != nil {
		return err
	}
	c.log.Info("Milestone released", "id", id, "milestone", index, "amount", amount, "by", caller)
	return nil
}

// DelegateVote records caller -> delegate, replacing any earlier delegation.
func (c *Core) DelegateVote(caller, delegate common.Address) error {
	if caller == delegate || delegate == (common.Address{}) {
		return ErrInvalidDelegate
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.createsLoop(caller, delegate) {
		return ErrDelegationLoop
	}
	if err := c.saveDelegation(caller, delegate); err != nil {
		return err
	}
	c.delegations[caller] = delegate
	c.log.Debug("Vote delegated", "from", caller, "to", delegate)
	return nil
}

// createsLoop applies the configured delegation policy. The caller must
// hold c.mu.
func (c *Core) createsLoop(caller, delegate common.Address) bool {
	if c.config.DelegationPolicy != DelegationChain {
		_, delegated := c.delegations[delegate]
		return delegated
	}
	visited := mapset.NewThreadUnsafeSet(caller)
	for cur, ok := delegate, true; ok; cur, ok = c.delegations[cur] {
		if !visited.Add(cur) {
			return true
		}
	}
	return false
}

// RevokeDelegation removes the caller's outgoing delegation, if any.
func (c *Core) RevokeDelegation(caller common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.delegations[caller]; !ok {
		return nil
	}
	if err := c.deleteDelegation(caller); err != nil {
		return err
	}
	delete(c.delegations, caller)
	c.log.Debug("Delegation revoked", "from", caller)
	return nil
}

// StakeForProposal records the caller's support stake, replacing any earlier
// stake on the same proposal.
func (c *Core) StakeForProposal(caller common.Address, id, amount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.proposals[id]; !exists {
		return ErrProposalNotFound
	}
	if _, ok := c.peers[PeerStakingVault]; !ok {
		return ErrStakingNotConfigured
	}
	if amount == 0 {
		return ledger.ErrInvalidAmount
	}

	key := StakeKey{ProposalID: id, Staker: caller}
	if err := c.saveStake(key, amount); err != nil {
		return err
	}
	c.stakes[key] = amount
	c.log.Debug("Stake recorded", "id", id, "staker", caller, "amount", amount)
	return nil
}

// GetProposal returns a copy of a proposal.
func (c *Core) GetProposal(id uint64) (*Proposal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	proposal, exists := c.proposals[id]
	if !exists {
		return nil, false
	}
	return proposal.Copy(), true
}

// ProposalCount returns the number of proposals ever submitted, which is
// also the next id.
func (c *Core) ProposalCount() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nextID
}

// GetQuorumThreshold returns the quorum percentage.
func (c *Core) GetQuorumThreshold() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.QuorumThreshold
}

// GetVotingPeriod returns the voting period in blocks.
func (c *Core) GetVotingPeriod() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.VotingPeriod
}

// GetVote returns the vote of voter on a proposal.
func (c *Core) GetVote(id uint64, voter common.Address) (Vote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	vote, exists := c.votes[VoteKey{ProposalID: id, Voter: voter}]
	if !exists {
		return Vote{}, false
	}
	return *vote, true
}

// GetDelegate returns the delegate of an account, or the zero address.
func (c *Core) GetDelegate(delegator common.Address) common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.delegations[delegator]
}

// GetStake returns the stake of an account on a proposal.
func (c *Core) GetStake(id uint64, staker common.Address) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stakes[StakeKey{ProposalID: id, Staker: staker}]
}

// Finalizable returns the ids of active proposals whose deadline has passed
// at height, ordered by deadline.
func (c *Core) Finalizable(height uint64) []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deadlines.expired(height)
}

// SubscribeProposalEvents delivers proposal events to ch. Events are sent
// synchronously after each successful operation, so the receiver must not
// call back into the core from the receiving goroutine.
func (c *Core) SubscribeProposalEvents(ch chan<- ProposalEvent) event.Subscription {
	return c.feed.Subscribe(ch)
}

// QuorumReached reports whether (votesFor+votesAgainst)*100 >=
// quorum*totalSupply. The comparison is done in 256 bits.
func QuorumReached(votesFor, votesAgainst, quorum, totalSupply uint64) bool {
	turnout := new(uint256.Int).Add(uint256.NewInt(votesFor), uint256.NewInt(votesAgainst))
	turnout.Mul(turnout, uint256.NewInt(100))
	required := new(uint256.Int).Mul(uint256.NewInt(quorum), uint256.NewInt(totalSupply))
	return turnout.Cmp(required) >= 0
}

// proposalHash returns the content identity of a proposal submission.
func proposalHash(p *Proposal) (common.Hash, error) {
	enc, err := rlp.EncodeToBytes([]interface{}{
		p.ID, p.Proposer, p.Description, p.Budget, uint8(p.Type), p.ImpactMetric, p.Milestones, p.StartBlock,
	})
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}
