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

	"github.com/zerowaste-dao/govcore/ledger"
)

// Configuration errors
var (
	ErrInvalidQuorum       = ledger.NewError(102, ledger.CategoryValidation, "quorum threshold must be in (0, 100]")
	ErrInvalidVotingPeriod = ledger.NewError(103, ledger.CategoryValidation, "voting period must be positive")
	ErrInvalidPeerRole     = ledger.NewError(136, ledger.CategoryValidation, "unknown peer role")
)

// Peer errors
var (
	ErrTreasuryNotConfigured        = ledger.NewError(111, ledger.CategoryAuthorization, "treasury is not configured")
	ErrTokenNotConfigured           = ledger.NewError(112, ledger.CategoryAuthorization, "governance token is not configured")
	ErrVotingMechanismNotConfigured = ledger.NewError(132, ledger.CategoryAuthorization, "voting mechanism is not configured")
	ErrStakingNotConfigured         = ledger.NewError(133, ledger.CategoryAuthorization, "staking vault is not configured")
	ErrSubmissionNotConfigured      = ledger.NewError(134, ledger.CategoryAuthorization, "proposal submission is not configured")
)

// Proposal errors
var (
	ErrProposalNotFound    = ledger.NewError(108, ledger.CategoryNotFound, "proposal not found")
	ErrInvalidBudget       = ledger.NewError(125, ledger.CategoryValidation, "budget must be positive")
	ErrInvalidProposalType = ledger.NewError(123, ledger.CategoryValidation, "invalid proposal type")
	ErrInvalidImpactMetric = ledger.NewError(124, ledger.CategoryValidation, "impact metric must not be empty")
	ErrInvalidMilestone    = ledger.NewError(114, ledger.CategoryValidation, "invalid milestone")
	ErrInvalidStatus       = ledger.NewError(109, ledger.CategoryStateConflict, "proposal is not in the required status")
)

// Voting errors
var (
	ErrProposalNotActive  = ledger.NewError(104, ledger.CategoryStateConflict, "proposal is not active")
	ErrProposalExpired    = ledger.NewError(106, ledger.CategoryStateConflict, "voting period has ended")
	ErrAlreadyVoted       = ledger.NewError(105, ledger.CategoryStateConflict, "voter has already voted on this proposal")
	ErrInsufficientQuorum = ledger.NewError(107, ledger.CategoryStateConflict, "quorum not reached")
	ErrExecutionFailed    = ledger.NewError(113, ledger.CategoryStateConflict, "proposal execution failed")
	ErrTallyOverflow      = ledger.NewError(138, ledger.CategoryStateConflict, "vote tally would overflow")

	// ErrVotingInProgress is returned when finalizing before the deadline. It
	// carries the ErrProposalNotActive code.
	ErrVotingInProgress = fmt.Errorf("%w: voting period has not ended", ErrProposalNotActive)
)

// Delegation errors
var (
	ErrInvalidDelegate = ledger.NewError(117, ledger.CategoryValidation, "invalid delegate")
	ErrDelegationLoop  = ledger.NewError(118, ledger.CategoryStateConflict, "delegation would create a loop")
)
