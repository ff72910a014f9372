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
	"github.com/ethereum/go-ethereum/common"
	"github.com/zerowaste-dao/govcore/treasury"
)

// BlockContext provides the height operations are applied at
type BlockContext interface {
	// CurrentBlock returns the current block height
	CurrentBlock() uint64
}

// TokenLedger is the part of the governance token the core relies on
type TokenLedger interface {
	// BalanceOf returns the voting power of an account
	BalanceOf(account common.Address) uint64

	// TotalSupply returns the quorum denominator
	TotalSupply() uint64

	// MaxSupply returns the supply cap
	MaxSupply() uint64

	// Orchestrator returns the identity allowed to mint
	Orchestrator() common.Address

	// Mint creates tokens, caller must be the orchestrator
	Mint(caller, recipient common.Address, amount uint64) error
}

// FundLedger is the part of the treasury the core relies on
type FundLedger interface {
	// Balance returns the pooled balance
	Balance() uint64

	// Orchestrator returns the identity allowed to release funds
	Orchestrator() common.Address

	// ReleaseFunds pays a proposal, caller must be the orchestrator
	ReleaseFunds(caller common.Address, proposalID, amount uint64, recipient common.Address) (*treasury.Payout, error)

	// ReleaseMilestone pays one milestone at most once, caller must be the orchestrator
	ReleaseMilestone(caller common.Address, proposalID, index, amount uint64, recipient common.Address) (*treasury.Payout, error)
}
