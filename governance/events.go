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

// EventKind distinguishes proposal lifecycle events.
type EventKind uint8

const (
	EventSubmitted EventKind = iota + 1
	EventVoted
	EventFinalized
)

func (k EventKind) String() string {
	switch k {
	case EventSubmitted:
		return "submitted"
	case EventVoted:
		return "voted"
	case EventFinalized:
		return "finalized"
	}
	return "unknown"
}

// ProposalEvent is posted to subscribers after a state change commits in
// the core. Proposal is a snapshot taken at that point.
type ProposalEvent struct {
	Kind     EventKind
	Proposal *Proposal
	Vote     *Vote           // set for EventVoted
	Result   *FinalizeResult // set for EventFinalized
}
