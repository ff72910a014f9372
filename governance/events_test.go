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
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestProposalEvents(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	env := newTestEnv(t, DefaultConfig())
	events := make(chan ProposalEvent, 8)
	sub := env.core.SubscribeProposalEvents(events)
	defer sub.Unsubscribe()

	id := env.submit(t, ProposalFunding, 100)
	if err := env.core.VoteOnProposal(alice, id, true); err != nil {
		t.Fatal(err)
	}
	p, _ := env.core.GetProposal(id)
	env.chain.height = p.EndBlock + 1
	if _, err := env.core.FinalizeProposal(testEngine, id); err != nil {
		t.Fatal(err)
	}

	want := []EventKind{EventSubmitted, EventVoted, EventFinalized}
	for i, kind := range want {
		select {
		case ev := <-events:
			if ev.Kind != kind {
				t.Fatalf("event %d: expected %v, got %v", i, kind, ev.Kind)
			}
			if ev.Proposal == nil || ev.Proposal.ID != id {
				t.Fatalf("event %d: unexpected proposal %+v", i, ev.Proposal)
			}
			switch kind {
			case EventVoted:
				if ev.Vote == nil || ev.Vote.Weight != 700 {
					t.Errorf("unexpected vote %+v", ev.Vote)
				}
			case EventFinalized:
				if ev.Result == nil || ev.Result.Status != ProposalStatusExecuted {
					t.Errorf("unexpected result %+v", ev.Result)
				}
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %v event", kind)
		}
	}

	if err := env.core.VoteOnProposal(bob, id, true); err == nil {
		t.Fatal("expected vote on finalized proposal to fail")
	}
	select {
	case ev := <-events:
		t.Errorf("unexpected event after failed operation: %v", ev.Kind)
	default:
	}
}
