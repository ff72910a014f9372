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

package ledger

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Authority gates privileged operations of a leaf ledger. The owner is fixed
// at construction and may rotate the orchestrator; only the orchestrator may
// invoke the privileged path.
type Authority struct {
	mu           sync.RWMutex
	owner        common.Address
	orchestrator common.Address
}

// NewAuthority creates an authority owned by owner with no orchestrator set.
func NewAuthority(owner common.Address) *Authority {
	return &Authority{owner: owner}
}

// Owner returns the deployer identity.
func (a *Authority) Owner() common.Address {
	return a.owner
}

// Orchestrator returns the configured orchestrator, or the zero address.
func (a *Authority) Orchestrator() common.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.orchestrator
}

// SetOrchestrator replaces the orchestrator. Only the owner may call it.
func (a *Authority) SetOrchestrator(caller, orchestrator common.Address) error {
	if caller != a.owner {
		return ErrNotAuthorized
	}
	a.mu.Lock()
	a.orchestrator = orchestrator
	a.mu.Unlock()
	return nil
}

// CheckOwner fails with ErrNotAuthorized unless caller is the owner.
func (a *Authority) CheckOwner(caller common.Address) error {
	if caller != a.owner {
		return ErrNotAuthorized
	}
	return nil
}

// CheckOrchestrator fails with ErrPeerNotConfigured when no orchestrator is
// set, and with ErrNotAuthorized when caller is someone else.
func (a *Authority) CheckOrchestrator(caller common.Address) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.orchestrator == (common.Address{}) {
		return ErrPeerNotConfigured
	}
	if caller != a.orchestrator {
		return ErrNotAuthorized
	}
	return nil
}
