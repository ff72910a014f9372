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

package dao

import "sync/atomic"

// Chain is the block height source shared by the ledgers. The host advances
// it as blocks are applied.
type Chain struct {
	height atomic.Uint64
}

// NewChain creates a chain positioned at height.
func NewChain(height uint64) *Chain {
	c := new(Chain)
	c.height.Store(height)
	return c
}

// CurrentBlock returns the current height.
func (c *Chain) CurrentBlock() uint64 { return c.height.Load() }

// SetHeight moves the chain to height.
func (c *Chain) SetHeight(height uint64) { c.height.Store(height) }

// Advance moves the chain forward by n blocks and returns the new height.
func (c *Chain) Advance(n uint64) uint64 { return c.height.Add(n) }
