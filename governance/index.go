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

import "github.com/google/btree"

// deadlineItem orders active proposals by voting deadline.
type deadlineItem struct {
	endBlock uint64
	id       uint64
}

func (a deadlineItem) less(b deadlineItem) bool {
	if a.endBlock != b.endBlock {
		return a.endBlock < b.endBlock
	}
	return a.id < b.id
}

// deadlineIndex tracks the active proposals. It is not safe for concurrent
// use; the core guards it with its own lock.
type deadlineIndex struct {
	tree *btree.BTreeG[deadlineItem]
}

func newDeadlineIndex() *deadlineIndex {
	return &deadlineIndex{tree: btree.NewG(32, deadlineItem.less)}
}

func (idx *deadlineIndex) add(p *Proposal) {
	idx.tree.ReplaceOrInsert(deadlineItem{endBlock: p.EndBlock, id: p.ID})
}

func (idx *deadlineIndex) remove(p *Proposal) {
	idx.tree.Delete(deadlineItem{endBlock: p.EndBlock, id: p.ID})
}

func (idx *deadlineIndex) len() int {
	return idx.tree.Len()
}

// expired returns the ids whose deadline is strictly below height.
func (idx *deadlineIndex) expired(height uint64) []uint64 {
	var ids []uint64
	if height == 0 {
		return ids
	}
	idx.tree.AscendLessThan(deadlineItem{endBlock: height}, func(item deadlineItem) bool {
		ids = append(ids, item.id)
		return true
	})
	return ids
}
