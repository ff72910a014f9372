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

// Package genesis derives the identities of the DAO components from the
// deployer, following contract creation address rules.
package genesis

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Deployment nonces of the components.
const (
	CoreNonce uint64 = iota
	TokenNonce
	TreasuryNonce
)

// Addresses holds the identities of the three components.
type Addresses struct {
	Core     common.Address
	Token    common.Address
	Treasury common.Address
}

// CalculateContractAddress returns keccak256(rlp([deployer, nonce]))[12:].
func CalculateContractAddress(deployer common.Address, nonce uint64) common.Address {
	return crypto.CreateAddress(deployer, nonce)
}

// PredictAddresses returns the identities the components get when the owner
// deploys them in order core, token, treasury.
func PredictAddresses(owner common.Address) Addresses {
	return Addresses{
		Core:     CalculateContractAddress(owner, CoreNonce),
		Token:    CalculateContractAddress(owner, TokenNonce),
		Treasury: CalculateContractAddress(owner, TreasuryNonce),
	}
}

// Fill replaces the zero addresses in a with the predicted ones.
func (a *Addresses) Fill(owner common.Address) {
	predicted := PredictAddresses(owner)
	if a.Core == (common.Address{}) {
		a.Core = predicted.Core
	}
	if a.Token == (common.Address{}) {
		a.Token = predicted.Token
	}
	if a.Treasury == (common.Address{}) {
		a.Treasury = predicted.Treasury
	}
}
