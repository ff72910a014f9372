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

package genesis

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

func TestCalculateContractAddress(t *testing.T) {
	deployer := common.HexToAddress("0x1234567890123456789012345678901234567890")

	addr0 := CalculateContractAddress(deployer, 0)
	addr1 := CalculateContractAddress(deployer, 1)
	if addr0 == (common.Address{}) || addr1 == (common.Address{}) {
		t.Fatal("address should not be zero")
	}
	if addr0 == addr1 {
		t.Error("different nonces should produce different addresses")
	}

	data, err := rlp.EncodeToBytes([]interface{}{deployer, uint64(1)})
	if err != nil {
		t.Fatal(err)
	}
	if want := common.BytesToAddress(crypto.Keccak256(data)[12:]); addr1 != want {
		t.Errorf("expected %v, got %v", want, addr1)
	}
}

func TestPredictAddresses(t *testing.T) {
	owner := common.HexToAddress("0x0000000000000000000000000000000000000001")
	addrs := PredictAddresses(owner)

	if addrs.Core == addrs.Token || addrs.Token == addrs.Treasury || addrs.Core == addrs.Treasury {
		t.Fatalf("component addresses collide: %+v", addrs)
	}
	if addrs.Token != CalculateContractAddress(owner, TokenNonce) {
		t.Error("token address does not follow its deployment nonce")
	}
}

func TestFill(t *testing.T) {
	owner := common.HexToAddress("0x0000000000000000000000000000000000000001")
	custom := common.HexToAddress("0x00000000000000000000000000000000000000c1")

	addrs := Addresses{Token: custom}
	addrs.Fill(owner)

	predicted := PredictAddresses(owner)
	if addrs.Token != custom {
		t.Errorf("configured token address replaced with %v", addrs.Token)
	}
	if addrs.Core != predicted.Core || addrs.Treasury != predicted.Treasury {
		t.Errorf("missing addresses not filled: %+v", addrs)
	}
}
