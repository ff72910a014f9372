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
	"errors"
	"math"
)

// RewardConfig configures the proposer reward minted when a proposal is
// executed.
type RewardConfig struct {
	// Reward for a proposal executed before the first decay period
	BaseReward uint64

	// Decay period in blocks, zero disables decay
	DecayPeriod uint64

	// Decay rate per period (percent)
	DecayRate uint64

	// Reward floor
	MinReward uint64
}

// DefaultRewardConfig returns the default reward configuration
func DefaultRewardConfig() *RewardConfig {
	return &RewardConfig{
		BaseReward:  100_000_000, // 100 ZWD
		DecayPeriod: 52_560,      // ~1 year of 10 minute blocks
		DecayRate:   10,          // 10%
		MinReward:   10_000_000,  // 10 ZWD
	}
}

// Validate checks the reward parameters.
func (c *RewardConfig) Validate() error {
	if c.DecayRate > 100 {
		return errors.New("reward decay rate above 100%")
	}
	if c.BaseReward > math.MaxUint64/100 {
		return errors.New("base reward too large")
	}
	if c.MinReward > c.BaseReward {
		return errors.New("minimum reward above base reward")
	}
	return nil
}

// RewardCalculator computes proposer rewards.
type RewardCalculator struct {
	config *RewardConfig
}

// NewRewardCalculator creates a new reward calculator.
func NewRewardCalculator(config *RewardConfig) *RewardCalculator {
	return &RewardCalculator{config: config}
}

// ProposerReward calculates the reward for a proposal executed at
// blockNumber.
//
// Reward decay formula:
// reward = baseReward × (1 - decayRate/100)^(blockNumber / decayPeriod)
// floored at MinReward.
func (r *RewardCalculator) ProposerReward(blockNumber uint64) uint64 {
	if r == nil || r.config == nil {
		return 0
	}
	reward := r.config.BaseReward
	if r.config.DecayPeriod == 0 || r.config.DecayRate == 0 {
		return reward
	}

	periods := blockNumber / r.config.DecayPeriod
	for i := uint64(0); i < periods && reward > r.config.MinReward; i++ {
		reward = reward * (100 - r.config.DecayRate) / 100
	}
	if reward < r.config.MinReward {
		reward = r.config.MinReward
	}
	return reward
}
