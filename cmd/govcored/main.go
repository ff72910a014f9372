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

// govcored inspects a DAO ledger and finalizes proposals whose voting
// deadline has passed.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"github.com/zerowaste-dao/govcore/dao"
	"github.com/zerowaste-dao/govcore/internal/config"
	"github.com/zerowaste-dao/govcore/internal/logging"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "TOML or YAML configuration file",
		EnvVars: []string{"DAO_CONFIG"},
	}
	envFileFlag = &cli.StringSliceFlag{
		Name:  "env-file",
		Usage: "environment files loaded before the DAO_ variables are read",
		Value: cli.NewStringSlice(".env"),
	}
	heightFlag = &cli.Uint64Flag{
		Name:  "height",
		Usage: "block height to operate at",
	}
	callerFlag = &cli.StringFlag{
		Name:  "caller",
		Usage: "identity finalizing proposals (default: the execution engine peer)",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "govcored",
		Usage: "inspect and maintain a DAO governance ledger",
		Flags: []cli.Flag{configFlag, envFileFlag, heightFlag},
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "print the ledger summary",
				Action: status,
			},
			{
				Name:   "finalize",
				Usage:  "finalize every proposal whose deadline has passed",
				Flags:  []cli.Flag{callerFlag},
				Action: finalize,
			},
		},
		DefaultCommand: "status",
	}
}

// openDAO loads the configuration, installs the logger and opens the ledger.
func openDAO(ctx *cli.Context) (*dao.DAO, *config.Config, func(), error) {
	cfg, err := config.Load(ctx.String(configFlag.Name), ctx.StringSlice(envFileFlag.Name)...)
	if err != nil {
		return nil, nil, nil, err
	}
	logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}
	d, err := dao.Open(cfg, dao.NewChain(ctx.Uint64(heightFlag.Name)))
	if err != nil {
		logCloser.Close()
		return nil, nil, nil, err
	}
	closeAll := func() {
		if err := d.Close(); err != nil {
			log.Error("Failed to close ledger", "err", err)
		}
		logCloser.Close()
	}
	return d, cfg, closeAll, nil
}

func status(ctx *cli.Context) error {
	d, cfg, closeAll, err := openDAO(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	printStatus(ctx.App.Writer, d, cfg)
	return nil
}

func printStatus(w io.Writer, d *dao.DAO, cfg *config.Config) {
	fmt.Fprintf(w, "height:           %d\n", d.Chain().CurrentBlock())
	fmt.Fprintf(w, "core:             %s\n", cfg.CoreAddress.Hex())
	fmt.Fprintf(w, "token:            %s (%s)\n", cfg.TokenAddress.Hex(), cfg.Token.Symbol)
	fmt.Fprintf(w, "treasury:         %s\n", cfg.TreasuryAddress.Hex())
	fmt.Fprintf(w, "total supply:     %d\n", d.TotalSupply())
	fmt.Fprintf(w, "treasury balance: %d\n", d.TreasuryBalance())
	fmt.Fprintf(w, "total released:   %d\n", d.TotalReleased())
	fmt.Fprintf(w, "quorum:           %d%%\n", d.QuorumThreshold())
	fmt.Fprintf(w, "voting period:    %d blocks\n", d.VotingPeriod())
	fmt.Fprintf(w, "proposals:        %d\n", d.ProposalCount())
	fmt.Fprintf(w, "finalizable:      %v\n", d.Finalizable())
}

func finalize(ctx *cli.Context) error {
	d, cfg, closeAll, err := openDAO(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	caller := cfg.Peers.ExecutionEngine
	if s := ctx.String(callerFlag.Name); s != "" {
		if !common.IsHexAddress(s) {
			return fmt.Errorf("invalid caller address %q", s)
		}
		caller = common.HexToAddress(s)
	}
	if caller == (common.Address{}) {
		return errors.New("no caller given and no execution engine configured")
	}

	results, err := d.FinalizeDue(caller)
	for _, r := range results {
		fmt.Fprintf(ctx.App.Writer, "proposal %d: %s (quorum %t, for %d, against %d, released %d, reward %d)\n",
			r.ProposalID, r.Status, r.QuorumReached, r.VotesFor, r.VotesAgainst, r.Released, r.Reward)
	}
	return err
}
