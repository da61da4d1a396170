// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// forkstate snapshots the state of a remote chain and inspects snapshots.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/forkstate/log"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "forkstate",
		Usage:     "Snapshot tool for fork-aware EVM state",
		Copyright: "2025 VeChain Foundation <https://vechain.org/>",
		Commands: []cli.Command{
			{
				Name:  "dump",
				Usage: "fork a remote chain at a block and write the state of the given accounts",
				Flags: []cli.Flag{
					configFlag,
					rpcFlag,
					blockFlag,
					accountFlag,
					slotFlag,
					outFlag,
					snappyFlag,
					requestsPerSecondFlag,
					maxRetriesFlag,
					metricsAddrFlag,
					verbosityFlag,
					jsonLogsFlag,
				},
				Action: dumpAction,
			},
			{
				Name:  "inspect",
				Usage: "load a snapshot and print its accounts",
				Flags: []cli.Flag{
					inFlag,
					snappyFlag,
					verbosityFlag,
					jsonLogsFlag,
				},
				Action: inspectAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger(ctx *cli.Context) {
	log.Init(os.Stderr, ctx.Int(verbosityFlag.Name), ctx.Bool(jsonLogsFlag.Name))
}

// handleExitSignal returns a context canceled on interrupt.
func handleExitSignal() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
