// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/forkstate/log"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a YAML config file, flags take precedence",
	}
	rpcFlag = cli.StringFlag{
		Name:   "rpc",
		Usage:  "JSON-RPC endpoint of the remote chain (http, ws or ipc)",
		EnvVar: "FORKSTATE_RPC",
	}
	blockFlag = cli.StringFlag{
		Name:  "block",
		Value: "latest",
		Usage: "block to fork at: number, hash or latest|safe|finalized|earliest",
	}
	accountFlag = cli.StringSliceFlag{
		Name:  "account",
		Usage: "account to include, may be repeated",
	}
	slotFlag = cli.StringSliceFlag{
		Name:  "slot",
		Usage: "storage slot to include as <address>:<slot>, may be repeated",
	}
	outFlag = cli.StringFlag{
		Name:  "out",
		Usage: "snapshot file to write, stdout if empty",
	}
	inFlag = cli.StringFlag{
		Name:  "in",
		Usage: "snapshot file to read, stdin if empty",
	}
	snappyFlag = cli.BoolFlag{
		Name:  "snappy",
		Usage: "snapshot is snappy compressed",
	}
	requestsPerSecondFlag = cli.Float64Flag{
		Name:  "rps",
		Usage: "limit remote requests per second, 0 for no limit",
	}
	maxRetriesFlag = cli.IntFlag{
		Name:  "max-retries",
		Value: 3,
		Usage: "retries of a failed remote request, 0 to disable",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "serve prometheus metrics at this address while running",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: log.LegacyLevelInfo,
		Usage: "log verbosity (0-9)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
)
