// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/forkstate/log"
	"github.com/vechain/forkstate/metrics"
	"github.com/vechain/forkstate/remote"
	"github.com/vechain/forkstate/state"
)

func dumpAction(ctx *cli.Context) error {
	initLogger(ctx)

	cfg, err := loadConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}
	if err := cfg.applyFlags(ctx); err != nil {
		return err
	}
	if cfg.RPC == "" {
		return errors.New("missing remote endpoint, set --rpc")
	}
	accounts, slots, err := cfg.targets()
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		metrics.InitializePrometheusMetrics()
		url, closeFunc, err := startMetricsServer(cfg.MetricsAddr)
		if err != nil {
			return err
		}
		defer closeFunc()
		log.Info("metrics server started", "url", url)
	}

	exitCtx, stop := handleExitSignal()
	defer stop()

	tr, err := remote.Dial(exitCtx, cfg.RPC)
	if err != nil {
		return err
	}
	defer tr.Close()

	if chainID, err := tr.ChainID(exitCtx); err == nil {
		log.Info("connected to remote", "chain", chainID)
	} else {
		log.Warn("failed to query chain id", "err", err)
	}

	start := time.Now()
	dump, tag, err := snapshot(exitCtx, tr, cfg.Block, cfg.Remote, accounts, slots)
	if err != nil {
		return err
	}
	log.Info("state fetched", "block", tag, "accounts", len(dump), "elapsed", time.Since(start))

	out, err := createOutput(cfg.Out)
	if err != nil {
		return err
	}
	if err := writeSnapshot(out, dump, cfg.Snappy); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// snapshot forks tr at block, warms the given accounts and slots and dumps
// them. It returns the pinned block.
func snapshot(
	ctx context.Context,
	tr remote.Transport,
	block remote.BlockTag,
	opts remote.Options,
	accounts []common.Address,
	slots map[common.Address][]common.Hash,
) (state.Dump, remote.BlockTag, error) {
	st, err := state.New(ctx, state.Config{
		Mode:   state.ModeFork,
		Fork:   &state.ForkDescriptor{Transport: tr, Block: block},
		Remote: opts,
	})
	if err != nil {
		return nil, remote.BlockTag{}, err
	}
	if err := st.Warm(ctx, accounts); err != nil {
		return nil, remote.BlockTag{}, err
	}
	for addr, keys := range slots {
		if err := st.WarmStorage(ctx, addr, keys); err != nil {
			return nil, remote.BlockTag{}, err
		}
	}
	// bytecode is only dumped once known
	for _, addr := range accounts {
		if _, err := st.GetCode(ctx, addr); err != nil {
			return nil, remote.BlockTag{}, err
		}
	}

	dump, err := st.DumpState()
	if err != nil {
		return nil, remote.BlockTag{}, err
	}
	return dump, st.BlockTag(), nil
}
