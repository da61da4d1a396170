// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/forkstate/log"
	"github.com/vechain/forkstate/state"
)

func inspectAction(ctx *cli.Context) error {
	initLogger(ctx)

	in, err := openInput(ctx.String(inFlag.Name))
	if err != nil {
		return err
	}
	defer in.Close()

	dump, err := readSnapshot(in, ctx.Bool(snappyFlag.Name))
	if err != nil {
		return err
	}
	log.Debug("snapshot decoded", "entries", len(dump))
	return inspect(context.Background(), os.Stdout, dump)
}

// inspect loads dump into a fresh state and prints one line per account.
func inspect(ctx context.Context, w io.Writer, dump state.Dump) error {
	st, err := state.New(ctx, state.Config{})
	if err != nil {
		return err
	}
	if err := st.LoadState(dump); err != nil {
		return err
	}

	addrs := st.AccountAddresses()
	for _, addr := range addrs {
		a, err := st.GetAccount(ctx, addr)
		if err != nil {
			return err
		}
		size, err := st.GetCodeSize(ctx, addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s nonce=%d balance=%s code=%d slots=%d\n",
			addr.Hex(), a.Nonce, a.Balance.Dec(), size, len(st.DumpStorage(addr)))
	}
	fmt.Fprintf(w, "%d accounts\n", len(addrs))
	return nil
}
