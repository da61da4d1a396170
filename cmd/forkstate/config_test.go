// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/forkstate/remote"
	"github.com/vechain/forkstate/state"
)

func newDumpContext(t *testing.T, args ...string) *cli.Context {
	set := flag.NewFlagSet("dump", flag.ContinueOnError)
	for _, f := range []cli.Flag{
		configFlag, rpcFlag, blockFlag, accountFlag, slotFlag, outFlag,
		snappyFlag, requestsPerSecondFlag, maxRetriesFlag, metricsAddrFlag,
	} {
		f.Apply(set)
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(nil, set, nil)
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "forkstate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
rpc: http://localhost:8545
block: 1234
accounts:
  - "0x0100000000000000000000000000000000000000"
slots:
  - "0x0100000000000000000000000000000000000000:0x01"
snappy: true
remote:
  max-retries: 5
  retry-interval: 500ms
  requests-per-second: 20
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8545", cfg.RPC)
	assert.Equal(t, remote.NumberTag(1234), cfg.Block)
	assert.True(t, cfg.Snappy)
	assert.Equal(t, 5, cfg.Remote.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Remote.RetryInterval)
	assert.Equal(t, float64(20), cfg.Remote.RequestsPerSecond)
	// unset options keep their defaults
	assert.Equal(t, remote.DefaultOptions().RequestTimeout, cfg.Remote.RequestTimeout)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Equal(t, remote.Latest, cfg.Block)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loadConfig(writeConfig(t, "block: [1, 2]"))
	assert.Error(t, err)

	_, err = loadConfig(writeConfig(t, "block: nope"))
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `
rpc: http://file:8545
out: file.json
accounts: ["0x0100000000000000000000000000000000000000"]
remote:
  max-retries: 5
`))
	require.NoError(t, err)

	ctx := newDumpContext(t,
		"--rpc", "ws://flag:8546",
		"--block", "safe",
		"--account", "0x0200000000000000000000000000000000000000",
		"--rps", "2.5",
	)
	require.NoError(t, cfg.applyFlags(ctx))

	assert.Equal(t, "ws://flag:8546", cfg.RPC)
	assert.Equal(t, "safe", cfg.Block.Name())
	assert.Equal(t, "file.json", cfg.Out)
	assert.Len(t, cfg.Accounts, 2)
	assert.Equal(t, 2.5, cfg.Remote.RequestsPerSecond)
	// not given on the command line, the file wins over the flag default
	assert.Equal(t, 5, cfg.Remote.MaxRetries)

	assert.False(t, cfg.Remote.DisableRetries)

	require.NoError(t, cfg.applyFlags(newDumpContext(t, "--max-retries", "0")))
	assert.True(t, cfg.Remote.DisableRetries)

	assert.Error(t, cfg.applyFlags(newDumpContext(t, "--block", "nope")))
}

func TestTargets(t *testing.T) {
	a1, a2 := common.Address{1}, common.Address{2}
	cfg := &config{
		Accounts: []string{a1.Hex(), a1.Hex()},
		Slots:    []string{a2.Hex() + ":0x01", a2.Hex() + ":2"},
	}

	accounts, slots, err := cfg.targets()
	require.NoError(t, err)
	assert.Equal(t, []common.Address{a1, a2}, accounts)
	assert.Equal(t, map[common.Address][]common.Hash{
		a2: {common.BytesToHash([]byte{1}), common.BytesToHash([]byte{2})},
	}, slots)
}

func TestParseSlotRef(t *testing.T) {
	addr, slot, err := parseSlotRef("0100000000000000000000000000000000000000:0xff")
	require.NoError(t, err)
	assert.Equal(t, common.Address{1}, addr)
	assert.Equal(t, common.BytesToHash([]byte{0xff}), slot)

	for _, bad := range []string{
		"0x0100000000000000000000000000000000000000",
		"0x01:0x01",
		"0x0100000000000000000000000000000000000000:0xzz",
	} {
		_, _, err := parseSlotRef(bad)
		assert.Error(t, err, bad)
	}

	_, _, err = parseSlotRef("0x01:0x01")
	assert.True(t, state.IsValidationError(err))
}
