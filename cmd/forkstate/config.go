// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/vechain/forkstate/remote"
	"github.com/vechain/forkstate/state"
)

// config of the dump command. Values set on the command line override the file.
type config struct {
	RPC         string          `yaml:"rpc"`
	Block       remote.BlockTag `yaml:"block"`
	Accounts    []string        `yaml:"accounts"`
	Slots       []string        `yaml:"slots"`
	Out         string          `yaml:"out"`
	Snappy      bool            `yaml:"snappy"`
	MetricsAddr string          `yaml:"metrics-addr"`
	Remote      remote.Options  `yaml:"remote"`
}

func defaultConfig() *config {
	return &config{
		Block:  remote.Latest,
		Remote: remote.DefaultOptions(),
	}
}

// loadConfig reads the YAML file at path. An empty path yields the defaults.
func loadConfig(path string) (*config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

func (c *config) applyFlags(ctx *cli.Context) error {
	if ctx.IsSet(rpcFlag.Name) || c.RPC == "" {
		c.RPC = ctx.String(rpcFlag.Name)
	}
	if ctx.IsSet(blockFlag.Name) {
		tag, err := remote.ParseBlockTag(ctx.String(blockFlag.Name))
		if err != nil {
			return errors.Wrap(err, "block")
		}
		c.Block = tag
	}
	c.Accounts = append(c.Accounts, ctx.StringSlice(accountFlag.Name)...)
	c.Slots = append(c.Slots, ctx.StringSlice(slotFlag.Name)...)
	if ctx.IsSet(outFlag.Name) {
		c.Out = ctx.String(outFlag.Name)
	}
	if ctx.IsSet(snappyFlag.Name) {
		c.Snappy = ctx.Bool(snappyFlag.Name)
	}
	if ctx.IsSet(metricsAddrFlag.Name) {
		c.MetricsAddr = ctx.String(metricsAddrFlag.Name)
	}
	if ctx.IsSet(requestsPerSecondFlag.Name) {
		c.Remote.RequestsPerSecond = ctx.Float64(requestsPerSecondFlag.Name)
	}
	if ctx.IsSet(maxRetriesFlag.Name) {
		c.Remote.MaxRetries = ctx.Int(maxRetriesFlag.Name)
		c.Remote.DisableRetries = c.Remote.MaxRetries <= 0
	}
	return nil
}

// targets parses the accounts and slots to snapshot. Accounts owning a
// requested slot are included as well.
func (c *config) targets() ([]common.Address, map[common.Address][]common.Hash, error) {
	var (
		accounts []common.Address
		seen     = make(map[common.Address]bool)
		slots    = make(map[common.Address][]common.Hash)
	)
	add := func(addr common.Address) {
		if !seen[addr] {
			seen[addr] = true
			accounts = append(accounts, addr)
		}
	}

	for _, s := range c.Accounts {
		addr, err := state.ParseAddress(s)
		if err != nil {
			return nil, nil, err
		}
		add(addr)
	}
	for _, s := range c.Slots {
		addr, slot, err := parseSlotRef(s)
		if err != nil {
			return nil, nil, err
		}
		add(addr)
		slots[addr] = append(slots[addr], slot)
	}
	return accounts, slots, nil
}

// parseSlotRef parses "<address>:<slot>".
func parseSlotRef(s string) (common.Address, common.Hash, error) {
	a, k, ok := strings.Cut(s, ":")
	if !ok {
		return common.Address{}, common.Hash{}, errors.Errorf("slot %q: expected <address>:<slot>", s)
	}
	addr, err := state.ParseAddress(a)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	slot, err := state.ParseSlot(k)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	return addr, slot, nil
}
