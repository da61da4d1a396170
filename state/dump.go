// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/vechain/forkstate/acc"
)

// DumpAccount is the serialized form of an account with its storage.
type DumpAccount struct {
	Nonce            hexutil.Uint64    `json:"nonce"`
	Balance          string            `json:"balance"`
	StorageRoot      common.Hash       `json:"storageRoot"`
	CodeHash         common.Hash       `json:"codeHash"`
	Storage          map[string]string `json:"storage,omitempty"`
	DeployedBytecode hexutil.Bytes     `json:"deployedBytecode,omitempty"`
}

// Dump is the serialized state, keyed by hex address.
type Dump map[string]*DumpAccount

// DumpState serializes every account known to the state: written locally or
// fetched from the remote so far. Nothing is fetched. Explicitly written
// zero storage values are included so that a loaded dump keeps shadowing the
// remote.
// It fails if a checkpoint is open.
func (s *State) DumpState() (Dump, error) {
	if err := s.requireClean("dump state"); err != nil {
		return nil, err
	}

	var remoteAccounts map[common.Address]*acc.Account
	if o := s.source(); o != nil {
		remoteAccounts = o.Accounts()
	}
	addrs := s.local.addresses()
	for addr := range remoteAccounts {
		addrs[addr] = struct{}{}
	}

	dump := make(Dump, len(addrs))
	for addr := range addrs {
		a := s.knownAccount(addr, remoteAccounts)
		if a == nil {
			continue
		}
		entry := &DumpAccount{
			Nonce:       hexutil.Uint64(a.Nonce),
			Balance:     a.Balance.Hex(),
			StorageRoot: a.StorageRoot,
			CodeHash:    a.CodeHash,
		}
		if a.HasCode() {
			if code, ok := s.knownCode(a.CodeHash); ok {
				entry.DeployedBytecode = common.CopyBytes(code)
			}
		}
		if storage := s.storageOf(addr); len(storage) > 0 {
			entry.Storage = make(map[string]string, len(storage))
			for k, v := range storage {
				entry.Storage[k.Hex()] = v.Hex()
			}
		}
		dump[addr.Hex()] = entry
	}
	return dump, nil
}

// knownAccount resolves an account without remote reads.
func (s *State) knownAccount(addr common.Address, remoteAccounts map[common.Address]*acc.Account) *acc.Account {
	if v, ok := s.sm.Get(addr); ok {
		return v.(*acc.Account)
	}
	if a, status := s.local.account(addr); status.Defined() {
		return a
	}
	return remoteAccounts[addr]
}

// storageOf merges the remote storage fetched so far with the local writes,
// ignoring open checkpoints.
func (s *State) storageOf(addr common.Address) map[common.Hash]common.Hash {
	values, cleared := s.local.storageOf(addr)
	if cleared {
		return values
	}
	if o := s.source(); o != nil {
		for k, v := range o.Slots(addr) {
			if _, ok := values[k]; !ok {
				values[k] = v
			}
		}
	}
	return values
}

// DumpStorage returns the storage of addr known to the state, including the
// writes since open checkpoints. Nothing is fetched.
func (s *State) DumpStorage(addr common.Address) map[common.Hash]common.Hash {
	storage := s.storageOf(addr)
	barrier := 0
	s.sm.Journal(func(k, v any) bool {
		switch key := k.(type) {
		case storageBarrierKey:
			if common.Address(key) == addr {
				storage = make(map[common.Hash]common.Hash)
				barrier = v.(int)
			}
		case storageKey:
			if key.addr == addr && key.barrier == barrier {
				storage[key.slot] = v.(common.Hash)
			}
		}
		return true
	})
	return storage
}

// AccountAddresses returns the sorted addresses of the existing accounts
// known to the state, including the writes since open checkpoints.
func (s *State) AccountAddresses() []common.Address {
	var remoteAccounts map[common.Address]*acc.Account
	if o := s.source(); o != nil {
		remoteAccounts = o.Accounts()
	}
	addrs := s.local.addresses()
	for addr := range remoteAccounts {
		addrs[addr] = struct{}{}
	}
	s.sm.Journal(func(k, _ any) bool {
		if addr, ok := k.(common.Address); ok {
			addrs[addr] = struct{}{}
		}
		return true
	})

	out := make([]common.Address, 0, len(addrs))
	for addr := range addrs {
		if s.knownAccount(addr, remoteAccounts) != nil {
			out = append(out, addr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

type loadedAccount struct {
	addr    common.Address
	account *acc.Account
	code    []byte
	storage map[common.Hash]common.Hash
}

// LoadState writes the accounts of dump over the current state. The whole
// dump is validated first, nothing is written if any entry is malformed.
// It fails if a checkpoint is open.
func (s *State) LoadState(dump Dump) error {
	if err := s.requireClean("load state"); err != nil {
		return err
	}

	loaded := make([]*loadedAccount, 0, len(dump))
	for key, entry := range dump {
		la, err := parseDumpAccount(key, entry)
		if err != nil {
			return err
		}
		loaded = append(loaded, la)
	}
	sort.Slice(loaded, func(i, j int) bool {
		return bytes.Compare(loaded[i].addr[:], loaded[j].addr[:]) < 0
	})

	for _, la := range loaded {
		if len(la.code) > 0 {
			s.putCode(la.account.CodeHash, la.code)
		}
		s.updateAccount(la.addr, la.account)
		for k, v := range la.storage {
			s.putStorage(la.addr, k, v)
		}
	}
	countOp("load state")
	return nil
}

func parseDumpAccount(key string, entry *DumpAccount) (*loadedAccount, error) {
	addr, err := ParseAddress(key)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, invalid("account", "%s: null entry", key)
	}
	balance, err := parseBalance(entry.Balance)
	if err != nil {
		return nil, err
	}
	a := &acc.Account{
		Nonce:       uint64(entry.Nonce),
		Balance:     balance,
		StorageRoot: entry.StorageRoot,
		CodeHash:    entry.CodeHash,
	}
	a.Normalize()

	la := &loadedAccount{addr: addr, account: a, storage: make(map[common.Hash]common.Hash, len(entry.Storage))}
	if len(entry.DeployedBytecode) > 0 {
		// a missing code hash is derived from the bytecode
		got := crypto.Keccak256Hash(entry.DeployedBytecode)
		if entry.CodeHash != (common.Hash{}) && got != entry.CodeHash {
			return nil, invalid("code hash", "%s: bytecode hashes to %v, want %v", key, got, entry.CodeHash)
		}
		la.code = common.CopyBytes(entry.DeployedBytecode)
		a.SetCode(la.code)
	}
	for k, v := range entry.Storage {
		slot, err := ParseSlot(k)
		if err != nil {
			return nil, err
		}
		value, err := parseWord("storage value", v)
		if err != nil {
			return nil, err
		}
		la.storage[slot] = value
	}
	return la, nil
}

// ParseAddress parses a hex address, with or without 0x prefix.
func ParseAddress(s string) (common.Address, error) {
	b, err := decodeHex(s)
	if err != nil {
		return common.Address{}, &ValidationError{Field: "address", Err: err}
	}
	if len(b) != common.AddressLength {
		return common.Address{}, invalid("address", "%q: %d bytes, want %d", s, len(b), common.AddressLength)
	}
	return common.BytesToAddress(b), nil
}

// ParseSlot parses a hex storage slot of at most 32 bytes, with or without
// 0x prefix. Shorter slots are left padded.
func ParseSlot(s string) (common.Hash, error) {
	return parseWord("storage slot", s)
}

func parseWord(field, s string) (common.Hash, error) {
	b, err := decodeHex(s)
	if err != nil {
		return common.Hash{}, &ValidationError{Field: field, Err: err}
	}
	if len(b) > common.HashLength {
		return common.Hash{}, invalid(field, "%q: %d bytes, want at most %d", s, len(b), common.HashLength)
	}
	return common.BytesToHash(b), nil
}

// parseBalance accepts hex balances with leading zeros, which uint256 rejects.
func parseBalance(s string) (*uint256.Int, error) {
	digits := strings.TrimLeft(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"), "0")
	if digits == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromHex("0x" + digits)
	if err != nil {
		return nil, &ValidationError{Field: "balance", Err: err}
	}
	return v, nil
}

// decodeHex decodes hex with optional 0x prefix and odd length.
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hexutil.Decode("0x" + s)
}
