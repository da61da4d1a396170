// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/vechain/forkstate/acc"
	"github.com/vechain/forkstate/co"
	"github.com/vechain/forkstate/log"
	"github.com/vechain/forkstate/remote"
	"github.com/vechain/forkstate/stackedmap"
)

// warmConcurrency bounds the concurrent lookups of Warm.
const warmConcurrency = 16

var logger = log.WithContext("pkg", "state")

// State is the account state seen by one executor. It's not safe for
// concurrent use, independent copies are.
type State struct {
	mode              Mode
	expectedBlockTime time.Duration
	onCommit          func(*State)

	backend *remote.Backend
	origin  *remote.Origin // pinned in fork mode, latest in proxy mode
	proxy   proxyScope

	local      *layer                 // committed local writes
	sm         *stackedmap.StackedMap // writes since the first open checkpoint
	generation uint64
}

// New creates a state. In fork mode the fork block is resolved to a number
// once, here.
func New(ctx context.Context, cfg Config) (*State, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &State{
		mode:              cfg.Mode,
		expectedBlockTime: cfg.ExpectedBlockTime,
		onCommit:          cfg.OnCommit,
		local:             newLayer(nil),
		sm:                stackedmap.New(),
	}
	if s.expectedBlockTime == 0 {
		s.expectedBlockTime = DefaultExpectedBlockTime
	}

	opts := cfg.Remote
	if opts == (remote.Options{}) {
		opts = remote.DefaultOptions()
	}
	switch cfg.Mode {
	case ModeFork:
		s.backend = remote.NewBackend(cfg.Fork.Transport, opts)
		num, err := s.backend.ResolveBlock(ctx, cfg.Fork.Block)
		if err != nil {
			return nil, &Error{err}
		}
		s.origin = remote.NewOrigin(s.backend, remote.NumberTag(num))
		logger.Info("forked remote state", "block", cfg.Fork.Block, "number", num)
	case ModeProxy:
		s.backend = remote.NewBackend(cfg.Fork.Transport, opts)
		s.origin = remote.NewOrigin(s.backend, remote.Latest)
	}
	return s, nil
}

// Mode returns the mode of the state.
func (s *State) Mode() Mode {
	return s.mode
}

// BlockTag returns the block remote reads are made against. It's latest
// in normal mode, which makes no remote reads.
func (s *State) BlockTag() remote.BlockTag {
	if o := s.source(); o != nil {
		return o.Tag()
	}
	return remote.Latest
}

// Generation counts the copies this state descends from.
func (s *State) Generation() uint64 {
	return s.generation
}

// source returns the origin remote reads go to, nil in normal mode.
func (s *State) source() *remote.Origin {
	if s.proxy.locked && s.proxy.scope != nil {
		return s.proxy.scope
	}
	return s.origin
}

// getAccount gets account by address. the returned account should not be modified.
func (s *State) getAccount(ctx context.Context, addr common.Address) (*acc.Account, error) {
	if v, ok := s.sm.Get(addr); ok {
		countRead("account", "journal")
		return v.(*acc.Account), nil
	}
	if a, status := s.local.account(addr); status.Defined() {
		countRead("account", "local")
		return a, nil
	}
	if o := s.source(); o != nil {
		a, err := o.Account(ctx, addr)
		if err != nil {
			return nil, &Error{err}
		}
		countRead("account", "remote")
		return a, nil
	}
	countRead("account", "none")
	return nil, nil
}

// getAccountCopy gets a copy of account by address, an empty account if it
// does not exist.
func (s *State) getAccountCopy(ctx context.Context, addr common.Address) (*acc.Account, error) {
	a, err := s.getAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return acc.New(), nil
	}
	return a.Copy(), nil
}

func (s *State) updateAccount(addr common.Address, a *acc.Account) {
	if s.sm.Depth() > 0 {
		s.sm.Put(addr, a)
		return
	}
	s.local.setAccount(addr, a)
}

func (s *State) getStorageBarrier(addr common.Address) int {
	if b, ok := s.sm.Get(storageBarrierKey(addr)); ok {
		return b.(int)
	}
	return 0
}

func (s *State) setStorageBarrier(addr common.Address, barrier int) {
	s.sm.Put(storageBarrierKey(addr), barrier)
}

func (s *State) clearStorage(addr common.Address) {
	if s.sm.Depth() > 0 {
		// increase the barrier value
		s.setStorageBarrier(addr, s.getStorageBarrier(addr)+1)
		return
	}
	s.local.clearStorage(addr)
}

func (s *State) putStorage(addr common.Address, slot, value common.Hash) {
	if s.sm.Depth() > 0 {
		s.sm.Put(storageKey{addr, s.getStorageBarrier(addr), slot}, value)
		return
	}
	s.local.setSlot(addr, slot, value)
}

func (s *State) putCode(hash common.Hash, code []byte) {
	if s.sm.Depth() > 0 {
		s.sm.Put(codeKey(hash), code)
		return
	}
	s.local.codes[hash] = code
}

// committedStorage reads the slot below the open checkpoints.
func (s *State) committedStorage(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	if v, ok := s.local.slot(addr, slot); ok {
		countRead("storage", "local")
		return v, nil
	}
	if o := s.source(); o != nil {
		v, err := o.Storage(ctx, addr, slot)
		if err != nil {
			return common.Hash{}, &Error{err}
		}
		countRead("storage", "remote")
		return v, nil
	}
	countRead("storage", "none")
	return common.Hash{}, nil
}

func (s *State) code(ctx context.Context, addr common.Address, hash common.Hash) ([]byte, error) {
	if hash == acc.EmptyCodeHash || hash == (common.Hash{}) {
		return nil, nil
	}
	if v, ok := s.sm.Get(codeKey(hash)); ok {
		countRead("code", "journal")
		return v.([]byte), nil
	}
	if code, ok := s.local.code(hash); ok {
		countRead("code", "local")
		return code, nil
	}
	if o := s.source(); o != nil {
		code, err := o.Code(ctx, addr, hash)
		if err != nil {
			return nil, &Error{err}
		}
		countRead("code", "remote")
		return code, nil
	}
	countRead("code", "none")
	return nil, nil
}

// GetAccount returns the account at addr, nil if it does not exist.
// The caller owns the returned account.
func (s *State) GetAccount(ctx context.Context, addr common.Address) (*acc.Account, error) {
	a, err := s.getAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	return a.Copy(), nil
}

// PutAccount sets the account at addr. A nil account deletes it, leaving
// the storage untouched.
func (s *State) PutAccount(addr common.Address, a *acc.Account) error {
	if a == nil {
		s.updateAccount(addr, nil)
		return nil
	}
	cpy := a.Copy()
	cpy.Normalize()
	if err := cpy.Validate(); err != nil {
		return &ValidationError{Field: "account", Err: err}
	}
	s.updateAccount(addr, cpy)
	return nil
}

// AccountExists returns whether an account exists at addr.
func (s *State) AccountExists(ctx context.Context, addr common.Address) (bool, error) {
	a, err := s.getAccount(ctx, addr)
	if err != nil {
		return false, err
	}
	return a != nil, nil
}

// DeleteAccount deletes the account at addr. The storage is untouched, see
// SelfDestruct.
func (s *State) DeleteAccount(addr common.Address) {
	s.updateAccount(addr, nil)
}

// AccountFields are the fields ModifyAccountFields overrides, nil fields
// are kept.
type AccountFields struct {
	Nonce       *uint64
	Balance     *uint256.Int
	CodeHash    *common.Hash
	StorageRoot *common.Hash
}

// ModifyAccountFields overrides the given fields of the account at addr,
// creating an empty account if it does not exist.
func (s *State) ModifyAccountFields(ctx context.Context, addr common.Address, fields AccountFields) error {
	cpy, err := s.getAccountCopy(ctx, addr)
	if err != nil {
		return err
	}
	if fields.Nonce != nil {
		cpy.Nonce = *fields.Nonce
	}
	if fields.Balance != nil {
		cpy.Balance = fields.Balance.Clone()
	}
	if fields.CodeHash != nil && *fields.CodeHash != cpy.CodeHash {
		cpy.CodeHash = *fields.CodeHash
		cpy.CodeSize = 0
		if cpy.HasCode() {
			// keep the size exact when the code is already known
			if code, ok := s.knownCode(cpy.CodeHash); ok {
				cpy.CodeSize = uint64(len(code))
			}
		}
	}
	if fields.StorageRoot != nil {
		cpy.StorageRoot = *fields.StorageRoot
	}
	return s.PutAccount(addr, cpy)
}

// knownCode looks up code without remote reads.
func (s *State) knownCode(hash common.Hash) ([]byte, bool) {
	if v, ok := s.sm.Get(codeKey(hash)); ok {
		return v.([]byte), true
	}
	if code, ok := s.local.code(hash); ok {
		return code, true
	}
	if o := s.source(); o != nil {
		return o.CachedCode(hash)
	}
	return nil, false
}

// GetStorage returns the storage value for the given address and slot.
func (s *State) GetStorage(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	barrier := s.getStorageBarrier(addr)
	if v, ok := s.sm.Get(storageKey{addr, barrier, slot}); ok {
		countRead("storage", "journal")
		return v.(common.Hash), nil
	}
	// the storage was cleared since the first open checkpoint
	if barrier > 0 {
		countRead("storage", "journal")
		return common.Hash{}, nil
	}
	return s.committedStorage(ctx, addr, slot)
}

// GetCommittedStorage returns the storage value as of the oldest open
// checkpoint, ignoring the writes made since.
func (s *State) GetCommittedStorage(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	return s.committedStorage(ctx, addr, slot)
}

// PutStorage sets the storage value for the given address and slot.
// A zero value is recorded and shadows any remote value.
func (s *State) PutStorage(addr common.Address, slot, value common.Hash) {
	s.putStorage(addr, slot, value)
}

// PutStorageBytes sets a storage value given in its minimal big-endian form.
// It fails if the value is longer than 32 bytes.
func (s *State) PutStorageBytes(addr common.Address, slot common.Hash, value []byte) error {
	if len(value) > common.HashLength {
		return invalid("storage value", "%d bytes, want at most %d", len(value), common.HashLength)
	}
	s.putStorage(addr, slot, common.BytesToHash(value))
	return nil
}

// ClearStorage drops all storage of addr, including remote storage.
func (s *State) ClearStorage(addr common.Address) {
	s.clearStorage(addr)
}

// SelfDestruct deletes the account at addr with all its storage.
func (s *State) SelfDestruct(addr common.Address) {
	s.updateAccount(addr, nil)
	s.clearStorage(addr)
}

// GetCode returns a copy of the code of addr, nil if there's none.
func (s *State) GetCode(ctx context.Context, addr common.Address) ([]byte, error) {
	a, err := s.getAccount(ctx, addr)
	if err != nil || a == nil {
		return nil, err
	}
	code, err := s.code(ctx, addr, a.CodeHash)
	if err != nil {
		return nil, err
	}
	return common.CopyBytes(code), nil
}

// GetCodeHash returns the code hash of addr, zero if the account does not exist.
func (s *State) GetCodeHash(ctx context.Context, addr common.Address) (common.Hash, error) {
	a, err := s.getAccount(ctx, addr)
	if err != nil || a == nil {
		return common.Hash{}, err
	}
	return a.CodeHash, nil
}

// GetCodeSize returns the code length of addr.
func (s *State) GetCodeSize(ctx context.Context, addr common.Address) (int, error) {
	a, err := s.getAccount(ctx, addr)
	if err != nil || a == nil || !a.HasCode() {
		return 0, err
	}
	code, err := s.code(ctx, addr, a.CodeHash)
	if err != nil {
		return 0, err
	}
	return len(code), nil
}

// PutCode sets the code of addr, creating the account if it does not exist.
func (s *State) PutCode(ctx context.Context, addr common.Address, code []byte) error {
	cpy, err := s.getAccountCopy(ctx, addr)
	if err != nil {
		return err
	}
	hash := cpy.SetCode(code)
	if len(code) > 0 {
		s.putCode(hash, common.CopyBytes(code))
	}
	s.updateAccount(addr, cpy)
	return nil
}

// Warm fetches the accounts and their code ahead of use, concurrently.
// It does nothing in normal mode.
func (s *State) Warm(ctx context.Context, addrs []common.Address) error {
	o := s.source()
	if o == nil || len(addrs) == 0 {
		return nil
	}
	if err := co.ForEach(ctx, len(addrs), warmConcurrency, func(ctx context.Context, i int) error {
		_, err := o.Account(ctx, addrs[i])
		return err
	}); err != nil {
		return &Error{err}
	}
	return nil
}

// WarmStorage fetches storage slots of addr ahead of use, concurrently.
// It does nothing in normal mode.
func (s *State) WarmStorage(ctx context.Context, addr common.Address, slots []common.Hash) error {
	o := s.source()
	if o == nil || len(slots) == 0 {
		return nil
	}
	if err := co.ForEach(ctx, len(slots), warmConcurrency, func(ctx context.Context, i int) error {
		_, err := o.Storage(ctx, addr, slots[i])
		return err
	}); err != nil {
		return &Error{err}
	}
	return nil
}

// Depth returns the count of open checkpoints.
func (s *State) Depth() int {
	return s.sm.Depth()
}

// Checkpoint opens a checkpoint. Writes from now on can be reverted.
func (s *State) Checkpoint() {
	s.sm.Push()
	countOp("checkpoint")
}

// Commit closes the newest checkpoint keeping its writes. Closing the last
// one makes the writes permanent.
func (s *State) Commit() error {
	if s.sm.Depth() == 0 {
		return &JournalError{Op: "commit"}
	}
	s.apply(s.sm.Commit())
	countOp("commit")
	if s.onCommit != nil {
		s.onCommit(s)
	}
	return nil
}

// Revert closes the newest checkpoint discarding its writes.
func (s *State) Revert() error {
	if s.sm.Depth() == 0 {
		return &JournalError{Op: "revert"}
	}
	s.sm.Revert()
	countOp("revert")
	return nil
}

// EnsureClean returns a JournalError if any checkpoint is open.
func (s *State) EnsureClean() error {
	return s.requireClean("ensure clean")
}

func (s *State) requireClean(op string) error {
	if d := s.sm.Depth(); d != 0 {
		return &JournalError{Op: op, Depth: d}
	}
	return nil
}

// apply plays the journal of the last closed checkpoint back into the
// local layer, in order.
func (s *State) apply(journal []*stackedmap.JournalEntry) {
	for _, entry := range journal {
		switch key := entry.Key.(type) {
		case common.Address:
			s.local.setAccount(key, entry.Value.(*acc.Account))
		case storageKey:
			s.local.setSlot(key.addr, key.slot, entry.Value.(common.Hash))
		case codeKey:
			s.local.codes[common.Hash(key)] = entry.Value.([]byte)
		case storageBarrierKey:
			// discard all storage updates below when meet the barrier.
			s.local.clearStorage(common.Address(key))
		default:
			panic(fmt.Errorf("unexpected key type %+v", key))
		}
	}
}
