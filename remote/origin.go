// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package remote

import (
	"bytes"
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/sync/singleflight"

	"github.com/vechain/forkstate/acc"
	"github.com/vechain/forkstate/cache"
	"github.com/vechain/forkstate/metrics"
	"github.com/vechain/forkstate/tristate"
)

const codeCacheSize = 4096

var (
	// codeCache is shared process wide, code is keyed by its hash.
	codeCache = newCodeCache()

	metricOriginLookupCount = metrics.LazyLoadCounterVec("origin_lookup_count", []string{"op", "result"})
)

func newCodeCache() *cache.ARC {
	c, err := cache.NewARC("code", codeCacheSize)
	if err != nil {
		panic(err)
	}
	return c
}

type slotKey struct {
	addr common.Address
	slot common.Hash
}

// Origin is the remote backed base of a state: the lookups of one block tag,
// with concurrent lookups of the same key sharing a single request.
// When the tag is pinned, results are kept forever and the origin may be
// shared by any number of states. Otherwise only code is kept.
type Origin struct {
	backend *Backend
	tag     BlockTag

	accounts *tristate.Cache[common.Address, *acc.Account]
	storage  *tristate.Cache[slotKey, common.Hash]
	code     *tristate.Cache[common.Hash, []byte]

	flights singleflight.Group
}

// NewOrigin creates an origin serving lookups at tag through backend.
func NewOrigin(backend *Backend, tag BlockTag) *Origin {
	return &Origin{
		backend:  backend,
		tag:      tag,
		accounts: tristate.New[common.Address, *acc.Account](),
		storage:  tristate.New[slotKey, common.Hash](),
		code:     tristate.New[common.Hash, []byte](),
	}
}

// Tag returns the block tag lookups are made against.
func (o *Origin) Tag() BlockTag {
	return o.tag
}

// Account returns the account, or nil if it does not exist at the origin block.
// CodeSize of the returned account is exact. The caller owns the returned value.
func (o *Origin) Account(ctx context.Context, addr common.Address) (*acc.Account, error) {
	permanent := CachePolicy(OpAccount, o.tag) == Permanent
	if permanent {
		if a, status := o.accounts.Get(addr); status.Defined() {
			o.count(OpAccount, "hit")
			return a.Copy(), nil
		}
	}

	v, err := o.do(ctx, OpAccount, "account/"+addr.Hex(), func(ctx context.Context) (any, error) {
		if permanent {
			if a, status := o.accounts.Get(addr); status.Defined() {
				return a, nil
			}
		}
		a, err := o.backend.Account(ctx, addr, o.tag)
		if err != nil {
			return nil, err
		}
		if a != nil && a.HasCode() {
			code, err := o.Code(ctx, addr, a.CodeHash)
			if err != nil {
				return nil, err
			}
			a.CodeSize = uint64(len(code))
		}
		o.count(OpAccount, "fetch")
		if !permanent {
			return a, nil
		}

		recorded, _, loaded := o.accounts.LoadOrStore(addr, a, a != nil)
		if loaded && !recorded.Equal(a) {
			return nil, o.violation(OpAccount, addr.Hex(), describeAccount(recorded), describeAccount(a))
		}
		return recorded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*acc.Account).Copy(), nil
}

// Storage returns the storage value, zero if the slot is not set.
func (o *Origin) Storage(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	key := slotKey{addr, slot}
	permanent := CachePolicy(OpStorage, o.tag) == Permanent
	if permanent {
		if v, status := o.storage.Get(key); status.Defined() {
			o.count(OpStorage, "hit")
			return v, nil
		}
		// accounts known not to exist have no storage
		if _, status := o.accounts.Get(addr); status == tristate.Absent {
			o.count(OpStorage, "hit")
			return common.Hash{}, nil
		}
	}

	v, err := o.do(ctx, OpStorage, "storage/"+addr.Hex()+"/"+slot.Hex(), func(ctx context.Context) (any, error) {
		if permanent {
			if v, status := o.storage.Get(key); status.Defined() {
				return v, nil
			}
		}
		v, err := o.backend.StorageAt(ctx, addr, slot, o.tag)
		if err != nil {
			return nil, err
		}
		o.count(OpStorage, "fetch")
		if !permanent {
			return v, nil
		}

		// zero is recorded as absent
		recorded, _, loaded := o.storage.LoadOrStore(key, v, v != (common.Hash{}))
		if loaded && recorded != v {
			return nil, o.violation(OpStorage, addr.Hex()+"/"+slot.Hex(), recorded.Hex(), v.Hex())
		}
		return recorded, nil
	})
	if err != nil {
		return common.Hash{}, err
	}
	return v.(common.Hash), nil
}

// Code returns the code with the given hash, fetching it from addr if it's
// not cached. The fetched code must hash to codeHash. The returned slice must
// not be modified.
func (o *Origin) Code(ctx context.Context, addr common.Address, codeHash common.Hash) ([]byte, error) {
	if codeHash == acc.EmptyCodeHash || codeHash == (common.Hash{}) {
		return nil, nil
	}
	if code, ok := o.cachedCode(codeHash); ok {
		o.count(OpCode, "hit")
		return code, nil
	}

	v, err := o.do(ctx, OpCode, "code/"+codeHash.Hex(), func(ctx context.Context) (any, error) {
		if code, ok := o.cachedCode(codeHash); ok {
			return code, nil
		}
		code, err := o.backend.CodeAt(ctx, addr, o.tag)
		if err != nil {
			return nil, err
		}
		o.count(OpCode, "fetch")
		if got := crypto.Keccak256Hash(code); got != codeHash {
			if !o.tag.IsPinned() {
				// the account was read at an older head
				return nil, &FetchError{Op: OpCode, Key: addr.Hex(), Tag: o.tag, Attempts: 1, Err: ErrHeadMoved}
			}
			return nil, o.violation(OpCode, addr.Hex(), codeHash.Hex(), got.Hex())
		}
		recorded, _, loaded := o.code.LoadOrStore(codeHash, code, true)
		if loaded && !bytes.Equal(recorded, code) {
			return nil, o.violation(OpCode, codeHash.Hex(), hexutil.Encode(recorded), hexutil.Encode(code))
		}
		codeCache.Add(codeHash, recorded)
		return recorded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (o *Origin) cachedCode(codeHash common.Hash) ([]byte, bool) {
	if code, status := o.code.Get(codeHash); status == tristate.Present {
		return code, true
	}
	if v, ok := codeCache.Get(codeHash); ok {
		code := v.([]byte)
		o.code.Set(codeHash, code)
		return code, true
	}
	return nil, false
}

// Accounts returns the cached accounts, nil values are accounts known not
// to exist. The returned accounts must not be modified.
func (o *Origin) Accounts() map[common.Address]*acc.Account {
	out := make(map[common.Address]*acc.Account, o.accounts.Len())
	o.accounts.Range(func(addr common.Address, a *acc.Account, _ tristate.Status) bool {
		out[addr] = a
		return true
	})
	return out
}

// Slots returns the cached non-zero storage of addr.
func (o *Origin) Slots(addr common.Address) map[common.Hash]common.Hash {
	out := make(map[common.Hash]common.Hash)
	o.storage.Range(func(key slotKey, v common.Hash, status tristate.Status) bool {
		if key.addr == addr && status == tristate.Present {
			out[key.slot] = v
		}
		return true
	})
	return out
}

// CachedCode returns the code with the given hash if it's cached.
func (o *Origin) CachedCode(codeHash common.Hash) ([]byte, bool) {
	return o.cachedCode(codeHash)
}

// Len returns the number of cached accounts, storage slots and codes.
func (o *Origin) Len() (accounts, slots, codes int) {
	return o.accounts.Len(), o.storage.Len(), o.code.Len()
}

// Clear drops all cached lookups, including the process wide code cache.
// Values fetched afterwards must be equal to the dropped ones.
func (o *Origin) Clear() {
	o.accounts.Clear()
	o.storage.Clear()
	o.code.Clear()
	codeCache.Purge()
}

// do runs fn once for all concurrent callers of the same key. fn is detached
// from the cancellation of ctx so that a caller giving up does not fail the
// others, the caller itself returns as soon as ctx is done.
func (o *Origin) do(ctx context.Context, op Op, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := o.flights.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case res := <-ch:
		if res.Shared {
			o.count(op, "shared")
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, &FetchError{Op: op, Key: key, Tag: o.tag, Err: ctx.Err()}
	}
}

func (o *Origin) violation(op Op, key, recorded, received string) error {
	err := &ImmutabilityError{Op: op, Key: key, Recorded: recorded, Received: received}
	logger.Error("immutability violation", "op", op, "key", key, "tag", o.tag, "recorded", recorded, "received", received)
	return err
}

func (o *Origin) count(op Op, result string) {
	metricOriginLookupCount().AddWithLabel(1, map[string]string{"op": op.String(), "result": result})
}

func describeAccount(a *acc.Account) string {
	if a == nil {
		return "absent"
	}
	return a.String()
}
