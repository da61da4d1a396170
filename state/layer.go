// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/vechain/forkstate/acc"
	"github.com/vechain/forkstate/tristate"
)

// maxLayerDepth bounds the layer chain, deeper chains are flattened on copy.
const maxLayerDepth = 16

// slots is the storage overlay of one address. A cleared overlay hides
// everything below it.
type slots struct {
	cleared bool
	values  map[common.Hash]common.Hash
}

// layer holds committed local writes. The top layer of a state is private
// and mutable, once a copy shares it the layer is frozen and never written
// again.
type layer struct {
	parent *layer
	depth  int

	accounts *tristate.Cache[common.Address, *acc.Account]
	storage  map[common.Address]*slots
	codes    map[common.Hash][]byte
}

func newLayer(parent *layer) *layer {
	l := &layer{
		parent:   parent,
		accounts: tristate.New[common.Address, *acc.Account](),
		storage:  make(map[common.Address]*slots),
		codes:    make(map[common.Hash][]byte),
	}
	if parent != nil {
		l.depth = parent.depth + 1
	}
	return l
}

func (l *layer) empty() bool {
	return l.accounts.Len() == 0 && len(l.storage) == 0 && len(l.codes) == 0
}

// account walks the chain for the newest record of addr.
func (l *layer) account(addr common.Address) (*acc.Account, tristate.Status) {
	for ; l != nil; l = l.parent {
		if a, status := l.accounts.Get(addr); status.Defined() {
			return a, status
		}
	}
	return nil, tristate.Unknown
}

// slot walks the chain for the value of the slot. found is true when the
// answer is local, either a written value or a cleared storage.
func (l *layer) slot(addr common.Address, key common.Hash) (v common.Hash, found bool) {
	for ; l != nil; l = l.parent {
		if s := l.storage[addr]; s != nil {
			if v, ok := s.values[key]; ok {
				return v, true
			}
			if s.cleared {
				return common.Hash{}, true
			}
		}
	}
	return common.Hash{}, false
}

func (l *layer) code(hash common.Hash) ([]byte, bool) {
	for ; l != nil; l = l.parent {
		if code, ok := l.codes[hash]; ok {
			return code, true
		}
	}
	return nil, false
}

// storageOf merges the local storage of addr over base, newest layer wins.
// cleared is true if some layer hides everything below.
func (l *layer) storageOf(addr common.Address) (values map[common.Hash]common.Hash, cleared bool) {
	values = make(map[common.Hash]common.Hash)
	for _, cur := range l.chain() {
		s := cur.storage[addr]
		if s == nil {
			continue
		}
		if s.cleared {
			values = make(map[common.Hash]common.Hash, len(s.values))
			cleared = true
		}
		for k, v := range s.values {
			values[k] = v
		}
	}
	return values, cleared
}

// addresses returns every address with an account record in the chain.
func (l *layer) addresses() map[common.Address]struct{} {
	out := make(map[common.Address]struct{})
	for ; l != nil; l = l.parent {
		l.accounts.Range(func(addr common.Address, _ *acc.Account, _ tristate.Status) bool {
			out[addr] = struct{}{}
			return true
		})
	}
	return out
}

// chain returns the layers from the oldest to l.
func (l *layer) chain() []*layer {
	out := make([]*layer, l.depth+1)
	for cur := l; cur != nil; cur = cur.parent {
		out[cur.depth] = cur
	}
	return out
}

func (l *layer) setAccount(addr common.Address, a *acc.Account) {
	if a == nil {
		l.accounts.MarkAbsent(addr)
		return
	}
	l.accounts.Set(addr, a)
}

func (l *layer) setSlot(addr common.Address, key, v common.Hash) {
	s := l.storage[addr]
	if s == nil {
		s = &slots{values: make(map[common.Hash]common.Hash)}
		l.storage[addr] = s
	}
	s.values[key] = v
}

func (l *layer) clearStorage(addr common.Address) {
	l.storage[addr] = &slots{cleared: true, values: make(map[common.Hash]common.Hash)}
}

// flatten merges the chain into a single layer without parent.
func (l *layer) flatten() *layer {
	flat := newLayer(nil)
	for _, cur := range l.chain() {
		cur.accounts.Range(func(addr common.Address, a *acc.Account, _ tristate.Status) bool {
			flat.setAccount(addr, a)
			return true
		})
		for addr, s := range cur.storage {
			if s.cleared {
				flat.clearStorage(addr)
			}
			for k, v := range s.values {
				flat.setSlot(addr, k, v)
			}
		}
		for hash, code := range cur.codes {
			flat.codes[hash] = code
		}
	}
	return flat
}
