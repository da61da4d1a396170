// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"context"
	"time"

	"github.com/vechain/forkstate/remote"
)

// proxyScope pins proxy mode reads to one head block between Lock and Unlock.
type proxyScope struct {
	scope     *remote.Origin
	checkedAt time.Time
	locked    bool
}

// Lock starts a top level operation in proxy mode: reads until Unlock are
// made against the current head block, fetched once and cached for the
// scope. The head is checked at most once per expected block time, the
// scope is kept while the head does not move.
// It does nothing in other modes.
func (s *State) Lock(ctx context.Context) error {
	if s.mode != ModeProxy {
		return nil
	}
	now := time.Now()
	if s.proxy.scope != nil && now.Sub(s.proxy.checkedAt) < s.expectedBlockTime {
		s.proxy.locked = true
		return nil
	}

	head, err := s.backend.BlockNumber(ctx)
	if err != nil {
		return &Error{err}
	}
	s.proxy.checkedAt = now
	if s.proxy.scope == nil || s.proxy.scope.Tag() != remote.NumberTag(head) {
		if s.proxy.scope != nil {
			logger.Debug("proxy head moved", "from", s.proxy.scope.Tag(), "to", head)
		}
		s.proxy.scope = remote.NewOrigin(s.backend, remote.NumberTag(head))
	}
	s.proxy.locked = true
	countOp("lock")
	return nil
}

// Unlock ends the top level operation started by Lock. Reads go to the
// latest block again, uncached. It fails if a checkpoint is open.
func (s *State) Unlock() error {
	if err := s.requireClean("unlock"); err != nil {
		return err
	}
	s.proxy.locked = false
	return nil
}

// Locked returns whether reads are pinned by Lock.
func (s *State) Locked() bool {
	return s.proxy.locked
}
