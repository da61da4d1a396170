// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import "github.com/vechain/forkstate/stackedmap"

// ShallowCopy returns an independent state sharing everything committed so
// far. Writes to either one are not seen by the other.
// The cost does not depend on the amount of state. It fails if a checkpoint
// is open.
func (s *State) ShallowCopy() (*State, error) {
	if err := s.requireClean("shallow copy"); err != nil {
		return nil, err
	}

	// freeze the local layer, both states continue on top of it
	base := s.local
	if base.empty() {
		base = base.parent
	}
	if base != nil && base.depth >= maxLayerDepth {
		base = base.flatten()
	}
	s.local = newLayer(base)

	cpy := s.fork(newLayer(base))
	countOp("shallow copy")
	logger.Debug("shallow copy", "generation", cpy.generation, "layers", s.local.depth)
	return cpy, nil
}

// DeepCopy returns an independent state holding a private copy of
// everything committed so far. Remote caches are still shared.
// It fails if a checkpoint is open.
func (s *State) DeepCopy() (*State, error) {
	if err := s.requireClean("deep copy"); err != nil {
		return nil, err
	}
	cpy := s.fork(s.local.flatten())
	countOp("deep copy")
	return cpy, nil
}

func (s *State) fork(local *layer) *State {
	return &State{
		mode:              s.mode,
		expectedBlockTime: s.expectedBlockTime,
		onCommit:          s.onCommit,
		backend:           s.backend,
		origin:            s.origin,
		proxy:             s.proxy,
		local:             local,
		sm:                stackedmap.New(),
		generation:        s.generation + 1,
	}
}

// ClearCaches drops every value fetched from the remote. Local writes are
// kept, dropped values are fetched again when needed.
// It fails if a checkpoint is open.
func (s *State) ClearCaches() error {
	if err := s.requireClean("clear caches"); err != nil {
		return err
	}
	if s.origin != nil {
		s.origin.Clear()
	}
	// the scope is rebuilt on the next Lock
	s.proxy = proxyScope{}
	countOp("clear caches")
	return nil
}
