// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import "github.com/ethereum/go-ethereum/common"

// keys of the journal. An account key is the plain common.Address, its value
// a *acc.Account, nil for deleted accounts.
type (
	storageKey struct {
		addr    common.Address
		barrier int
		slot    common.Hash
	}
	codeKey           common.Hash
	storageBarrierKey common.Address
)
