// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state manages the account state seen by an EVM executor, on top
// of an optional remote chain.
// It follows the flow as bellow:
//
//	         o
//	         |
//	[ revertable state ]
//	         |
//	  [ stacked map ] -> [ journal ] -> [ playback ] -> [ local layer ]
//	         |
//	  [ local layer ] -> [ frozen layers, shared by copies ]
//	         |
//	  [ remote origin ] (fork and proxy modes)
//	         |
//	 [ remote backend ] -> [ transport ]
//
// Writes go to the stacked map while a checkpoint is open, and are played
// back into the local layer when the last one is committed. Shallow copies
// freeze the local layer and both states continue on new layers above it.
//
// Accounts known not to exist are recorded as such, a miss in the local
// layers is not an absence: it's resolved by the remote origin, or taken as
// absent in normal mode.
//
// Deleting an account leaves its storage, self destruct also clears the
// storage by raising the storage barrier of the address.
package state
