// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package acc

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

var (
	// EmptyCodeHash is the keccak256 hash of empty code.
	EmptyCodeHash = types.EmptyCodeHash
	// EmptyRootHash is the root hash of an empty storage trie.
	EmptyRootHash = types.EmptyRootHash
)

// Account is the execution-layer representation of an account.
type Account struct {
	Nonce       uint64
	Balance     *uint256.Int
	CodeHash    common.Hash // hash of code
	StorageRoot common.Hash // merkle root of the storage trie
	CodeSize    uint64
}

// New returns an empty account.
func New() *Account {
	return &Account{
		Balance:     new(uint256.Int),
		CodeHash:    EmptyCodeHash,
		StorageRoot: EmptyRootHash,
	}
}

// Copy returns a deep copy of the account.
func (a *Account) Copy() *Account {
	if a == nil {
		return nil
	}
	cpy := *a
	if a.Balance != nil {
		cpy.Balance = a.Balance.Clone()
	} else {
		cpy.Balance = new(uint256.Int)
	}
	return &cpy
}

// Normalize fills zero-valued hashes and a nil balance with their empty forms.
func (a *Account) Normalize() {
	if a.Balance == nil {
		a.Balance = new(uint256.Int)
	}
	if a.CodeHash == (common.Hash{}) {
		a.CodeHash = EmptyCodeHash
	}
	if a.StorageRoot == (common.Hash{}) {
		a.StorageRoot = EmptyRootHash
	}
}

// Validate checks the account invariants.
func (a *Account) Validate() error {
	if a.Balance == nil {
		return errors.New("nil balance")
	}
	if a.CodeHash == EmptyCodeHash && a.CodeSize != 0 {
		return errors.Errorf("code size %d with empty code hash", a.CodeSize)
	}
	return nil
}

// HasCode returns whether the account refers to a code entry.
func (a *Account) HasCode() bool {
	return a.CodeHash != EmptyCodeHash && a.CodeHash != (common.Hash{})
}

// IsEmpty returns if an account is empty, as defined by EIP-161.
func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.IsZero()) && !a.HasCode()
}

// Equal reports whether two accounts hold the same fields.
func (a *Account) Equal(b *Account) bool {
	if a == nil || b == nil {
		return a == b
	}
	balA, balB := a.Balance, b.Balance
	if balA == nil {
		balA = new(uint256.Int)
	}
	if balB == nil {
		balB = new(uint256.Int)
	}
	return a.Nonce == b.Nonce &&
		balA.Eq(balB) &&
		a.CodeHash == b.CodeHash &&
		a.StorageRoot == b.StorageRoot &&
		a.CodeSize == b.CodeSize
}

// AddBalance adds amount to the balance.
func (a *Account) AddBalance(amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	a.Balance = new(uint256.Int).Add(a.Balance, amount)
}

// SubBalance subtracts amount from the balance.
func (a *Account) SubBalance(amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	a.Balance = new(uint256.Int).Sub(a.Balance, amount)
}

// SetCode points the account at the given code.
// It returns the code hash.
func (a *Account) SetCode(code []byte) common.Hash {
	if len(code) == 0 {
		a.CodeHash = EmptyCodeHash
		a.CodeSize = 0
		return EmptyCodeHash
	}
	a.CodeHash = crypto.Keccak256Hash(code)
	a.CodeSize = uint64(len(code))
	return a.CodeHash
}

func (a *Account) String() string {
	return fmt.Sprintf("nonce=%d balance=%v codeHash=%v storageRoot=%v codeSize=%d",
		a.Nonce, a.Balance, a.CodeHash, a.StorageRoot, a.CodeSize)
}
