// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package remote

// Op is a kind of remote lookup.
type Op uint8

const (
	OpAccount Op = iota
	OpStorage
	OpCode
	OpHead
)

func (op Op) String() string {
	switch op {
	case OpAccount:
		return "account"
	case OpStorage:
		return "storage"
	case OpCode:
		return "code"
	case OpHead:
		return "head"
	default:
		return "unknown"
	}
}

// Policy tells whether the result of a lookup may be cached.
type Policy uint8

const (
	// NoCache results are valid for the requesting call only.
	NoCache Policy = iota
	// Permanent results never change and may be shared by every copy of a state.
	Permanent
)

func (p Policy) String() string {
	if p == Permanent {
		return "permanent"
	}
	return "no-cache"
}

// CachePolicy returns the caching policy of op made against tag.
//
//	op        number/hash/earliest   latest/pending/safe/finalized
//	account   permanent              no-cache
//	storage   permanent              no-cache
//	code      permanent              permanent (keyed by code hash)
//	head      no-cache               no-cache
func CachePolicy(op Op, tag BlockTag) Policy {
	switch op {
	case OpCode:
		return Permanent
	case OpAccount, OpStorage:
		if tag.IsPinned() {
			return Permanent
		}
	}
	return NoCache
}
