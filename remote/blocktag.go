// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package remote

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

type tagKind uint8

const (
	kindNamed tagKind = iota
	kindNumber
	kindHash
)

// Named block tags.
const (
	TagLatest    = "latest"
	TagPending   = "pending"
	TagSafe      = "safe"
	TagFinalized = "finalized"
	TagEarliest  = "earliest"
)

var namedTags = map[string]struct{}{
	TagLatest:    {},
	TagPending:   {},
	TagSafe:      {},
	TagFinalized: {},
	TagEarliest:  {},
}

// BlockTag identifies the block a remote lookup is made against: a block
// number, a block hash, or one of the named tags. The zero value is "latest".
type BlockTag struct {
	kind   tagKind
	number uint64
	hash   common.Hash
	name   string
}

// Latest is the tag of the chain head.
var Latest = BlockTag{kind: kindNamed, name: TagLatest}

// NumberTag returns a tag pinned at block number n.
func NumberTag(n uint64) BlockTag {
	return BlockTag{kind: kindNumber, number: n}
}

// HashTag returns a tag pinned at the block with hash h.
func HashTag(h common.Hash) BlockTag {
	return BlockTag{kind: kindHash, hash: h}
}

// NamedTag returns the named tag, or an error if name is unknown.
func NamedTag(name string) (BlockTag, error) {
	if _, ok := namedTags[name]; !ok {
		return BlockTag{}, errors.Errorf("unknown block tag %q", name)
	}
	return BlockTag{kind: kindNamed, name: name}, nil
}

// ParseBlockTag parses a named tag, a 32 byte hex block hash, or a block
// number in decimal or 0x prefixed hex. An empty string is "latest".
func ParseBlockTag(s string) (BlockTag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Latest, nil
	}
	if _, ok := namedTags[strings.ToLower(s)]; ok {
		return BlockTag{kind: kindNamed, name: strings.ToLower(s)}, nil
	}
	if has0xPrefix(s) {
		if len(s) == 2+2*common.HashLength {
			b, err := hexutil.Decode(s)
			if err != nil {
				return BlockTag{}, errors.Wrapf(err, "block hash %q", s)
			}
			return HashTag(common.BytesToHash(b)), nil
		}
		n, err := hexutil.DecodeUint64(s)
		if err != nil {
			return BlockTag{}, errors.Wrapf(err, "block number %q", s)
		}
		return NumberTag(n), nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return BlockTag{}, errors.Errorf("invalid block tag %q", s)
	}
	return NumberTag(n), nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// Number returns the pinned block number, if the tag is a number.
func (t BlockTag) Number() (uint64, bool) {
	return t.number, t.kind == kindNumber
}

// Hash returns the pinned block hash, if the tag is a hash.
func (t BlockTag) Hash() (common.Hash, bool) {
	return t.hash, t.kind == kindHash
}

// Name returns the tag name, or "" if the tag is not named.
func (t BlockTag) Name() string {
	if t.kind != kindNamed {
		return ""
	}
	if t.name == "" {
		return TagLatest
	}
	return t.name
}

// IsPinned reports whether the tag always refers to the same block.
// Numbers, hashes and "earliest" are pinned.
func (t BlockTag) IsPinned() bool {
	return t.kind != kindNamed || t.Name() == TagEarliest
}

// String returns the tag in its JSON-RPC parameter form.
func (t BlockTag) String() string {
	switch t.kind {
	case kindNumber:
		return hexutil.EncodeUint64(t.number)
	case kindHash:
		return t.hash.Hex()
	default:
		return t.Name()
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t BlockTag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *BlockTag) UnmarshalText(text []byte) error {
	parsed, err := ParseBlockTag(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
