// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/forkstate/remote"
)

// DefaultExpectedBlockTime is the default minimum interval between head
// checks in proxy mode.
const DefaultExpectedBlockTime = 2 * time.Second

// Mode selects where state not written locally comes from.
type Mode uint8

const (
	// ModeNormal has no remote, unknown state is absent.
	ModeNormal Mode = iota
	// ModeFork reads through to a remote chain pinned at one block.
	ModeFork
	// ModeProxy reads through to the remote chain head.
	ModeProxy
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeFork:
		return "fork"
	case ModeProxy:
		return "proxy"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "normal":
		*m = ModeNormal
	case "fork":
		*m = ModeFork
	case "proxy":
		*m = ModeProxy
	default:
		return errors.Errorf("unknown mode %q", text)
	}
	return nil
}

// ForkDescriptor names the remote chain and the block to read from.
// In proxy mode Block is ignored.
type ForkDescriptor struct {
	Transport remote.Transport
	Block     remote.BlockTag
}

// Config configures a state.
type Config struct {
	Mode Mode
	Fork *ForkDescriptor
	// Remote tunes retries, timeouts and the request rate of remote reads.
	// The zero value means remote.DefaultOptions().
	Remote remote.Options
	// ExpectedBlockTime is the minimum interval between head checks in
	// proxy mode. Zero means DefaultExpectedBlockTime.
	ExpectedBlockTime time.Duration
	// OnCommit is called after every successful Commit.
	OnCommit func(*State)
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeNormal:
		if c.Fork != nil {
			return invalid("fork", "fork descriptor given in %v mode", c.Mode)
		}
	case ModeFork, ModeProxy:
		if c.Fork == nil || c.Fork.Transport == nil {
			return invalid("fork", "transport required in %v mode", c.Mode)
		}
	default:
		return invalid("mode", "unknown mode %d", c.Mode)
	}
	if c.ExpectedBlockTime < 0 {
		return invalid("expected block time", "negative duration %v", c.ExpectedBlockTime)
	}
	return nil
}
