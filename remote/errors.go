// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package remote

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedResponse is wrapped by transport errors for responses that
	// can not be decoded. Such requests are not retried.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrBlockNotFound is returned when a block tag does not resolve to a block.
	ErrBlockNotFound = errors.New("block not found")
	// ErrHeadMoved is returned when lookups made against a moving tag, such
	// as "latest", observed different blocks. Retrying may succeed.
	ErrHeadMoved = errors.New("head moved between lookups")
)

// FetchError is returned when a remote lookup fails for good, after retries
// are exhausted, on a permanent failure, or when the caller gave up waiting.
// It is never a sign that the looked up item does not exist.
type FetchError struct {
	Op       Op
	Key      string
	Tag      BlockTag
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("remote %v %s at %v: %v (attempts: %d)", e.Op, e.Key, e.Tag, e.Err, e.Attempts)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err is, or wraps, a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// ImmutabilityError reports two different values recorded for the same
// key of a pinned block, or code whose hash does not match its content.
// It indicates a broken block resolution and must not be recovered from.
type ImmutabilityError struct {
	Op       Op
	Key      string
	Recorded string
	Received string
}

func (e *ImmutabilityError) Error() string {
	return fmt.Sprintf("immutability violation on %v %s: recorded %s, received %s", e.Op, e.Key, e.Recorded, e.Received)
}

// IsImmutabilityError reports whether err is, or wraps, an *ImmutabilityError.
func IsImmutabilityError(err error) bool {
	var ie *ImmutabilityError
	return errors.As(err, &ie)
}
