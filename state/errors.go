// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error is the error caused by remote state access failure.
// The cause is a remote.FetchError or remote.ImmutabilityError.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// ValidationError is returned when an input is malformed: a bad address,
// slot or value length, an unparsable dump entry.
// Nothing is modified when it's returned.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("state: invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, format string, args ...any) error {
	return &ValidationError{Field: field, Err: errors.Errorf(format, args...)}
}

// IsValidationError returns whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// JournalError is returned when an operation is invalid at the current
// checkpoint depth.
type JournalError struct {
	Op    string
	Depth int
}

func (e *JournalError) Error() string {
	if e.Depth == 0 {
		return fmt.Sprintf("state: %s: no open checkpoint", e.Op)
	}
	return fmt.Sprintf("state: %s: %d open checkpoint(s)", e.Op, e.Depth)
}

// IsJournalError returns whether err is or wraps a JournalError.
func IsJournalError(err error) bool {
	var e *JournalError
	return errors.As(err, &e)
}
