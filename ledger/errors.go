// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package ledger holds the primitives shared by the governance core and the
// two leaf ledgers it controls: the error taxonomy and the owner/peer
// authorization gate.
package ledger

import "errors"

// Category groups errors by cause.
type Category uint8

const (
	CategoryInternal Category = iota
	CategoryAuthorization
	CategoryValidation
	CategoryStateConflict
	CategoryNotFound
)

func (c Category) String() string {
	switch c {
	case CategoryAuthorization:
		return "authorization"
	case CategoryValidation:
		return "validation"
	case CategoryStateConflict:
		return "state-conflict"
	case CategoryNotFound:
		return "not-found"
	default:
		return "internal"
	}
}

// Error is a categorized failure with a stable numeric code. Values are
// created once as package-level sentinels and compared with errors.Is.
type Error struct {
	Code     uint16
	Category Category
	msg      string
}

// NewError creates a new sentinel error.
func NewError(code uint16, category Category, msg string) *Error {
	return &Error{Code: code, Category: category, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Shared errors raised by more than one component.
var (
	ErrNotAuthorized       = NewError(100, CategoryAuthorization, "caller is not authorized")
	ErrInvalidAmount       = NewError(110, CategoryValidation, "amount must be positive")
	ErrPeerNotConfigured   = NewError(126, CategoryAuthorization, "orchestrator is not configured")
	ErrInvalidRecipient    = NewError(127, CategoryValidation, "invalid recipient")
	ErrInsufficientBalance = NewError(128, CategoryStateConflict, "insufficient balance")
)

// CategoryOf returns the category of the first ledger error found in err's
// chain. Errors that carry no ledger code are internal.
func CategoryOf(err error) Category {
	var le *Error
	if errors.As(err, &le) {
		return le.Category
	}
	return CategoryInternal
}

// CodeOf returns the numeric code of err, or 0 if err carries none.
func CodeOf(err error) uint16 {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return 0
}
