/*
errors.go - Centralized error kinds for the billing engine

PURPOSE:
  Every failure the engine reports is deterministic given its input, so
  callers need to tell kinds apart, never retry them, and show a message.
  Each kind has a sentinel for errors.Is and a structured *Error that
  carries the message and, when relevant, the term involved.

ERROR CATEGORIES:
  1. Validation  - bad frequency, dates, amounts, missing properties
  2. Lifecycle   - rents never generated, terminated contract, paid term dropped
  3. Lookup      - term not found
  4. Store       - contract not found, concurrent modification

USAGE:
  if errors.Is(err, billing.ErrTermNotFound) { ... }
  switch billing.KindOf(err) { case billing.KindInvalidDateRange: ... }

SEE ALSO:
  - period.go: Sequencer validation
  - lease/ledger.go: Lifecycle validation
  - api/errors.go: Kind to HTTP status mapping
*/
package billing

import (
	"errors"
	"fmt"
)

// Kind is a machine-checkable error category.
type Kind string

const (
	KindUnsupportedFrequency   Kind = "UnsupportedFrequency"
	KindInvalidDateRange       Kind = "InvalidDateRange"
	KindMissingProperties      Kind = "MissingProperties"
	KindTerminationOutOfRange  Kind = "TerminationOutOfRange"
	KindRentsNotGenerated      Kind = "RentsNotGenerated"
	KindTermNotFound           Kind = "TermNotFound"
	KindInvalidAmount          Kind = "InvalidAmount"
	KindPaidTermDropped        Kind = "PaidTermDropped"
	KindContractTerminated     Kind = "ContractTerminated"
	KindInvalidDocument        Kind = "InvalidDocument"
	KindContractNotFound       Kind = "ContractNotFound"
	KindConcurrentModification Kind = "ConcurrentModification"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrUnsupportedFrequency  = errors.New("unsupported frequency")
	ErrInvalidDateRange      = errors.New("invalid date range")
	ErrMissingProperties     = errors.New("properties not defined or empty")
	ErrTerminationOutOfRange = errors.New("termination date out of range")
	ErrRentsNotGenerated     = errors.New("rents were not generated")
	ErrTermNotFound          = errors.New("term not found")
	ErrInvalidAmount         = errors.New("invalid amount")

	// ErrPaidTermDropped is returned when an operation would discard a term
	// that already carries payments, settlement discounts, debts or VAT
	// adjustments.
	ErrPaidTermDropped = errors.New("term with posted entries would be dropped")

	ErrContractTerminated = errors.New("contract is terminated")
	ErrInvalidDocument    = errors.New("invalid document")

	// ErrContractNotFound is returned by stores for unknown contract ids.
	ErrContractNotFound = errors.New("contract not found")

	// ErrConcurrentModification is returned when the stored version moved
	// between load and save.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

var sentinels = map[Kind]error{
	KindUnsupportedFrequency:   ErrUnsupportedFrequency,
	KindInvalidDateRange:       ErrInvalidDateRange,
	KindMissingProperties:      ErrMissingProperties,
	KindTerminationOutOfRange:  ErrTerminationOutOfRange,
	KindRentsNotGenerated:      ErrRentsNotGenerated,
	KindTermNotFound:           ErrTermNotFound,
	KindInvalidAmount:          ErrInvalidAmount,
	KindPaidTermDropped:        ErrPaidTermDropped,
	KindContractTerminated:     ErrContractTerminated,
	KindInvalidDocument:        ErrInvalidDocument,
	KindContractNotFound:       ErrContractNotFound,
	KindConcurrentModification: ErrConcurrentModification,
}

// =============================================================================
// STRUCTURED ERROR
// =============================================================================

// Error is the engine's error value.
type Error struct {
	Kind    Kind
	Message string
	Term    Term // zero when not term-specific
}

func (e *Error) Error() string {
	if e.Term != 0 {
		return fmt.Sprintf("%s (term %d)", e.Message, e.Term)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return sentinels[e.Kind]
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewError builds an engine error of the given kind.
func NewError(kind Kind, format string, args ...any) *Error {
	return newError(kind, fmt.Sprintf(format, args...))
}

// NewTermError builds an engine error tied to a term.
func NewTermError(kind Kind, term Term, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Term: term}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// KindOf extracts the kind of an engine error, or "" for anything else.
// Bare sentinels (as returned by stores) are recognized too.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for kind, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return ""
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsNotFound returns true if the error indicates a missing contract or term.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContractNotFound) || errors.Is(err, ErrTermNotFound)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case KindUnsupportedFrequency, KindInvalidDateRange, KindMissingProperties,
		KindTerminationOutOfRange, KindRentsNotGenerated, KindInvalidAmount,
		KindPaidTermDropped, KindContractTerminated, KindInvalidDocument:
		return true
	}
	return false
}
