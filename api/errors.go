package api

import (
	"errors"
	"fmt"
)

// Error kinds from spec.md §7. Each wraps a sentinel so callers can
// branch with errors.Is/errors.As instead of string matching.
var (
	// ErrParse covers malformed interval strings, wire JSON, or cert DNs.
	ErrParse = errors.New("parse error")
	// ErrAdmission covers a rejected connection (spec.md §4.7).
	ErrAdmission = errors.New("admission error")
	// ErrProtocol covers version/session-token mismatches replied to the peer.
	ErrProtocol = errors.New("protocol error")
	// ErrValidation covers a single item rejected by a caller policy (C10).
	ErrValidation = errors.New("validation error")
	// ErrTransientStore covers a recoverable store failure (deadlock, lock timeout).
	ErrTransientStore = errors.New("transient store error")
	// ErrFatal covers schema mismatch or allocator failure: the process exits.
	ErrFatal = errors.New("fatal error")
)

// IntervalKind distinguishes which clause of an update-interval
// expression failed to parse (spec.md §4.2).
type IntervalKind string

const (
	IntervalKindUpdate     IntervalKind = "update"
	IntervalKindFlexible   IntervalKind = "flexible"
	IntervalKindScheduling IntervalKind = "scheduling"
)

// InvalidIntervalError reports a parse failure against a specific
// substring of the offending interval expression.
type InvalidIntervalError struct {
	Kind IntervalKind
	Span string
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid %s interval: %q", e.Kind, e.Span)
}

func (e *InvalidIntervalError) Unwrap() error {
	return ErrParse
}

// NewInvalidInterval builds an InvalidIntervalError.
func NewInvalidInterval(kind IntervalKind, span string) *InvalidIntervalError {
	return &InvalidIntervalError{Kind: kind, Span: span}
}

// AdmissionError reports a connection rejected during C7 admission. The
// Category is the only detail surfaced to the peer (spec.md §4.7: "do
// not leak which check failed beyond a category").
type AdmissionError struct {
	Category string
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("connection rejected: %s", e.Category)
}

func (e *AdmissionError) Unwrap() error {
	return ErrAdmission
}

// NewAdmissionError builds an AdmissionError for the given category.
func NewAdmissionError(category string) *AdmissionError {
	return &AdmissionError{Category: category}
}

// ValidationError reports a single item rejected by a caller policy.
type ValidationError struct {
	ItemID uint64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("item %d rejected: %s", e.ItemID, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
