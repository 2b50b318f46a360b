package shared

import (
	"errors"
	"fmt"
)

// Kind classifies ledger failures for callers and transports.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindClosedPeriod        Kind = "closed_period"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindStateConflict       Kind = "state_conflict"
	KindConcurrencyConflict Kind = "concurrency_conflict"
	KindInternal            Kind = "internal"
)

// Error is the typed failure returned by every ledger operation.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("accounting: %s: %v", e.Message, e.Err)
	}
	return "accounting: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind and code so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = &Error{Kind: KindValidation, Code: "unbalancedEntry", Message: "journal lines must balance"}
	// ErrTotalMismatch indicates the line sum differs from the declared total.
	ErrTotalMismatch = &Error{Kind: KindValidation, Code: "totalMismatch", Message: "line amounts do not match voucher total"}
	// ErrDuplicateAccount indicates an account appears twice in one voucher.
	ErrDuplicateAccount = &Error{Kind: KindValidation, Code: "duplicateAccount", Message: "account repeated within voucher"}
	// ErrNoLines indicates an empty voucher.
	ErrNoLines = &Error{Kind: KindValidation, Code: "noLines", Message: "voucher requires at least one line"}
	// ErrPostToParent indicates a posting aimed at a non-leaf account.
	ErrPostToParent = &Error{Kind: KindValidation, Code: "parentAccount", Message: "cannot post to a parent account"}
	// ErrClosedPeriod indicates the date falls inside a closed period.
	ErrClosedPeriod = &Error{Kind: KindClosedPeriod, Code: "closedPeriod", Message: "date falls inside a closed period"}
	// ErrInsufficientBalance indicates a payment would overdraw cash or bank.
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, Code: "insufficientBalance", Message: "settlement account balance is insufficient"}
	// ErrCannotUnpost indicates a Posted -> Draft transition.
	ErrCannotUnpost = &Error{Kind: KindStateConflict, Code: "cannotUnpost", Message: "posted voucher cannot return to draft"}
	// ErrCannotDeletePosted indicates deletion of a posted voucher.
	ErrCannotDeletePosted = &Error{Kind: KindStateConflict, Code: "cannotDeletePosted", Message: "posted voucher cannot be deleted"}
	// ErrInvalidTransition covers every other refused lifecycle change.
	ErrInvalidTransition = &Error{Kind: KindStateConflict, Code: "invalidTransition", Message: "invalid voucher status transition"}
	// ErrHasChildren indicates deletion of an account with children.
	ErrHasChildren = &Error{Kind: KindStateConflict, Code: "hasChildren", Message: "account has child accounts"}
	// ErrInUse indicates deletion of an account referenced by a voucher.
	ErrInUse = &Error{Kind: KindStateConflict, Code: "inUse", Message: "account is referenced by vouchers"}
	// ErrHasPostings indicates an account with ledger history cannot become a parent.
	ErrHasPostings = &Error{Kind: KindStateConflict, Code: "hasPostings", Message: "account has ledger entries"}
	// ErrSystemAccount protects configured system accounts.
	ErrSystemAccount = &Error{Kind: KindStateConflict, Code: "systemAccount", Message: "system account cannot be modified"}
	// ErrAlreadyClosed indicates the period end is already closed.
	ErrAlreadyClosed = &Error{Kind: KindStateConflict, Code: "alreadyClosed", Message: "period already closed"}
	// ErrConcurrentUpdate indicates a lost race on an account row.
	ErrConcurrentUpdate = &Error{Kind: KindConcurrencyConflict, Code: "concurrentUpdate", Message: "concurrent update detected, retry"}
	// ErrDuplicate indicates a unique key collision such as an account code.
	ErrDuplicate = &Error{Kind: KindStateConflict, Code: "duplicate", Message: "record already exists"}
	// ErrTreeIntegrity indicates a cycle or runaway depth in the account tree.
	ErrTreeIntegrity = &Error{Kind: KindInternal, Code: "treeIntegrity", Message: "account tree integrity violated"}
)

// Validation builds a validation error with a stable code.
func Validation(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound names the missing entity.
func NotFound(entity string, id any) *Error {
	return &Error{Kind: KindNotFound, Code: entity + "NotFound", Message: fmt.Sprintf("%s %v not found", entity, id)}
}

// Internal wraps a storage or transport failure.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal", Message: op, Err: err}
}

// Wrap returns a copy of sentinel carrying additional detail.
func Wrap(sentinel *Error, format string, args ...any) *Error {
	return &Error{
		Kind:    sentinel.Kind,
		Code:    sentinel.Code,
		Message: sentinel.Message + ": " + fmt.Sprintf(format, args...),
	}
}

// KindOf reports the kind of err; unknown errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf reports the machine code of err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
