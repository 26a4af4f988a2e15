package ledger

import (
	"errors"
	"fmt"
)

// Code classifies why a record was rejected.
type Code string

const (
	CodeAccountLocked          Code = "account_locked"
	CodeInsufficientFunds      Code = "insufficient_funds"
	CodeInsufficientHeldFunds  Code = "insufficient_held_funds"
	CodeTransactionNotFound    Code = "transaction_not_found"
	CodeDisputeNotFound        Code = "dispute_not_found"
	CodeUnknownTransactionKind Code = "unknown_transaction_kind"

	// Only produced with WithStrictLifecycle.
	CodeDuplicateTransaction Code = "duplicate_transaction"
	CodeInvalidTransition    Code = "invalid_transition"
	CodeClientMismatch       Code = "client_mismatch"
)

// Error is the rejection of a single record. Client and Tx identify the
// offending record; Kind is the record kind as received.
type Error struct {
	Code   Code
	Client ClientID
	Tx     TxID
	Kind   Kind
}

func (e *Error) Error() string {
	switch e.Code {
	case CodeAccountLocked:
		return fmt.Sprintf("account %d locked", e.Client)
	case CodeInsufficientFunds:
		return fmt.Sprintf("insufficient funds on account %d for %s %d", e.Client, e.Kind, e.Tx)
	case CodeInsufficientHeldFunds:
		return fmt.Sprintf("not enough held funds on account %d to %s tx %d", e.Client, e.Kind, e.Tx)
	case CodeTransactionNotFound:
		return fmt.Sprintf("transaction %d not found", e.Tx)
	case CodeDisputeNotFound:
		return fmt.Sprintf("no dispute recorded for transaction %d", e.Tx)
	case CodeUnknownTransactionKind:
		return fmt.Sprintf("unknown transaction kind %q", string(e.Kind))
	case CodeDuplicateTransaction:
		return fmt.Sprintf("transaction %d already recorded", e.Tx)
	case CodeInvalidTransition:
		return fmt.Sprintf("cannot %s transaction %d in its current state", e.Kind, e.Tx)
	case CodeClientMismatch:
		return fmt.Sprintf("transaction %d does not belong to account %d", e.Tx, e.Client)
	default:
		return fmt.Sprintf("%s: client %d tx %d", e.Code, e.Client, e.Tx)
	}
}

// Is matches on Code so errors.Is(err, ErrAccountLocked) works for any
// client or transaction.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrAccountLocked         = &Error{Code: CodeAccountLocked}
	ErrInsufficientFunds     = &Error{Code: CodeInsufficientFunds}
	ErrInsufficientHeldFunds = &Error{Code: CodeInsufficientHeldFunds}
	ErrTransactionNotFound   = &Error{Code: CodeTransactionNotFound}
	ErrDisputeNotFound       = &Error{Code: CodeDisputeNotFound}
	ErrUnknownKind           = &Error{Code: CodeUnknownTransactionKind}
	ErrDuplicateTransaction  = &Error{Code: CodeDuplicateTransaction}
	ErrInvalidTransition     = &Error{Code: CodeInvalidTransition}
	ErrClientMismatch        = &Error{Code: CodeClientMismatch}
)

// CodeOf returns the rejection code of err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
