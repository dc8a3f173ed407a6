package ledger

import (
	"errors"

	"github.com/dense-analysis/walletledger/internal/model"
)

// ErrorKind classifies why a ledger operation failed.
type ErrorKind int

const (
	InvalidArgument ErrorKind = iota + 1
	NotFound
	InsufficientFunds
	InsufficientHoldings
	StoreWriteFailed
	StoreReadFailed
)

func (kind ErrorKind) String() string {
	switch kind {
	case InvalidArgument:
		return "invalid_argument"
	case NotFound:
		return "not_found"
	case InsufficientFunds:
		return "insufficient_funds"
	case InsufficientHoldings:
		return "insufficient_holdings"
	case StoreWriteFailed:
		return "store_write_failed"
	case StoreReadFailed:
		return "store_read_failed"
	default:
		return "unknown"
	}
}

// Error is a ledger failure. Message can be shown to the user as it is.
type Error struct {
	Kind    ErrorKind
	Message string
	// Err is the underlying cause for store failures.
	Err error
}

func (err *Error) Error() string {
	if err.Err != nil {
		return err.Message + ": " + err.Err.Error()
	}

	return err.Message
}

func (err *Error) Unwrap() error {
	return err.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is.
func (err *Error) Is(target error) bool {
	var other *Error

	return errors.As(target, &other) && other.Kind == err.Kind && other.Message == ""
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidArgument      = &Error{Kind: InvalidArgument}
	ErrNotFound             = &Error{Kind: NotFound}
	ErrInsufficientFunds    = &Error{Kind: InsufficientFunds}
	ErrInsufficientHoldings = &Error{Kind: InsufficientHoldings}
	ErrStoreWriteFailed     = &Error{Kind: StoreWriteFailed}
	ErrStoreReadFailed      = &Error{Kind: StoreReadFailed}
)

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Result is the outcome of a ledger mutation.
type Result struct {
	Success bool
	// Message describes the outcome for display.
	Message string
	// Err is set when Success is false.
	Err *Error
	// Transaction is the record written with the mutation.
	Transaction *model.Transaction
}

// Kind returns the failure kind, or zero for a success.
func (result Result) Kind() ErrorKind {
	if result.Err == nil {
		return 0
	}

	return result.Err.Kind
}

func failed(err *Error) Result {
	return Result{Message: err.Message, Err: err}
}
