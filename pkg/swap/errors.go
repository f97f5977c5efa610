package swap

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the stable failure category surfaced to callers. Callers
// branch on the kind, never on message text.
type ErrorKind string

const (
	KindMissingParam          ErrorKind = "missing_param"
	KindNetworkNotSupported   ErrorKind = "network_not_supported"
	KindWrongQuoteProvider    ErrorKind = "wrong_quote_provider"
	KindIncorrectTokenAddress ErrorKind = "incorrect_token_address"
	KindCannotBuildTx         ErrorKind = "cannot_build_tx"
	KindCannotFetchAllowance  ErrorKind = "cannot_fetch_allowance"
	KindCannotFetchSpender    ErrorKind = "cannot_fetch_spender"
	KindApprovalTxFailed      ErrorKind = "approval_tx_failed"
	KindSwapTxFailed          ErrorKind = "swap_tx_failed"
	KindInvalidQuoteData      ErrorKind = "invalid_quote_data"
	KindTransactionNotFound   ErrorKind = "transaction_not_found"
	KindAborted               ErrorKind = "aborted"
)

// Error is the structured error produced across the swap stack.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is makes two swap errors match when their kinds match, so callers can use
// errors.Is with a bare-kind sentinel.
func (e *Error) Is(target error) bool {
	var se *Error
	if errors.As(target, &se) {
		return se.Kind == e.Kind
	}
	return false
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// ErrAborted is the normalized cancellation error. It is never surfaced as a
// user-facing failure.
var ErrAborted = &Error{Kind: KindAborted, Message: "Aborted"}

func ErrMissingParam(name string) *Error {
	return newError(KindMissingParam, "missing required parameter: "+name, nil)
}

func ErrNetworkNotSupported(chainName string) *Error {
	return newError(KindNetworkNotSupported, "network not supported: "+chainName, nil)
}

func ErrWrongQuoteProvider(p Provider) *Error {
	return newError(KindWrongQuoteProvider, "quote was produced by another provider: "+string(p), nil)
}

func ErrIncorrectTokenAddress(addr string) *Error {
	return newError(KindIncorrectTokenAddress, "incorrect token address: "+addr, nil)
}

func ErrCannotBuildTx(cause error) *Error {
	return newError(KindCannotBuildTx, "cannot build transaction", cause)
}

func ErrCannotFetchAllowance(cause error) *Error {
	return newError(KindCannotFetchAllowance, "cannot fetch token allowance", cause)
}

func ErrCannotFetchSpender(cause error) *Error {
	return newError(KindCannotFetchSpender, "cannot fetch spender address", cause)
}

func ErrApprovalTxFailed(cause error) *Error {
	return newError(KindApprovalTxFailed, "approval transaction failed", cause)
}

func ErrSwapTxFailed(cause error) *Error {
	return newError(KindSwapTxFailed, "swap transaction failed", cause)
}

func ErrInvalidQuoteData(cause error) *Error {
	return newError(KindInvalidQuoteData, "invalid quote data", cause)
}

func ErrTransactionNotFound(hash string) *Error {
	return newError(KindTransactionNotFound, "transaction not found: "+hash, nil)
}

// KindOf extracts the failure category, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// Abort normalizes a cancellation cause into ErrAborted.
func Abort(cause error) *Error {
	return &Error{Kind: KindAborted, Message: "Aborted", cause: cause}
}

// IsAborted reports whether err represents an intentional cancellation,
// including raw context cancellation that was not normalized yet.
func IsAborted(err error) bool {
	if err == nil {
		return false
	}
	if KindOf(err) == KindAborted {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// UserRejectionCode is the EIP-1193 code wallets return when the user
// declines a signing request.
const UserRejectionCode = 4001

// RejectionError marks a signing request declined by the user. It is not part
// of the failure taxonomy: orchestrators reset quietly instead of failing.
type RejectionError struct {
	Code int
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("user rejected the request (code %d)", e.Code)
}

// IsUserRejection reports whether err is a user-initiated signing rejection.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	var re *RejectionError
	if errors.As(err, &re) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "user rejected")
}
