// Package errors provides structured error handling for EmberSend.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes for the CLI surface.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitBackend    = 3 // Signing backend failure
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Permission denied or insufficient funds
)

// EmberError is the structured error type for EmberSend.
type EmberError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *EmberError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *EmberError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for EmberError.
func (e *EmberError) Is(target error) bool {
	var t *EmberError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Validation-class errors. These are resolved inside the send flow before
// any signing backend is invoked.
var (
	ErrInvalidRecipientAddress = &EmberError{
		Code:     "INVALID_RECIPIENT_ADDRESS",
		Message:  "recipient address is not a valid Ethereum address",
		ExitCode: ExitInput,
	}

	ErrInsufficientBalance = &EmberError{
		Code:     "INSUFFICIENT_BALANCE",
		Message:  "balance does not cover the transfer amount",
		ExitCode: ExitPermission,
	}

	ErrInsufficientForFees = &EmberError{
		Code:     "INSUFFICIENT_FOR_FEES",
		Message:  "balance does not cover the transfer amount plus network fees",
		ExitCode: ExitPermission,
	}

	ErrFeeUnavailable = &EmberError{
		Code:     "FEE_UNAVAILABLE",
		Message:  "no gas price option has resolved yet",
		ExitCode: ExitGeneral,
	}

	ErrInvalidAmount = &EmberError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount format",
		ExitCode: ExitInput,
	}
)

// Backend-class errors. These are normalized at the signing dispatcher
// boundary from whatever the backend reported.
var (
	ErrProviderUnavailable = &EmberError{
		Code:     "PROVIDER_UNAVAILABLE",
		Message:  "no injected provider is available in this environment",
		ExitCode: ExitBackend,
	}

	ErrChainMismatch = &EmberError{
		Code:     "CHAIN_MISMATCH",
		Message:  "device signed for a different chain than requested",
		ExitCode: ExitBackend,
	}

	ErrDevicePopupBlocked = &EmberError{
		Code:     "DEVICE_POPUP_BLOCKED",
		Message:  "device confirmation popup was blocked",
		ExitCode: ExitBackend,
	}

	ErrBackendRejected = &EmberError{
		Code:     "BACKEND_REJECTED",
		Message:  "transaction was rejected by the user or backend",
		ExitCode: ExitBackend,
	}

	ErrNetworkError = &EmberError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}
)

// Engine errors.
var (
	ErrUnknownBackend = &EmberError{
		Code:     "UNKNOWN_BACKEND",
		Message:  "unknown signing backend",
		ExitCode: ExitInput,
	}

	ErrPriceUnavailable = &EmberError{
		Code:     "PRICE_UNAVAILABLE",
		Message:  "no price entry for the selected currency and asset",
		ExitCode: ExitNotFound,
	}

	ErrAssetNotFound = &EmberError{
		Code:     "ASSET_NOT_FOUND",
		Message:  "asset not found in account snapshot",
		ExitCode: ExitNotFound,
	}

	ErrFlowClosed = &EmberError{
		Code:     "FLOW_CLOSED",
		Message:  "send flow has been closed",
		ExitCode: ExitGeneral,
	}

	ErrInvalidPhase = &EmberError{
		Code:     "INVALID_PHASE",
		Message:  "operation not permitted in the current flow phase",
		ExitCode: ExitGeneral,
	}

	ErrConfigInvalid = &EmberError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}
)

// New creates a new EmberError with the given code and message.
func New(code, message string) *EmberError {
	return &EmberError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var ee *EmberError
	if errors.As(err, &ee) {
		return &EmberError{
			Code:       ee.Code,
			Message:    fmt.Sprintf("%s: %s", msg, ee.Message),
			Details:    ee.Details,
			Suggestion: ee.Suggestion,
			Cause:      err,
			ExitCode:   ee.ExitCode,
		}
	}

	return &EmberError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var ee *EmberError
	if errors.As(err, &ee) {
		return &EmberError{
			Code:       ee.Code,
			Message:    ee.Message,
			Details:    details,
			Suggestion: ee.Suggestion,
			Cause:      ee.Cause,
			ExitCode:   ee.ExitCode,
		}
	}

	return &EmberError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var ee *EmberError
	if errors.As(err, &ee) {
		return &EmberError{
			Code:       ee.Code,
			Message:    ee.Message,
			Details:    ee.Details,
			Suggestion: suggestion,
			Cause:      ee.Cause,
			ExitCode:   ee.ExitCode,
		}
	}

	return &EmberError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// WithCause attaches a backend-specific cause to a sentinel, preserving
// the sentinel's code so errors.Is still matches it.
func WithCause(sentinel *EmberError, cause error) error {
	if cause == nil {
		return sentinel
	}
	return &EmberError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		Suggestion: sentinel.Suggestion,
		Cause:      cause,
		ExitCode:   sentinel.ExitCode,
	}
}

// ExitCodeFor returns the appropriate exit code for an error.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ee *EmberError
	if errors.As(err, &ee) {
		return ee.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var ee *EmberError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
