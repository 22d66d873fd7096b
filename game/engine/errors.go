package engine

import (
	"errors"
	"fmt"
)

// Code is a machine-readable rejection reason
type Code string

const (
	CodeUnknown             Code = "UNKNOWN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeInvalidAirport      Code = "INVALID_AIRPORT"
	CodeInsufficientFuel    Code = "INSUFFICIENT_FUEL"
	CodeMaxAttemptsExceeded Code = "MAX_ATTEMPTS_EXCEEDED"
	CodeLimitExceeded       Code = "LIMIT_EXCEEDED"
	CodeFuelUnavailable     Code = "FUEL_UNAVAILABLE"
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeAlreadyConcluded    Code = "ALREADY_CONCLUDED"
	CodeAlreadyExists       Code = "ALREADY_EXISTS"
	CodeStorageUnavailable  Code = "STORAGE_UNAVAILABLE"
)

// ErrRecordNotFound is returned (wrapped) by stores when a row does not exist
var ErrRecordNotFound = errors.New("record not found")

// Sentinels for errors.Is; they match any *Error carrying the same code.
var (
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrInvalidAirport      = &Error{Code: CodeInvalidAirport}
	ErrInsufficientFuel    = &Error{Code: CodeInsufficientFuel}
	ErrMaxAttemptsExceeded = &Error{Code: CodeMaxAttemptsExceeded}
	ErrLimitExceeded       = &Error{Code: CodeLimitExceeded}
	ErrFuelUnavailable     = &Error{Code: CodeFuelUnavailable}
	ErrInvalidInput        = &Error{Code: CodeInvalidInput}
	ErrAlreadyConcluded    = &Error{Code: CodeAlreadyConcluded}
	ErrAlreadyExists       = &Error{Code: CodeAlreadyExists}
	ErrStorageUnavailable  = &Error{Code: CodeStorageUnavailable}
)

// Error is a typed rejection. Required and Available carry the quantities
// involved (fuel needed vs held, units requested vs cap) when relevant.
type Error struct {
	Code      Code    `json:"code"`
	Message   string  `json:"message"`
	Required  float64 `json:"required,omitempty"`
	Available float64 `json:"available,omitempty"`
	Err       error   `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf extracts the rejection code from err, or CodeUnknown
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func insufficientFuel(required, available float64) *Error {
	return &Error{
		Code:      CodeInsufficientFuel,
		Message:   fmt.Sprintf("not enough fuel: need %.2f units but only have %.2f", required, available),
		Required:  required,
		Available: available,
	}
}

// storageError classifies an error returned by a Store
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, ErrRecordNotFound) {
		return &Error{Code: CodeNotFound, Message: op, Err: err}
	}
	return &Error{Code: CodeStorageUnavailable, Message: op, Err: err}
}
