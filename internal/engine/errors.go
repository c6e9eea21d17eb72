package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/reel/internal/ir"
)

// LedgerError is a rejected operation.
//
// Every rejection carries a Code naming the exact failed check and the Kind
// that groups related codes. A LedgerError always means the operation was
// aborted with no mutation and no event.
type LedgerError struct {
	// Code identifies the failed check.
	Code ErrorCode

	// Kind is the category the code belongs to.
	Kind ErrorKind

	// Message is a human-readable description.
	Message string

	// Operation is the operation that was rejected, set by the dispatcher.
	Operation string

	// Address is the record the check was evaluated against, if any.
	Address ir.Address

	// Field names the offending input for validation errors.
	Field string
}

// ErrorKind groups error codes.
type ErrorKind string

const (
	KindValidation       ErrorKind = "ValidationError"
	KindDuplicateAddress ErrorKind = "DuplicateAddressError"
	KindAuthorization    ErrorKind = "AuthorizationError"
	KindCapacity         ErrorKind = "CapacityError"
	KindDuplicateAction  ErrorKind = "DuplicateActionError"
	KindState            ErrorKind = "StateError"
	KindNotFound         ErrorKind = "NotFoundError"
)

// ErrorCode names a specific failed check.
type ErrorCode string

const (
	CodeEmptyUsername       ErrorCode = "EmptyUsername"
	CodeEmptyProfileURL     ErrorCode = "EmptyProfileUrl"
	CodeEmptyDescription    ErrorCode = "EmptyDescription"
	CodeEmptyVideoURL       ErrorCode = "EmptyVideoUrl"
	CodeEmptyCommentText    ErrorCode = "EmptyCommentText"
	CodeTextTooLong         ErrorCode = "TextTooLong"
	CodeInvalidText         ErrorCode = "InvalidText"
	CodeAddressAlreadyInUse ErrorCode = "AddressAlreadyInUse"
	CodeUnauthorizedAction  ErrorCode = "UnauthorizedAction"
	CodeMissingCaller       ErrorCode = "MissingCaller"
	CodeMaxLikesReached     ErrorCode = "MaxLikesReached"
	CodeAlreadyLiked        ErrorCode = "AlreadyLiked"
	CodeVideoRemoved        ErrorCode = "VideoRemoved"
	CodeAccountNotFound     ErrorCode = "AccountNotFound"
)

var codeKinds = map[ErrorCode]ErrorKind{
	CodeEmptyUsername:       KindValidation,
	CodeEmptyProfileURL:     KindValidation,
	CodeEmptyDescription:    KindValidation,
	CodeEmptyVideoURL:       KindValidation,
	CodeEmptyCommentText:    KindValidation,
	CodeTextTooLong:         KindValidation,
	CodeInvalidText:         KindValidation,
	CodeAddressAlreadyInUse: KindDuplicateAddress,
	CodeUnauthorizedAction:  KindAuthorization,
	CodeMissingCaller:       KindAuthorization,
	CodeMaxLikesReached:     KindCapacity,
	CodeAlreadyLiked:        KindDuplicateAction,
	CodeVideoRemoved:        KindState,
	CodeAccountNotFound:     KindNotFound,
}

var codeMessages = map[ErrorCode]string{
	CodeEmptyUsername:       "Username cannot be empty",
	CodeEmptyProfileURL:     "Profile URL cannot be empty",
	CodeEmptyDescription:    "Video description cannot be empty",
	CodeEmptyVideoURL:       "Video URL cannot be empty",
	CodeEmptyCommentText:    "Comment text cannot be empty",
	CodeTextTooLong:         "Text exceeds the maximum length",
	CodeInvalidText:         "Text is not valid UTF-8",
	CodeAddressAlreadyInUse: "Address is already in use",
	CodeUnauthorizedAction:  "Only the video owner can perform this action",
	CodeMissingCaller:       "Caller identity is required",
	CodeMaxLikesReached:     "Cannot receive more than 5 likes",
	CodeAlreadyLiked:        "User has already liked the video",
	CodeVideoRemoved:        "This video has been removed due to community guidelines",
	CodeAccountNotFound:     "Account does not exist",
}

// Sentinels for errors.Is. Matching compares codes only.
var (
	ErrEmptyUsername       = &LedgerError{Code: CodeEmptyUsername, Kind: KindValidation}
	ErrEmptyProfileURL     = &LedgerError{Code: CodeEmptyProfileURL, Kind: KindValidation}
	ErrEmptyDescription    = &LedgerError{Code: CodeEmptyDescription, Kind: KindValidation}
	ErrEmptyVideoURL       = &LedgerError{Code: CodeEmptyVideoURL, Kind: KindValidation}
	ErrEmptyCommentText    = &LedgerError{Code: CodeEmptyCommentText, Kind: KindValidation}
	ErrTextTooLong         = &LedgerError{Code: CodeTextTooLong, Kind: KindValidation}
	ErrInvalidText         = &LedgerError{Code: CodeInvalidText, Kind: KindValidation}
	ErrAddressAlreadyInUse = &LedgerError{Code: CodeAddressAlreadyInUse, Kind: KindDuplicateAddress}
	ErrUnauthorizedAction  = &LedgerError{Code: CodeUnauthorizedAction, Kind: KindAuthorization}
	ErrMissingCaller       = &LedgerError{Code: CodeMissingCaller, Kind: KindAuthorization}
	ErrMaxLikesReached     = &LedgerError{Code: CodeMaxLikesReached, Kind: KindCapacity}
	ErrAlreadyLiked        = &LedgerError{Code: CodeAlreadyLiked, Kind: KindDuplicateAction}
	ErrVideoRemoved        = &LedgerError{Code: CodeVideoRemoved, Kind: KindState}
	ErrAccountNotFound     = &LedgerError{Code: CodeAccountNotFound, Kind: KindNotFound}
)

// Error implements the error interface.
func (e *LedgerError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = codeMessages[e.Code]
	}
	if e.Operation != "" {
		return fmt.Sprintf("%s: %s: %s", e.Operation, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Is reports whether target is a LedgerError with the same code.
func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// newError builds a LedgerError with the default message for code.
func newError(code ErrorCode) *LedgerError {
	return &LedgerError{
		Code:    code,
		Kind:    codeKinds[code],
		Message: codeMessages[code],
	}
}

func (e *LedgerError) at(addr ir.Address) *LedgerError {
	e.Address = addr
	return e
}

func textTooLong(field string, got, limit int) *LedgerError {
	e := newError(CodeTextTooLong)
	e.Field = field
	e.Message = fmt.Sprintf("%s is %d bytes, limit is %d", field, got, limit)
	return e
}

func invalidText(field string) *LedgerError {
	e := newError(CodeInvalidText)
	e.Field = field
	e.Message = field + " is not valid UTF-8"
	return e
}

// KindOf returns the kind of a LedgerError anywhere in err's chain, or "".
func KindOf(err error) ErrorKind {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// CodeOf returns the code of a LedgerError anywhere in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsKind reports whether err is a LedgerError of the given kind.
// Uses errors.As to handle wrapped errors.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IsRejection reports whether err is a ledger rule rejection as opposed to an
// infrastructure failure.
func IsRejection(err error) bool {
	var le *LedgerError
	return errors.As(err, &le)
}
