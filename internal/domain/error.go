package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidArgument    ErrorCode = "INVALID_ARGUMENT"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeNetworkFailure     ErrorCode = "NETWORK_FAILURE"
	CodeUnexpectedResponse ErrorCode = "UNEXPECTED_RESPONSE"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeRequest            ErrorCode = "REQUEST_FAILED"
	CodeRetryable          ErrorCode = "RETRYABLE"
	CodeNoSpecification    ErrorCode = "NO_SPECIFICATION_FOUND"
	CodeArchiveTooLarge    ErrorCode = "ARCHIVE_TOO_LARGE"
	CodeMalformedArchive   ErrorCode = "MALFORMED_ARCHIVE"
	CodeMalformedSpec      ErrorCode = "MALFORMED_SPECIFICATION"
	CodeInternal           ErrorCode = "INTERNAL"
)

type Error struct {
	Code      ErrorCode
	Op        string
	Message   string
	Cause     error
	Retryable bool
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:      code,
		Op:        op,
		Message:   msg,
		Cause:     cause,
		Retryable: code == CodeRetryable,
	}
}

func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Code:      existing.Code,
			Op:        op,
			Message:   existing.Message,
			Cause:     existing.Cause,
			Retryable: existing.Retryable,
		}
	}
	return E(code, op, "", err)
}

func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code, true
	}
	return "", false
}

func IsCode(err error, code ErrorCode) bool {
	got, ok := CodeFrom(err)
	return ok && got == code
}

func IsRetryable(err error) bool {
	var domainErr *Error
	return errors.As(err, &domainErr) && domainErr.Retryable
}
