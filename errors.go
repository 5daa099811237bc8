//
// Copyright 2018-2025 Cristian Maglie. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package zipfetcher

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"os"
	"syscall"
)

// Stage identifies the phase of a fetch that produced an error.
type Stage string

const (
	// StageRequest covers synchronous rejections made by Fetch.
	StageRequest Stage = "request"
	// StageTransport covers the download phase.
	StageTransport Stage = "transport"
	// StageExtraction covers the unzip phase.
	StageExtraction Stage = "extraction"
)

// ErrorCode classifies a fetch failure. Codes are strings so they read
// well in logs.
type ErrorCode string

const (
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeBusy         ErrorCode = "BUSY"
	CodeCanceled     ErrorCode = "CANCELED"

	CodeNetwork    ErrorCode = "NETWORK_ERROR"
	CodeHTTPStatus ErrorCode = "HTTP_STATUS"
	CodeTimeout    ErrorCode = "TIMEOUT"
	CodeRejected   ErrorCode = "REJECTED"

	CodeNotArchive       ErrorCode = "NOT_ARCHIVE"
	CodeCorruptArchive   ErrorCode = "CORRUPT_ARCHIVE"
	CodeUnsupportedEntry ErrorCode = "UNSUPPORTED_ENTRY"
	CodeUnsafePath       ErrorCode = "UNSAFE_PATH"
	CodeNotWritable      ErrorCode = "NOT_WRITABLE"
	CodeNoSpace          ErrorCode = "NO_SPACE"
	CodeDestinationBusy  ErrorCode = "DESTINATION_BUSY"
	CodeWriteFailed      ErrorCode = "WRITE_FAILED"
)

// ErrBusy is wrapped by the error returned when a fetch is requested while
// another one is still running.
var ErrBusy = errors.New("a fetch is already in progress")

// Error is the error type reported for every failed fetch.
type Error struct {
	Stage Stage
	Code  ErrorCode
	// Op is a short description of what was being done, e.g. the entry
	// being extracted or the URL being fetched.
	Op  string
	Err error
}

func (e *Error) Error() string {
	msg := string(e.Stage) + " failed"
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsTransportError reports whether err happened while downloading.
func IsTransportError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Stage == StageTransport
}

// IsExtractionError reports whether err happened while extracting.
func IsExtractionError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Stage == StageExtraction
}

func transportError(op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Stage: StageTransport, Code: classifyTransport(err), Op: op, Err: err}
}

func classifyTransport(err error) ErrorCode {
	var statusErr *StatusError
	var netErr net.Error
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, os.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.As(err, &statusErr):
		return CodeHTTPStatus
	case errors.Is(err, ErrRejected):
		return CodeRejected
	case errors.As(err, &netErr) && netErr.Timeout():
		return CodeTimeout
	case errors.As(err, &pathErr):
		// the spool file could not be written
		return classifyWrite(err)
	default:
		return CodeNetwork
	}
}

func extractionError(op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Stage: StageExtraction, Code: classifyWrite(err), Op: op, Err: err}
}

func classifyWrite(err error) ErrorCode {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EROFS):
		return CodeNotWritable
	case errors.Is(err, syscall.ENOSPC):
		return CodeNoSpace
	default:
		return CodeWriteFailed
	}
}
