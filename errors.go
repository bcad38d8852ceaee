// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package tabular

import (
	"errors"
	"fmt"
)

// Stable error codes surfaced to callers. Codes never change between
// releases; messages may.
const (
	CodeInvalidCSV   = "INVALID_CSV"
	CodeInvalidJSON  = "INVALID_JSON"
	CodeInvalidXML   = "INVALID_XML"
	CodeInvalidExcel = "INVALID_EXCEL"

	CodeConversionFailed = "CONVERSION_FAILED"
	CodeInvalidOption    = "INVALID_OPTION"
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeFileUnreadable   = "FILE_UNREADABLE"
	CodeTimeout          = "TIMEOUT"
)

// ParseError is returned when input is malformed for its declared or
// detected format. Line is 1-based for delimited input, Offset a byte
// position for JSON input; both are zero when unknown.
type ParseError struct {
	Format Format
	Code   string
	Line   int
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s input", e.Code, e.Format)
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	if e.Offset > 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConversionError is returned when a writer fails, including requests for
// an output format no encoder handles.
type ConversionError struct {
	OutputFormat Format
	Err          error
}

func (e *ConversionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: cannot write %s output", CodeConversionFailed, e.OutputFormat)
	}
	return fmt.Sprintf("%s: %s output: %v", CodeConversionFailed, e.OutputFormat, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ValidationError is returned when caller-supplied options fail their
// constraints before any parsing or writing happens.
type ValidationError struct {
	Option string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", CodeInvalidOption, e.Option, e.Reason)
}

// FileError is returned for inputs rejected before parsing, on size or
// access grounds.
type FileError struct {
	Code string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Path)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FileError) Unwrap() error { return e.Err }

// TimeoutError is returned when a bounded operation is cancelled or runs
// out of budget.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s: %v", CodeTimeout, e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IsParseError reports whether the error is a ParseError.
func IsParseError(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

// IsTimeout reports whether the error is a TimeoutError.
func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}

// ErrorCode extracts the stable code from any engine error, or "" when
// the error carries none.
func ErrorCode(err error) string {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Code
	}
	var ce *ConversionError
	if errors.As(err, &ce) {
		return CodeConversionFailed
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return CodeInvalidOption
	}
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Code
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return CodeTimeout
	}
	return ""
}
