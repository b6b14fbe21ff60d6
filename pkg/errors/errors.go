// Package errors defines the error taxonomy shared by the reconciliation
// core, the remote adapters and the CLI.
//
// Typed errors carry the detail a caller acts on, such as the offending lines
// of a rejected push or the HTTP status of a failed call. Each one matches a
// sentinel through errors.Is, so callers branch on the kind of failure
// without a type switch:
//
//	if errors.IsNotFound(err) {
//		// treat the entity as a placeholder
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Aliases of the standard library so callers need a single errors import.
var (
	New  = errors.New
	Join = errors.Join
	Is   = errors.Is
)

// As is errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Sentinels matched by the typed errors below.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrMissingColumn = errors.New("missing column")
	ErrTransient     = errors.New("transient failure")
	ErrRateLimited   = errors.New("rate limited")
	ErrTimeout       = errors.New("operation timed out")
	ErrCanceled      = errors.New("operation canceled")
	ErrPartialSync   = errors.New("partial sync")
	ErrUnauthorized  = errors.New("unauthorized")
)

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// NotFoundError reports a resource the remote or a local store does not have.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError returns a NotFoundError for resource id.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// Problem is one offending input line of an aggregated ValidationError.
type Problem struct {
	Index      int    // zero-based
	ItemNumber string // empty when the item number itself is missing
	Field      string
	Reason     string
}

// String renders the problem with a one-based line number.
func (p Problem) String() string {
	if p.ItemNumber == "" {
		return fmt.Sprintf("line %d: %s", p.Index+1, p.Reason)
	}
	return fmt.Sprintf("line %d (%s): %s", p.Index+1, p.ItemNumber, p.Reason)
}

// ValidationError rejects input. Either Field and Value describe a single
// bad value, or Problems lists every offending line at once.
type ValidationError struct {
	Field    string
	Value    any
	Message  string
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		if e.Field == "" {
			return "invalid input: " + e.Message
		}
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}

	var b strings.Builder
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString("invalid input")
	}
	fmt.Fprintf(&b, " with %d problem(s)", len(e.Problems))
	for i, p := range e.Problems {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(p.String())
	}
	return b.String()
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError rejects a single value.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// NewAggregateValidationError rejects a set of lines with every problem listed.
func NewAggregateValidationError(message string, problems []Problem) *ValidationError {
	return &ValidationError{Message: message, Problems: problems}
}

// MissingColumnError means a required column matched no header, neither by
// name nor fuzzily.
type MissingColumnError struct {
	Column  string
	Headers []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Headers) == 0 {
		return fmt.Sprintf("no %q column in header row", e.Column)
	}
	return fmt.Sprintf("no %q column in header row [%s]", e.Column, strings.Join(e.Headers, ", "))
}

func (e *MissingColumnError) Is(target error) bool { return target == ErrMissingColumn }

// TransientError is a failure worth retrying, for example a timeout or an
// item not yet visible after creation.
type TransientError struct {
	Operation string
	Message   string
	Err       error
}

func (e *TransientError) Error() string {
	msg := e.Operation + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Is(target error) bool { return target == ErrTransient }

// APIError is a non-2xx response of the PLM API. It matches ErrNotFound,
// ErrAlreadyExists, ErrUnauthorized, ErrRateLimited or ErrTransient
// depending on the status.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Service)
	if e.Endpoint != "" {
		b.WriteString(" " + e.Endpoint)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " returned status %d", e.StatusCode)
	} else {
		b.WriteString(" failed")
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Is(target error) bool {
	code := e.StatusCode
	switch target {
	case ErrNotFound:
		return code == 404
	case ErrAlreadyExists:
		return code == 409
	case ErrUnauthorized:
		return code == 401 || code == 403
	case ErrRateLimited:
		return code == 429
	case ErrTransient:
		return code == 429 || code >= 500
	}
	return false
}

// NewAPIError returns an APIError without endpoint or cause.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message}
}

// PartialSyncError means a push deleted the remote lines and then failed
// while recreating them. The remote BOM holds only Created of the lines.
type PartialSyncError struct {
	EntityRef  string
	Index      int
	ItemNumber string
	Deleted    int
	Created    int
	Err        error
}

func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("remote BOM %s left incomplete: line %d (%s) failed after %d lines were recreated: %v",
		e.EntityRef, e.Index+1, e.ItemNumber, e.Created, e.Err)
}

func (e *PartialSyncError) Unwrap() error { return e.Err }

func (e *PartialSyncError) Is(target error) bool { return target == ErrPartialSync }

// ConfigError is an unusable configuration value.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Component == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config %s: %s", e.Component, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError returns a ConfigError for component.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ParseError is malformed json, yaml or csv.
type ParseError struct {
	Format  string
	File    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("parse %s: %s", e.Format, e.Message)
	}
	return fmt.Sprintf("parse %s %s: %s", e.Format, e.File, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError returns a ParseError.
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// IOError is a failed read, write or open of a local path or object.
type IOError struct {
	Operation string
	Path      string
	Message   string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Operation, e.Path, e.Message)
}

func (e *IOError) Unwrap() error { return e.Err }

// ResourceError is a failed operation on a remote item, BOM line or history
// record.
type ResourceError struct {
	Operation string
	Resource  string
	ID        string
	Message   string
	Err       error
}

func (e *ResourceError) Error() string {
	target := e.Resource
	if e.ID != "" {
		target += " " + e.ID
	}
	return fmt.Sprintf("%s %s: %s", e.Operation, target, e.Message)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// NewResourceError returns a ResourceError whose message is err's.
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	return &ResourceError{Operation: operation, Resource: resource, ID: id, Message: causeText(err), Err: err}
}

// IsNotFound reports whether err means the resource does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAlreadyExists reports whether err means the resource exists already.
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }

// IsValidationError reports whether err rejected its input.
func IsValidationError(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsMissingColumn reports whether a required sheet column was not found.
func IsMissingColumn(err error) bool { return errors.Is(err, ErrMissingColumn) }

// IsTransient reports whether retrying err may succeed.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited)
}

// IsRateLimited reports whether the remote throttled the call.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// IsPartialSync reports whether err left a remote BOM incomplete.
func IsPartialSync(err error) bool { return errors.Is(err, ErrPartialSync) }

// IsUnauthorized reports whether the remote rejected the credentials.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsCanceled reports whether the operation was canceled.
func IsCanceled(err error) bool { return errors.Is(err, ErrCanceled) }

// The Wrap helpers return nil for a nil err so they can wrap a call's
// result directly.

// WrapValidation rejects field with err's message.
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps err as an IOError.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Message: err.Error(), Err: err}
}

// WrapResource wraps err as a ResourceError.
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps err as a ParseError.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapTransient wraps err as a TransientError.
func WrapTransient(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Operation: operation, Message: "request failed", Err: err}
}
