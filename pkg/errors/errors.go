package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies an application error. The string form is the "error" field
// of JSON error bodies.
type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindNotFound         Kind = "not_found"
	KindAlreadyExists    Kind = "already_exists"
	KindUnauthorized     Kind = "unauthorized"
	KindPermissionDenied Kind = "permission_denied"
	KindInternal         Kind = "internal_error"
)

var kindStatus = map[Kind]struct {
	http int
	grpc codes.Code
}{
	KindValidation:       {http.StatusBadRequest, codes.InvalidArgument},
	KindNotFound:         {http.StatusNotFound, codes.NotFound},
	KindAlreadyExists:    {http.StatusConflict, codes.AlreadyExists},
	KindUnauthorized:     {http.StatusUnauthorized, codes.Unauthenticated},
	KindPermissionDenied: {http.StatusForbidden, codes.PermissionDenied},
	KindInternal:         {http.StatusInternalServerError, codes.Internal},
}

// HTTPStatus maps the kind onto a response status.
func (k Kind) HTTPStatus() int {
	if s, ok := kindStatus[k]; ok {
		return s.http
	}
	return http.StatusInternalServerError
}

// GRPCCode maps the kind onto a gRPC status code.
func (k Kind) GRPCCode() codes.Code {
	if s, ok := kindStatus[k]; ok {
		return s.grpc
	}
	return codes.Unknown
}

// Kinder is implemented by every error in this package.
type Kinder interface {
	Kind() Kind
}

// ValidationError is a rejected input, optionally tied to a field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s - %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

func (e *ValidationError) Kind() Kind                 { return KindValidation }
func (e *ValidationError) HTTPStatus() int            { return KindValidation.HTTPStatus() }
func (e *ValidationError) GRPCStatus() *status.Status { return status.New(codes.InvalidArgument, e.Error()) }

// NotFoundError reports a missing resource, or one outside the caller's organization.
type NotFoundError struct {
	Resource string
	Message  string
}

func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: message}
}

func (e *NotFoundError) Error() string {
	if e.Message == "" {
		return e.Resource + " not found"
	}
	return e.Message
}

func (e *NotFoundError) Kind() Kind                 { return KindNotFound }
func (e *NotFoundError) HTTPStatus() int            { return KindNotFound.HTTPStatus() }
func (e *NotFoundError) GRPCStatus() *status.Status { return status.New(codes.NotFound, e.Error()) }

// AlreadyExistsError reports a uniqueness conflict (email, project name).
type AlreadyExistsError struct {
	Resource string
	Message  string
}

func NewAlreadyExistsError(resource, message string) *AlreadyExistsError {
	return &AlreadyExistsError{Resource: resource, Message: message}
}

func (e *AlreadyExistsError) Error() string {
	if e.Message == "" {
		return e.Resource + " already exists"
	}
	return e.Message
}

func (e *AlreadyExistsError) Kind() Kind                 { return KindAlreadyExists }
func (e *AlreadyExistsError) HTTPStatus() int            { return KindAlreadyExists.HTTPStatus() }
func (e *AlreadyExistsError) GRPCStatus() *status.Status { return status.New(codes.AlreadyExists, e.Error()) }

// UnauthorizedError is returned when credentials are missing or wrong.
type UnauthorizedError struct {
	Message string
}

func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

func (e *UnauthorizedError) Error() string              { return e.Message }
func (e *UnauthorizedError) Kind() Kind                 { return KindUnauthorized }
func (e *UnauthorizedError) HTTPStatus() int            { return KindUnauthorized.HTTPStatus() }
func (e *UnauthorizedError) GRPCStatus() *status.Status { return status.New(codes.Unauthenticated, e.Message) }

// PermissionDeniedError is returned when an authenticated caller lacks rights.
type PermissionDeniedError struct {
	Message string
}

func NewPermissionDeniedError(message string) *PermissionDeniedError {
	return &PermissionDeniedError{Message: message}
}

func (e *PermissionDeniedError) Error() string   { return e.Message }
func (e *PermissionDeniedError) Kind() Kind      { return KindPermissionDenied }
func (e *PermissionDeniedError) HTTPStatus() int { return KindPermissionDenied.HTTPStatus() }
func (e *PermissionDeniedError) GRPCStatus() *status.Status {
	return status.New(codes.PermissionDenied, e.Message)
}

// InternalError carries a client-safe Message and the underlying cause.
type InternalError struct {
	Message string
	Err     error
}

func NewInternalError(message string, err error) *InternalError {
	return &InternalError{Message: message, Err: err}
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error   { return e.Err }
func (e *InternalError) Kind() Kind      { return KindInternal }
func (e *InternalError) HTTPStatus() int { return KindInternal.HTTPStatus() }

// GRPCStatus omits the cause.
func (e *InternalError) GRPCStatus() *status.Status {
	return status.New(codes.Internal, e.Message)
}

// KindOf returns the kind of the first classified error in the chain,
// KindInternal when there is none.
func KindOf(err error) Kind {
	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// StatusCode returns the HTTP status for err; unclassified errors are 500.
func StatusCode(err error) int {
	return KindOf(err).HTTPStatus()
}

// PublicMessage returns the text safe to show to clients.
// Internal errors never leak their cause.
func PublicMessage(err error) string {
	var internal *InternalError
	if errors.As(err, &internal) {
		return internal.Message
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Message
	}
	return err.Error()
}
