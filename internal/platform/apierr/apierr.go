package apierr

import "fmt"

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Stable error codes returned to clients. Handlers never invent codes
// inline; every service failure maps to one of these.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeConflict            = "CONFLICT"
	CodeRateLimited         = "RATE_LIMITED"
	CodeDomainNotAllowed    = "DOMAIN_NOT_ALLOWED"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	CodeContextOverflow     = "CONTEXT_OVERFLOW"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeParseError          = "PARSE_ERROR"
	CodeCrawlError          = "CRAWL_ERROR"
	CodeInternal            = "INTERNAL_ERROR"
)

func Validation(err error) *Error      { return New(400, CodeValidation, err) }
func NotFound(err error) *Error        { return New(404, CodeNotFound, err) }
func Forbidden(err error) *Error       { return New(403, CodeForbidden, err) }
func Unauthorized(err error) *Error    { return New(401, CodeUnauthorized, err) }
func Conflict(err error) *Error        { return New(409, CodeConflict, err) }
func PayloadTooLarge(err error) *Error { return New(413, CodePayloadTooLarge, err) }
func ContextOverflow(err error) *Error { return New(422, CodeContextOverflow, err) }
func RateLimited(err error) *Error     { return New(429, CodeRateLimited, err) }
func Provider(err error) *Error        { return New(503, CodeProviderUnavailable, err) }
func Internal(err error) *Error        { return New(500, CodeInternal, err) }
