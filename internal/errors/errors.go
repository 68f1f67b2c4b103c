// Package errors provides standardized error types for the certnginx tool.
//
// The errors package defines domain-specific error types that enable
// structured error handling and consistent error messages throughout
// the application.
//
// # Error Types
//
// CertError is the primary error type, containing:
//   - Code: Categorizes the error (PARSE, NO_MATCH, AMBIGUOUS, etc.)
//   - Message: Human-readable error description
//   - Domain: The domain name involved (if applicable)
//   - File: The configuration file involved (if applicable)
//   - Err: The underlying wrapped error (if any)
//
// # Error Codes
//
// The codes mirror the failure taxonomy of the configurator:
//
//	PARSE               malformed configuration text
//	NO_MATCH            no server block serves the requested domain
//	AMBIGUOUS           several server blocks tie for the requested domain
//	CONFLICT            a mutation would overwrite a differently-valued managed directive
//	MISCONFIG           nginx rejected the configuration, or restart failed
//	LOCK_HELD           another process owns the server-root working directory
//	UNSUPPORTED_VERSION the installed nginx predates the supported floor
//
// # Usage
//
// Creating domain-specific errors:
//
//	return errors.NoMatch("example.com")
//	return errors.Ambiguous("example.com", candidates)
//	return errors.Conflict("example.com", "ssl_trusted_certificate differs")
//	return errors.Wrap(errors.ErrCodeMisconfig, "nginx -t failed", err)
//
// # Error Checking
//
// Use errors.Is for code comparison against the sentinels:
//
//	if errors.Is(err, errors.ErrNoMatch) {
//	    // no vhost serves this name
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes errors for programmatic handling.
type ErrorCode string

// Error codes for different error categories.
const (
	ErrCodeParse       ErrorCode = "PARSE"               // Malformed configuration text
	ErrCodeNoMatch     ErrorCode = "NO_MATCH"            // No server block matches the domain
	ErrCodeAmbiguous   ErrorCode = "AMBIGUOUS"           // Multiple server blocks tie
	ErrCodeConflict    ErrorCode = "CONFLICT"            // Managed directive value conflict
	ErrCodeMisconfig   ErrorCode = "MISCONFIG"           // nginx validation or restart failed
	ErrCodeLockHeld    ErrorCode = "LOCK_HELD"           // Working directory lock unavailable
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED_VERSION" // nginx version below supported floor
	ErrCodeValidation  ErrorCode = "VALIDATION"          // Input validation failed
	ErrCodeRevert      ErrorCode = "REVERT"              // Checkpoint or rollback failure
	ErrCodeInternal    ErrorCode = "INTERNAL"            // Internal/unexpected error
)

// CertError represents a structured error with context about the operation.
type CertError struct {
	Code    ErrorCode // Error category
	Message string    // Human-readable message
	Domain  string    // Domain name (if applicable)
	File    string    // Configuration file path (if applicable)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface.
func (e *CertError) Error() string {
	var b strings.Builder
	if e.Domain != "" {
		fmt.Fprintf(&b, "domain %s: ", e.Domain)
	}
	b.WriteString(e.Message)
	if e.File != "" {
		fmt.Fprintf(&b, " (in %s)", e.File)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain traversal.
func (e *CertError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error.
// Comparison is based on error code.
func (e *CertError) Is(target error) bool {
	t, ok := target.(*CertError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel errors for common error scenarios.
// Use these with errors.Is() for error checking.
var (
	// ErrParse indicates the configuration text could not be parsed.
	ErrParse = &CertError{Code: ErrCodeParse, Message: "parse error"}

	// ErrNoMatch indicates no server block serves the requested domain.
	ErrNoMatch = &CertError{Code: ErrCodeNoMatch, Message: "no matching server block"}

	// ErrAmbiguous indicates several server blocks tie for the requested domain.
	ErrAmbiguous = &CertError{Code: ErrCodeAmbiguous, Message: "ambiguous server block match"}

	// ErrConflict indicates a mutation would overwrite a managed directive
	// that carries a different value.
	ErrConflict = &CertError{Code: ErrCodeConflict, Message: "conflicting managed directive"}

	// ErrMisconfig indicates nginx rejected the configuration or failed to restart.
	ErrMisconfig = &CertError{Code: ErrCodeMisconfig, Message: "nginx misconfiguration"}

	// ErrLockHeld indicates another process owns the server-root lock.
	ErrLockHeld = &CertError{Code: ErrCodeLockHeld, Message: "server root in use by another process"}

	// ErrUnsupportedVersion indicates the installed nginx is too old.
	ErrUnsupportedVersion = &CertError{Code: ErrCodeUnsupported, Message: "nginx version not supported"}
)

// Parse creates a parse error for the given file, line, and reason.
func Parse(file string, line int, reason string) error {
	return &CertError{
		Code:    ErrCodeParse,
		Message: fmt.Sprintf("line %d: %s", line, reason),
		File:    file,
	}
}

// NoMatch creates an error for a domain no server block serves.
func NoMatch(domain string) error {
	return &CertError{
		Code:    ErrCodeNoMatch,
		Message: "no matching server block",
		Domain:  domain,
	}
}

// Ambiguous creates an error naming the server blocks that tie for a domain.
// Candidates are free-form descriptions (file path plus names) so the caller
// can surface them without importing the vhost package.
func Ambiguous(domain string, candidates []string) error {
	return &CertError{
		Code:    ErrCodeAmbiguous,
		Message: fmt.Sprintf("multiple server blocks match: %s", strings.Join(candidates, "; ")),
		Domain:  domain,
	}
}

// Conflict creates an error for a managed directive that already exists
// with a different value.
func Conflict(domain, msg string) error {
	return &CertError{
		Code:    ErrCodeConflict,
		Message: msg,
		Domain:  domain,
	}
}

// LockHeld creates an error naming the lock file another process owns.
func LockHeld(lockPath string) error {
	return &CertError{
		Code:    ErrCodeLockHeld,
		Message: fmt.Sprintf("server root in use by another process (lock file %s)", lockPath),
		File:    lockPath,
	}
}

// Unsupported creates an error for an nginx build below the supported floor.
func Unsupported(version string) error {
	return &CertError{
		Code:    ErrCodeUnsupported,
		Message: fmt.Sprintf("nginx %s is not supported", version),
	}
}

// Validation creates a validation error with a custom message.
func Validation(msg string) error {
	return &CertError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// Wrap creates an error with the specified code, message, and underlying error.
func Wrap(code ErrorCode, msg string, err error) error {
	return &CertError{
		Code:    code,
		Message: msg,
		Err:     err,
	}
}

// WrapDomain creates an error with domain context and underlying error.
func WrapDomain(code ErrorCode, domain, msg string, err error) error {
	return &CertError{
		Code:    code,
		Domain:  domain,
		Message: msg,
		Err:     err,
	}
}

// Is reports whether any error in err's chain matches target.
// This is a re-export of errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
// This is a re-export of errors.As for convenience.
var As = errors.As
