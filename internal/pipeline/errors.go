package pipeline

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
)

// ErrorKind identifies the failure class of a fetch attempt. The
// values double as the kind= labels written to the error log.
type ErrorKind string

const (
	ErrorTimeout         ErrorKind = "timeout"
	ErrorConnection      ErrorKind = "connection"
	ErrorSSLVerification ErrorKind = "ssl_verification"
	ErrorHTTPStatus      ErrorKind = "http_status"
	ErrorCanceled        ErrorKind = "canceled"
	ErrorOther           ErrorKind = "other"
)

// FetchError is the typed failure produced by a fetch client. Code
// carries the HTTP status for ErrorHTTPStatus and is zero otherwise.
type FetchError struct {
	Kind ErrorKind
	Code int
	Err  error
}

func (e *FetchError) Error() string {
	if e.Kind == ErrorHTTPStatus {
		return fmt.Sprintf("http_status %d", e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient. Timeouts,
// connection failures and 5xx responses may succeed on a later
// attempt; 4xx responses and certificate failures will not.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case ErrorTimeout, ErrorConnection:
		return true
	case ErrorHTTPStatus:
		return e.Code >= 500
	default:
		return false
	}
}

// Classify converts a transport error into the typed taxonomy. Errors
// that are already a *FetchError pass through unchanged; anything
// unrecognized becomes ErrorOther.
func Classify(err error) *FetchError {
	if err == nil {
		return nil
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr
	}
	if errors.Is(err, context.Canceled) {
		return &FetchError{Kind: ErrorCanceled, Err: err}
	}
	if isCertificateError(err) {
		return &FetchError{Kind: ErrorSSLVerification, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: ErrorTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: ErrorTimeout, Err: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &FetchError{Kind: ErrorConnection, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &FetchError{Kind: ErrorConnection, Err: err}
	}
	return &FetchError{Kind: ErrorOther, Err: err}
}

func isCertificateError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	var invalidCert x509.CertificateInvalidError
	if errors.As(err, &invalidCert) {
		return true
	}
	return false
}
