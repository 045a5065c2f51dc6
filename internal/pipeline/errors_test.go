package pipeline

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"deadline exceeded", context.DeadlineExceeded, ErrorTimeout},
		{"wrapped deadline", fmt.Errorf("visit: %w", context.DeadlineExceeded), ErrorTimeout},
		{"dns timeout", &net.DNSError{Err: "i/o timeout", IsTimeout: true}, ErrorTimeout},
		{"dns not found", &net.DNSError{Err: "no such host"}, ErrorConnection},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, ErrorConnection},
		{"url error wrapping op error", &url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "dial", Err: errors.New("refused")}}, ErrorConnection},
		{"tls verification", &tls.CertificateVerificationError{Err: x509.UnknownAuthorityError{}}, ErrorSSLVerification},
		{"unknown authority", x509.UnknownAuthorityError{}, ErrorSSLVerification},
		{"hostname mismatch", x509.HostnameError{Host: "example.com"}, ErrorSSLVerification},
		{"expired certificate", x509.CertificateInvalidError{Reason: x509.Expired}, ErrorSSLVerification},
		{"canceled", context.Canceled, ErrorCanceled},
		{"plain error", errors.New("boom"), ErrorOther},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tc.err)
			require.NotNil(t, got)
			require.Equal(t, tc.want, got.Kind)
			require.ErrorIs(t, got, tc.err)
		})
	}
}

func TestClassifyNil(t *testing.T) {
	t.Parallel()
	require.Nil(t, Classify(nil))
}

func TestClassifyPassesThroughFetchError(t *testing.T) {
	t.Parallel()

	original := &FetchError{Kind: ErrorHTTPStatus, Code: 404}
	require.Same(t, original, Classify(original))
	require.Same(t, original, Classify(fmt.Errorf("wrapped: %w", original)))
}

func TestFetchErrorRetryable(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  *FetchError
		want bool
	}{
		{"timeout", &FetchError{Kind: ErrorTimeout}, true},
		{"connection", &FetchError{Kind: ErrorConnection}, true},
		{"server error", &FetchError{Kind: ErrorHTTPStatus, Code: 503}, true},
		{"client error", &FetchError{Kind: ErrorHTTPStatus, Code: 404}, false},
		{"ssl", &FetchError{Kind: ErrorSSLVerification}, false},
		{"canceled", &FetchError{Kind: ErrorCanceled}, false},
		{"other", &FetchError{Kind: ErrorOther}, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, tc.err.Retryable())
		})
	}
}

func TestFetchErrorMessage(t *testing.T) {
	t.Parallel()

	require.Equal(t, "http_status 404", (&FetchError{Kind: ErrorHTTPStatus, Code: 404}).Error())
	require.Equal(t, "timeout: context deadline exceeded",
		(&FetchError{Kind: ErrorTimeout, Err: context.DeadlineExceeded}).Error())
	require.Equal(t, "ssl_verification", (&FetchError{Kind: ErrorSSLVerification}).Error())
}
