// Package workzone implements the TokenSource and PipelineAPI ports against
// the remote pipeline-management service, authenticating every call with the
// client certificate (mutual TLS) and, for API calls, a bearer token.
package workzone

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/docflow/pipectl/internal/domain/model"
)

// maxNetworkRetries bounds the transport-level retry. HTTP responses of any
// status are terminal for the attempt; only connection, TLS and timeout
// failures are retried.
const maxNetworkRetries = 2

// newMTLSClient builds an http.Client presenting the stored certificate and
// key on every connection.
func newMTLSClient(cred model.Credential, timeout time.Duration) (*http.Client, error) {
	pair, err := tls.LoadX509KeyPair(cred.CertPath, cred.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{Certificates: []tls.Certificate{pair}},
		},
	}, nil
}

// doWithRetry issues the request built by build, retrying transport failures
// with exponential backoff. build is called once per attempt so request bodies
// are fresh on every try. The response body is fully read and returned.
func doWithRetry(ctx context.Context, httpClient *http.Client, build func() (*http.Request, error)) (int, []byte, error) {
	var status int
	var body []byte

	attempt := func() error {
		req, err := build()
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := httpClient.Do(req.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrNetwork, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: read response: %v", model.ErrNetwork, err)
		}

		status = resp.StatusCode
		body = data
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxNetworkRetries),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		return 0, nil, err
	}
	return status, body, nil
}
