package ca

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/crypto/ocsp"
)

const (
	clientTimeout  = 10 * time.Second
	clientAttempts = 3
	clientDelay    = 250 * time.Millisecond
)

// Client talks to the issuance service. Transient transport failures are
// retried, a refusal by the authority is not.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client against one issuance endpoint, e.g.
// "http://ca.infra.test:80".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: clientTimeout},
	}
}

// Issue requests a leaf certificate. All failures are reported as
// IssuanceError naming the requested hostname.
func (c *Client) Issue(ctx context.Context, req IssueRequest) (*IssuedCertificate, error) {
	hostname := ""
	if len(req.Hostnames) > 0 {
		hostname = req.Hostnames[0]
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &IssuanceError{Hostname: hostname, Cause: err}
	}

	var cert IssuedCertificate

	err = retry.Do(
		func() error {
			body, err := c.post(ctx, c.baseURL+PathIssue, "application/json", payload)
			if err != nil {
				return err
			}

			return json.Unmarshal(body, &cert)
		},
		retry.Attempts(clientAttempts),
		retry.Delay(clientDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, &IssuanceError{Hostname: hostname, Cause: err}
	}

	return &cert, nil
}

// Revoke marks an issued serial as revoked
func (c *Client) Revoke(ctx context.Context, serial string) error {
	payload, err := json.Marshal(revokeRequest{Serial: serial})
	if err != nil {
		return err
	}

	_, err = c.post(ctx, c.baseURL+PathRevoke, "application/json", payload)

	return err
}

// Root downloads the root certificate of the authority
func (c *Client) Root(ctx context.Context) (*x509.CertPool, error) {
	body, err := c.fetchRootPEM(ctx)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(body) {
		return nil, fmt.Errorf("endpoint %s served no usable root certificate", c.baseURL)
	}

	return pool, nil
}

// RootCertificate downloads the root as a parsed certificate, needed as
// OCSP issuer by provisioning.
func (c *Client) RootCertificate(ctx context.Context) (*x509.Certificate, error) {
	body, err := c.fetchRootPEM(ctx)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(body)
	if block == nil {
		return nil, fmt.Errorf("endpoint %s served no usable root certificate", c.baseURL)
	}

	return x509.ParseCertificate(block.Bytes)
}

func (c *Client) fetchRootPEM(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PathRoot, nil)
	if err != nil {
		return nil, err
	}

	response, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	return io.ReadAll(response.Body)
}

// OCSP fetches the DER encoded status response for one certificate, used
// by fixtures that staple.
func (c *Client) OCSP(ctx context.Context, cert, issuer *x509.Certificate) ([]byte, error) {
	request, err := ocsp.CreateRequest(cert, issuer, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build OCSP request: %w", err)
	}

	return c.post(ctx, c.baseURL+PathOCSP, ocspRequestMimeType, request)
}

func (c *Client) post(ctx context.Context, url, contentType string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", contentType)

	response, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		return nil, retry.Unrecoverable(
			fmt.Errorf("endpoint answered %d: %s", response.StatusCode, bytes.TrimSpace(body)))
	}

	return body, nil
}
