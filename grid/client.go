package grid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/0xERR0R/canarynet/log"

	"github.com/sirupsen/logrus"
)

// Client drives browser sessions over the W3C WebDriver protocol. Each
// new session goes to the endpoint the balancer picks.
type Client struct {
	balancer *Balancer
	browser  string
	http     *http.Client
	logger   *logrus.Entry
}

// NewClient creates a WebDriver client for one browser flavor
func NewClient(balancer *Balancer, browser string, sessionTimeout time.Duration) *Client {
	return &Client{
		balancer: balancer,
		browser:  browser,
		http:     &http.Client{Timeout: sessionTimeout},
		logger:   log.PrefixedLog("grid"),
	}
}

// SessionError reports a failed interaction with one grid endpoint
type SessionError struct {
	Endpoint string
	Cause    error
}

// Error implements `error`.
func (e *SessionError) Error() string {
	return fmt.Sprintf("grid endpoint '%s': %v", e.Endpoint, e.Cause)
}

// Unwrap implements the errors unwrap interface.
func (e *SessionError) Unwrap() error {
	return e.Cause
}

// Session is one live browser automation session
type Session struct {
	ID       string
	Endpoint string
	client   *Client
}

type webdriverValue struct {
	Value json.RawMessage `json:"value"`
}

type webdriverError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type newSessionResult struct {
	SessionID string `json:"sessionId"`
}

// NewSession opens a session on a balanced endpoint. Failures de-weight
// the endpoint for subsequent picks.
func (c *Client) NewSession(ctx context.Context) (*Session, error) {
	endpoint := c.balancer.Pick()

	payload := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": map[string]interface{}{
				"browserName":         c.browser,
				"acceptInsecureCerts": true,
			},
		},
	}

	value, err := c.call(ctx, http.MethodPost, endpoint+"/session", payload)
	if err != nil {
		c.balancer.ReportFailure(endpoint)

		return nil, &SessionError{Endpoint: endpoint, Cause: err}
	}

	var result newSessionResult
	if err := json.Unmarshal(value, &result); err != nil || result.SessionID == "" {
		c.balancer.ReportFailure(endpoint)

		return nil, &SessionError{Endpoint: endpoint, Cause: fmt.Errorf("no session id in response")}
	}

	c.logger.Debugf("session %s opened on %s", result.SessionID, endpoint)

	return &Session{ID: result.SessionID, Endpoint: endpoint, client: c}, nil
}

// Ready checks whether an endpoint accepts new sessions
func (c *Client) Ready(ctx context.Context, endpoint string) error {
	value, err := c.call(ctx, http.MethodGet, endpoint+"/status", nil)
	if err != nil {
		return err
	}

	var status struct {
		Ready bool `json:"ready"`
	}

	if err := json.Unmarshal(value, &status); err != nil {
		return err
	}

	if !status.Ready {
		return fmt.Errorf("endpoint '%s' is not ready", endpoint)
	}

	return nil
}

// Navigate loads a URL in the session's browser
func (s *Session) Navigate(ctx context.Context, url string) error {
	_, err := s.client.call(ctx, http.MethodPost,
		fmt.Sprintf("%s/session/%s/url", s.Endpoint, s.ID),
		map[string]interface{}{"url": url})
	if err != nil {
		return &SessionError{Endpoint: s.Endpoint, Cause: err}
	}

	return nil
}

// Execute runs a synchronous script in the page and returns its result
func (s *Session) Execute(ctx context.Context, script string, args ...interface{}) (json.RawMessage, error) {
	if args == nil {
		args = []interface{}{}
	}

	value, err := s.client.call(ctx, http.MethodPost,
		fmt.Sprintf("%s/session/%s/execute/sync", s.Endpoint, s.ID),
		map[string]interface{}{"script": script, "args": args})
	if err != nil {
		return nil, &SessionError{Endpoint: s.Endpoint, Cause: err}
	}

	return value, nil
}

// Close ends the session
func (s *Session) Close(ctx context.Context) error {
	_, err := s.client.call(ctx, http.MethodDelete,
		fmt.Sprintf("%s/session/%s", s.Endpoint, s.ID), nil)
	if err != nil {
		return &SessionError{Endpoint: s.Endpoint, Cause: err}
	}

	s.client.logger.Debugf("session %s closed", s.ID)

	return nil
}

func (c *Client) call(ctx context.Context, method, url string, payload interface{}) (json.RawMessage, error) {
	var body io.Reader

	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}

		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	response, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	var value webdriverValue
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("unparsable response (%d): %s", response.StatusCode, bytes.TrimSpace(raw))
	}

	if response.StatusCode != http.StatusOK {
		var wdErr webdriverError
		if err := json.Unmarshal(value.Value, &wdErr); err == nil && wdErr.Error != "" {
			return nil, fmt.Errorf("%s: %s", wdErr.Error, wdErr.Message)
		}

		return nil, fmt.Errorf("endpoint answered %d", response.StatusCode)
	}

	return value.Value, nil
}
