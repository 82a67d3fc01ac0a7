// Package gateway contains the outbound REST adapters used by the service:
// the domain hosting platform, the transactional email API and the domain
// registrar.  Each adapter is a thin JSON-over-HTTP client constructed once
// at startup and injected into the services that need it.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// ErrUpstream marks any failure talking to a remote API: transport errors
// and non-2xx responses alike.
var ErrUpstream = errors.New("upstream service error")

// ErrNotConfigured is returned by adapters whose base URL or credentials are
// missing from the configuration.
var ErrNotConfigured = errors.New("gateway not configured")

// StatusError carries the HTTP status and the decoded error code of a
// failed call.  It matches ErrUpstream with errors.Is.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("upstream returned %d", e.Status)
}

func (e *StatusError) Is(target error) bool { return target == ErrUpstream }

// errorBody covers the two error shapes seen from the remote APIs:
// {"error":{"code":..,"message":..}} and {"ErrorCode":..,"Message":..}.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

type jsonClient struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

func newJSONClient(baseURL string, timeout time.Duration, headers map[string]string) jsonClient {
	return jsonClient{baseURL: baseURL, client: &http.Client{Timeout: timeout}, headers: headers}
}

// do sends payload (when non-nil) as JSON and decodes a 2xx response into
// out (when non-nil).  Non-2xx responses are returned as *StatusError.
func (c jsonClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		se := &StatusError{Status: res.StatusCode}
		var eb errorBody
		if raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10)); len(raw) > 0 && json.Unmarshal(raw, &eb) == nil {
			se.Code, se.Message = eb.Error.Code, eb.Error.Message
			if se.Code == "" && eb.ErrorCode != 0 {
				se.Code, se.Message = fmt.Sprint(eb.ErrorCode), eb.Message
			}
		}
		return se
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return errors.Wrap(err, "decode response")
		}
	}
	return nil
}

func statusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
