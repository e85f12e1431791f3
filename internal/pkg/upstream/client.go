// Package upstream talks to the drone config store and the log store.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// bytes of a failed upstream body kept for logging
const maxErrorBody = 4 << 10

// Recorder observes upstream calls. Outcome is the HTTP status code, or
// "error" when no response was received.
type Recorder interface {
	ObserveUpstream(upstream, method, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveUpstream(string, string, string, time.Duration) {}

// StatusError is returned when an upstream answers with a non-2xx status.
type StatusError struct {
	Code int
	URL  string
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s answered %d: %s", e.URL, e.Code, bytes.TrimSpace(e.Body))
}

// client is the shared request/response plumbing of both stores.
type client struct {
	name     string
	http     *http.Client
	token    string
	recorder Recorder
}

func newClient(name string, httpClient *http.Client, token string, recorder Recorder) client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return client{name: name, http: httpClient, token: token, recorder: recorder}
}

// do sends the request and decodes a 2xx JSON body into out.
func (c client) do(ctx context.Context, method string, target *url.URL, body interface{}, out interface{}) error {

	var reader io.Reader
	if body != nil {
		data, err := sonic.ConfigStd.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "could not encode upstream request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return errors.Wrapf(err, "could not build %s request", c.name)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.recorder.ObserveUpstream(c.name, method, "error", time.Since(start))
		return errors.Wrapf(err, "%s request failed", c.name)
	}
	defer resp.Body.Close()
	c.recorder.ObserveUpstream(c.name, method, fmt.Sprint(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, URL: target.Redacted(), Body: excerpt}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "could not read %s response", c.name)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("null")
	}

	if err := sonic.ConfigStd.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "could not decode %s response", c.name)
	}

	return nil
}

func parseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid upstream url %q", raw)
	}
	return u, nil
}
