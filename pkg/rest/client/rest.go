package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// httpClient allows http.Client to be mocked for tests
type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Generic REST restClient
type restClient struct {
	client  httpClient
	baseURL *url.URL
}

// do performs an HTTP request with this client and returns the response.
func (c *restClient) do(ctx context.Context, method, uri string, body []byte) (*http.Response, error) {
	url := c.baseURL.JoinPath(uri)
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url.String(), r)
	if err != nil {
		return nil, fmt.Errorf("%s for %q: %v", method, url, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.client.Do(req)
}

// doJSON performs an HTTP request with this client, sending in (if not nil) as the JSON request
// body, and marshalls the JSON response into out.  Responses with a status other than those in
// accept, or 200 when accept is empty, are errors.
func (c *restClient) doJSON(
	ctx context.Context, method, uri string, in, out any, accept ...int) (int, error) {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return 0, err
		}
	}
	resp, err := c.do(ctx, method, uri, body)
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()
	if len(accept) == 0 {
		accept = []int{http.StatusOK}
	}
	for _, code := range accept {
		if resp.StatusCode != code {
			continue
		}
		if out == nil {
			return resp.StatusCode, nil
		}
		// Decode response body
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return resp.StatusCode, fmt.Errorf("%s for %q, unexpected %v: %s", method, uri,
		resp.StatusCode, strings.TrimSpace(string(msg)))
}
