// Package client provides a basic REST client for ruled
package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ruled/ruled/pkg/rest/model"
)

// Client accesses the ruled REST API v1
type Client struct {
	restClient
}

// New creates a new v1 REST API client given the base URL of a ruled server, ex:
// "http://localhost:9025"
func New(baseURL string, opts ...func(*ClientOptions)) (*Client, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	options := getDefaultClientOptions()
	for _, opt := range opts {
		opt(options)
	}
	c := &Client{
		restClient{
			client: &http.Client{
				Timeout:   options.timeout,
				Transport: options.transport,
			},
			baseURL: parsedURL,
		},
	}
	return c, nil
}

// Match asks the server to select the rule for env.  A deferred selection is not an error; it
// is reported in the result.
func (c *Client) Match(
	ctx context.Context, env *model.JSONEnvelopeV1) (*model.JSONMatchResultV1, error) {
	result := &model.JSONMatchResultV1{}
	_, err := c.doJSON(ctx, "POST", "/api/v1/match", env, result,
		http.StatusOK, http.StatusServiceUnavailable)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Ruleset returns the ruleset published by the server.
func (c *Client) Ruleset(ctx context.Context) (*model.JSONRulesetV1, error) {
	rs := &model.JSONRulesetV1{}
	if _, err := c.doJSON(ctx, "GET", "/api/v1/ruleset", nil, rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// Reload asks the server to reload its ruleset file, returning the new ruleset.
func (c *Client) Reload(ctx context.Context) (*model.JSONRulesetV1, error) {
	rs := &model.JSONRulesetV1{}
	if _, err := c.doJSON(ctx, "POST", "/api/v1/reload", nil, rs); err != nil {
		return nil, err
	}
	return rs, nil
}
