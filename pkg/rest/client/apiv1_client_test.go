package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ruled/ruled/pkg/rest/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientV1Match(t *testing.T) {
	c, err := New(baseURLStr)
	require.NoError(t, err)
	mth := &mockHTTPClient{body: `{"result":"match","position":2,"action":"relay","version":4}`}
	c.client = mth

	result, err := c.Match(context.Background(), &model.JSONEnvelopeV1{
		Tag:       "smtp",
		Remote:    "192.0.2.10",
		Sender:    "alice@example.net",
		Recipient: "bob@example.org",
	})
	require.NoError(t, err)
	assert.Equal(t, "POST", mth.req.Method)
	assert.Equal(t, baseURLStr+"/api/v1/match", mth.req.URL.String())
	assert.JSONEq(t,
		`{"tag":"smtp","remote":"192.0.2.10","helo":"","sender":"alice@example.net",`+
			`"recipient":"bob@example.org"}`,
		string(mth.ReqBody()))
	assert.Equal(t, model.ResultMatch, result.Result)
	assert.Equal(t, 2, result.Position)
	assert.Equal(t, "relay", result.Action)
	assert.Equal(t, uint64(4), result.Version)
}

func TestClientV1MatchDefer(t *testing.T) {
	c, err := New(baseURLStr)
	require.NoError(t, err)
	c.client = &mockHTTPClient{
		statusCode: http.StatusServiceUnavailable,
		body:       `{"result":"defer","reason":"lookup","table":"senders"}`,
	}

	result, err := c.Match(context.Background(), &model.JSONEnvelopeV1{})
	require.NoError(t, err)
	assert.Equal(t, model.ResultDefer, result.Result)
	assert.Equal(t, "lookup", result.Reason)
	assert.Equal(t, "senders", result.Table)
}

func TestClientV1MatchBadRequest(t *testing.T) {
	c, err := New(baseURLStr)
	require.NoError(t, err)
	c.client = &mockHTTPClient{statusCode: http.StatusBadRequest, body: "Invalid envelope"}

	_, err = c.Match(context.Background(), &model.JSONEnvelopeV1{})
	assert.ErrorContains(t, err, "Invalid envelope")
}

func TestClientV1Ruleset(t *testing.T) {
	c, err := New(baseURLPathStr)
	require.NoError(t, err)
	mth := &mockHTTPClient{body: `{"version":3,"rules":[{"position":1,"rule":"match action \"x\"","action":"x"}]}`}
	c.client = mth

	rs, err := c.Ruleset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "GET", mth.req.Method)
	assert.Equal(t, baseURLPathStr+"/api/v1/ruleset", mth.req.URL.String())
	assert.Equal(t, uint64(3), rs.Version)
	require.Len(t, rs.Rules, 1)
	assert.Equal(t, "x", rs.Rules[0].Action)
}

func TestClientV1Reload(t *testing.T) {
	c, err := New(baseURLStr)
	require.NoError(t, err)
	mth := &mockHTTPClient{body: `{"version":9,"rules":[]}`}
	c.client = mth

	rs, err := c.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "POST", mth.req.Method)
	assert.Equal(t, baseURLStr+"/api/v1/reload", mth.req.URL.String())
	assert.Equal(t, uint64(9), rs.Version)

	mth.statusCode = http.StatusUnprocessableEntity
	_, err = c.Reload(context.Background())
	assert.ErrorContains(t, err, "unexpected 422")
}

func TestClientOptions(t *testing.T) {
	c, err := New(baseURLStr, WithClientOptsTimeout(time.Second))
	require.NoError(t, err)
	hc, ok := c.client.(*http.Client)
	require.True(t, ok)
	assert.Equal(t, time.Second, hc.Timeout)
}
