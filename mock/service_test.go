package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/cid/transport"
)

func TestIdentityService(t *testing.T) {
	server := NewServer(nil)
	defer server.Close()
	server.Service.OptOutScopes["opted"] = true
	server.Service.NotFoundScopes["missing"] = true

	ctx := context.Background()
	fetcher := transport.New()
	endpoint := transport.Endpoint{URL: server.Endpoint(), APIKey: "key-123"}

	first, err := fetcher.Do(ctx, endpoint, &transport.Request{OriginScope: "scope-abc"}, time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, first.SecurityToken)
	require.NotEmpty(t, first.ClientID)

	replayed, err := fetcher.Do(ctx, endpoint, &transport.Request{OriginScope: "scope-abc", SecurityToken: first.SecurityToken}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first.ClientID, replayed.ClientID, "same device and scope keep their id")
	assert.Empty(t, replayed.SecurityToken)

	other, err := fetcher.Do(ctx, endpoint, &transport.Request{OriginScope: "scope-xyz", SecurityToken: first.SecurityToken}, time.Second)
	require.NoError(t, err)
	assert.NotEqual(t, first.ClientID, other.ClientID, "scopes are not linkable")

	opted, err := fetcher.Do(ctx, endpoint, &transport.Request{OriginScope: "opted"}, time.Second)
	require.NoError(t, err)
	assert.True(t, opted.OptOut)

	missing, err := fetcher.Do(ctx, endpoint, &transport.Request{OriginScope: "missing"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, &transport.Response{}, missing)

	_, err = fetcher.Do(ctx, endpoint, &transport.Request{OriginScope: "scope-abc", SecurityToken: "forged"}, time.Second)
	serviceErr := &transport.ServiceError{}
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, "invalid security token", serviceErr.Message)

	_, err = fetcher.Do(ctx, transport.Endpoint{URL: server.Endpoint()}, &transport.Request{OriginScope: "scope-abc"}, time.Second)
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, 400, serviceErr.StatusCode)

	assert.Len(t, server.Service.Requests(), 6, "requests without a key are rejected before recording")
}

func TestIdentityService_Redirect(t *testing.T) {
	server := NewServer(nil)
	defer server.Close()
	server.Service.RedirectToAlternate = true

	response, err := transport.New().Do(context.Background(), transport.Endpoint{URL: server.Endpoint(), APIKey: "key-123"}, &transport.Request{OriginScope: "scope-abc"}, time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, response.ClientID)

	requests := server.Service.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, Path, requests[0].Path)
	assert.Equal(t, AlternatePath, requests[1].Path)
	assert.Equal(t, "key-123", requests[1].Key)
	assert.Equal(t, requests[0].Payload, requests[1].Payload)
}
