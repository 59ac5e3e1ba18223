package chaterr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode(t *testing.T) {
	assert.Equal(t, "forbidden:chat", New(KindForbidden, ScopeChat).Code())
	assert.Equal(t, "bad_request:api", New(KindBadRequest, ScopeAPI).Code())
	assert.Equal(t, "rate_limit:chat", New(KindRateLimit, ScopeChat).Code())
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
	}{
		{KindBadRequest, http.StatusBadRequest},
		{KindActivateGateway, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindRateLimit, http.StatusTooManyRequests},
		{KindOffline, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.status, New(tt.kind, ScopeChat).Status())
		})
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindOffline, ScopeChat, cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "offline:chat")
}

func TestClassifyPassthrough(t *testing.T) {
	orig := New(KindForbidden, ScopeChat)
	wrapped := fmt.Errorf("turn failed: %w", orig)

	ce := Classify(wrapped)
	assert.Equal(t, "forbidden:chat", ce.Code())
}

func TestClassifyGatewayActivation(t *testing.T) {
	err := errors.New("provider rejected request: a valid credit card on file is required to use this gateway")

	ce := Classify(err)
	require.Equal(t, KindActivateGateway, ce.Kind)
	assert.Equal(t, "activate_gateway:api", ce.Code())
	assert.Equal(t, http.StatusBadRequest, ce.Status())
}

func TestClassifyDefaultsToOffline(t *testing.T) {
	ce := Classify(errors.New("dial tcp: i/o timeout"))
	assert.Equal(t, "offline:chat", ce.Code())
	assert.Equal(t, http.StatusServiceUnavailable, ce.Status())
}

func TestDefaultMessages(t *testing.T) {
	assert.NotEmpty(t, New(KindRateLimit, ScopeChat).Message)
	assert.Contains(t, New(KindForbidden, ScopeVote).Message, "vote")
}
