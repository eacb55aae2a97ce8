package resilience

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalCallFailure(t *testing.T) {
	cause := errors.New("upstream 500")
	err := &ExternalCallFailure{Service: "perplexity", Operation: "market_trends", Attempts: 3, Cause: cause}
	assert.Contains(t, err.Error(), "perplexity market_trends")
	assert.Contains(t, err.Error(), "3 attempt(s)")
	assert.ErrorIs(t, err, cause)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", NewTransientError(errors.New("429"), 429), true},
		{"wrapped transient", fmt.Errorf("call: %w", NewTransientError(errors.New("503"), 503)), true},
		{"conn reset", syscall.ECONNRESET, true},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"io timeout text", errors.New("read tcp: i/o timeout"), true},
		{"plain", errors.New("bad request"), false},
		{"canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	base := errors.New("upstream said no")

	err := ClassifyHTTPStatus(base, 503)
	assert.True(t, IsTransient(err))
	assert.False(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)

	err = ClassifyHTTPStatus(base, 401)
	assert.False(t, IsTransient(err))
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)

	var perm *PermanentError
	require.ErrorAs(t, fmt.Errorf("call: %w", err), &perm)
	assert.Equal(t, 401, perm.StatusCode)

	assert.Nil(t, ClassifyHTTPStatus(nil, 500))
}
