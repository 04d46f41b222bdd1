package embedding

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", DefaultBackoff},
		{"5", 5 * time.Second},
		{"0", DefaultBackoff},
		{"-3", DefaultBackoff},
		{"soon", DefaultBackoff},
		{"Wed, 21 Oct 2015 07:28:00 GMT", DefaultBackoff},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RetryAfter(tt.header), "header %q", tt.header)
	}

	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	d := RetryAfter(future)
	assert.Greater(t, d, 58*time.Minute)
	assert.LessOrEqual(t, d, time.Hour)
}

func TestRateLimiter_UnlimitedDoesNotBlock(t *testing.T) {
	r := NewRateLimiter(0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 100; i++ {
		require.NoError(t, r.Wait(ctx))
	}
}

func TestRateLimiter_BackoffRespectsContext(t *testing.T) {
	r := NewRateLimiter(0)
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"60"}}}
	r.RecordRateLimit(resp)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter_Throttles(t *testing.T) {
	r := NewRateLimiter(20)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 25; i++ {
		require.NoError(t, r.Wait(ctx))
	}
	// 20 burst tokens, then 5 more at 50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}
