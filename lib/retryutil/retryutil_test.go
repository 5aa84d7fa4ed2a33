package retryutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func classifyStatus(t *testing.T, status int, header http.Header) *SourceError {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, vs := range header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(status)
	}))
	defer server.Close()

	res, err := resty.New().R().Get(server.URL)
	require.NoError(t, err)
	return Classify("test-source", "fetch", res, err)
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		status int
		kind   Kind
	}{
		{status: http.StatusNotFound, kind: NotFound},
		{status: http.StatusTooManyRequests, kind: RateLimited},
		{status: http.StatusForbidden, kind: ClientError},
		{status: http.StatusBadRequest, kind: ClientError},
		{status: http.StatusInternalServerError, kind: ServerError},
		{status: http.StatusBadGateway, kind: ServerError},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			serr := classifyStatus(t, tc.status, nil)
			require.NotNil(t, serr)
			require.Equal(t, tc.kind, serr.Kind)
			require.Equal(t, "test-source", serr.Source)
		})
	}

	t.Run("success is nil", func(t *testing.T) {
		serr := classifyStatus(t, http.StatusOK, nil)
		require.Nil(t, serr)
	})

	t.Run("retry-after seconds", func(t *testing.T) {
		serr := classifyStatus(t, http.StatusTooManyRequests, http.Header{
			"Retry-After": []string{"7"},
		})
		require.NotNil(t, serr)
		require.Equal(t, RateLimited, serr.Kind)
		require.Equal(t, 7*time.Second, serr.RetryAfter)
	})

	t.Run("transport error", func(t *testing.T) {
		res, err := resty.New().R().Get("http://127.0.0.1:1/nothing-listens-here")
		serr := Classify("test-source", "fetch", res, err)
		require.NotNil(t, serr)
		require.Equal(t, NetworkError, serr.Kind)
	})

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		<-ctx.Done()

		res, err := resty.New().R().SetContext(ctx).Get("http://127.0.0.1:1/")
		serr := Classify("test-source", "fetch", res, err)
		require.NotNil(t, serr)
		require.Equal(t, Timeout, serr.Kind)
	})
}

func TestParseRetryAfter(t *testing.T) {
	require.Equal(t, time.Duration(0), ParseRetryAfter(""))
	require.Equal(t, time.Duration(0), ParseRetryAfter("garbage"))
	require.Equal(t, time.Duration(0), ParseRetryAfter("-3"))
	require.Equal(t, 12*time.Second, ParseRetryAfter("12"))

	future := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
	d := ParseRetryAfter(future)
	require.Greater(t, d, 20*time.Second)
	require.LessOrEqual(t, d, 30*time.Second)
}

func TestDoBoundsAttempts(t *testing.T) {
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	var reported []int
	serr := policy.Do(context.Background(), func(ctx context.Context, attempt int) *SourceError {
		calls++
		require.Equal(t, calls, attempt)
		return Fail("test-source", "fetch", ServerError, errors.New("boom"))
	}, func(serr *SourceError, attempt int) {
		reported = append(reported, attempt)
	})

	require.NotNil(t, serr)
	require.Equal(t, ServerError, serr.Kind)
	require.Equal(t, 3, calls)
	require.Equal(t, []int{1, 2, 3}, reported)
}

func TestDoTerminalKindsStopImmediately(t *testing.T) {
	for _, kind := range []Kind{NotFound, ClientError, ParseFailure} {
		t.Run(string(kind), func(t *testing.T) {
			policy := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}

			calls := 0
			serr := policy.Do(context.Background(), func(ctx context.Context, attempt int) *SourceError {
				calls++
				return Fail("test-source", "fetch", kind, errors.New("nope"))
			}, nil)

			require.NotNil(t, serr)
			require.Equal(t, kind, serr.Kind)
			require.Equal(t, 1, calls)
		})
	}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	policy := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}

	calls := 0
	failures := 0
	serr := policy.Do(context.Background(), func(ctx context.Context, attempt int) *SourceError {
		calls++
		if calls < 3 {
			return Fail("test-source", "fetch", NetworkError, errors.New("flaky"))
		}
		return nil
	}, func(serr *SourceError, attempt int) {
		failures++
	})

	require.Nil(t, serr)
	require.Equal(t, 3, calls)
	require.Equal(t, 2, failures)
}

func TestDoHonorsServerRetryAfter(t *testing.T) {
	policy := Policy{MaxAttempts: 2, BaseDelay: time.Hour, MaxDelay: time.Hour}

	start := time.Now()
	calls := 0
	serr := policy.Do(context.Background(), func(ctx context.Context, attempt int) *SourceError {
		calls++
		return &SourceError{
			Source:     "test-source",
			Op:         "fetch",
			Kind:       RateLimited,
			RetryAfter: 10 * time.Millisecond,
			Err:        errors.New("slow down"),
		}
	}, nil)

	require.NotNil(t, serr)
	require.Equal(t, 2, calls)
	// the hour-long base delay must not have been used
	require.Less(t, time.Since(start), time.Second)
}

func TestDoAbortsWaitOnContextCancel(t *testing.T) {
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	serr := policy.Do(ctx, func(ctx context.Context, attempt int) *SourceError {
		calls++
		return Fail("test-source", "fetch", ServerError, errors.New("boom"))
	}, nil)

	require.NotNil(t, serr)
	require.Equal(t, Timeout, serr.Kind)
	require.Equal(t, 1, calls)
	require.Less(t, time.Since(start), time.Minute)
}

func TestKindRetryable(t *testing.T) {
	require.True(t, RateLimited.Retryable())
	require.True(t, Timeout.Retryable())
	require.True(t, NetworkError.Retryable())
	require.True(t, ServerError.Retryable())
	require.False(t, NotFound.Retryable())
	require.False(t, ClientError.Retryable())
	require.False(t, ParseFailure.Retryable())
}
