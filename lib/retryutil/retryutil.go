package retryutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Kind classifies a failed operation against an external source. The kind
// decides both whether another attempt is worthwhile and how the failure is
// reported downstream.
type Kind string

const (
	NotFound     Kind = "not_found"
	RateLimited  Kind = "rate_limited"
	Timeout      Kind = "timeout"
	NetworkError Kind = "network_error"
	ServerError  Kind = "server_error"
	ParseFailure Kind = "parse_failure"
	ClientError  Kind = "client_error"
)

// Retryable reports whether another attempt can produce a different outcome.
// Re-fetching a missing profile or a malformed payload reproduces the same
// result, so those kinds are terminal.
func (k Kind) Retryable() bool {
	switch k {
	case RateLimited, Timeout, NetworkError, ServerError:
		return true
	}
	return false
}

// SourceError is one classified failure of one operation against one source.
type SourceError struct {
	Source string
	Op     string
	Kind   Kind
	// RetryAfter is nonzero only when the server supplied an explicit wait.
	RetryAfter time.Duration
	Err        error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %s", e.Source, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s: %v", e.Source, e.Op, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Fail wraps err as a SourceError of the given kind.
func Fail(source, op string, kind Kind, err error) *SourceError {
	return &SourceError{Source: source, Op: op, Kind: kind, Err: err}
}

// Failf is Fail with a formatted message instead of a wrapped error.
func Failf(source, op string, kind Kind, format string, args ...any) *SourceError {
	return &SourceError{Source: source, Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Classify maps a resty outcome onto the failure taxonomy. A nil return
// means the response is usable (2xx/3xx). Transport errors become
// NetworkError unless they carry a deadline, which becomes Timeout so the
// caller moves on instead of hammering a dead connection.
func Classify(source, op string, res *resty.Response, err error) *SourceError {
	if err != nil {
		kind := NetworkError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			kind = Timeout
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = Timeout
		}
		return &SourceError{Source: source, Op: op, Kind: kind, Err: err}
	}
	if res == nil {
		return &SourceError{Source: source, Op: op, Kind: NetworkError, Err: errors.New("no response")}
	}

	code := res.StatusCode()
	switch {
	case code == http.StatusNotFound:
		return &SourceError{Source: source, Op: op, Kind: NotFound, Err: fmt.Errorf("status %d", code)}
	case code == http.StatusTooManyRequests:
		return &SourceError{
			Source:     source,
			Op:         op,
			Kind:       RateLimited,
			RetryAfter: ParseRetryAfter(res.Header().Get("Retry-After")),
			Err:        fmt.Errorf("status %d", code),
		}
	case code >= 500:
		return &SourceError{Source: source, Op: op, Kind: ServerError, Err: fmt.Errorf("status %d", code)}
	case code >= 400:
		return &SourceError{Source: source, Op: op, Kind: ClientError, Err: fmt.Errorf("status %d", code)}
	}
	return nil
}

// ParseRetryAfter reads a Retry-After header value, either delta-seconds or
// an HTTP date. Returns 0 when the value is absent or unusable.
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// Policy bounds repeated attempts of one operation against one source.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Scraped is the default policy for scraped sites.
func Scraped() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 15 * time.Second}
}

// Authenticated is the default policy for the authenticated API: its
// explicit rate-limit headers justify more attempts at tighter intervals.
func Authenticated() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: 250 * time.Millisecond, MaxDelay: 30 * time.Second}
}

// OnFailure receives every failed attempt, in order, before the next wait
// or the final return.
type OnFailure func(serr *SourceError, attempt int)

// Do runs fn until it returns nil, fails terminally, exhausts MaxAttempts,
// or ctx expires during a backoff wait. Attempt numbering starts at 1.
//
// Delay schedule: RateLimited waits the server-provided interval when one
// was given, else BaseDelay*2^attempt; Timeout/NetworkError/ServerError wait
// BaseDelay*2^attempt plus random jitter. Waits are capped at MaxDelay and
// abort when ctx is done.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) *SourceError, onFailure OnFailure) *SourceError {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var last *SourceError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		serr := fn(ctx, attempt)
		if serr == nil {
			return nil
		}
		last = serr
		if onFailure != nil {
			onFailure(serr, attempt)
		}
		if !serr.Kind.Retryable() || attempt == maxAttempts {
			break
		}

		delay := p.delay(serr, attempt)
		slog.DebugContext(ctx, "retrying source operation",
			"source", serr.Source,
			"op", serr.Op,
			"kind", serr.Kind,
			"attempt", attempt,
			"delay", delay,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &SourceError{
				Source: serr.Source,
				Op:     serr.Op,
				Kind:   Timeout,
				Err:    fmt.Errorf("gave up waiting to retry: %w", ctx.Err()),
			}
		case <-timer.C:
		}
	}
	return last
}

func (p Policy) delay(serr *SourceError, attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	var d time.Duration
	if serr.Kind == RateLimited && serr.RetryAfter > 0 {
		d = serr.RetryAfter
	} else {
		d = base << attempt
		if serr.Kind != RateLimited {
			d += rand.N(base)
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
