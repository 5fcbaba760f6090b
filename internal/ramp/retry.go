package ramp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// withRetry runs fn until it succeeds, fails with an error that is not worth
// retrying, or MaxRetries retries are spent. Every attempt waits for the
// limiter first.
func (c *Client) withRetry(ctx context.Context, target string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return werr
		}
		if err = fn(); err == nil {
			return nil
		}
		if attempt == c.opts.MaxRetries {
			break
		}

		var (
			rle *RateLimitError
			te  *TransientError
		)
		var delay time.Duration
		switch {
		case errors.As(err, &rle):
			delay = rle.RetryAfter
			if delay <= 0 {
				delay = c.backoff(attempt)
			}
			delay = min(delay, c.opts.MaxBackoff)
		case errors.As(err, &te):
			delay = c.backoff(attempt)
		default:
			return err
		}
		c.lg.WithError(err).WithField("attempt", attempt+1).Debugf("retrying %s in %s", target, delay)
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return err
}

// backoff doubles from one second, capped at MaxBackoff.
func (c *Client) backoff(attempt int) time.Duration {
	delay := time.Second << uint(min(attempt, 16))
	return min(delay, c.opts.MaxBackoff)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryAfter parses a Retry-After header in seconds or HTTP-date form.
func retryAfter(v string) time.Duration {
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
