package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrNotVisible is returned by WaitVisible when the deadline passes.
var ErrNotVisible = errors.New("element not visible")

// WaitPolicy bounds condition waits. Polling starts at InitialInterval and
// backs off exponentially up to MaxInterval.
type WaitPolicy struct {
	InitialInterval   time.Duration
	MaxInterval       time.Duration
	LocateTimeout     time.Duration
	CheckpointTimeout time.Duration
}

// DefaultWaitPolicy matches the configuration defaults.
func DefaultWaitPolicy() WaitPolicy {
	return WaitPolicy{
		InitialInterval:   100 * time.Millisecond,
		MaxInterval:       2 * time.Second,
		LocateTimeout:     15 * time.Second,
		CheckpointTimeout: 20 * time.Second,
	}
}

func (p WaitPolicy) backOff(timeout time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.MaxElapsedTime = timeout
	return b
}

// poll calls op until it returns nil, the timeout elapses or ctx is done.
func (p WaitPolicy) poll(ctx context.Context, timeout time.Duration, op func() error) error {
	return backoff.Retry(op, backoff.WithContext(p.backOff(timeout), ctx))
}

// WaitVisible polls until selector is visible on page.
func (p WaitPolicy) WaitVisible(ctx context.Context, page Page, selector string, timeout time.Duration) error {
	var lastErr error
	err := p.poll(ctx, timeout, func() error {
		ok, err := page.IsVisible(selector)
		if err != nil {
			lastErr = err
			return err
		}
		if !ok {
			lastErr = nil
			return ErrNotVisible
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %s after %s: %v", ErrNotVisible, selector, timeout, lastErr)
	}
	return fmt.Errorf("%w: %s after %s", ErrNotVisible, selector, timeout)
}
