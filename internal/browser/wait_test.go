package browser_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aithinkitive/ecare-e2e/internal/browser"
	"github.com/aithinkitive/ecare-e2e/internal/browser/browsertest"
)

func TestWaitVisible(t *testing.T) {
	ctx := context.Background()
	policy := fastPolicy()
	name := browser.Text("Patient123 PatientLast1700000000000")

	t.Run("already visible", func(t *testing.T) {
		page := browsertest.NewPage().Add(name, browsertest.Element{})
		require.NoError(t, policy.WaitVisible(ctx, page, name, policy.CheckpointTimeout))
	})

	t.Run("appears after a few polls", func(t *testing.T) {
		page := browsertest.NewPage().Add(name, browsertest.Element{Delay: 4})
		require.NoError(t, policy.WaitVisible(ctx, page, name, policy.CheckpointTimeout))
	})

	t.Run("present but hidden", func(t *testing.T) {
		page := browsertest.NewPage().Add(name, browsertest.Element{Hidden: true})
		err := policy.WaitVisible(ctx, page, name, 30*time.Millisecond)
		require.ErrorIs(t, err, browser.ErrNotVisible)
		assert.Contains(t, err.Error(), name)
	})

	t.Run("never appears", func(t *testing.T) {
		start := time.Now()
		err := policy.WaitVisible(ctx, browsertest.NewPage(), name, 50*time.Millisecond)
		require.ErrorIs(t, err, browser.ErrNotVisible)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("closed page", func(t *testing.T) {
		page := browsertest.NewPage()
		require.NoError(t, page.Close())
		err := policy.WaitVisible(ctx, page, name, 30*time.Millisecond)
		require.ErrorIs(t, err, browser.ErrNotVisible)
		assert.Contains(t, err.Error(), "page closed")
	})

	t.Run("canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := policy.WaitVisible(cctx, browsertest.NewPage(), name, time.Minute)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDefaultWaitPolicy(t *testing.T) {
	p := browser.DefaultWaitPolicy()
	assert.Equal(t, 100*time.Millisecond, p.InitialInterval)
	assert.Equal(t, 2*time.Second, p.MaxInterval)
	assert.Equal(t, 15*time.Second, p.LocateTimeout)
	assert.Equal(t, 20*time.Second, p.CheckpointTimeout)
}
