package storefront

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type fetchResult struct {
	products []Product
	err      error
}

// scriptedCatalog gives every FetchProducts call its own result slot. A call
// blocks until the test answers it or the fetch is cancelled.
type scriptedCatalog struct {
	mu    sync.Mutex
	calls []chan fetchResult
}

func newScriptedCatalog() *scriptedCatalog {
	return &scriptedCatalog{}
}

func (c *scriptedCatalog) FetchProducts(ctx context.Context, deliver func([]Product, error)) *Pending {
	ch := make(chan fetchResult, 1)
	c.mu.Lock()
	c.calls = append(c.calls, ch)
	c.mu.Unlock()

	return Async(ctx, func(ctx context.Context) ([]Product, error) {
		select {
		case r := <-ch:
			return r.products, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, deliver)
}

func (c *scriptedCatalog) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// respond answers the n-th fetch (zero based).
func (c *scriptedCatalog) respond(t *testing.T, n int, r fetchResult) {
	t.Helper()
	require.Eventually(t, func() bool { return c.count() > n }, 2*time.Second, time.Millisecond)

	c.mu.Lock()
	ch := c.calls[n]
	c.mu.Unlock()
	ch <- r
}

func newTestPage(t *testing.T, c Catalog) *Page {
	t.Helper()
	p := NewPage(c, testRenderer(t), zap.NewNop())
	t.Cleanup(p.Close)
	return p
}

func waitPhase(t *testing.T, p *Page, phase string) View {
	t.Helper()
	require.Eventually(t, func() bool {
		v, err := p.View(context.Background())
		return err == nil && v.Phase == phase
	}, 2*time.Second, 5*time.Millisecond)

	v, err := p.View(context.Background())
	require.NoError(t, err)
	return v
}

func TestPage_MountFetchesProducts(t *testing.T) {
	c := newScriptedCatalog()
	p := newTestPage(t, c)

	v, err := p.View(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "loading", v.Phase)

	c.respond(t, 0, fetchResult{products: []Product{productA, productB}})

	v = waitPhase(t, p, "loaded")
	assert.Len(t, v.Cards, 2)
	assert.Equal(t, 1, c.count())
}

func TestPage_Scenario(t *testing.T) {
	c := newScriptedCatalog()
	p := newTestPage(t, c)
	c.respond(t, 0, fetchResult{products: []Product{productA, productB}})
	waitPhase(t, p, "loaded")

	for _, id := range []int64{1, 1, 2} {
		out, err := p.Dispatch(t.Context(), AddToCart{ProductID: id})
		require.NoError(t, err)
		require.Equal(t, OutcomeApplied, out)
	}

	out, err := p.Dispatch(t.Context(), AddToCart{ProductID: 999})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, out)

	v, err := p.View(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(4500), v.Total)
	require.Len(t, v.Cart, 2)
	assert.Equal(t, 2, v.Cart[0].Quantity)
	assert.Equal(t, 1, v.Cart[1].Quantity)
}

func TestPage_FailedReloadKeepsProductsAndCart(t *testing.T) {
	c := newScriptedCatalog()
	p := newTestPage(t, c)
	c.respond(t, 0, fetchResult{products: []Product{productA}})
	waitPhase(t, p, "loaded")

	_, err := p.Dispatch(t.Context(), AddToCart{ProductID: 1})
	require.NoError(t, err)

	_, err = p.Dispatch(t.Context(), RequestProducts{})
	require.NoError(t, err)
	c.respond(t, 1, fetchResult{err: errors.New("catalog down")})

	v := waitPhase(t, p, "failed")
	assert.Equal(t, ErrorText, v.Message)
	assert.Equal(t, int64(1000), v.Total)

	out, err := p.Dispatch(t.Context(), AddToCart{ProductID: 1})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, out, "products from the earlier load are still known")
}

func TestPage_NewRequestSupersedesPendingFetch(t *testing.T) {
	c := newScriptedCatalog()
	p := newTestPage(t, c)

	_, err := p.Dispatch(t.Context(), RequestProducts{})
	require.NoError(t, err)
	require.Equal(t, 2, c.count())

	c.respond(t, 0, fetchResult{products: []Product{productA}})
	c.respond(t, 1, fetchResult{products: []Product{productB}})

	v := waitPhase(t, p, "loaded")
	require.Len(t, v.Cards, 1)
	assert.Equal(t, int64(2), v.Cards[0].ID)
}

func TestPage_CloseCancelsPendingFetch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := newScriptedCatalog()
	p := NewPage(c, testRenderer(t), nil)

	_, err := p.View(t.Context())
	require.NoError(t, err)

	p.Close()
	p.Close()

	_, err = p.Dispatch(t.Context(), RequestProducts{})
	assert.ErrorIs(t, err, ErrPageClosed)
	_, err = p.View(t.Context())
	assert.ErrorIs(t, err, ErrPageClosed)
}

func TestPage_DispatchHonoursContext(t *testing.T) {
	c := newScriptedCatalog()
	p := newTestPage(t, c)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := p.Dispatch(ctx, AddToCart{ProductID: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPage_DispatchErrorMeansNotApplied(t *testing.T) {
	c := newScriptedCatalog()
	p := newTestPage(t, c)
	c.respond(t, 0, fetchResult{products: []Product{productA}})
	waitPhase(t, p, "loaded")

	var (
		mu      sync.Mutex
		applied int
		wg      sync.WaitGroup
	)
	for range 200 {
		ctx, cancel := context.WithCancel(t.Context())
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := p.Dispatch(ctx, AddToCart{ProductID: 1})
			if err != nil {
				return
			}
			assert.Equal(t, OutcomeApplied, out)
			mu.Lock()
			applied++
			mu.Unlock()
		}()
		cancel()
	}
	wg.Wait()

	v, err := p.View(t.Context())
	require.NoError(t, err)
	assert.Equal(t, applied, v.Count, "every applied add is reported to its caller")
}
