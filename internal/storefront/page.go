package storefront

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrPageClosed = errors.New("page closed")

// Catalog is what a Page needs from the catalog client.
type Catalog interface {
	FetchProducts(ctx context.Context, deliver func([]Product, error)) *Pending
}

// Page owns one storefront State and applies messages to it one at a time on
// a single goroutine. Catalog results re-enter through the same mailbox, so
// nothing else ever touches the state.
type Page struct {
	catalog  Catalog
	renderer Renderer
	log      *zap.Logger

	mailbox   chan envelope
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// owned by run
	state       State
	pending     *Pending
	outstanding []*Pending
	seq         uint64
}

type envelope struct {
	msg   Msg
	seq   uint64
	reply chan<- Outcome
	view  chan<- View
}

// NewPage mounts a page: the loop starts and products are requested at once.
func NewPage(catalog Catalog, renderer Renderer, log *zap.Logger) *Page {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Page{
		catalog:  catalog,
		renderer: renderer,
		log:      log,
		mailbox:  make(chan envelope, 8),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
		state:    NewState(),
	}
	go p.run()
	return p
}

// Dispatch applies msg and waits until it has been handled. ctx bounds only
// the enqueue: an error means msg was not applied.
func (p *Page) Dispatch(ctx context.Context, msg Msg) (Outcome, error) {
	reply := make(chan Outcome, 1)
	if err := p.send(ctx, envelope{msg: msg, reply: reply}); err != nil {
		return OutcomeIgnored, err
	}

	// Once queued the message will be applied, so the caller learns the
	// outcome even if ctx ends meanwhile.
	select {
	case out := <-reply:
		return out, nil
	case <-p.stopped:
		select {
		case out := <-reply:
			return out, nil
		default:
			return OutcomeIgnored, ErrPageClosed
		}
	}
}

// View renders the current state.
func (p *Page) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := p.send(ctx, envelope{view: reply}); err != nil {
		return View{}, err
	}

	select {
	case v := <-reply:
		return v, nil
	case <-p.stopped:
		select {
		case v := <-reply:
			return v, nil
		default:
			return View{}, ErrPageClosed
		}
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// Close tears the page down. Any catalog call still in flight is cancelled
// and its result is never applied. Close waits for all page goroutines.
func (p *Page) Close() {
	p.closeOnce.Do(func() { close(p.quit) })
	<-p.stopped
}

func (p *Page) send(ctx context.Context, env envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.quit:
		return ErrPageClosed
	default:
	}

	select {
	case p.mailbox <- env:
		return nil
	case <-p.quit:
		return ErrPageClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Page) run() {
	defer close(p.stopped)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.apply(ctx, RequestProducts{})

	for {
		select {
		case <-p.quit:
			cancel()
			p.teardown()
			return
		case env := <-p.mailbox:
			p.handle(ctx, env)
		}
	}
}

func (p *Page) handle(ctx context.Context, env envelope) {
	if env.view != nil {
		env.view <- p.renderer.Render(p.state)
		return
	}

	if env.seq != 0 {
		if env.seq != p.seq {
			p.log.Debug("dropping stale catalog result", zap.Uint64("seq", env.seq), zap.Uint64("current", p.seq))
			return
		}
		p.pending = nil
	}

	out := p.apply(ctx, env.msg)
	if env.reply != nil {
		env.reply <- out
	}
}

func (p *Page) apply(ctx context.Context, msg Msg) Outcome {
	next, cmd, out := Update(p.state, msg)
	p.state = next

	if m, ok := msg.(AddToCart); ok && out == OutcomeIgnored {
		p.log.Debug("add to cart ignored: product not in catalog", zap.Int64("product_id", m.ProductID))
	}

	if _, ok := cmd.(FetchProductsCmd); ok {
		p.fetch(ctx)
	}
	return out
}

func (p *Page) fetch(ctx context.Context) {
	if p.pending != nil {
		p.pending.Cancel()
	}
	p.reapOutstanding()

	p.seq++
	seq := p.seq
	p.pending = p.catalog.FetchProducts(ctx, func(products []Product, err error) {
		var msg Msg = ProductsFetched{Products: products}
		if err != nil {
			p.log.Warn("catalog fetch failed", zap.Error(err))
			msg = ProductsFetchFailed{Err: err}
		}

		select {
		case p.mailbox <- envelope{msg: msg, seq: seq}:
		case <-p.quit:
		}
	})
	p.outstanding = append(p.outstanding, p.pending)
}

func (p *Page) reapOutstanding() {
	n := 0
	for _, pd := range p.outstanding {
		select {
		case <-pd.Done():
		default:
			p.outstanding[n] = pd
			n++
		}
	}
	p.outstanding = p.outstanding[:n]
}

func (p *Page) teardown() {
	for _, pd := range p.outstanding {
		pd.Cancel()
	}
	for _, pd := range p.outstanding {
		<-pd.Done()
	}
	p.outstanding = nil
	p.pending = nil
}
