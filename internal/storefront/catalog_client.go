package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	opListProducts = "list_products"
	opGetProduct   = "get_product"

	maxBodyBytes = 4 << 20
)

var (
	// ErrFetch matches every catalog failure.
	ErrFetch = errors.New("catalog fetch failed")

	ErrCatalogNotFound    = errors.New("catalog product not found")
	ErrCatalogBadStatus   = errors.New("catalog bad status")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrCatalogDecode      = errors.New("catalog malformed body")
)

// FetchError is the single error class the storefront surfaces for catalog
// calls. Err says which kind of failure it was.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string { return "catalog " + e.Op + ": " + e.Err.Error() }

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

type CatalogClient struct {
	BaseURL string
	Client  *http.Client

	metrics *clientMetrics
}

func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// Instrument registers request counters and latency on reg.
func (c *CatalogClient) Instrument(reg prometheus.Registerer) *CatalogClient {
	c.metrics = newClientMetrics(reg)
	return c
}

func (c *CatalogClient) ListProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.get(ctx, opListProducts, "/products", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Product{}
	}
	return out, nil
}

func (c *CatalogClient) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	if err := c.get(ctx, opGetProduct, "/products/"+strconv.FormatInt(id, 10), &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// FetchProducts is the asynchronous form of ListProducts.
func (c *CatalogClient) FetchProducts(ctx context.Context, deliver func([]Product, error)) *Pending {
	return Async(ctx, c.ListProducts, deliver)
}

// FetchProduct is the asynchronous form of GetProduct.
func (c *CatalogClient) FetchProduct(ctx context.Context, id int64, deliver func(Product, error)) *Pending {
	return Async(ctx, func(ctx context.Context) (Product, error) {
		return c.GetProduct(ctx, id)
	}, deliver)
}

func (c *CatalogClient) get(ctx context.Context, op, path string, out any) (err error) {
	start := time.Now()
	defer func() { c.metrics.observe(op, err, time.Since(start)) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return &FetchError{Op: op, Err: fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return &FetchError{Op: op, Err: ErrCatalogNotFound}
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return &FetchError{Op: op, Err: fmt.Errorf("%w: status=%d", ErrCatalogBadStatus, resp.StatusCode)}
	}

	if err := decodeBody(io.LimitReader(resp.Body, maxBodyBytes), out); err != nil {
		return &FetchError{Op: op, Err: fmt.Errorf("%w: %w", ErrCatalogDecode, err)}
	}
	return nil
}

var (
	errNullBody     = errors.New("null body")
	errTrailingData = errors.New("data after top-level value")
)

// decodeBody accepts exactly one JSON value, and not null.
func decodeBody(r io.Reader, out any) error {
	dec := json.NewDecoder(r)

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if bytes.Equal(raw, []byte("null")) {
		return errNullBody
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errTrailingData
	}
	return json.Unmarshal(raw, out)
}

type clientMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newClientMetrics(reg prometheus.Registerer) *clientMetrics {
	m := &clientMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "catalog_requests_total",
			Help:      "Catalog API calls by operation and outcome",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "catalog_request_duration_seconds",
			Help:      "Catalog API latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.requests, m.latency)
	return m
}

func (m *clientMetrics) observe(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(op).Observe(d.Seconds())
	m.requests.WithLabelValues(op, outcomeLabel(err)).Inc()
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCatalogNotFound):
		return "not_found"
	case errors.Is(err, ErrCatalogBadStatus):
		return "bad_status"
	case errors.Is(err, ErrCatalogDecode):
		return "decode"
	default:
		return "unavailable"
	}
}
