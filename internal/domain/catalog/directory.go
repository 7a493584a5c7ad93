// Package catalog provides the read-only product directory.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tradeledger/pkg/logger"
)

// Product is one code/name pair from the external catalog.
type Product struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Source loads the full product list from the external catalog. The catalog
// is the slowest dependency in the system, so the directory caches it.
type Source interface {
	Load(ctx context.Context) ([]Product, error)
}

// DefaultTTL is how long a loaded catalog stays fresh.
const DefaultTTL = 5 * time.Minute

// Directory answers substring searches over the catalog with a short-lived
// cache and explicit invalidation.
type Directory struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	products []Product
	loadedAt time.Time
}

// Option customizes a Directory.
type Option func(*Directory)

// WithTTL overrides the cache lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(d *Directory) { d.ttl = ttl }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

// NewDirectory creates a directory over the given source.
func NewDirectory(source Source, opts ...Option) *Directory {
	d := &Directory{source: source, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Search returns products whose code or name contains the query,
// case-insensitively. An empty query matches nothing.
func (d *Directory) Search(ctx context.Context, query string) ([]Product, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	products, err := d.load(ctx)
	if err != nil {
		return nil, err
	}

	var matches []Product
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Code), query) ||
			strings.Contains(strings.ToLower(p.Name), query) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// Invalidate drops the cached catalog so the next search reloads it.
func (d *Directory) Invalidate() {
	d.mu.Lock()
	d.products = nil
	d.loadedAt = time.Time{}
	d.mu.Unlock()
}

func (d *Directory) load(ctx context.Context) ([]Product, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.products != nil && d.now().Sub(d.loadedAt) < d.ttl {
		return d.products, nil
	}

	products, err := d.source.Load(ctx)
	if err != nil {
		// Serve the stale copy rather than failing the dialogue step.
		if d.products != nil {
			logger.Warn(ctx, "catalog reload failed, serving stale data", "error", err)
			return d.products, nil
		}
		return nil, fmt.Errorf("load product catalog: %w", err)
	}

	d.products = products
	d.loadedAt = d.now()
	logger.Debug(ctx, "product catalog loaded", "products", len(products))
	return d.products, nil
}
