package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pithecene-io/dsszarr/internal/pathname"
)

// Catalog is an in-memory container: record pathname -> values.
type Catalog map[string][]float64

// Opener returns an Opener that serves c regardless of the local path.
func (c Catalog) Opener() Opener {
	return OpenerFunc(func(context.Context, string) (Container, error) {
		return newCatalogContainer(c)
	})
}

type catalogContainer struct {
	mu      sync.Mutex
	records map[string][]float64
	closed  bool
}

func newCatalogContainer(c Catalog) (*catalogContainer, error) {
	records := make(map[string][]float64, len(c))
	for raw, values := range c {
		p, err := pathname.Parse(raw)
		if err != nil {
			return nil, err
		}
		records[p.String()] = values
	}
	return &catalogContainer{records: records}, nil
}

func (c *catalogContainer) Catalog(_ context.Context) ([]pathname.Pathname, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errClosed
	}

	keys := make([]string, 0, len(c.records))
	for k := range c.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]pathname.Pathname, len(keys))
	for i, k := range keys {
		out[i] = pathname.MustParse(k)
	}
	return out, nil
}

func (c *catalogContainer) Read(_ context.Context, p pathname.Pathname) ([]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errClosed
	}

	if !p.IsStem() {
		values, ok := c.records[p.String()]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, p)
		}
		return append([]float64(nil), values...), nil
	}

	var blocks []pathname.Pathname
	for k := range c.records {
		q := pathname.MustParse(k)
		if q.WithoutTime() == p {
			blocks = append(blocks, q)
		}
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, p)
	}
	sortBlocks(blocks)

	var out []float64
	for _, b := range blocks {
		out = append(out, c.records[b.String()]...)
	}
	return out, nil
}

func (c *catalogContainer) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}
