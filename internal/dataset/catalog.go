package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/iwvelando/moria-dashboard/internal/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownSource reports a lookup of a source the catalog was not built with.
var ErrUnknownSource = errors.New("unknown source")

// maxConcurrentLoads bounds the number of files parsed at once.
const maxConcurrentLoads = 4

// Catalog holds the loaded tables keyed by source name. A source that failed
// to load keeps its error, so one broken file only disables the pages that
// read it.
type Catalog struct {
	mu      sync.RWMutex
	prices  map[string]*PriceTable
	weights map[string]*WeightsTable
	errs    map[string]error
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		prices:  make(map[string]*PriceTable),
		weights: make(map[string]*WeightsTable),
		errs:    make(map[string]error),
	}
}

// LoadCatalog reads every configured source concurrently. Per-source failures
// are recorded, not returned; only context cancellation aborts the load.
func LoadCatalog(ctx context.Context, logger *zap.Logger, sources []config.SourceConfig) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cat := NewCatalog()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			err := cat.LoadSource(src)
			if err != nil {
				logger.Warn("failed to load source",
					zap.String("op", "dataset.LoadCatalog"),
					zap.String("source", src.Name),
					zap.String("path", src.Path),
					zap.Error(err),
				)
				return nil
			}
			logger.Debug("source loaded",
				zap.String("op", "dataset.LoadCatalog"),
				zap.String("source", src.Name),
				zap.String("kind", src.Kind),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cat, nil
}

// LoadSource reads one source file into the catalog, replacing any previous
// table or error under the same name.
func (c *Catalog) LoadSource(src config.SourceConfig) error {
	table, err := readSource(src)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.prices, src.Name)
	delete(c.weights, src.Name)
	delete(c.errs, src.Name)
	if err != nil {
		c.errs[src.Name] = err
		return err
	}
	switch t := table.(type) {
	case *PriceTable:
		c.prices[src.Name] = t
	case *WeightsTable:
		c.weights[src.Name] = t
	}
	return nil
}

// PutPrices registers an in-memory price table.
func (c *Catalog) PutPrices(name string, table *PriceTable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.errs, name)
	c.prices[name] = table
}

// Prices returns the price table of a source, or the error it failed with.
func (c *Catalog) Prices(name string) (*PriceTable, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err, ok := c.errs[name]; ok {
		return nil, fmt.Errorf("source %q: %w", name, err)
	}
	if t, ok := c.prices[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
}

// Weights returns the weights table of a source, or the error it failed with.
func (c *Catalog) Weights(name string) (*WeightsTable, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err, ok := c.errs[name]; ok {
		return nil, fmt.Errorf("source %q: %w", name, err)
	}
	if t, ok := c.weights[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
}

// Errors returns the load error of every failed source.
func (c *Catalog) Errors() map[string]error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]error, len(c.errs))
	for k, v := range c.errs {
		out[k] = v
	}
	return out
}

// Options converts a source definition into table options.
func Options(src config.SourceConfig) TableOptions {
	opts := TableOptions{IndexColumn: src.IndexColumn, DecimalComma: src.DecimalComma}
	if r := []rune(src.Delimiter); len(r) == 1 {
		opts.Delimiter = r[0]
	}
	return opts
}

func readSource(src config.SourceConfig) (interface{}, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src.Path, err)
	}
	defer func() { _ = f.Close() }()

	switch src.Kind {
	case config.SourceWeights:
		return ReadWeightsTable(f, Options(src))
	case config.SourcePrices, "":
		return ReadPriceTable(f, Options(src))
	default:
		return nil, fmt.Errorf("source %q has unknown kind %q", src.Name, src.Kind)
	}
}
