package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/glowcart/salesagent/internal/metrics"
)

// Refresher rebuilds the catalog index on a schedule and swaps it in
// atomically, so in-flight matches always observe a fully built index.
type Refresher struct {
	repo     Repository
	interval time.Duration
	logger   *slog.Logger
	current  atomic.Pointer[Index]
}

func NewRefresher(repo Repository, interval time.Duration, logger *slog.Logger) *Refresher {
	r := &Refresher{
		repo:     repo,
		interval: interval,
		logger:   logger,
	}
	r.current.Store(NewIndex(nil))
	return r
}

// Start performs an initial load and then rebuilds on every tick until ctx is
// cancelled. The initial load is fatal; later failures keep the previous
// index in place.
func (r *Refresher) Start(ctx context.Context) error {
	if err := r.Reload(ctx); err != nil {
		return fmt.Errorf("initial catalog load: %w", err)
	}

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Reload(ctx); err != nil {
					r.logger.Error("catalog refresh failed, keeping previous index", "error", err)
				}
			}
		}
	}()
	return nil
}

// Reload rebuilds the index from the repository and swaps it in.
func (r *Refresher) Reload(ctx context.Context) error {
	products, err := r.repo.GetAllActive(ctx)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	idx := NewIndex(products)
	r.current.Store(idx)
	metrics.CatalogIndexSize.Set(float64(idx.Size()))
	r.logger.Info("catalog index rebuilt", "products", idx.Size())
	return nil
}

// Index returns the current index. Never nil.
func (r *Refresher) Index() *Index {
	return r.current.Load()
}
