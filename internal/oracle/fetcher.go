package oracle

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Allocation is the yield one participant receives for an epoch, in minor units.
type Allocation struct {
	Owner string `json:"owner"`
	Yield uint64 `json:"yield"`
}

// Fetcher defines the interface for fetching per-user yield allocations.
type Fetcher interface {
	FetchAllocations(ctx context.Context, epoch uint64) ([]Allocation, error)
	Name() string
}

// Collector tries each fetcher in order and returns the first successful
// allocation set.
type Collector struct {
	Fetchers []Fetcher
}

// NewCollector creates a new Collector.
func NewCollector(fetchers ...Fetcher) *Collector {
	return &Collector{Fetchers: fetchers}
}

// Collect fetches the allocations for an epoch.
func (c *Collector) Collect(ctx context.Context, epoch uint64) ([]Allocation, error) {
	if len(c.Fetchers) == 0 {
		return nil, errors.New("no allocation source configured")
	}
	var errs []error
	for _, f := range c.Fetchers {
		allocs, err := f.FetchAllocations(ctx, epoch)
		if err != nil {
			log.Printf("[WARN] %s allocations for epoch %d failed: %v", f.Name(), epoch, err)
			errs = append(errs, fmt.Errorf("%s: %w", f.Name(), err))
			continue
		}
		return allocs, nil
	}
	return nil, errors.Join(errs...)
}
