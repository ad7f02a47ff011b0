package oracle

import (
	"context"
	"sort"
)

// MockFetcher pays every listed owner a fixed yield. Used for development
// and testing.
type MockFetcher struct {
	Yields map[string]uint64
	Err    error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchAllocations(_ context.Context, _ uint64) ([]Allocation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	allocs := make([]Allocation, 0, len(m.Yields))
	for owner, y := range m.Yields {
		allocs = append(allocs, Allocation{Owner: owner, Yield: y})
	}
	sort.Slice(allocs, func(i, j int) bool { return allocs[i].Owner < allocs[j].Owner })
	return allocs, nil
}
