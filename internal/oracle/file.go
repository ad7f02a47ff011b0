package oracle

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FileFetcher reads allocations from a local JSON document. A "{epoch}"
// placeholder in Path is replaced with the epoch number.
type FileFetcher struct {
	Path string
}

func (f *FileFetcher) Name() string { return "file" }

func (f *FileFetcher) FetchAllocations(_ context.Context, epoch uint64) ([]Allocation, error) {
	path := strings.ReplaceAll(f.Path, "{epoch}", strconv.FormatUint(epoch, 10))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read allocations: %w", err)
	}
	return Decode(data, epoch)
}
