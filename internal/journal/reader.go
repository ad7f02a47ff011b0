package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"FactionVault/internal/fund"

	"github.com/klauspost/compress/zstd"
)

// Replay calls fn for every event in dir, in segment then line order.
// Segments still held open by a Writer are only complete after it rotates
// or closes.
func Replay(dir string, fn func(fund.Event) error) error {
	paths, err := filepath.Glob(filepath.Join(dir, segmentPrefix+"-epoch-*.jsonl.zst"))
	if err != nil {
		return err
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := replaySegment(p, fn); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

// ReadAll returns every journaled event in dir.
func ReadAll(dir string) ([]fund.Event, error) {
	var out []fund.Event
	err := Replay(dir, func(e fund.Event) error {
		out = append(out, e)
		return nil
	})
	return out, err
}

func replaySegment(path string, fn func(fund.Event) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e fund.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return sc.Err()
}
