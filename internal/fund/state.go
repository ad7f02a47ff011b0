package fund

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"FactionVault/internal/ledger"
	"FactionVault/internal/model"

	"github.com/klauspost/compress/zstd"
)

const snapshotVersion = 1

// Snapshot is the persisted game: global state, every position and, when the
// ledger supports it, the holding accounts.
type Snapshot struct {
	Version   int                   `json:"version"`
	Seq       uint64                `json:"seq"`
	State     *model.GameState      `json:"state"`
	Positions []*model.UserPosition `json:"positions"`
	Accounts  []ledger.AccountState `json:"accounts,omitempty"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// LoadState reads a zstd-compressed JSON snapshot. Returns an empty snapshot
// if the file doesn't exist.
func LoadState(filePath string) (*Snapshot, error) {
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Snapshot{}, nil
		}
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return &snap, nil
}

// SaveState writes the snapshot through a temp file and rename.
func SaveState(filePath string, snap *Snapshot) error {
	snap.Version = snapshotVersion
	snap.UpdatedAt = time.Now()
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}

	tmp := filePath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}
