// Package journal appends committed game events to zstd-compressed JSONL
// segments, one segment per epoch.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"FactionVault/internal/fund"

	"github.com/klauspost/compress/zstd"
)

const segmentPrefix = "events"

type Writer struct {
	dir string

	mu       sync.Mutex
	curEpoch uint64
	f        *os.File
	enc      *zstd.Encoder
	w        *bufio.Writer
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Write appends one event, switching segments when the epoch changes.
func (w *Writer) Write(e fund.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil || e.Epoch != w.curEpoch {
		if err := w.rotateLocked(e.Epoch); err != nil {
			return err
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Listener returns a fund listener that journals every event.
func (w *Writer) Listener() fund.Listener {
	return func(e fund.Event) {
		if err := w.Write(e); err != nil {
			log.Printf("[ERROR] journal event %d: %v", e.Seq, err)
		}
	}
}

func (w *Writer) rotateLocked(epoch uint64) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	// Reopening an epoch appends a new zstd frame; readers decode concatenated frames.
	f, err := os.OpenFile(segmentPath(w.dir, epoch), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curEpoch = epoch
	return nil
}

func (w *Writer) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func segmentPath(dir string, epoch uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%s-epoch-%08d.jsonl.zst", segmentPrefix, epoch))
}
