// Package export writes processing results as JSON files. Paths ending in
// ".zst" are zstd-compressed.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/burgecon/internal/economy"
	"github.com/talgya/burgecon/internal/trade"
)

// CompressedExt marks output files that are zstd-compressed.
const CompressedExt = ".zst"

// Paths names the two files written for a world.
type Paths struct {
	Settlements string
	Flows       string
}

// PathsFor returns "<dir>/<name>_burgs.json" and
// "<dir>/<name>_trade_routes.json", with CompressedExt appended if compress
// is set.
func PathsFor(dir, name string, compress bool) Paths {
	ext := ".json"
	if compress {
		ext += CompressedExt
	}
	return Paths{
		Settlements: filepath.Join(dir, name+"_burgs"+ext),
		Flows:       filepath.Join(dir, name+"_trade_routes"+ext),
	}
}

// WriteAll writes settlements and flows to p.
func WriteAll(p Paths, settlements []economy.Settlement, flows []trade.Flow) error {
	if err := WriteJSON(p.Settlements, settlements); err != nil {
		return fmt.Errorf("write settlements: %w", err)
	}
	if flows == nil {
		flows = []trade.Flow{}
	}
	if err := WriteJSON(p.Flows, flows); err != nil {
		return fmt.Errorf("write trade routes: %w", err)
	}
	return nil
}

// WriteJSON encodes v as indented JSON to path, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	var w io.WriteCloser = nopCloser{f}
	if strings.HasSuffix(path, CompressedExt) {
		zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			f.Close()
			return err
		}
		w = zw
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		w.Close()
		f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadJSON decodes a file written by WriteJSON into v.
func ReadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, CompressedExt) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return err
		}
		defer zr.Close()
		r = zr
	}
	return json.NewDecoder(r).Decode(v)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
