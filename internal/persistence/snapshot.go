// Full-state snapshot export: JSON, zstd-compressed, with a blake3 digest
// for integrity. Snapshots are opaque to the engine; they exist for
// operators and external tooling.
package persistence

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"

	"github.com/talgya/citygrid/internal/engine"
	"github.com/talgya/citygrid/internal/roads"
)

// StateExport is the serialized form of one full snapshot.
type StateExport struct {
	Tick      uint64                     `json:"tick"`
	Digest    string                     `json:"digest"` // engine state digest
	Buildings []*engine.BuildingInstance `json:"buildings"`
	Segments  []*roads.RoadSegment       `json:"segments"`
	Routes    []*roads.TransitRoute      `json:"routes"`
	Events    []engine.Event             `json:"events"`
}

// ExportState serializes and compresses the full city state. Returns the
// compressed bytes and the blake3 hex digest of the uncompressed JSON.
func ExportState(sim *engine.Simulation) ([]byte, string, error) {
	export := StateExport{
		Tick:      sim.CurrentTick(),
		Digest:    sim.StateDigest(),
		Buildings: sim.Buildings(),
		Segments:  sim.Net.Segments(),
		Routes:    sim.Net.Routes(),
		Events:    sim.Events,
	}

	raw, err := json.Marshal(export)
	if err != nil {
		return nil, "", fmt.Errorf("marshal state: %w", err)
	}
	sum := blake3.Sum256(raw)

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, "", fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, "", fmt.Errorf("compress state: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("compress state: %w", err)
	}

	return buf.Bytes(), hex.EncodeToString(sum[:]), nil
}

// ImportState decompresses and decodes a snapshot, verifying the content
// digest before returning it.
func ImportState(compressed []byte) (*StateExport, error) {
	zr, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress state: %w", err)
	}

	var export StateExport
	if err := json.Unmarshal(raw, &export); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &export, nil
}

// WriteSnapshotFile exports the state to path and returns the digest.
func WriteSnapshotFile(sim *engine.Simulation, path string) (string, error) {
	data, digest, err := ExportState(sim)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return digest, nil
}
