// Package fixture loads large synthetic ingest fixtures for tests from
// zstd-compressed newline-delimited JSON, so big adjacency sets can ship
// as small files in the repository. It has no bearing on the hdag file
// wire format; it only feeds nodesource.Record slices to bundle tests.
//
// Grounded on the teacher's zstd usage pattern (a package-level
// zstd.NewReader(nil) reused across Read calls, e.g.
// rpcpool-yellowstone-faithful's cmd-dump-car.go and
// SnellerInc-sneller/ion/blockfmt/convert.go's per-call zstd.NewReader(r)).
package fixture

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/spbnick/hdag-sub001/nodesource"
)

// record is the NDJSON wire shape: hex-encoded hash plus hex-encoded
// target hashes.
type record struct {
	Hash    string   `json:"hash"`
	Targets []string `json:"targets,omitempty"`
}

// Load decompresses r as zstd and parses each line as a record, returning
// the equivalent nodesource.Record slice. hashLen is the expected decoded
// hash length in bytes, validated against every parsed hash.
func Load(r io.Reader, hashLen int) ([]nodesource.Record, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("fixture: opening zstd stream: %w", err)
	}
	defer zr.Close()

	var out []nodesource.Record
	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("fixture: line %d: %w", line, err)
		}
		hash, err := decodeHash(rec.Hash, hashLen)
		if err != nil {
			return nil, fmt.Errorf("fixture: line %d: hash: %w", line, err)
		}
		targets := make([][]byte, len(rec.Targets))
		for i, th := range rec.Targets {
			targets[i], err = decodeHash(th, hashLen)
			if err != nil {
				return nil, fmt.Errorf("fixture: line %d: target %d: %w", line, i, err)
			}
		}
		out = append(out, nodesource.Record{Hash: hash, Targets: targets})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("fixture: scanning: %w", err)
	}
	return out, nil
}

func decodeHash(s string, hashLen int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != hashLen {
		return nil, fmt.Errorf("hash %q has length %d, want %d", s, len(b), hashLen)
	}
	return b, nil
}
