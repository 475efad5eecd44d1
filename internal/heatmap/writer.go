// Package heatmap writes the final temperature field as text.
//
// The format is one line per grid row. Each cell is printed in fixed-point notation
// with six fractional digits and followed by a single space, so every line ends in
// a space before the newline:
//
//	0.000000 0.000000 0.000000 \n
//	0.000000 100.000000 0.000000 \n
package heatmap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/zeebo/xxh3"

	"github.com/heatslab/heatslab/types"
)

// Write renders g to w and returns the xxh3 hash of the bytes written.
//
// Parameters:
//   - w: Destination
//   - g: Reassembled grid
//
// Returns:
//   - uint64: xxh3-64 checksum of the output
//   - error: Write error
func Write(w io.Writer, g *types.Grid) (uint64, error) {
	h := xxh3.New()
	bw := bufio.NewWriter(io.MultiWriter(w, h))

	line := make([]byte, 0, g.Size*12)
	for i := range g.Size {
		line = line[:0]
		for _, v := range g.Row(i) {
			line = strconv.AppendFloat(line, v, 'f', 6, 64)
			line = append(line, ' ')
		}
		line = append(line, '\n')

		if _, err := bw.Write(line); err != nil {
			return 0, err
		}
	}

	if err := bw.Flush(); err != nil {
		return 0, err
	}

	return h.Sum64(), nil
}

// WriteFile writes g to path atomically.
//
// The output goes to a temporary file in the same directory, which is renamed over
// path only after a successful write, so a failed run never leaves a partial file.
//
// Returns:
//   - uint64: xxh3-64 checksum of the file content
//   - error: Create, write, sync or rename error
func WriteFile(path string, g *types.Grid) (uint64, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary output: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	sum, err := Write(tmp, g)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // output is meant to be readable
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to move output into place: %w", err)
	}

	return sum, nil
}

// Checksum returns the xxh3-64 hash of data, comparable with Write's result.
func Checksum(data []byte) uint64 {
	return xxh3.Hash(data)
}
