// Package diagnostics exports a built ParsingTable's shape as JSON,
// with both io.Writer and file-path variants. The dump is a one-way
// inspection aid, not a save/load format: a parsing table is rebuilt
// from the grammar every process start, never reloaded from disk.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/entrydsm/formulon/internal/lrtable"
)

// Report is the JSON-serializable shape of a table's diagnostics.
type Report struct {
	lrtable.Stats
	DenseCells int     `json:"dense_cells"`
	LoadFactor float64 `json:"load_factor"`
}

// BuildReport summarizes table: its Stats plus the dense-representation
// cell count and the sparse/dense load factor (ActionEntries over
// DenseCells), a rough measure of how much a driver would save by
// indexing the dense array instead of hashing sparse map keys.
func BuildReport(table *lrtable.ParsingTable) Report {
	stats := table.Stats()
	dense, terminals := table.Dense()

	cells := len(dense) * len(terminals)
	var load float64
	if cells > 0 {
		load = float64(stats.ActionEntries) / float64(cells)
	}

	return Report{
		Stats:      stats,
		DenseCells: cells,
		LoadFactor: load,
	}
}

// WriteJSON encodes table's report to w.
func WriteJSON(table *lrtable.ParsingTable, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildReport(table))
}

// SaveJSON writes table's report to a JSON file at path.
func SaveJSON(table *lrtable.ParsingTable, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(table, f)
}
