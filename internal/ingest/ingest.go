// Package ingest reads order workbooks, NF-e invoice XML files and dock
// count sheets into model lines.
package ingest

import (
	"slices"

	"github.com/sells-group/recon-cli/internal/model"
)

// Unknown names a supplier or issuer the source did not state.
const Unknown = "DESCONHECIDO"

// Stats counts what an ingestion step read and what it had to skip.
type Stats struct {
	Sources int `json:"sources"` // sheets or files read
	Skipped int `json:"skipped"` // sheets or files that could not be used
	Lines   int `json:"lines"`   // lines produced
	Invalid int `json:"invalid"` // lines whose quantity could not be parsed
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Sources += other.Sources
	s.Skipped += other.Skipped
	s.Lines += other.Lines
	s.Invalid += other.Invalid
}

// ExcludeStores drops every line whose store is listed. A nil input stays nil
// so an absent source remains absent.
func ExcludeStores[T model.StoreLine](lines []T, stores []string) []T {
	if lines == nil || len(stores) == 0 {
		return lines
	}
	out := make([]T, 0, len(lines))
	for _, l := range lines {
		if slices.Contains(stores, l.Store()) {
			continue
		}
		out = append(out, l)
	}
	return out
}
