package export

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/kinview/pkg/layout"
	"github.com/vanderheijden86/kinview/pkg/metrics"
)

// Manifest is the machine-readable sidecar written next to a snapshot. It
// carries what the image cannot: exclusion diagnostics and timing stats.
type Manifest struct {
	Title         string               `json:"title"`
	LayoutVersion uint64               `json:"layout_version"`
	NodeCount     int                  `json:"node_count"`
	EdgeCount     int                  `json:"edge_count"`
	Diagnostics   []layout.Diagnostic  `json:"diagnostics,omitempty"`
	Timings       []metrics.TimingStats `json:"timings,omitempty"`
}

// SaveManifest writes the manifest as JSON.
func SaveManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// BuildManifest assembles a manifest from a layout result.
func BuildManifest(title string, version uint64, res *layout.Result) Manifest {
	return Manifest{
		Title:         title,
		LayoutVersion: version,
		NodeCount:     len(res.Nodes),
		EdgeCount:     len(res.Connections),
		Diagnostics:   res.Diagnostics,
		Timings:       metrics.AllTimingStats(),
	}
}
