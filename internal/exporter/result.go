package exporter

import (
	"time"

	"github.com/starford/notebundle/internal/bundle"
)

// Result describes one finished export. A non-empty Failed list means the
// document was written but some attachments were not copied.
type Result struct {
	ID         string               `json:"id"`
	Note       string               `json:"note"`
	OutputDir  string               `json:"output_dir"`
	Document   string               `json:"document"`
	Copied     []bundle.ExportEntry `json:"copied"`
	Failed     []CopyFailure        `json:"failed,omitempty"`
	Unresolved []string             `json:"unresolved,omitempty"`
	Collisions map[string][]string  `json:"collisions,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	Duration   time.Duration        `json:"duration"`
}

// CopyFailure records an attachment that could not be copied.
type CopyFailure struct {
	Entry bundle.ExportEntry `json:"entry"`
	Error string             `json:"error"`
}

// HasWarnings reports whether the export succeeded only partially.
func (r *Result) HasWarnings() bool {
	return len(r.Failed) > 0
}
