package bundle

import "path"

// ExportEntry is a resolved file plus its path inside the bundle, relative
// to the exported note.
type ExportEntry struct {
	ResolvedFile
	NewPath string `json:"new_path"`
}

// Plan assigns every file a path of the form <folder>/<basename>. Only the
// directory changes, so two files sharing a basename collide on the same
// NewPath; the copy that finishes last wins.
func Plan(files []ResolvedFile, folder string) []ExportEntry {
	entries := make([]ExportEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, ExportEntry{
			ResolvedFile: f,
			NewPath:      folder + "/" + path.Base(f.Path),
		})
	}
	return entries
}

// Collisions groups entries whose NewPath is shared by more than one
// distinct source file.
func Collisions(entries []ExportEntry) map[string][]string {
	sources := make(map[string][]string)
	for _, e := range entries {
		dup := false
		for _, p := range sources[e.NewPath] {
			if p == e.Path {
				dup = true
				break
			}
		}
		if !dup {
			sources[e.NewPath] = append(sources[e.NewPath], e.Path)
		}
	}
	for k, v := range sources {
		if len(v) < 2 {
			delete(sources, k)
		}
	}
	return sources
}
