package bundle

// LinkResolver maps a raw reference, as written in the note at fromPath,
// to the vault path of an existing file. It must be deterministic for a
// fixed vault state.
type LinkResolver interface {
	ResolveLink(target, fromPath string) (string, bool)
}

// ResolverFunc adapts a plain function to LinkResolver.
type ResolverFunc func(target, fromPath string) (string, bool)

func (f ResolverFunc) ResolveLink(target, fromPath string) (string, bool) {
	return f(target, fromPath)
}

// ResolvedFile pairs a raw reference with the file it resolved to.
type ResolvedFile struct {
	Reference string `json:"reference"`
	Path      string `json:"path"`
}

// Resolve looks up a single reference. An unresolved reference is not an
// error: ok is false and the reference is left alone downstream.
func Resolve(r LinkResolver, fromPath, ref string) (ResolvedFile, bool) {
	path, ok := r.ResolveLink(ref, fromPath)
	if !ok || path == "" {
		return ResolvedFile{}, false
	}
	return ResolvedFile{Reference: ref, Path: path}, true
}

// ResolveAll resolves refs independently, keeping their order. References
// that do not resolve are returned separately.
func ResolveAll(r LinkResolver, fromPath string, refs []string) (resolved []ResolvedFile, unresolved []string) {
	for _, ref := range refs {
		if rf, ok := Resolve(r, fromPath, ref); ok {
			resolved = append(resolved, rf)
		} else {
			unresolved = append(unresolved, ref)
		}
	}
	return resolved, unresolved
}
