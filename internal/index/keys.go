package index

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/notebundle/internal/models"
)

// schemeRe matches the scheme of an absolute URL ("https:", "mailto:").
var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:`)

// foldKey normalises s for case- and form-insensitive comparison.
func foldKey(s string) string {
	return norm.NFC.String(cases.Fold().String(norm.NFC.String(s)))
}

// trimNoteExt drops a trailing .md in any letter case.
func trimNoteExt(p string) string {
	if models.IsNotePath(p) {
		return p[:len(p)-len(models.NoteExt)]
	}
	return p
}

// nameKey is the key a file is found under by bare name: the folded
// basename, without extension for notes.
func nameKey(p string) string {
	return foldKey(trimNoteExt(path.Base(p)))
}

// normalizeTarget reduces a raw reference to its path part: the #heading
// or #^block subpath is dropped and percent-escapes are decoded.
func normalizeTarget(target string) string {
	t := strings.TrimSpace(target)
	if i := strings.IndexByte(t, '#'); i >= 0 {
		t = t[:i]
	}
	if strings.ContainsRune(t, '%') {
		if u, err := url.PathUnescape(t); err == nil {
			t = u
		}
	}
	return strings.TrimSpace(t)
}

// isExternal reports whether target points outside the vault.
func isExternal(target string) bool {
	return schemeRe.MatchString(target) || strings.HasPrefix(target, "//")
}

// targetKey is the key a stored reference is looked up by when computing
// backlinks. It equals nameKey of the file the reference names and, for a
// bare alias, the alias key.
func targetKey(target string) string {
	t := normalizeTarget(target)
	if t == "" || isExternal(t) {
		return ""
	}
	return nameKey(t)
}
