package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/starford/notebundle/internal/exporter"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

func printSummary(w io.Writer, res *exporter.Result) {
	label := okColor.Sprint("exported")
	if res.HasWarnings() {
		label = warnColor.Sprint("exported with warnings")
	}
	fmt.Fprintf(w, "%s %s -> %s (%d copied, %s)\n",
		label, res.Note, res.Document, len(res.Copied), res.Duration.Round(time.Millisecond))

	for _, f := range res.Failed {
		fmt.Fprintf(w, "  %s %s: %s\n", warnColor.Sprint("copy failed"), f.Entry.Path, f.Error)
	}
	for newPath, sources := range res.Collisions {
		fmt.Fprintf(w, "  %s %s <- %v\n", warnColor.Sprint("collision"), newPath, sources)
	}
	for _, ref := range res.Unresolved {
		fmt.Fprintf(w, "  %s %s\n", dimColor.Sprint("unresolved"), ref)
	}
}

func printFailure(w io.Writer, ref string, err error) {
	fmt.Fprintf(w, "%s %s: %v\n", failColor.Sprint("export failed"), ref, err)
}

func printSuggestions(w io.Writer, paths []string) {
	for _, p := range paths {
		fmt.Fprintf(w, "  %s %s\n", dimColor.Sprint("did you mean"), p)
	}
}

func printIndexed(w io.Writer, files, notes int) {
	fmt.Fprintf(w, "%s %d files (%d notes)\n", okColor.Sprint("indexed"), files, notes)
}
