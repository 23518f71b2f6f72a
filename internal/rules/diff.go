package rules

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// WriteDiff prints a line diff from old to new, "-" lines in red and "+"
// lines in green. Unchanged lines are skipped. It reports whether anything differs.
func WriteDiff(w io.Writer, old, new string) bool {
	if old == new {
		return false
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(old, new)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	for _, d := range diffs {
		var prefix string
		var paint func(format string, a ...any) string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix, paint = "-", color.RedString
		case diffmatchpatch.DiffInsert:
			prefix, paint = "+", color.GreenString
		default:
			continue
		}
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l == "" {
				continue
			}
			fmt.Fprintln(w, paint("%s", prefix+strings.TrimSuffix(l, "\n")))
		}
	}
	return true
}
