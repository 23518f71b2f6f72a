package msg

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Stdout is where every message is printed
var Stdout io.Writer = os.Stdout

func line(prefix, format string, a ...any) {
	fmt.Fprint(Stdout, prefix)
	fmt.Fprint(Stdout, ": ")
	fmt.Fprintf(Stdout, format, a...)
	fmt.Fprint(Stdout, "\n")
}

func Error(format string, a ...any) {
	line(color.HiRedString("error"), format, a...)
}

func Warn(format string, a ...any) {
	line(color.YellowString("warn"), format, a...)
}

func Fatal(format string, a ...any) {
	line(color.RedString("fatal"), format, a...)
	os.Exit(1)
}

func Info(format string, a ...any) {
	line(color.HiGreenString("info"), format, a...)
}

const noteWidth = 40

// Note prints an advisory box. It never affects the exit status.
//
//	---[ Note ]-----------------------------
//	 Remember to:
//	   export PYTHONPATH=$PYTHONPATH:/opt/occa/lib
//	========================================
func Note(title string, lines ...string) {
	head := "---[ " + title + " ]"
	if n := noteWidth - len(head); n > 0 {
		head += strings.Repeat("-", n)
	}

	w := &IndentWriter{Indent: "    ", W: Stdout}
	fmt.Fprintln(Stdout)
	fmt.Fprintln(w, color.HiCyanString(head))
	for _, l := range lines {
		fmt.Fprintln(w, " "+l)
	}
	fmt.Fprintln(w, strings.Repeat("=", noteWidth))
}

// IndentWriter prefixes every line written through it with Indent
type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	for len(p) > 0 {
		if !w.didIndent {
			if _, err := io.WriteString(w.W, w.Indent); err != nil {
				return n, err
			}
			w.didIndent = true
		}

		end := bytes.IndexAny(p, "\r\n") + 1
		if end == 0 {
			end = len(p)
		} else {
			w.didIndent = false
		}

		written, err := w.W.Write(p[:end])
		n += written
		if err != nil {
			return n, err
		}
		p = p[end:]
	}
	return n, nil
}
