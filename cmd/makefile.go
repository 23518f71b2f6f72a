// occamake makefile [--diff]
package cmd

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/libocca/occamake/internal/msg"
	"github.com/libocca/occamake/internal/project"
	"github.com/libocca/occamake/internal/rules"
	"github.com/spf13/cobra"
)

var flagDiff bool

// generateMakefile renders the makefile for p. With diff set it prints the
// changes against the current output instead of writing it.
func generateMakefile(ctx context.Context, p *project.Project, diff bool) error {
	opts, err := ruleOptions(p)
	if err != nil {
		return err
	}

	var res *rules.Result
	if diff {
		res, err = rules.Render(ctx, opts)
	} else {
		res, err = rules.Generate(ctx, opts)
	}
	if err != nil {
		return err
	}

	for _, ph := range res.MissingPlaceholders {
		msg.Warn("template %s has no %s placeholder", opts.Template, ph)
	}

	rel, err := filepath.Rel(p.Root, res.Output)
	if err != nil {
		rel = res.Output
	}
	rel = filepath.ToSlash(rel)

	if !diff {
		msg.Info("wrote %s (%d source files in %d directories)", rel, res.Files, res.Dirs)
		return nil
	}

	old, err := os.ReadFile(res.Output)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	w := &msg.IndentWriter{Indent: "  ", W: msg.Stdout}
	if !rules.WriteDiff(w, string(old), res.Content) {
		msg.Info("%s is up to date", rel)
		return nil
	}
	msg.Info("%s would change (%d source files in %d directories)", rel, res.Files, res.Dirs)
	return nil
}

func doMakefile(cmd *cobra.Command, args []string) {
	p, err := loadProject()
	if err != nil {
		msg.Fatal("%v", err)
	}
	if err := generateMakefile(cmd.Context(), p, flagDiff); err != nil {
		msg.Fatal("%v", err)
	}
}

var makefileCmd = &cobra.Command{
	Use:   "makefile",
	Short: "Generate the makefile from its template",
	Long: `Scan the source tree and write one block of compilation rules per
source directory into the makefile template.`,
	Args: cobra.NoArgs,
	Run:  doMakefile,
}

func init() {
	rootCmd.AddCommand(makefileCmd)
	makefileCmd.Flags().BoolVarP(&flagDiff, "diff", "d", false, "Print what would change instead of writing the makefile")
}
