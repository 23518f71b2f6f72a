// occamake build [--dry-run] [make args...]
package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/libocca/occamake/internal/invoke"
	"github.com/libocca/occamake/internal/msg"
	"github.com/libocca/occamake/internal/project"
	"github.com/spf13/cobra"
)

var flagDryRun bool

func buildOptions(p *project.Project, args []string, dryRun bool) (invoke.Options, error) {
	build := p.Config.Build

	makeProgram, err := invoke.FindMake(build.Make)
	if err != nil {
		return invoke.Options{}, err
	}
	interp, err := invoke.FindInterpreter(build.Interpreter)
	if err != nil {
		return invoke.Options{}, err
	}

	return invoke.Options{
		Root:        p.Root,
		RuleFile:    p.Path(p.Config.Layout.Output),
		Make:        makeProgram,
		Interpreter: interp,
		Module:      build.Module,
		ModulePath:  build.ModulePath,
		Args:        args,
		DryRun:      dryRun,
	}, nil
}

func runBuild(ctx context.Context, p *project.Project, args []string, dryRun bool) error {
	opts, err := buildOptions(p, args, dryRun)
	if err != nil {
		return err
	}
	return invoke.Build(ctx, opts)
}

func doBuild(cmd *cobra.Command, args []string) {
	p, err := loadProject()
	if err != nil {
		msg.Fatal("%v", err)
	}

	err = runBuild(cmd.Context(), p, args, flagDryRun)
	var exitErr *invoke.ExitError
	switch {
	case errors.As(err, &exitErr):
		msg.Error("%v", exitErr)
		os.Exit(exitErr.Code)
	case err != nil:
		msg.Fatal("%v", err)
	}
}

var buildCmd = &cobra.Command{
	Use:   "build [make args...]",
	Short: "Run make with the interpreter's Python and NumPy locations",
	Long: `Run make against the generated makefile, passing the header, library and
NumPy include directories of the Python interpreter. Arguments are passed
through to make; put them after -- when they start with a dash.`,
	Args: cobra.ArbitraryArgs,
	Run:  doBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().BoolVarP(&flagDryRun, "dry-run", "n", false, "Print the make invocation instead of running it")
	buildCmd.Flags().SetInterspersed(false)
}
