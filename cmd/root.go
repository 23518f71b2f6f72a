// occamake [--root DIR] [--config FILE] [--color WHEN] <subcommand>
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/libocca/occamake/internal/msg"
	"github.com/spf13/cobra"
)

var (
	flagRoot   string
	flagConfig string
	flagColor  EnumValue = NewEnumValue("auto", map[string]string{
		"auto":   "Color when stdout is a terminal (default)",
		"always": "Always color output",
		"never":  "Never color output",
	})
)

func applyColor(cmd *cobra.Command, args []string) {
	switch flagColor.Value() {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}
}

// doRoot handles invocations that name no known subcommand. Those are not errors.
func doRoot(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		cmd.Help()
		return
	}
	msg.Warn("unknown subcommand %q, nothing to do (see %s --help)", args[0], cmd.CommandPath())
}

var rootCmd = &cobra.Command{
	Use:   "occamake <subcommand>",
	Short: "Generate and run the OCCA makefile",
	Long: `occamake generates per-directory compilation rules for the OCCA sources
into the makefile template, and runs make with the Python and NumPy
locations of the active interpreter.`,
	Args:             cobra.ArbitraryArgs,
	PersistentPreRun: applyColor,
	Run:              doRoot,
	SilenceUsage:     true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagRoot, "root", "", "Repository root (default: $OCCA_DIR, the enclosing git worktree, or the current directory)")
	pf.StringVarP(&flagConfig, "config", "c", "", "Config file, relative to the root (default: occamake.toml if present)")
	pf.Var(&flagColor, "color", "When to color output, one of "+flagColor.HelpString())
	rootCmd.RegisterFlagCompletionFunc("color", flagColor.CompletionFunc())
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
