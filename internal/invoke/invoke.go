package invoke

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/libocca/occamake/internal/msg"
	"github.com/libocca/occamake/internal/pyenv"
)

// make variables read by the OCCA makefile
const (
	VarCompilePython = "OCCA_COMPILE_PYTHON"
	VarLibPython     = "OCCA_LIBPYTHON"
	VarLibPythonDir  = "OCCA_LIBPYTHON_DIR"
	VarPythonDir     = "OCCA_PYTHON_DIR"
	VarNumpyDir      = "OCCA_NUMPY_DIR"
)

type Var struct {
	Name, Value string
}

func (v Var) String() string { return v.Name + "=" + v.Value }

// Command is one make invocation against the generated rule file
type Command struct {
	Make     string
	Vars     []Var
	Args     []string
	RuleFile string
}

// underRoot joins rel onto root unless rel is already absolute
func underRoot(root, rel string) string {
	rel = filepath.FromSlash(rel)
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(filepath.Clean(root), rel)
}

// NewCommand builds `make <vars> <args> -f <root>/<ruleFile>` for the runtime rt.
// An absolute ruleFile is used as is.
func NewCommand(makeProgram, root, ruleFile string, rt *pyenv.Runtime, args []string) *Command {
	return &Command{
		Make: makeProgram,
		Vars: []Var{
			{VarCompilePython, "1"},
			{VarLibPython, rt.Name()},
			{VarLibPythonDir, rt.LibraryDir()},
			{VarPythonDir, rt.HeaderDir()},
			{VarNumpyDir, rt.NumpyDir()},
		},
		Args:     args,
		RuleFile: underRoot(root, ruleFile),
	}
}

// Argv is the argument vector passed to the child, program first
func (c *Command) Argv() []string {
	argv := make([]string, 0, 3+len(c.Vars)+len(c.Args))
	argv = append(argv, c.Make)
	for _, v := range c.Vars {
		argv = append(argv, v.String())
	}
	argv = append(argv, c.Args...)
	argv = append(argv, "-f", c.RuleFile)
	return argv
}

// String renders the invocation as a shell command line
func (c *Command) String() string {
	argv := c.Argv()
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

const shellSafe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-+=/.,:@%"

func shellQuote(s string) string {
	if s != "" && strings.Trim(s, shellSafe) == "" {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ExitError is a make run that finished with a non-zero status
type ExitError struct {
	Code int
	Cmd  string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Cmd, e.Code)
}

// Run executes the command with this process's standard streams and waits for it
func (c *Command) Run(ctx context.Context) error {
	argv := c.Argv()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return &ExitError{Code: exitErr.ExitCode(), Cmd: filepath.Base(c.Make)}
	}
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", c.Make, err)
	}
	return nil
}

// Interpreter is the part of pyenv.Interpreter a build needs
type Interpreter interface {
	Probe(ctx context.Context) (*pyenv.Runtime, error)
	CanImport(ctx context.Context, module string) (bool, error)
}

type Options struct {
	Root        string
	RuleFile    string // relative to Root unless absolute
	Make        string
	Interpreter Interpreter
	Module      string // checked for importability after the build
	ModulePath  string // relative to Root unless absolute, suggested for PYTHONPATH
	Args        []string
	DryRun      bool
}

// Build probes the interpreter, runs make, then checks that the built module
// can be imported. The import check only prints advice.
func Build(ctx context.Context, opts Options) error {
	rt, err := opts.Interpreter.Probe(ctx)
	if err != nil {
		return err
	}

	cmd := NewCommand(opts.Make, opts.Root, opts.RuleFile, rt, opts.Args)
	if opts.DryRun {
		fmt.Fprintln(msg.Stdout, cmd.String())
		return nil
	}

	msg.Info("building with %s", rt.Name())
	if err := cmd.Run(ctx); err != nil {
		return err
	}

	if opts.Module == "" {
		return nil
	}
	ok, err := opts.Interpreter.CanImport(ctx, opts.Module)
	switch {
	case err != nil:
		msg.Warn("could not check whether %q is importable: %v", opts.Module, err)
	case !ok:
		libDir := underRoot(opts.Root, opts.ModulePath)
		msg.Note("Note",
			"Remember to:",
			"  export PYTHONPATH=$PYTHONPATH:"+filepath.ToSlash(libDir),
		)
	}
	return nil
}
