package invoke

import (
	"errors"
	"os"
	"os/exec"

	"github.com/libocca/occamake/internal/pyenv"
)

var (
	commonMakePrograms = []string{"make", "gmake", "mingw32-make"}
	commonInterpreters = []string{"python3", "python"}

	errMakeNotFound   = errors.New("no make program found (set $MAKE or build.make)")
	errPythonNotFound = errors.New("no python interpreter found (set $PYTHON or build.interpreter)")
)

// findTool resolves configured, then $envVar, then the first candidate on PATH
func findTool(configured, envVar string, candidates []string) string {
	if configured != "" {
		if path, err := exec.LookPath(configured); err == nil {
			return path
		}
		return configured
	}
	if v := os.Getenv(envVar); v != "" {
		return v
	}

	for _, tool := range candidates {
		path, err := exec.LookPath(tool)
		if err == nil {
			return path
		}
	}

	return ""
}

// FindMake picks the make program to run
func FindMake(configured string) (string, error) {
	if m := findTool(configured, "MAKE", commonMakePrograms); m != "" {
		return m, nil
	}
	return "", errMakeNotFound
}

// FindInterpreter picks the Python interpreter whose layout is passed to make
func FindInterpreter(configured string) (pyenv.Interpreter, error) {
	if p := findTool(configured, "PYTHON", commonInterpreters); p != "" {
		return pyenv.Interpreter{Path: p}, nil
	}
	return pyenv.Interpreter{}, errPythonNotFound
}
