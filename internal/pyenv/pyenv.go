// Package pyenv asks a Python interpreter where its headers, shared library
// and NumPy headers live.
package pyenv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

const probeScript = `import json, sys, sysconfig
info = {
    "major": sys.version_info[0],
    "minor": sys.version_info[1],
    "prefix": sys.prefix,
    "libdir": sysconfig.get_config_var("LIBDIR") or "",
    "abiflags": getattr(sys, "abiflags", None),
    "numpy_include": "",
}
try:
    import numpy
    info["numpy_include"] = numpy.get_include()
except ImportError:
    pass
sys.stdout.write(json.dumps(info))
`

const findSpecScript = `import importlib.util, sys
sys.exit(0 if importlib.util.find_spec(sys.argv[1]) is not None else 1)
`

var (
	errNoVersion = errors.New("interpreter did not report its version")
	errNoPrefix  = errors.New("interpreter did not report sys.prefix")
	errNoLibDir  = errors.New("interpreter did not report LIBDIR")
)

// Runtime is what one probe of the interpreter reported
type Runtime struct {
	Major        int     `json:"major"`
	Minor        int     `json:"minor"`
	Prefix       string  `json:"prefix"`
	LibDir       string  `json:"libdir"`
	ABIFlags     *string `json:"abiflags"` // nil when the interpreter has no sys.abiflags
	NumpyInclude string  `json:"numpy_include"`
}

// Name is the version-qualified runtime name, e.g. python3.11 or python3.7m.
// Without reported ABI flags, major version 3 gets the historical "m" suffix.
func (rt *Runtime) Name() string {
	name := "python" + strconv.Itoa(rt.Major) + "." + strconv.Itoa(rt.Minor)
	switch {
	case rt.ABIFlags != nil:
		name += *rt.ABIFlags
	case rt.Major == 3:
		name += "m"
	}
	return name
}

func dirWithSlash(elem ...string) string {
	return filepath.ToSlash(filepath.Join(elem...)) + "/"
}

// HeaderDir is <prefix>/include/<name>/
func (rt *Runtime) HeaderDir() string {
	return dirWithSlash(rt.Prefix, "include", rt.Name())
}

// LibraryDir is the LIBDIR config var with a trailing slash
func (rt *Runtime) LibraryDir() string {
	return dirWithSlash(rt.LibDir)
}

// NumpyDir is numpy.get_include() with a trailing slash, or "" without NumPy
func (rt *Runtime) NumpyDir() string {
	if rt.NumpyInclude == "" {
		return ""
	}
	return dirWithSlash(rt.NumpyInclude)
}

// ParseProbe decodes the JSON printed by the probe script
func ParseProbe(r io.Reader) (*Runtime, error) {
	rt := new(Runtime)
	if err := json.NewDecoder(r).Decode(rt); err != nil {
		return nil, fmt.Errorf("failed to decode interpreter info: %w", err)
	}
	switch {
	case rt.Major == 0:
		return nil, errNoVersion
	case rt.Prefix == "":
		return nil, errNoPrefix
	case rt.LibDir == "":
		return nil, errNoLibDir
	}
	return rt, nil
}

// Interpreter is a Python executable
type Interpreter struct {
	Path string
}

// Probe runs the interpreter once and reports its layout. A missing NumPy is an error.
func (in Interpreter) Probe(ctx context.Context) (*Runtime, error) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, in.Path, "-c", probeScript)
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", in.Path, err)
	}

	rt, err := ParseProbe(&stdout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.Path, err)
	}
	if rt.NumpyInclude == "" {
		return nil, fmt.Errorf("numpy is not importable by %s (install it with `%s -m pip install numpy`)", in.Path, in.Path)
	}
	return rt, nil
}

// CanImport reports whether the interpreter's module search path resolves module
func (in Interpreter) CanImport(ctx context.Context, module string) (bool, error) {
	cmd := exec.CommandContext(ctx, in.Path, "-c", findSpecScript, module)
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("failed to run %s: %w", in.Path, err)
}
