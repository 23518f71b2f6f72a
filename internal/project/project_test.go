package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v6"
)

func samePath(t *testing.T, got, want string) {
	t.Helper()
	g, err := filepath.EvalSymlinks(got)
	if err != nil {
		t.Fatalf("EvalSymlinks(%q): %v", got, err)
	}
	w, err := filepath.EvalSymlinks(want)
	if err != nil {
		t.Fatalf("EvalSymlinks(%q): %v", want, err)
	}
	if g != w {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestResolveRootExplicit(t *testing.T) {
	t.Setenv(RootEnv, "")
	dir := t.TempDir()

	got, err := ResolveRoot(dir + string(filepath.Separator) + string(filepath.Separator))
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Clean(dir) {
		t.Errorf("ResolveRoot() = %q, want trailing separators stripped to %q", got, dir)
	}
}

func TestResolveRootEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(RootEnv, dir)

	got, err := ResolveRoot("")
	if err != nil {
		t.Fatal(err)
	}
	if got != dir {
		t.Errorf("ResolveRoot() = %q, want %q", got, dir)
	}
}

func TestResolveRootGitWorktree(t *testing.T) {
	t.Setenv(RootEnv, "")
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	sub := filepath.Join(dir, "src", "modes")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(sub)

	got, err := ResolveRoot("")
	if err != nil {
		t.Fatal(err)
	}
	samePath(t, got, dir)
}

func TestResolveRootFallsBackToCwd(t *testing.T) {
	t.Setenv(RootEnv, "")
	dir := t.TempDir()
	t.Chdir(dir)

	if _, ok := worktreeRoot(dir); ok {
		t.Skip("temporary directory is inside a git worktree")
	}

	got, err := ResolveRoot("")
	if err != nil {
		t.Fatal(err)
	}
	samePath(t, got, dir)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	p, err := Open(dir, "")
	if err != nil {
		t.Fatalf("Open() without config: %v", err)
	}
	if p.Config.Layout.Template != "scripts/makefile.in" {
		t.Errorf("Template = %q, want default", p.Config.Layout.Template)
	}
	if got, want := p.Path("scripts/makefile.in"), filepath.Join(dir, "scripts", "makefile.in"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
	if abs := filepath.Join(t.TempDir(), "GNUmakefile"); p.Path(filepath.ToSlash(abs)) != abs {
		t.Errorf("Path(%q) = %q, want it unchanged", abs, p.Path(abs))
	}

	if _, err := Open(dir, "custom.toml"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open() with missing explicit config: err = %v, want ErrNotExist", err)
	}

	cfg := "[layout]\noutput = \"GNUmakefile\"\n"
	if err := os.WriteFile(filepath.Join(dir, ConfigFilename), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err = Open(dir, "")
	if err != nil {
		t.Fatalf("Open() with config: %v", err)
	}
	if p.Config.Layout.Output != "GNUmakefile" {
		t.Errorf("Output = %q", p.Config.Layout.Output)
	}
}
