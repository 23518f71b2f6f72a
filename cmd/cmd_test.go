package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/libocca/occamake/internal/msg"
	"github.com/libocca/occamake/internal/project"
)

func captureMsg(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	oldOut, oldNoColor := msg.Stdout, color.NoColor
	msg.Stdout, color.NoColor = &buf, true
	t.Cleanup(func() { msg.Stdout, color.NoColor = oldOut, oldNoColor })
	return &buf
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newProject(t *testing.T, files map[string]string) *project.Project {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		writeFile(t, root, rel, content)
	}
	p, err := project.Open(root, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return p
}

const testTemplate = "# occa\n@OCCA_CPP_RULES@\n# fortran\n@OCCA_FORTRAN_RULES@\n"

func TestUnknownSubcommandIsNoop(t *testing.T) {
	out := captureMsg(t)
	rootCmd.SetArgs([]string{"--color", "never", "frobnicate"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), `warn: unknown subcommand "frobnicate"`) {
		t.Errorf("output = %q", out)
	}
}

func TestGenerateMakefile(t *testing.T) {
	out := captureMsg(t)
	p := newProject(t, map[string]string{
		"scripts/makefile.in":  testTemplate,
		"src/core/device.cpp":  "",
		"src/tools/env.cpp":    "",
		"src/fortran/occa.f90": "",
	})
	ctx := context.Background()

	if err := generateMakefile(ctx, p, false); err != nil {
		t.Fatalf("generateMakefile() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(p.Root, "makefile"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{
		"$(OCCA_DIR)/obj/core/device.o: $(OCCA_DIR)/src/core/device.cpp\n",
		"$(OCCA_DIR)/obj/tools/env.o: $(OCCA_DIR)/src/tools/env.cpp\n",
		"$(OCCA_DIR)/obj/fortran/occa.o: $(OCCA_DIR)/src/fortran/occa.f90\n",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("makefile is missing %q", want)
		}
	}
	if strings.Contains(content, p.Root) {
		t.Error("makefile contains the absolute root")
	}
	if !strings.Contains(out.String(), "info: wrote makefile (3 source files in 3 directories)") {
		t.Errorf("output = %q", out)
	}

	out.Reset()
	if err := generateMakefile(ctx, p, true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "makefile is up to date") {
		t.Errorf("diff of an unchanged tree printed %q", out)
	}

	writeFile(t, p.Root, "src/core/kernel.cpp", "")
	out.Reset()
	if err := generateMakefile(ctx, p, true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "+$(OCCA_DIR)/obj/core/kernel.o: $(OCCA_DIR)/src/core/kernel.cpp") {
		t.Errorf("diff output = %q", out)
	}
	after, err := os.ReadFile(filepath.Join(p.Root, "makefile"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(after, data) {
		t.Error("--diff rewrote the makefile")
	}
}

func TestGenerateMakefileMissingPlaceholder(t *testing.T) {
	out := captureMsg(t)
	p := newProject(t, map[string]string{
		"scripts/makefile.in": "@OCCA_CPP_RULES@\n",
		"src/a.cpp":           "",
	})

	if err := generateMakefile(context.Background(), p, false); err != nil {
		t.Fatalf("generateMakefile() error = %v", err)
	}
	if !strings.Contains(out.String(), "warn: template scripts/makefile.in has no @OCCA_FORTRAN_RULES@ placeholder") {
		t.Errorf("output = %q", out)
	}
}

func TestGenerateMakefileMissingTemplate(t *testing.T) {
	captureMsg(t)
	p := newProject(t, map[string]string{"src/a.cpp": ""})
	if err := generateMakefile(context.Background(), p, false); err == nil {
		t.Error("generateMakefile() without a template succeeded")
	}
}

func TestRuleOptionsGitignore(t *testing.T) {
	p := newProject(t, map[string]string{
		"occamake.toml": "[layout]\nrespect_gitignore = true\n",
		".gitignore":    "src/generated/\n",
	})

	opts, err := ruleOptions(p)
	if err != nil {
		t.Fatalf("ruleOptions() error = %v", err)
	}
	if opts.Ignore == nil {
		t.Fatal("respect_gitignore did not install an ignore func")
	}
	if !opts.Ignore("src/generated/kernels.cpp") || opts.Ignore("src/core/device.cpp") {
		t.Error("ignore func does not follow .gitignore")
	}
	if len(opts.Languages) != 2 || opts.Languages[0].Ext != ".cpp" || opts.Languages[1].Ext != ".f90" {
		t.Errorf("Languages = %+v", opts.Languages)
	}
}

func TestBuildOptions(t *testing.T) {
	p := newProject(t, map[string]string{
		"occamake.toml": "[build]\nmodule = \"occa_py\"\n",
	})
	t.Setenv("MAKE", "/opt/bin/gmake")
	t.Setenv("PYTHON", "/opt/bin/python3")

	opts, err := buildOptions(p, []string{"-j4"}, true)
	if err != nil {
		t.Fatalf("buildOptions() error = %v", err)
	}
	if opts.Make != "/opt/bin/gmake" || opts.Root != p.Root || opts.RuleFile != filepath.Join(p.Root, "makefile") {
		t.Errorf("buildOptions() = %+v", opts)
	}
	if opts.Module != "occa_py" || opts.ModulePath != "lib" || !opts.DryRun {
		t.Errorf("buildOptions() = %+v", opts)
	}
}

func TestAbsoluteOutputIsSharedByMakefileAndBuild(t *testing.T) {
	captureMsg(t)
	out := filepath.Join(t.TempDir(), "GNUmakefile")
	p := newProject(t, map[string]string{
		"occamake.toml":       "[layout]\noutput = \"" + filepath.ToSlash(out) + "\"\n",
		"scripts/makefile.in": testTemplate,
		"src/core/device.cpp": "",
	})
	t.Setenv("MAKE", "/opt/bin/gmake")
	t.Setenv("PYTHON", "/opt/bin/python3")

	if err := generateMakefile(context.Background(), p, false); err != nil {
		t.Fatalf("generateMakefile() error = %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("makefile not written to %s: %v", out, err)
	}
	if _, err := os.Stat(filepath.Join(p.Root, "makefile")); err == nil {
		t.Error("makefile also written under the root")
	}

	opts, err := buildOptions(p, nil, true)
	if err != nil {
		t.Fatalf("buildOptions() error = %v", err)
	}
	if opts.RuleFile != out {
		t.Errorf("RuleFile = %q, want %q", opts.RuleFile, out)
	}
}
