package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
)

// RootEnv overrides repository-root detection when --root is not given
const RootEnv = "OCCA_DIR"

// Project is a resolved repository root plus its configuration
type Project struct {
	Root   string
	Config *Config
}

// ResolveRoot picks the repository root: the explicit value, $OCCA_DIR,
// the git worktree enclosing the working directory, then the working directory itself.
// The result is absolute and has no trailing separators.
func ResolveRoot(explicit string) (string, error) {
	if explicit == "" {
		explicit = os.Getenv(RootEnv)
	}
	if explicit != "" {
		return filepath.Abs(explicit)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("could not get current directory: %w", err)
	}
	if root, ok := worktreeRoot(cwd); ok {
		return root, nil
	}
	return cwd, nil
}

func worktreeRoot(dir string) (string, bool) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false
	}
	wt, err := repo.Worktree()
	if err != nil {
		// bare repository
		return "", false
	}
	root, err := filepath.Abs(wt.Filesystem.Root())
	if err != nil {
		return "", false
	}
	return root, true
}

// Open loads configPath (relative to root unless absolute). A missing
// default config file is not an error, an explicitly requested one is.
func Open(root, configPath string) (*Project, error) {
	root = filepath.Clean(root)

	explicit := configPath != ""
	if !explicit {
		configPath = ConfigFilename
	}
	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(root, configPath)
	}

	cfg, err := ParseConfigFromFile(configPath, NewConfigEnv(root))
	switch {
	case err == nil:
	case !explicit && errors.Is(err, os.ErrNotExist):
		cfg = DefaultConfig()
	default:
		return nil, fmt.Errorf("failed to load %s: %w", configPath, err)
	}

	return &Project{Root: root, Config: cfg}, nil
}

// Path turns a root-relative, slash-separated path from the config into an absolute one
func (p *Project) Path(rel string) string {
	rel = filepath.FromSlash(rel)
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, rel)
}
