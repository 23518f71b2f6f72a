package rules

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6/plumbing/format/gitignore"
	"golang.org/x/sync/errgroup"
)

// Language is one extension group and the way its files are compiled
type Language struct {
	Name        string
	Ext         string // including the dot
	Placeholder string // replaced in the template by this language's rules
	ObjectsVar  string // make variable collecting the object files, may be empty
	Compile     string // recipe, left for make to expand
}

// IgnoreFunc reports whether a slash-separated, root-relative file should be skipped
type IgnoreFunc func(rel string) bool

// SourceSet is the sorted absolute paths of one language's sources
type SourceSet struct {
	Lang  Language
	Files []string
}

// Scan enumerates <root>/<srcDir>/**/*<ext> for every language. Each language is
// globbed in its own goroutine; the result keeps the order of langs.
func Scan(ctx context.Context, root, srcDir string, langs []Language, ignore IgnoreFunc) ([]SourceSet, error) {
	sets := make([]SourceSet, len(langs))
	fsys := os.DirFS(root)

	eg, ctx := errgroup.WithContext(ctx)
	for i, lang := range langs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			files, err := globSources(fsys, root, srcDir, lang.Ext, ignore)
			if err != nil {
				return fmt.Errorf("while scanning %s sources: %w", lang.Name, err)
			}
			sets[i] = SourceSet{Lang: lang, Files: files}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return sets, nil
}

var globMeta = strings.NewReplacer(
	`\`, `\\`, `*`, `\*`, `?`, `\?`,
	`[`, `\[`, `]`, `\]`, `{`, `\{`, `}`, `\}`,
)

// globSources matches **/*<ext> below srcDir. The source directory is entered
// with fs.Sub, so only ext ends up in the pattern. A missing srcDir has no sources.
func globSources(fsys fs.FS, root, srcDir, ext string, ignore IgnoreFunc) ([]string, error) {
	base := path.Clean(filepath.ToSlash(srcDir))
	if base != "." {
		sub, err := fs.Sub(fsys, base)
		if err != nil {
			return nil, err
		}
		fsys = sub
	}
	if _, err := fs.Stat(fsys, "."); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	matches, err := doublestar.Glob(fsys, "**/*"+globMeta.Replace(ext), doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		rel := path.Join(base, match)
		if ignore != nil && ignore(rel) {
			continue
		}
		files = append(files, filepath.Join(root, filepath.FromSlash(rel)))
	}
	slices.Sort(files)
	return files, nil
}

// LoadGitignore reads every .gitignore under root
func LoadGitignore(root string) (IgnoreFunc, error) {
	patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read .gitignore files: %w", err)
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	matcher := gitignore.NewMatcher(patterns)
	return func(rel string) bool {
		return matcher.Match(strings.Split(rel, "/"), false)
	}, nil
}
