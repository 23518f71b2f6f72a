package rules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

type Options struct {
	Root      string // absolute repository root
	SourceDir string // relative to Root
	ObjectDir string // relative to Root
	Template  string // relative to Root
	Output    string // relative to Root
	RootVar   string // make variable standing in for Root
	Languages []Language
	Ignore    IgnoreFunc
}

// Result is what a generation produced, written or not
type Result struct {
	Output              string
	Content             string
	Blocks              map[string][]Block // language name -> blocks
	Files               int
	Dirs                int
	MissingPlaceholders []string
}

func (o Options) path(rel string) string {
	rel = filepath.FromSlash(rel)
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(o.Root, rel)
}

// Render builds the makefile contents without touching the output file
func Render(ctx context.Context, opts Options) (*Result, error) {
	root := filepath.Clean(opts.Root)
	opts.Root = root

	tmplPath := opts.path(opts.Template)
	tmpl, err := os.ReadFile(tmplPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	srcRoot := opts.path(opts.SourceDir)
	objRoot := opts.path(opts.ObjectDir)

	relSrc, err := filepath.Rel(root, srcRoot)
	if err != nil || !filepath.IsLocal(relSrc) {
		return nil, fmt.Errorf("source directory %s is outside of %s", srcRoot, root)
	}

	sets, err := Scan(ctx, root, relSrc, opts.Languages, opts.Ignore)
	if err != nil {
		return nil, err
	}

	gen := NewGeneralizer(root, opts.RootVar)
	res := &Result{
		Output: opts.path(opts.Output),
		Blocks: make(map[string][]Block, len(sets)),
	}

	sections := make([]Section, 0, len(sets))
	allGroups := make([][]DirGroup, 0, len(sets))
	for _, set := range sets {
		groups, err := GroupByDir(srcRoot, objRoot, set.Files)
		if err != nil {
			return nil, err
		}
		allGroups = append(allGroups, groups)

		blocks := RenderBlocks(set.Lang, groups, gen)
		res.Blocks[set.Lang.Name] = blocks
		res.Files += len(set.Files)
		sections = append(sections, Section{Placeholder: set.Lang.Placeholder, Text: JoinBlocks(blocks)})
	}
	res.Dirs = len(SourceDirs(allGroups...))

	res.Content, res.MissingPlaceholders = Substitute(string(tmpl), sections)
	return res, nil
}

// Generate renders the makefile and overwrites the output file with it
func Generate(ctx context.Context, opts Options) (*Result, error) {
	res, err := Render(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(res.Output, []byte(res.Content), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", res.Output, err)
	}
	return res, nil
}
