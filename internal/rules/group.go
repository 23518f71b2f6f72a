package rules

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// DirGroup is one source directory, the object directory mirroring it, and its files
type DirGroup struct {
	SrcDir string
	ObjDir string
	Files  []string
}

// ObjectDir maps dir under srcRoot to the same relative path under objRoot,
// so <root>/src/a/b becomes <root>/obj/a/b.
func ObjectDir(srcRoot, objRoot, dir string) (string, error) {
	rel, err := filepath.Rel(srcRoot, dir)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside of source directory %s", dir, srcRoot)
	}
	return filepath.Join(objRoot, rel), nil
}

// GroupByDir buckets files by parent directory. Directories come out sorted,
// and a directory only appears if at least one file lives in it.
func GroupByDir(srcRoot, objRoot string, files []string) ([]DirGroup, error) {
	byDir := make(map[string][]string)
	for _, f := range files {
		dir := filepath.Dir(f)
		byDir[dir] = append(byDir[dir], f)
	}

	groups := make([]DirGroup, 0, len(byDir))
	for dir, dirFiles := range byDir {
		objDir, err := ObjectDir(srcRoot, objRoot, dir)
		if err != nil {
			return nil, err
		}
		slices.Sort(dirFiles)
		groups = append(groups, DirGroup{SrcDir: dir, ObjDir: objDir, Files: dirFiles})
	}

	slices.SortFunc(groups, func(a, b DirGroup) int {
		return strings.Compare(a.SrcDir, b.SrcDir)
	})
	return groups, nil
}

// SourceDirs is the union of the directories of every group, sorted
func SourceDirs(groups ...[]DirGroup) []string {
	var dirs []string
	for _, gs := range groups {
		for _, g := range gs {
			dirs = append(dirs, g.SrcDir)
		}
	}
	slices.Sort(dirs)
	return slices.Compact(dirs)
}
