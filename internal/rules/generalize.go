package rules

import (
	"path/filepath"
	"strings"
)

// Generalizer rewrites absolute paths under the repository root to start
// with a make variable, so the generated makefile can be moved with the tree.
type Generalizer struct {
	root   string
	prefix string
	token  string
}

func NewGeneralizer(root, rootVar string) Generalizer {
	root = filepath.ToSlash(filepath.Clean(root))
	return Generalizer{
		root:   root,
		prefix: strings.TrimSuffix(root, "/") + "/",
		token:  "$(" + rootVar + ")",
	}
}

// Token is the symbolic reference that replaces the root, e.g. $(OCCA_DIR)
func (g Generalizer) Token() string { return g.token }

// Path returns p with the root replaced by the token. Paths outside the root
// and already generalized paths come back unchanged (apart from slashes).
func (g Generalizer) Path(p string) string {
	p = filepath.ToSlash(p)
	if p == g.root {
		return g.token
	}
	if rest, ok := strings.CutPrefix(p, g.prefix); ok {
		return g.token + "/" + rest
	}
	return p
}
