package rules

import "strings"

// Section is the text that replaces one template placeholder
type Section struct {
	Placeholder string
	Text        string
}

// Substitute replaces every occurrence of each placeholder in a single pass,
// so text inserted for one placeholder is never rescanned for another.
// Placeholders that do not occur in tmpl are returned in missing.
func Substitute(tmpl string, sections []Section) (out string, missing []string) {
	pairs := make([]string, 0, 2*len(sections))
	for _, s := range sections {
		if !strings.Contains(tmpl, s.Placeholder) {
			missing = append(missing, s.Placeholder)
		}
		pairs = append(pairs, s.Placeholder, s.Text)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl), missing
}
