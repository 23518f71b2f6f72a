package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/libocca/occamake/internal/project"
	"github.com/libocca/occamake/internal/rules"
	"github.com/spf13/cobra"
)

type EnumValue struct {
	value      string
	allowed    map[string]string // value -> help text
	defaultVal string
}

func NewEnumValue(defaultVal string, allowed map[string]string) EnumValue {
	if _, ok := allowed[defaultVal]; !ok {
		panic(fmt.Sprintf("default value %q not in allowed set", defaultVal))
	}
	return EnumValue{
		value:      defaultVal,
		allowed:    allowed,
		defaultVal: defaultVal,
	}
}

func (e *EnumValue) String() string     { return e.value }
func (e *EnumValue) HelpString() string { return "[" + strings.Join(e.AllowedKeys(), ", ") + "]" }
func (e *EnumValue) Type() string       { return "enum" }
func (e *EnumValue) Value() string      { return e.value }

func (e *EnumValue) Set(v string) error {
	if _, ok := e.allowed[v]; ok {
		e.value = v
		return nil
	}
	return fmt.Errorf("must be one of: %s", strings.Join(e.AllowedKeys(), ", "))
}

func (e *EnumValue) AllowedKeys() []string {
	return slices.Sorted(maps.Keys(e.allowed))
}

func (e *EnumValue) CompletionFunc() func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		items := make([]string, 0, len(e.allowed))
		for _, k := range e.AllowedKeys() {
			if help := e.allowed[k]; help != "" {
				items = append(items, k+"\t"+help)
			} else {
				items = append(items, k)
			}
		}
		return items, cobra.ShellCompDirectiveNoFileComp
	}
}

// loadProject resolves the repository root from the global flags and reads its config
func loadProject() (*project.Project, error) {
	root, err := project.ResolveRoot(flagRoot)
	if err != nil {
		return nil, err
	}
	return project.Open(root, flagConfig)
}

func language(name string, sec project.LanguageSection) rules.Language {
	return rules.Language{
		Name:        name,
		Ext:         sec.Ext,
		Placeholder: sec.Placeholder,
		ObjectsVar:  sec.ObjectsVar,
		Compile:     sec.Compile,
	}
}

// ruleOptions maps the project's [layout] and [rules] sections onto generator options
func ruleOptions(p *project.Project) (rules.Options, error) {
	layout := p.Config.Layout
	opts := rules.Options{
		Root:      p.Root,
		SourceDir: layout.SourceDir,
		ObjectDir: layout.ObjectDir,
		Template:  layout.Template,
		Output:    p.Path(layout.Output),
		RootVar:   layout.RootVar,
		Languages: []rules.Language{
			language("cpp", p.Config.Rules.Cpp),
			language("fortran", p.Config.Rules.Fortran),
		},
	}

	if layout.RespectGitignore {
		ignore, err := rules.LoadGitignore(p.Root)
		if err != nil {
			return rules.Options{}, err
		}
		opts.Ignore = ignore
	}
	return opts, nil
}
