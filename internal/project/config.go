package project

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/pelletier/go-toml/v2"
)

const ConfigFilename = "occamake.toml"

type Config struct {
	Layout LayoutSection `toml:"layout"`
	Rules  RulesSection  `toml:"rules"`
	Build  BuildSection  `toml:"build"`
}

// LayoutSection defines the [layout] section. Paths are relative to the repository root.
type LayoutSection struct {
	SourceDir        string `toml:"source_dir"`
	ObjectDir        string `toml:"object_dir"`
	Template         string `toml:"template"`
	Output           string `toml:"output"`
	RootVar          string `toml:"root_var"`
	RespectGitignore bool   `toml:"respect_gitignore"`
}

// LanguageSection defines one [rules.*] table
type LanguageSection struct {
	Ext         string `toml:"ext"`
	Placeholder string `toml:"placeholder"`
	ObjectsVar  string `toml:"objects_var"`
	Compile     string `toml:"compile"`
}

// RulesSection defines the [rules] section
type RulesSection struct {
	Cpp     LanguageSection `toml:"cpp"`
	Fortran LanguageSection `toml:"fortran"`
}

// BuildSection defines the [build] section
type BuildSection struct {
	Make        string `toml:"make"`
	Interpreter string `toml:"interpreter"`
	Module      string `toml:"module"`
	ModulePath  string `toml:"module_path"`
}

// DefaultConfig is what a repository without occamake.toml gets
func DefaultConfig() *Config {
	return &Config{
		Layout: LayoutSection{
			SourceDir: "src",
			ObjectDir: "obj",
			Template:  "scripts/makefile.in",
			Output:    "makefile",
			RootVar:   "OCCA_DIR",
		},
		Rules: RulesSection{
			Cpp: LanguageSection{
				Ext:         ".cpp",
				Placeholder: "@OCCA_CPP_RULES@",
				ObjectsVar:  "occaObjects",
				Compile:     "$(compiler) $(compilerFlags) -o $@ $(flags) -c $<",
			},
			Fortran: LanguageSection{
				Ext:         ".f90",
				Placeholder: "@OCCA_FORTRAN_RULES@",
				ObjectsVar:  "occaFortranObjects",
				Compile:     "$(fCompiler) $(fCompilerFlags) -o $@ -c $<",
			},
		},
		Build: BuildSection{
			Module:     "occa",
			ModulePath: "lib",
		},
	}
}

// mergeStructs merges the fields of the src struct into the dst struct
func mergeStructs(dst, src any) error {
	dstVal := reflect.ValueOf(dst)
	if dstVal.Kind() != reflect.Pointer || dstVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dst must be a pointer to a struct")
	}

	dstElem := dstVal.Elem()
	srcVal := reflect.ValueOf(src)

	if srcVal.Kind() == reflect.Pointer {
		srcVal = srcVal.Elem()
	}

	if srcVal.Kind() != reflect.Struct {
		return fmt.Errorf("src must be a struct or a pointer to a struct")
	}

	if dstElem.Type() != srcVal.Type() {
		return fmt.Errorf("dst and src must be of the same struct type")
	}

	for i := range srcVal.NumField() {
		srcField := srcVal.Field(i)
		dstField := dstElem.Field(i)

		if !dstField.CanSet() {
			continue
		}

		switch dstField.Kind() {
		case reflect.Struct:
			// [rules."cond".cpp] only overrides the keys it sets
			if err := mergeStructs(dstField.Addr().Interface(), srcField.Interface()); err != nil {
				return err
			}
		case reflect.Bool:
			dstField.SetBool(dstField.Bool() || srcField.Bool())
		default:
			if !srcField.IsZero() {
				dstField.Set(srcField)
			}
		}
	}

	return nil
}

func mustMarshal(v any) string {
	b, err := toml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// unmarshalSection is a helper to parse sections without conditional logic
func unmarshalSection(rawCfg map[string]any, name string, dst any) error {
	if data, ok := rawCfg[name]; ok {
		if err := toml.Unmarshal([]byte(mustMarshal(data)), dst); err != nil {
			return fmt.Errorf("failed to parse [%s] section: %w", name, err)
		}
	}
	return nil
}

// unmarshalConditionalSection parses a section, then evaluates and merges every sub-table whose key is an expression
func unmarshalConditionalSection[T any](rawCfg map[string]any, name string, dst *T, env ConfigEnv) error {
	sectionData, ok := rawCfg[name]
	if !ok {
		return nil
	}

	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		return fmt.Errorf("invalid [%s] section format: expected a table", name)
	}

	baseFields := make(map[string]any)
	conditionalFields := make(map[string]map[string]any)

	for key, val := range sectionMap {
		if subMap, ok := val.(map[string]any); ok {
			_, err := expr.Compile(key, expr.Env(env), expr.AsBool())
			if err == nil {
				conditionalFields[key] = subMap
			} else {
				baseFields[key] = val
			}
		} else {
			baseFields[key] = val
		}
	}

	if len(baseFields) > 0 {
		if err := toml.Unmarshal([]byte(mustMarshal(baseFields)), dst); err != nil {
			return fmt.Errorf("failed to parse base [%s] section: %w", name, err)
		}
	}

	for _, expression := range sortedKeys(conditionalFields) {
		condMap := conditionalFields[expression]
		program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
		if err != nil {
			return fmt.Errorf("failed to compile expression for [%s.%q]: %w", name, expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("failed to run expression for [%s.%q]: %w", name, expression, err)
		}

		if matched, ok := result.(bool); !ok || !matched {
			continue
		}

		var condSection T
		if err := toml.Unmarshal([]byte(mustMarshal(condMap)), &condSection); err != nil {
			return fmt.Errorf("failed to parse conditional section [%s.%q]: %w", name, expression, err)
		}
		if err := mergeStructs(dst, condSection); err != nil {
			return fmt.Errorf("failed to merge conditional section [%s.%q]: %w", name, expression, err)
		}
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString replaces each {{ expression }} in s with its value
func evaluateString(s string, env ConfigEnv) (string, error) {
	var evalErr error
	out := exprRegex.ReplaceAllStringFunc(s, func(m string) string {
		if evalErr != nil {
			return m
		}
		expression := strings.TrimSpace(exprRegex.FindStringSubmatch(m)[1])
		program, err := expr.Compile(expression, expr.Env(env))
		if err == nil {
			var result any
			if result, err = expr.Run(program, env); err == nil {
				return fmt.Sprint(result)
			}
		}
		evalErr = fmt.Errorf("in %q: %w", s, err)
		return m
	})
	return out, evalErr
}

// processExpressions recursively walks the parsed TOML data and evaluates expressions in strings
func processExpressions(data any, env ConfigEnv) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			processedVal, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processedVal
		}
		return v, nil
	case []any:
		for i, item := range v {
			processedItem, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = processedItem
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}

// ParseConfig reads occamake.toml on top of DefaultConfig
func ParseConfig(rdr io.Reader, env ConfigEnv) (*Config, error) {
	var rawConfig map[string]any
	dec := toml.NewDecoder(rdr)
	if err := dec.Decode(&rawConfig); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return nil, errors.New(derr.String())
		}
		return nil, err
	}

	processedConfig, err := processExpressions(rawConfig, env)
	if err != nil {
		return nil, fmt.Errorf("error processing expressions in config: %w", err)
	}
	rawConfig = processedConfig.(map[string]any)

	cfg := DefaultConfig()

	if err := unmarshalSection(rawConfig, "layout", &cfg.Layout); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "rules", &cfg.Rules, env); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "build", &cfg.Build, env); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfigFromFile parses a config file from a filepath
func ParseConfigFromFile(path string, env ConfigEnv) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseConfig(bufio.NewReader(f), env)
}

func (cfg *Config) validate() error {
	if cfg.Layout.SourceDir == "" || cfg.Layout.ObjectDir == "" {
		return errors.New("layout.source_dir and layout.object_dir must not be empty")
	}
	if filepath.Clean(cfg.Layout.SourceDir) == filepath.Clean(cfg.Layout.ObjectDir) {
		return fmt.Errorf("layout.source_dir and layout.object_dir are both %q", cfg.Layout.SourceDir)
	}
	if cfg.Layout.RootVar == "" {
		return errors.New("layout.root_var must not be empty")
	}
	for name, lang := range map[string]LanguageSection{"cpp": cfg.Rules.Cpp, "fortran": cfg.Rules.Fortran} {
		if !strings.HasPrefix(lang.Ext, ".") {
			return fmt.Errorf("rules.%s.ext must start with a dot, got %q", name, lang.Ext)
		}
		if lang.Placeholder == "" {
			return fmt.Errorf("rules.%s.placeholder must not be empty", name)
		}
	}
	if cfg.Rules.Cpp.Placeholder == cfg.Rules.Fortran.Placeholder {
		return fmt.Errorf("rules.cpp and rules.fortran share the placeholder %q", cfg.Rules.Cpp.Placeholder)
	}
	return nil
}

//
// expr-lang helpers
//

type ConfigEnv struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
	basedir    string
}

func NewConfigEnv(basedir string) ConfigEnv {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.Index(e, "="); i >= 0 {
			environ[e[:i]] = e[i+1:]
		}
	}

	return ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
		basedir:    basedir,
	}
}

// Exists reports whether path (relative to the repository root) exists
func (env ConfigEnv) Exists(path string) bool {
	_, err := os.Stat(filepath.Join(env.basedir, path))
	return err == nil
}

// HasTool reports whether name is on PATH
func (env ConfigEnv) HasTool(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
