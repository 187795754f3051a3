package autocomplete

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/qlikls/pkg/completion"
	"github.com/walteh/qlikls/pkg/grammar"
)

// Settings is the persisted configuration an embedding application hands to
// a Provider. It is read from a YAML or HCL file.
type Settings struct {
	Autocomplete  *completion.ConfigPatch   `json:"autocomplete,omitempty" yaml:"autocomplete,omitempty" hcl:"autocomplete,block"`
	Variables     []completion.UserVariable `json:"variables,omitempty" yaml:"variables,omitempty" hcl:"variable,block"`
	VariableNames []string                  `json:"variable_names,omitempty" yaml:"variable_names,omitempty" hcl:"variable_names,optional"`
	KnownFields   []string                  `json:"known_fields,omitempty" yaml:"known_fields,omitempty" hcl:"known_fields,optional"`
	Keywords      []string                  `json:"keywords,omitempty" yaml:"keywords,omitempty" hcl:"keywords,optional"`
	Functions     []FunctionSettings        `json:"functions,omitempty" yaml:"functions,omitempty" hcl:"function,block"`
}

// FunctionSettings registers a custom function or overrides the parameter
// template of a built-in one. In HCL the template needs "$${" to keep a
// literal placeholder.
type FunctionSettings struct {
	Name   string `json:"name" yaml:"name" hcl:"name,label"`
	Params string `json:"params,omitempty" yaml:"params,omitempty" hcl:"params,optional"`
	Doc    string `json:"doc,omitempty" yaml:"doc,omitempty" hcl:"doc,optional"`
}

// hclIndent is exposed to HCL settings files as `indent.tab` and friends.
var hclIndent = cty.ObjectVal(map[string]cty.Value{
	"tab":  cty.StringVal("\t"),
	"two":  cty.StringVal("  "),
	"four": cty.StringVal("    "),
})

// LoadSettings reads settings from path. Files ending in .yaml or .yml are
// YAML, everything else is HCL.
func LoadSettings(fs afero.Fs, path string) (*Settings, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading settings file: %w", err)
	}

	var s Settings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&s); err != nil {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
	default:
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCL(data, path)
		if diags.HasErrors() {
			return nil, errors.Errorf("parsing HCL: %s", diags.Error())
		}

		ctx := &hcl.EvalContext{
			Variables: map[string]cty.Value{
				"indent": hclIndent,
			},
		}

		diags = gohcl.DecodeBody(file.Body, ctx, &s)
		if diags.HasErrors() {
			return nil, errors.Errorf("decoding HCL: %s", diags.Error())
		}
	}

	if err := s.Validate(); err != nil {
		return nil, errors.Errorf("invalid settings in %s: %w", path, err)
	}
	return &s, nil
}

// Validate reports every problem at once.
func (s *Settings) Validate() error {
	var result *multierror.Error

	if s.Autocomplete != nil && s.Autocomplete.MaxSuggestions != nil && *s.Autocomplete.MaxSuggestions < 0 {
		result = multierror.Append(result, errors.Errorf("max_suggestions must not be negative, got %d", *s.Autocomplete.MaxSuggestions))
	}

	seen := make(map[string]struct{}, len(s.Variables))
	for i, v := range s.Variables {
		switch {
		case strings.TrimSpace(v.Name) == "":
			result = multierror.Append(result, errors.Errorf("variable %d has no name", i))
		case strings.ContainsAny(v.Name, "()$ "):
			result = multierror.Append(result, errors.Errorf("variable %q: name must not contain spaces, '$' or parentheses", v.Name))
		}
		if _, dup := seen[v.Name]; dup {
			result = multierror.Append(result, errors.Errorf("variable %q is defined twice", v.Name))
		}
		seen[v.Name] = struct{}{}
	}

	for i, fn := range s.Functions {
		if strings.TrimSpace(fn.Name) == "" {
			result = multierror.Append(result, errors.Errorf("function %d has no name", i))
		}
		if strings.Count(fn.Params, "${") != strings.Count(fn.Params, "}") {
			result = multierror.Append(result, errors.Errorf("function %q: unbalanced placeholder in params %q", fn.Name, fn.Params))
		}
	}

	for _, kw := range s.Keywords {
		if strings.TrimSpace(kw) == "" {
			result = multierror.Append(result, errors.New("keywords must not contain an empty entry"))
			break
		}
	}

	return result.ErrorOrNil()
}

// Extend applies the custom keywords and functions to g. It returns g itself
// when there is nothing to add.
func (s *Settings) Extend(g *grammar.Grammar) *grammar.Grammar {
	if len(s.Keywords) == 0 && len(s.Functions) == 0 {
		return g
	}

	ext := grammar.Extension{Keywords: s.Keywords}
	for _, fn := range s.Functions {
		ext.Functions = append(ext.Functions, grammar.FunctionSpec{
			Name:              fn.Name,
			ParameterTemplate: fn.Params,
			Documentation:     fn.Doc,
		})
	}
	return g.Extend(ext)
}

// Options turns the settings into Provider options. Named variables come
// after the fully described ones.
func (s *Settings) Options() []Option {
	var opts []Option
	if s.Autocomplete != nil {
		opts = append(opts, WithConfig(*s.Autocomplete))
	}

	vars := append([]completion.UserVariable(nil), s.Variables...)
	vars = append(vars, completion.UserVariablesFromNames(s.VariableNames)...)
	if len(vars) > 0 {
		opts = append(opts, WithUserVariables(vars))
	}

	if len(s.KnownFields) > 0 {
		opts = append(opts, WithKnownFields(s.KnownFields))
	}
	return opts
}
