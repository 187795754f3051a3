package autocomplete

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/qlikls/pkg/completion"
	"github.com/walteh/qlikls/pkg/grammar"
)

const yamlSettings = `
autocomplete:
  enable_snippets: false
  max_suggestions: 25
  indent_unit: "  "
variables:
  - name: vYear
    type: number
    description: Fiscal year
    example: "2024"
variable_names:
  - vRegion
known_fields:
  - Order Date
keywords:
  - BUFFER
functions:
  - name: MyRound
    params: '${1:value}, ${2:step}'
    doc: Rounds value to step.
`

const hclSettings = `
autocomplete {
  enable_snippets = false
  max_suggestions = 25
  indent_unit     = indent.two
}

variable "vYear" {
  type        = "number"
  description = "Fiscal year"
  example     = "2024"
}

variable_names = ["vRegion"]
known_fields   = ["Order Date"]
keywords       = ["BUFFER"]

function "MyRound" {
  params = "$${1:value}, $${2:step}"
  doc    = "Rounds value to step."
}
`

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
	}{
		{name: "yaml", path: "/cfg/qlikls.yaml", content: yamlSettings},
		{name: "yml", path: "/cfg/qlikls.yml", content: yamlSettings},
		{name: "hcl", path: "/cfg/qlikls.hcl", content: hclSettings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, tt.path, []byte(tt.content), 0o644))

			s, err := LoadSettings(fs, tt.path)
			require.NoError(t, err)

			require.NotNil(t, s.Autocomplete)
			require.NotNil(t, s.Autocomplete.EnableSnippets)
			assert.False(t, *s.Autocomplete.EnableSnippets)
			assert.Equal(t, 25, *s.Autocomplete.MaxSuggestions)
			assert.Equal(t, "  ", *s.Autocomplete.IndentUnit)
			assert.Nil(t, s.Autocomplete.EnableKeywords, "unset fields stay nil")

			require.Len(t, s.Variables, 1)
			assert.Equal(t, completion.UserVariable{Name: "vYear", Type: "number", Description: "Fiscal year", Example: "2024"}, s.Variables[0])
			assert.Equal(t, []string{"vRegion"}, s.VariableNames)
			assert.Equal(t, []string{"Order Date"}, s.KnownFields)

			require.Len(t, s.Functions, 1)
			assert.Equal(t, "${1:value}, ${2:step}", s.Functions[0].Params)

			g := s.Extend(grammar.MustLoad(context.Background()))
			assert.True(t, g.IsKeyword("buffer"))
			spec, ok := g.FunctionSpec("myround")
			require.True(t, ok)
			assert.Equal(t, "MyRound", spec.Name)

			p := New(context.Background(), g, s.Options()...)
			assert.False(t, p.Config().EnableSnippets)
			assert.Equal(t, 25, p.Config().MaxSuggestions)
			require.Len(t, p.UserVariables(), 2)
			assert.Equal(t, "vRegion", p.UserVariables()[1].Name)
		})
	}
}

func TestLoadSettingsErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		content    string
		wantErrors []string
	}{
		{
			name:       "missing file",
			path:       "/nope.yaml",
			wantErrors: []string{"reading settings file"},
		},
		{
			name:       "unknown yaml field",
			path:       "/s.yaml",
			content:    "autocomplete:\n  enable_everything: true\n",
			wantErrors: []string{"parsing YAML"},
		},
		{
			name:       "bad hcl",
			path:       "/s.hcl",
			content:    "autocomplete {",
			wantErrors: []string{"parsing HCL"},
		},
		{
			name:       "unknown hcl attribute",
			path:       "/s.hcl",
			content:    "colour = \"red\"\n",
			wantErrors: []string{"decoding HCL"},
		},
		{
			name: "every validation problem is reported",
			path: "/s.yaml",
			content: `
autocomplete:
  max_suggestions: -1
variables:
  - name: ""
  - name: "bad name"
  - name: vA
  - name: vA
functions:
  - name: Broken
    params: '${1:x'
keywords: [""]
`,
			wantErrors: []string{
				"max_suggestions must not be negative",
				"variable 0 has no name",
				`variable "bad name"`,
				`variable "vA" is defined twice`,
				`function "Broken": unbalanced placeholder`,
				"keywords must not contain an empty entry",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tt.content != "" {
				require.NoError(t, afero.WriteFile(fs, tt.path, []byte(tt.content), 0o644))
			}

			_, err := LoadSettings(fs, tt.path)
			require.Error(t, err)
			for _, want := range tt.wantErrors {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestSettingsExtendWithoutRules(t *testing.T) {
	g := grammar.MustLoad(context.Background())
	assert.Same(t, g, (&Settings{}).Extend(g))
	assert.Empty(t, (&Settings{}).Options())
}
