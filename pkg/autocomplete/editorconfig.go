package autocomplete

import (
	"strconv"
	"strings"

	"github.com/editorconfig/editorconfig-core-go/v2"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/qlikls/pkg/completion"
)

// IndentPatch looks up the .editorconfig rules that apply to the script at
// path and returns a patch setting the snippet indent unit. The patch is empty
// when no rule sets an indent style.
func IndentPatch(path string) (completion.ConfigPatch, error) {
	def, err := editorconfig.GetDefinitionForFilename(path)
	if err != nil {
		return completion.ConfigPatch{}, errors.Errorf("reading editorconfig for %s: %w", path, err)
	}

	unit := IndentUnit(def.IndentStyle, def.IndentSize, def.TabWidth)
	if unit == "" {
		return completion.ConfigPatch{}, nil
	}
	return completion.ConfigPatch{IndentUnit: completion.String(unit)}, nil
}

// IndentUnit maps editorconfig indent_style / indent_size / tab_width to the
// text of one indentation level. It returns "" when style is unset.
func IndentUnit(style, size string, tabWidth int) string {
	switch strings.ToLower(style) {
	case editorconfig.IndentStyleTab:
		return "\t"
	case editorconfig.IndentStyleSpaces:
		n, err := strconv.Atoi(size)
		if err != nil || n <= 0 {
			n = tabWidth
		}
		if n <= 0 {
			n = 4
		}
		return strings.Repeat(" ", n)
	default:
		return ""
	}
}
