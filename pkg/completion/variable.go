package completion

import "strings"

// UserVariable is a variable the script author defined, offered inside $( ).
type UserVariable struct {
	Name        string `json:"name" yaml:"name" hcl:"name,label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" hcl:"description,optional"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty" hcl:"type,optional"`
	Example     string `json:"example,omitempty" yaml:"example,omitempty" hcl:"example,optional"`
	Deprecated  bool   `json:"deprecated,omitempty" yaml:"deprecated,omitempty" hcl:"deprecated,optional"`
}

// UserVariablesFromNames converts a plain name list into string variables with
// a generated description. Blank names are skipped.
func UserVariablesFromNames(names []string) []UserVariable {
	out := make([]UserVariable, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, UserVariable{
			Name:        name,
			Type:        "string",
			Description: "User-defined variable: " + name,
		})
	}
	return out
}

// Documentation renders the variable's description, type and example as
// markdown, skipping the parts that are empty.
func (v UserVariable) Documentation() string {
	var parts []string
	if v.Description != "" {
		parts = append(parts, v.Description)
	}
	if v.Type != "" {
		parts = append(parts, "Type: `"+v.Type+"`")
	}
	if v.Example != "" {
		parts = append(parts, "Example: `"+v.Example+"`")
	}
	if v.Deprecated {
		parts = append(parts, "*Deprecated*")
	}
	return strings.Join(parts, "\n\n")
}
