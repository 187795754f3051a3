package completion

// Config controls which providers run and how results are shaped. A Config
// value is never mutated once handed out; updates go through Merge.
type Config struct {
	EnableKeywords   bool `json:"enableKeywords" yaml:"enable_keywords"`
	EnableFunctions  bool `json:"enableFunctions" yaml:"enable_functions"`
	EnableFieldNames bool `json:"enableFieldNames" yaml:"enable_field_names"`
	EnableVariables  bool `json:"enableVariables" yaml:"enable_variables"`
	EnableSnippets   bool `json:"enableSnippets" yaml:"enable_snippets"`
	EnableFuzzyMatch bool `json:"enableFuzzyMatch" yaml:"enable_fuzzy_match"`
	CaseSensitive    bool `json:"caseSensitive" yaml:"case_sensitive"`
	// MaxSuggestions caps the merged list. Zero means no cap.
	MaxSuggestions    int      `json:"maxSuggestions" yaml:"max_suggestions"`
	TriggerCharacters []string `json:"triggerCharacters" yaml:"trigger_characters"`
	// IndentUnit replaces each indentation level in snippet bodies.
	IndentUnit string `json:"indentUnit" yaml:"indent_unit"`
}

func DefaultConfig() Config {
	return Config{
		EnableKeywords:    true,
		EnableFunctions:   true,
		EnableFieldNames:  true,
		EnableVariables:   true,
		EnableSnippets:    true,
		EnableFuzzyMatch:  true,
		TriggerCharacters: []string{".", "$", "["},
		IndentUnit:        "\t",
	}
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	c.TriggerCharacters = append([]string(nil), c.TriggerCharacters...)
	return c
}

// ConfigPatch is a partial Config. Nil fields leave the current value alone.
type ConfigPatch struct {
	EnableKeywords    *bool    `json:"enableKeywords,omitempty" yaml:"enable_keywords,omitempty" hcl:"enable_keywords,optional"`
	EnableFunctions   *bool    `json:"enableFunctions,omitempty" yaml:"enable_functions,omitempty" hcl:"enable_functions,optional"`
	EnableFieldNames  *bool    `json:"enableFieldNames,omitempty" yaml:"enable_field_names,omitempty" hcl:"enable_field_names,optional"`
	EnableVariables   *bool    `json:"enableVariables,omitempty" yaml:"enable_variables,omitempty" hcl:"enable_variables,optional"`
	EnableSnippets    *bool    `json:"enableSnippets,omitempty" yaml:"enable_snippets,omitempty" hcl:"enable_snippets,optional"`
	EnableFuzzyMatch  *bool    `json:"enableFuzzyMatch,omitempty" yaml:"enable_fuzzy_match,omitempty" hcl:"enable_fuzzy_match,optional"`
	CaseSensitive     *bool    `json:"caseSensitive,omitempty" yaml:"case_sensitive,omitempty" hcl:"case_sensitive,optional"`
	MaxSuggestions    *int     `json:"maxSuggestions,omitempty" yaml:"max_suggestions,omitempty" hcl:"max_suggestions,optional"`
	TriggerCharacters []string `json:"triggerCharacters,omitempty" yaml:"trigger_characters,omitempty" hcl:"trigger_characters,optional"`
	IndentUnit        *string  `json:"indentUnit,omitempty" yaml:"indent_unit,omitempty" hcl:"indent_unit,optional"`
}

// Merge returns c with every set field of p applied. A negative
// MaxSuggestions is treated as zero.
func (c Config) Merge(p ConfigPatch) Config {
	out := c.Clone()

	setBool(&out.EnableKeywords, p.EnableKeywords)
	setBool(&out.EnableFunctions, p.EnableFunctions)
	setBool(&out.EnableFieldNames, p.EnableFieldNames)
	setBool(&out.EnableVariables, p.EnableVariables)
	setBool(&out.EnableSnippets, p.EnableSnippets)
	setBool(&out.EnableFuzzyMatch, p.EnableFuzzyMatch)
	setBool(&out.CaseSensitive, p.CaseSensitive)

	if p.MaxSuggestions != nil {
		out.MaxSuggestions = max(*p.MaxSuggestions, 0)
	}
	if p.TriggerCharacters != nil {
		out.TriggerCharacters = append([]string(nil), p.TriggerCharacters...)
	}
	if p.IndentUnit != nil && *p.IndentUnit != "" {
		out.IndentUnit = *p.IndentUnit
	}
	return out
}

// Merge folds o into p, o winning where both are set.
func (p ConfigPatch) Merge(o ConfigPatch) ConfigPatch {
	pick := func(a, b *bool) *bool {
		if b != nil {
			return b
		}
		return a
	}
	p.EnableKeywords = pick(p.EnableKeywords, o.EnableKeywords)
	p.EnableFunctions = pick(p.EnableFunctions, o.EnableFunctions)
	p.EnableFieldNames = pick(p.EnableFieldNames, o.EnableFieldNames)
	p.EnableVariables = pick(p.EnableVariables, o.EnableVariables)
	p.EnableSnippets = pick(p.EnableSnippets, o.EnableSnippets)
	p.EnableFuzzyMatch = pick(p.EnableFuzzyMatch, o.EnableFuzzyMatch)
	p.CaseSensitive = pick(p.CaseSensitive, o.CaseSensitive)
	if o.MaxSuggestions != nil {
		p.MaxSuggestions = o.MaxSuggestions
	}
	if o.TriggerCharacters != nil {
		p.TriggerCharacters = o.TriggerCharacters
	}
	if o.IndentUnit != nil {
		p.IndentUnit = o.IndentUnit
	}
	return p
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Bool and Int build patch fields inline.
func Bool(v bool) *bool { return &v }

func Int(v int) *int { return &v }

func String(v string) *string { return &v }
