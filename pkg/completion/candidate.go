package completion

// CandidateKind tags a Candidate.
type CandidateKind uint8

const (
	KindKeyword CandidateKind = iota + 1
	KindFunction
	KindVariable
	KindField
	KindSnippet
)

func (k CandidateKind) String() string {
	switch k {
	case KindKeyword:
		return "keyword"
	case KindFunction:
		return "function"
	case KindVariable:
		return "variable"
	case KindField:
		return "field"
	case KindSnippet:
		return "snippet"
	default:
		return "unknown"
	}
}

func (k CandidateKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Category prefixes. The editor sorts by label inside a prefix, so these keep
// the list grouped.
const (
	SortKeyword        = "1_"
	SortFunction       = "2_"
	SortField          = "3_"
	SortUserVariable   = "4_1_"
	SortSystemVariable = "4_2_"
	SortSnippet        = "5_"
)

// Candidate is one completion suggestion, independent of any editor widget.
type Candidate struct {
	Label      string        `json:"label"`
	InsertText string        `json:"insertText"`
	Kind       CandidateKind `json:"kind"`
	// Detail is a short one-line hint such as a function signature.
	Detail        string `json:"detail,omitempty"`
	Documentation string `json:"documentation,omitempty"`
	SortKey       string `json:"sortText"`
	// Snippet is set when InsertText carries ${n} placeholders.
	Snippet    bool `json:"snippet,omitempty"`
	Deprecated bool `json:"deprecated,omitempty"`
}
