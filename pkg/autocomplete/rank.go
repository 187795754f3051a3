// Package autocomplete assembles completion candidates for a Qlik script
// editor. GetCompletions is the pure ranking core; Provider wraps it with the
// per-editor state an embedding application updates over time.
package autocomplete

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/maruel/natural"

	"github.com/walteh/qlikls/pkg/completion"
	"github.com/walteh/qlikls/pkg/completion/providers"
)

// categories in output order. categoryOf picks the longest matching prefix,
// which tells the two variable groups apart.
var categories = []string{
	completion.SortKeyword,
	completion.SortFunction,
	completion.SortField,
	completion.SortUserVariable,
	completion.SortSystemVariable,
	completion.SortSnippet,
}

// outputOrder puts candidates from unknown categories last.
var outputOrder = append(categories[:len(categories):len(categories)], "")

// GetCompletions runs the providers that apply to req.Context and returns the
// merged, ranked list. Each candidate's SortKey keeps its category prefix and
// gets a zero-padded rank appended, so a widget sorting by SortKey shows
// exactly this order.
//
// EnableFuzzyMatch is on in DefaultConfig. With it on, a non-empty
// req.Context.Word drops every candidate whose filter text does not match
// the word, so "Su" leaves out LOAD. Callers that filter again on their
// side should turn it off to receive the full set.
func GetCompletions(req providers.Request) []completion.Candidate {
	return getCompletions(providers.All(), req)
}

func getCompletions(all []providers.Provider, req providers.Request) []completion.Candidate {
	groups := make(map[string][]completion.Candidate, len(categories))
	seen := make(map[dedupeKey]struct{})

	for _, p := range all {
		if !p.Applies(req.Context, req.Config) {
			continue
		}
		for _, c := range p.Candidates(req) {
			key := dedupeKey{kind: c.Kind, label: c.Label}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			cat := categoryOf(c.SortKey)
			groups[cat] = append(groups[cat], c)
		}
	}

	fuzzyWord := ""
	if req.Config.EnableFuzzyMatch {
		fuzzyWord = strings.TrimLeft(strings.TrimSpace(req.Context.Word), "$")
	}

	var out []completion.Candidate
	for _, cat := range outputOrder {
		group := groups[cat]
		if len(group) == 0 {
			continue
		}
		if fuzzyWord != "" {
			group = fuzzyRank(group, fuzzyWord, req.Config.CaseSensitive)
		} else {
			sort.SliceStable(group, func(i, j int) bool {
				return natural.Less(group[i].Label, group[j].Label)
			})
		}
		for i := range group {
			group[i].SortKey = fmt.Sprintf("%s%04d", cat, i)
		}
		out = append(out, group...)
	}

	if n := req.Config.MaxSuggestions; n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

type dedupeKey struct {
	kind  completion.CandidateKind
	label string
}

func categoryOf(sortKey string) string {
	best := ""
	for _, cat := range categories {
		if strings.HasPrefix(sortKey, cat) && len(cat) > len(best) {
			best = cat
		}
	}
	return best
}

// fuzzyRank drops candidates that do not fuzzy-match word and orders the rest
// by match distance, then by natural label order.
func fuzzyRank(group []completion.Candidate, word string, caseSensitive bool) []completion.Candidate {
	targets := make([]string, len(group))
	for i, c := range group {
		targets[i] = FilterText(c)
	}

	var ranks fuzzy.Ranks
	if caseSensitive {
		ranks = fuzzy.RankFind(word, targets)
	} else {
		ranks = fuzzy.RankFindFold(word, targets)
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return natural.Less(group[ranks[i].OriginalIndex].Label, group[ranks[j].OriginalIndex].Label)
	})

	out := make([]completion.Candidate, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, group[r.OriginalIndex])
	}
	return out
}

// FilterText is the part of a candidate's label matched against the typed
// word: "$(vYear)" filters as "vYear" and "[Order Date]" as "Order Date".
func FilterText(c completion.Candidate) string {
	switch c.Kind {
	case completion.KindVariable:
		return strings.TrimSuffix(strings.TrimPrefix(c.Label, "$("), ")")
	case completion.KindField:
		return strings.TrimSuffix(strings.TrimPrefix(c.Label, "["), "]")
	default:
		return c.Label
	}
}
