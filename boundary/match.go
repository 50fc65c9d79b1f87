package boundary

import (
	"sort"
	"strings"

	"github.com/fuzzball-muck/muckcore/value"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Named is anything the matcher can resolve by name: an object in a
// room's contents/exits, or a registered player.
type Named struct {
	ID   value.ObjectID
	Name string
}

// Result is the outcome of a name match (spec.md §4.G step 1: "a match
// walks the environment and queues a program").
type Result struct {
	// Exact is the single unambiguous match, if any.
	Exact value.ObjectID
	// Ambiguous lists every candidate when more than one name prefix
	// matched (spec.md's AMBIGUOUS sentinel case).
	Ambiguous []Named
	// Suggestions are fuzzy "did you mean" candidates when nothing
	// matched at all, ranked closest-first.
	Suggestions []string
}

// Resolve matches input against candidates using the reference engine's
// case-insensitive prefix rule, the same one lock.Parse's *name leaves
// and the command dispatcher's object-name matching both rely on:
// an exact (case-insensitive) name match wins outright; otherwise every
// candidate whose name starts with input is a prefix match, with a
// single prefix match resolving unambiguously and more than one
// reported as Ambiguous.
func Resolve(input string, candidates []Named) Result {
	lower := strings.ToLower(input)
	var prefixMatches []Named
	for _, c := range candidates {
		name := strings.ToLower(c.Name)
		if name == lower {
			return Result{Exact: c.ID}
		}
		if strings.HasPrefix(name, lower) {
			prefixMatches = append(prefixMatches, c)
		}
	}
	switch len(prefixMatches) {
	case 0:
		return Result{Exact: value.NONE, Suggestions: suggest(input, candidates)}
	case 1:
		return Result{Exact: prefixMatches[0].ID}
	default:
		return Result{Exact: value.AMBIGUOUS, Ambiguous: prefixMatches}
	}
}

// suggest ranks candidate names by fuzzy closeness to input, backing the
// "did you mean" diagnostics spec.md §4.G's match step can surface to a
// disconnected command (the front-end decides whether to show them).
func suggest(input string, candidates []Named) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	ranks := fuzzy.RankFindFold(input, names)
	sort.Sort(ranks)
	out := make([]string, 0, len(ranks))
	for i, r := range ranks {
		if i >= 5 {
			break
		}
		out = append(out, r.Target)
	}
	return out
}
