package report

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// citationKeyPattern matches the canonical inline citation form
// [corpus_id | Author et al. | year | Citations: N].
var citationKeyPattern = regexp.MustCompile(`\[(\d+)\s*\|\s*([^|]+?)\s*\|\s*(\d+)\s*\|\s*Citations:\s*(\d+)\]`)

// CitationKey is the parsed form of the bracketed citation string. The textual
// form is load-bearing: FormatCitationKey(ParseCitationKey(s)) must equal s for
// canonical keys.
type CitationKey struct {
	CorpusID   int64
	AuthorRef  string
	Year       int
	NCitations int
}

func (k CitationKey) String() string {
	return fmt.Sprintf("[%d | %s | %d | Citations: %d]", k.CorpusID, k.AuthorRef, k.Year, k.NCitations)
}

// FormatCitationKey renders the canonical citation key for a reference.
func FormatCitationKey(ref ScoredReference) string {
	return CitationKey{
		CorpusID:   ref.CorpusID,
		AuthorRef:  ref.AuthorStr,
		Year:       ref.Year,
		NCitations: ref.NCitations,
	}.String()
}

// ParseCitationKey parses a single canonical citation key string.
func ParseCitationKey(s string) (CitationKey, bool) {
	m := citationKeyPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return CitationKey{}, false
	}
	corpusID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return CitationKey{}, false
	}
	year, _ := strconv.Atoi(m[3])
	nCitations, _ := strconv.Atoi(m[4])
	return CitationKey{
		CorpusID:   corpusID,
		AuthorRef:  strings.TrimSpace(m[2]),
		Year:       year,
		NCitations: nCitations,
	}, true
}

// FindCitationKeys returns every citation key occurring in text, in order of
// first appearance, without duplicates.
func FindCitationKeys(text string) []CitationKey {
	matches := citationKeyPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[int64]bool, len(matches))
	keys := make([]CitationKey, 0, len(matches))
	for _, m := range matches {
		corpusID, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || seen[corpusID] {
			continue
		}
		seen[corpusID] = true
		year, _ := strconv.Atoi(m[3])
		nCitations, _ := strconv.Atoi(m[4])
		keys = append(keys, CitationKey{
			CorpusID:   corpusID,
			AuthorRef:  strings.TrimSpace(m[2]),
			Year:       year,
			NCitations: nCitations,
		})
	}
	return keys
}

// StripCitationKeys removes all inline citation markers from text. Used when
// previously written sections are fed back as context, so the model is not
// biased toward re-citing the same papers.
func StripCitationKeys(text string) string {
	stripped := citationKeyPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(stripped), " ")
}

// FreezeQuotes sorts quotes by citation key and returns the index-stable
// sequence used for all downstream positional lookups. The same input set
// always yields the same index-to-key assignment.
func FreezeQuotes(quotes map[string]Quote) []Quote {
	keys := make([]string, 0, len(quotes))
	for k := range quotes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Quote, 0, len(keys))
	for _, k := range keys {
		q := quotes[k]
		q.Key = k
		out = append(out, q)
	}
	return out
}
