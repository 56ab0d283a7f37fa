package report

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCitationKeyRoundTrip(t *testing.T) {
	ref := ScoredReference{CorpusID: 12345678, AuthorStr: "Smith and Doe", Year: 2023, NCitations: 150}
	key := FormatCitationKey(ref)
	require.Equal(t, "[12345678 | Smith and Doe | 2023 | Citations: 150]", key)

	parsed, ok := ParseCitationKey(key)
	require.True(t, ok)
	require.Equal(t, key, parsed.String())
	require.Equal(t, int64(12345678), parsed.CorpusID)
	require.Equal(t, "Smith and Doe", parsed.AuthorRef)
}

func TestParseCitationKeyRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "[abc | X | 2020 | Citations: 1]", "[1 | X | 2020]", "plain text"} {
		_, ok := ParseCitationKey(s)
		require.False(t, ok, "expected parse failure for %q", s)
	}
}

func TestFindCitationKeysDeduplicates(t *testing.T) {
	text := "A claim [1000 | A et al. | 2024 | Citations: 5] and again " +
		"[1000 | A et al. | 2024 | Citations: 5], plus [2000 | B | 2021 | Citations: 9]."
	keys := FindCitationKeys(text)
	require.Len(t, keys, 2)
	require.Equal(t, int64(1000), keys[0].CorpusID)
	require.Equal(t, int64(2000), keys[1].CorpusID)
}

func TestStripCitationKeys(t *testing.T) {
	text := "Attention helps [1000 | A et al. | 2024 | Citations: 5] models generalize."
	require.Equal(t, "Attention helps models generalize.", StripCitationKeys(text))
}

func TestFreezeQuotesDeterministic(t *testing.T) {
	quotes := map[string]Quote{
		"[300 | C | 2020 | Citations: 1]": {Text: "c"},
		"[100 | A | 2022 | Citations: 3]": {Text: "a"},
		"[200 | B | 2021 | Citations: 2]": {Text: "b"},
	}
	first := FreezeQuotes(quotes)
	second := FreezeQuotes(quotes)
	require.Equal(t, first, second)
	require.Equal(t, "[100 | A | 2022 | Citations: 3]", first[0].Key)
	require.Equal(t, "[200 | B | 2021 | Citations: 2]", first[1].Key)
	require.Equal(t, "[300 | C | 2020 | Citations: 1]", first[2].Key)
}
