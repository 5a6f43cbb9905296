package domain

import (
	"math/rand"
	"strings"
)

// ValidLetters is the round-letter alphabet. Q, X and Z are excluded
// permanently; too few common words start with them.
const ValidLetters = "ABCDEFGHIJKLMNOPRSTUVWY"

// SelectLetter chooses uniformly at random from the valid alphabet minus
// the used set. If every letter has been used the game degrades
// gracefully: it selects from the full alphabet and allows a repeat
// rather than failing.
func SelectLetter(used map[string]bool) string {
	available := make([]string, 0, len(ValidLetters))
	for _, r := range ValidLetters {
		letter := string(r)
		if !used[letter] {
			available = append(available, letter)
		}
	}

	if len(available) == 0 {
		return string(ValidLetters[rand.Intn(len(ValidLetters))])
	}
	return available[rand.Intn(len(available))]
}

// articles are the determiner prefixes stripped during normalization.
var articles = []string{"a ", "an ", "the "}

// NormalizeAnswer lowercases, trims, strips at most one leading article,
// and trims again. Blank input normalizes to the empty string.
func NormalizeAnswer(text string) string {
	normalized := strings.TrimSpace(strings.ToLower(text))
	for _, article := range articles {
		if strings.HasPrefix(normalized, article) {
			normalized = strings.TrimSpace(normalized[len(article):])
			break
		}
	}
	return normalized
}

// StartsWithLetter reports whether the normalized answer is non-empty
// and starts with the target letter, case-insensitively.
func StartsWithLetter(answer, letter string) bool {
	normalized := NormalizeAnswer(answer)
	if normalized == "" || letter == "" {
		return false
	}
	return strings.EqualFold(normalized[:1], letter[:1])
}

// AreAnswersDuplicate reports whether two answers share a normalized
// form. Duplicate detection is case-, whitespace-, and
// single-leading-article-insensitive.
func AreAnswersDuplicate(a, b string) bool {
	return NormalizeAnswer(a) == NormalizeAnswer(b)
}

// GroupDuplicateAnswers partitions a playerID-to-answer mapping into
// normalized-form groups. Blank answers contribute to no group.
func GroupDuplicateAnswers(answersByPlayer map[string]string) map[string][]string {
	groups := make(map[string][]string)
	for playerID, answer := range answersByPlayer {
		normalized := NormalizeAnswer(answer)
		if normalized == "" {
			continue
		}
		groups[normalized] = append(groups[normalized], playerID)
	}
	return groups
}
