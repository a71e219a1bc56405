package classify

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"reviewbot/internal/taxonomy"
)

// Reviews shorter than this get the single-category instruction. The
// constraint lives only in the prompt; responses are not re-validated
// against it.
const shortReviewRunes = 50

// BuildPrompt renders the deterministic classification prompt for one review.
// Only the categories valid for the review's sentiment are named.
func BuildPrompt(set taxonomy.Set, text string, positive bool) string {
	sentiment := "negative (not recommended)"
	if positive {
		sentiment = "positive (recommended)"
	}

	var categoryLines strings.Builder
	for _, c := range set.Categories {
		categoryLines.WriteString(fmt.Sprintf("- %s: %s\n", c.Name, c.Description))
	}

	shortNote := ""
	if utf8.RuneCountInString(strings.TrimSpace(text)) < shortReviewRunes {
		shortNote = "\n7. This review is short: choose exactly one category."
	}

	return fmt.Sprintf(`You are a professional game review analyst. Decide which categories the following Steam review belongs to.

Review: "%s"
Review type: %s

Available categories:
%s
Rules:
1. Read for the actual meaning and emotional tone of the review.
2. Watch for sarcasm and ironic phrasing.
3. A review may belong to multiple categories.
4. Respond with only the applicable category names, comma separated.
5. If no category clearly applies, respond with exactly "%s".
6. Choose only from the categories listed above. Never invent a category.%s

Example output: "%s" or "%s"

Output:`, strings.TrimSpace(text), sentiment, categoryLines.String(), set.CatchAll, shortNote,
		exampleMulti(set), set.CatchAll)
}

func exampleMulti(set taxonomy.Set) string {
	names := set.Names()
	if len(names) >= 2 {
		return names[0] + "," + names[1]
	}
	return names[0]
}
