package classify

import (
	"log/slog"
	"regexp"
	"strings"

	"reviewbot/internal/taxonomy"
)

var (
	thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
	fenceRe      = regexp.MustCompile("(?s)```[a-zA-Z]*\n?|```")
)

// Responses the model uses to say "nothing applies"; all resolve to the
// catch-all via the fallback rule.
var noCategoryAnswers = map[string]bool{
	"none":              true,
	"no clear category": true,
	"无明确类别":             true,
}

// ParseCategories turns a raw model response into a valid category set for
// the given vocabulary. It is pure: tokenize, normalize, match
// case-insensitively against the closed set, drop unknown tokens with a
// warning, apply the exclusivity rule, and fall back to the catch-all when
// nothing survives. It never invents categories and never returns an empty
// set.
func ParseCategories(raw string, set taxonomy.Set, log *slog.Logger) []string {
	cleaned := stripArtifacts(raw)

	var out []string
	seen := make(map[string]bool)
	if !noCategoryAnswers[strings.ToLower(cleaned)] {
		for _, token := range splitTokens(cleaned) {
			name, ok := set.Match(token)
			if !ok {
				if noCategoryAnswers[strings.ToLower(token)] {
					continue
				}
				log.Warn("dropping unrecognized category token", "token", token)
				continue
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}

	// Exclusivity: the catch-all never co-occurs with a specific category.
	if len(out) > 1 {
		filtered := out[:0]
		for _, name := range out {
			if name != set.CatchAll {
				filtered = append(filtered, name)
			}
		}
		out = filtered
	}

	// Fallback: a result is never left uncategorized.
	if len(out) == 0 {
		out = []string{set.CatchAll}
	}
	return out
}

func stripArtifacts(raw string) string {
	s := thinkBlockRe.ReplaceAllString(raw, "")
	s = fenceRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	// Some models label the answer line.
	for _, prefix := range []string{"Output:", "Answer:", "Categories:", "输出:", "输出："} {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			s = strings.TrimSpace(rest)
			break
		}
	}
	return s
}

// splitTokens splits on half-width and full-width commas and the Chinese
// enumeration comma, then trims surrounding quotes and trailing punctuation.
func splitTokens(s string) []string {
	s = strings.NewReplacer("，", ",", "、", ",", "；", ",", ";", ",").Replace(s)
	parts := strings.Split(s, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, "\"'“”‘’`")
		p = strings.TrimRight(p, ".。!！?？:：")
		p = strings.TrimSpace(p)
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
