package taxonomy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is one label in the closed vocabulary.
type Category struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Set is the closed category vocabulary for one sentiment. CatchAll names the
// designated "no specific reason" category, which is mutually exclusive with
// every other category in the set.
type Set struct {
	Categories []Category `yaml:"categories"`
	CatchAll   string     `yaml:"catch_all"`
}

// Taxonomy holds the two disjoint sentiment-scoped vocabularies. Immutable
// for the process lifetime once validated.
type Taxonomy struct {
	Positive Set `yaml:"positive"`
	Negative Set `yaml:"negative"`
}

// ForSentiment returns the vocabulary a result for this sentiment must be
// drawn from.
func (t *Taxonomy) ForSentiment(positive bool) Set {
	if positive {
		return t.Positive
	}
	return t.Negative
}

// Match resolves a raw token against the set, case-insensitively. Unknown
// tokens do not match; callers decide what to do with them.
func (s Set) Match(token string) (string, bool) {
	token = normalizeToken(token)
	if token == "" {
		return "", false
	}
	for _, c := range s.Categories {
		if normalizeToken(c.Name) == token {
			return c.Name, true
		}
	}
	return "", false
}

// Names returns the category names in declaration order, which keeps prompts
// deterministic.
func (s Set) Names() []string {
	names := make([]string, len(s.Categories))
	for i, c := range s.Categories {
		names[i] = c.Name
	}
	return names
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Load reads a taxonomy from a YAML file and validates it.
func Load(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse taxonomy yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate enforces the structural invariants: non-empty sets, no duplicate
// names, disjoint sentiment vocabularies, and exactly one catch-all per
// sentiment that is itself a member of the set. The catch-all name may be
// shared across sentiments; tokens are always matched against a single
// sentiment's set, so a shared name is unambiguous.
func (t *Taxonomy) Validate() error {
	if err := t.Positive.validate("positive"); err != nil {
		return err
	}
	if err := t.Negative.validate("negative"); err != nil {
		return err
	}
	seen := make(map[string]bool, len(t.Positive.Categories))
	for _, c := range t.Positive.Categories {
		if normalizeToken(c.Name) == normalizeToken(t.Positive.CatchAll) {
			continue
		}
		seen[normalizeToken(c.Name)] = true
	}
	for _, c := range t.Negative.Categories {
		if seen[normalizeToken(c.Name)] {
			return fmt.Errorf("taxonomy: category %q appears in both sentiments", c.Name)
		}
	}
	return nil
}

func (s Set) validate(sentiment string) error {
	if len(s.Categories) == 0 {
		return fmt.Errorf("taxonomy: %s set is empty", sentiment)
	}
	if strings.TrimSpace(s.CatchAll) == "" {
		return fmt.Errorf("taxonomy: %s set has no catch_all", sentiment)
	}
	seen := make(map[string]bool, len(s.Categories))
	for _, c := range s.Categories {
		name := normalizeToken(c.Name)
		if name == "" {
			return fmt.Errorf("taxonomy: %s set has a category with an empty name", sentiment)
		}
		if seen[name] {
			return fmt.Errorf("taxonomy: duplicate category %q in %s set", c.Name, sentiment)
		}
		seen[name] = true
	}
	if _, ok := s.Match(s.CatchAll); !ok {
		return fmt.Errorf("taxonomy: %s catch_all %q is not a member of the set", sentiment, s.CatchAll)
	}
	return nil
}

// Default returns the built-in vocabulary for game review analysis, used when
// no taxonomy file is configured.
func Default() *Taxonomy {
	return &Taxonomy{
		Positive: Set{
			CatchAll: "Other",
			Categories: []Category{
				{Name: "Story", Description: "historical setting, plot, narrative and literary quality"},
				{Name: "Art & Audio", Description: "visuals, music, sound design and overall artistic presentation"},
				{Name: "Gameplay", Description: "combat feel, mechanics, level design and gameplay innovation"},
				{Name: "Emotional Resonance", Description: "being moved, nostalgia, support for the studio or the genre"},
				{Name: "Other", Description: "positive review with no specific reason given"},
			},
		},
		Negative: Set{
			CatchAll: "Other",
			Categories: []Category{
				{Name: "Technical Quality", Description: "optimization problems, bugs, stutter, crashes, performance"},
				{Name: "Game Content", Description: "not fun, too hard, map design, boss design, controls, UI"},
				{Name: "Historical Controversy", Description: "historical accuracy disputes and sensitive-content complaints"},
				{Name: "Marketing & Publishing", Description: "hype, pricing, preorder handling, publisher decisions"},
				{Name: "Post-launch Response", Description: "patch cadence, compensation, official communication after release"},
				{Name: "Other", Description: "negative review that is venting with no concrete reason"},
			},
		},
	}
}
