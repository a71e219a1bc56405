package classify

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"reviewbot/internal/taxonomy"
)

func testSet() taxonomy.Set {
	return taxonomy.Set{
		CatchAll: "Other",
		Categories: []taxonomy.Category{
			{Name: "A", Description: "first"},
			{Name: "B", Description: "second"},
			{Name: "Other", Description: "catch-all"},
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseCategories(t *testing.T) {
	set := testSet()
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"single", "A", []string{"A"}},
		{"multiple", "A,B", []string{"A", "B"}},
		{"exclusivity drops catch-all", "A, Other", []string{"A"}},
		{"blank falls back", "   ", []string{"Other"}},
		{"unknown token dropped", "A,Z", []string{"A"}},
		{"all unknown falls back", "X,Y,Z", []string{"Other"}},
		{"full-width comma", "A，B", []string{"A", "B"}},
		{"enumeration comma", "A、B", []string{"A", "B"}},
		{"case insensitive", "a, b", []string{"A", "B"}},
		{"trailing punctuation", "A。", []string{"A"}},
		{"quoted answer", `"A","B"`, []string{"A", "B"}},
		{"duplicates collapse", "A,A,B", []string{"A", "B"}},
		{"no-category phrase", "无明确类别", []string{"Other"}},
		{"none answer", "None", []string{"Other"}},
		{"only catch-all kept alone", "Other", []string{"Other"}},
		{"markdown fence", "```\nA,B\n```", []string{"A", "B"}},
		{"json fence", "```json\nA\n```", []string{"A"}},
		{"think block stripped", "<think>ranting about A and B</think>B", []string{"B"}},
		{"labeled output", "Output: A, B", []string{"A", "B"}},
		{"prose mixed with unknown", "A, definitely the best", []string{"A"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseCategories(tc.raw, set, discardLogger())
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseCategories(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseCategoriesNeverEmpty(t *testing.T) {
	set := testSet()
	for _, raw := range []string{"", "???", "```json```", "<think>nothing</think>"} {
		got := ParseCategories(raw, set, discardLogger())
		if len(got) == 0 {
			t.Fatalf("ParseCategories(%q) returned empty set", raw)
		}
	}
}

func TestParseCategoriesNeverInvents(t *testing.T) {
	set := testSet()
	got := ParseCategories("A,NewShinyCategory,B", set, discardLogger())
	for _, name := range got {
		if _, ok := set.Match(name); !ok {
			t.Fatalf("parser invented category %q", name)
		}
	}
}

func TestParseCategoriesExclusivityNeverPersists(t *testing.T) {
	set := testSet()
	for _, raw := range []string{"Other,A", "A,Other,B", "other, b"} {
		got := ParseCategories(raw, set, discardLogger())
		if len(got) > 1 {
			for _, name := range got {
				if name == set.CatchAll {
					t.Fatalf("catch-all co-occurs with specific categories in %v for %q", got, raw)
				}
			}
		}
	}
}
