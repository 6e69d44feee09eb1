package extract

import (
	"reflect"
	"testing"
)

func TestExtractSingleBlock(t *testing.T) {
	summary := "Minutes:\n1. **Issue:** Fix login bug\n   - **Assigned to:** Alice\n"
	got := Default().Extract(summary)
	want := []ActionItem{{Description: "Fix login bug", Assignee: "Alice"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract()=%+v want %+v", got, want)
	}
}

func TestExtractKeepsSourceOrder(t *testing.T) {
	summary := `## Action items
1. **Issue:** Update the onboarding docs   
   - **Assigned to:** Bob
2. **Issue:** Migrate CI to the new runners
   - **Assigned to:** Carol_2
3. **Issue:** Review vendor contract
   - **Assigned to:** Bob`
	got := Default().Extract(summary)
	want := []ActionItem{
		{Description: "Update the onboarding docs", Assignee: "Bob"},
		{Description: "Migrate CI to the new runners", Assignee: "Carol_2"},
		{Description: "Review vendor contract", Assignee: "Bob"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract()=%+v want %+v", got, want)
	}
}

func TestExtractNoMatches(t *testing.T) {
	var cases = []string{
		"",
		"The meeting had no action items.",
		"- Issue: Fix login bug\n- Assigned to: Alice",
		"1. **Task:** Fix login bug\n   - **Assigned to:** Alice",
		"1. **Issue:** Fix login bug\n\n   - **Owner:** Alice",
	}
	for _, summary := range cases {
		got := Default().Extract(summary)
		if got == nil || len(got) != 0 {
			t.Fatalf("Extract(%q)=%+v want empty slice", summary, got)
		}
	}
}

func TestExtractMultiWordNameKeepsFirstToken(t *testing.T) {
	summary := "1. **Issue:** Ship release notes\n   - **Assigned to:** Mary Jane"
	got := Default().Extract(summary)
	if len(got) != 1 || got[0].Assignee != "Mary" {
		t.Fatalf("expected single-token assignee, got %+v", got)
	}
}

func TestExtractUnicodeName(t *testing.T) {
	summary := "1. **Issue:** Translate landing page\n   - **Assigned to:** José"
	got := Default().Extract(summary)
	if len(got) != 1 || got[0].Assignee != "José" {
		t.Fatalf("expected unicode assignee, got %+v", got)
	}
}

func TestNewPatternStrategyCustom(t *testing.T) {
	p, err := NewPatternStrategy(`(?m)^TODO (.+?) @(\w+)$`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got := p.Extract("TODO write tests @dave\nnoise\nTODO fix flaky job @erin")
	want := []ActionItem{
		{Description: "write tests", Assignee: "dave"},
		{Description: "fix flaky job", Assignee: "erin"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract()=%+v want %+v", got, want)
	}
}

func TestNewPatternStrategyRejectsBadPatterns(t *testing.T) {
	for _, expr := range []string{`(unclosed`, `Issue: (.+)`, `(a)(b)(c)`} {
		if _, err := NewPatternStrategy(expr); err == nil {
			t.Fatalf("expected error for %q", expr)
		}
	}
}

func TestUnmatched(t *testing.T) {
	summary := "1. **Issue:** Fix login bug\n   - **Assigned to:** Alice\n2. Write docs - Assigned to: Bob"
	items := Default().Extract(summary)
	if n := Unmatched(summary, items); n != 1 {
		t.Fatalf("Unmatched()=%d want 1", n)
	}
	if n := Unmatched("", nil); n != 0 {
		t.Fatalf("Unmatched(empty)=%d want 0", n)
	}
}
