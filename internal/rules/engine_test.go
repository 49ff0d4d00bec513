package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipguard/clipguard/internal/domain"
)

var (
	browser  = domain.AppIdentity{ID: "com.example.browser", Name: "Browser"}
	terminal = domain.AppIdentity{ID: "com.example.term", Name: "Terminal"}
	editor   = domain.AppIdentity{ID: "com.example.editor", Name: "Editor"}
)

// TestEvaluate_NoRules verifies that an empty rule list never matches
func TestEvaluate_NoRules(t *testing.T) {
	match := Evaluate(browser, terminal, nil)
	assert.Nil(t, match)
}

// TestEvaluate_FirstMatchWins verifies stored-order precedence
func TestEvaluate_FirstMatchWins(t *testing.T) {
	specific := domain.Rule{From: &browser, To: &terminal, Action: domain.ActionNotify}
	wildcard := domain.Rule{From: nil, To: &terminal, Action: domain.ActionBlock}

	// Wildcard first: block wins.
	match := Evaluate(browser, terminal, []domain.Rule{wildcard, specific})
	require.NotNil(t, match)
	assert.Equal(t, domain.ActionBlock, match.Action)
	assert.Equal(t, 0, match.RuleIndex)

	// Specific first: notify wins.
	match = Evaluate(browser, terminal, []domain.Rule{specific, wildcard})
	require.NotNil(t, match)
	assert.Equal(t, domain.ActionNotify, match.Action)
	assert.Equal(t, 0, match.RuleIndex)
}

// TestEvaluate_ReorderingNonOverlappingRules verifies that swapping
// rules that match disjoint pairs does not change results
func TestEvaluate_ReorderingNonOverlappingRules(t *testing.T) {
	toTerm := domain.Rule{To: &terminal, Action: domain.ActionBlock}
	toEditor := domain.Rule{To: &editor, Action: domain.ActionNotify}

	orderA := []domain.Rule{toTerm, toEditor}
	orderB := []domain.Rule{toEditor, toTerm}

	for _, dest := range []domain.AppIdentity{terminal, editor} {
		a := Evaluate(browser, dest, orderA)
		b := Evaluate(browser, dest, orderB)
		require.NotNil(t, a)
		require.NotNil(t, b)
		assert.Equal(t, a.Action, b.Action, "dest %s", dest.ID)
	}
}

// TestEvaluate_WildcardSource verifies from=nil matches any source
func TestEvaluate_WildcardSource(t *testing.T) {
	ruleList := []domain.Rule{{To: &terminal, Action: domain.ActionNotify}}

	match := Evaluate(browser, terminal, ruleList)
	require.NotNil(t, match)

	match = Evaluate(domain.AppIdentity{}, terminal, ruleList)
	require.NotNil(t, match, "unknown source still matches a from-wildcard")
}

// TestEvaluate_WildcardDestination verifies to=nil matches any destination
func TestEvaluate_WildcardDestination(t *testing.T) {
	ruleList := []domain.Rule{{From: &browser, Action: domain.ActionBlock}}

	match := Evaluate(browser, editor, ruleList)
	require.NotNil(t, match)

	match = Evaluate(editor, terminal, ruleList)
	assert.Nil(t, match, "different source must not match")
}

// TestEvaluate_InvalidRuleNeverMatches verifies the fail-safe for a
// rule constraining neither side
func TestEvaluate_InvalidRuleNeverMatches(t *testing.T) {
	ruleList := []domain.Rule{{From: nil, To: nil, Action: domain.ActionBlock}}

	match := Evaluate(browser, terminal, ruleList)
	assert.Nil(t, match)
}

// TestEvaluate_UnknownAppNeverMatchesConstrainedSide verifies that a
// constrained side requires a known app
func TestEvaluate_UnknownAppNeverMatchesConstrainedSide(t *testing.T) {
	ruleList := []domain.Rule{{From: &browser, To: &terminal, Action: domain.ActionBlock}}

	match := Evaluate(domain.AppIdentity{}, terminal, ruleList)
	assert.Nil(t, match)
}

// TestEvaluate_IDComparisonIsCaseInsensitive verifies bundle id matching
func TestEvaluate_IDComparisonIsCaseInsensitive(t *testing.T) {
	ruleList := []domain.Rule{{To: &terminal, Action: domain.ActionNotify}}

	dest := domain.AppIdentity{ID: "COM.EXAMPLE.TERM", Name: "other"}
	match := Evaluate(browser, dest, ruleList)
	require.NotNil(t, match)
}

// TestEvaluate_NameFallbackWhenIDAbsent verifies name matching kicks
// in only when an id is missing on either side
func TestEvaluate_NameFallbackWhenIDAbsent(t *testing.T) {
	pattern := domain.AppIdentity{Name: "Terminal"}
	ruleList := []domain.Rule{{To: &pattern, Action: domain.ActionNotify}}

	// Destination has an id but the pattern doesn't: names decide.
	match := Evaluate(browser, terminal, ruleList)
	require.NotNil(t, match)

	// Name mismatch: no match.
	match = Evaluate(browser, editor, ruleList)
	assert.Nil(t, match)
}
