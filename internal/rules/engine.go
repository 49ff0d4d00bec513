// Package rules implements rule evaluation and the file-backed rule store.
package rules

import (
	"strings"

	"github.com/clipguard/clipguard/internal/domain"
)

// Evaluate returns the first rule in stored order matching the
// (source, destination) pair, or nil when no rule matches. Order is
// the only precedence guarantee: a specific rule placed before a
// general wildcard wins.
func Evaluate(source, dest domain.AppIdentity, ruleList []domain.Rule) *domain.Match {
	for i, r := range ruleList {
		if !r.IsValid() {
			// A rule constraining neither side would match
			// everything; treat it as never-matching.
			continue
		}
		if sideMatches(r.From, source) && sideMatches(r.To, dest) {
			return &domain.Match{Action: r.Action, RuleIndex: i}
		}
	}
	return nil
}

// sideMatches checks one side of a rule. A nil pattern matches any
// app. A constrained side never matches an unknown app. The stable
// id is compared when both sides carry one; the display name is the
// fallback when an id is absent on either side.
func sideMatches(pattern *domain.AppIdentity, actual domain.AppIdentity) bool {
	if pattern == nil {
		return true
	}
	if actual.IsUnknown() {
		return false
	}
	if pattern.ID != "" && actual.ID != "" {
		return strings.EqualFold(pattern.ID, actual.ID)
	}
	return pattern.Name != "" && actual.Name != "" && strings.EqualFold(pattern.Name, actual.Name)
}
