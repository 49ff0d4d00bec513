// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"strings"
	"time"
)

// AppIdentity identifies an application by its stable platform id
// (bundle identifier on macOS, executable name on Windows) plus a
// human-readable display name. Empty fields mean "unknown".
type AppIdentity struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// IsUnknown reports whether nothing is known about the application.
func (a AppIdentity) IsUnknown() bool {
	return a.ID == "" && a.Name == ""
}

// Equal compares two identities. The stable id wins when both sides
// have one; the display name is a fallback only when an id is absent.
// Comparisons are case-insensitive since bundle ids and exe names are
// case-normalized inconsistently across platforms.
func (a AppIdentity) Equal(other AppIdentity) bool {
	if a.ID != "" && other.ID != "" {
		return strings.EqualFold(a.ID, other.ID)
	}
	return strings.EqualFold(a.Name, other.Name)
}

// Key returns the dedup key component for this identity: the id when
// present, otherwise the name, lowercased.
func (a AppIdentity) Key() string {
	if a.ID != "" {
		return strings.ToLower(a.ID)
	}
	return strings.ToLower(a.Name)
}

// String returns the display name, falling back to the id.
func (a AppIdentity) String() string {
	if a.Name != "" {
		return a.Name
	}
	if a.ID != "" {
		return a.ID
	}
	return "Unknown app"
}

// ClipboardSnapshot records the provenance of the current clipboard
// content: which application was frontmost when the platform revision
// counter last advanced. Immutable; replaced wholesale on a new copy.
type ClipboardSnapshot struct {
	Revision   uint64
	Source     AppIdentity
	CapturedAt time.Time
}

// RuleAction is what a matched rule asks the monitor to do.
type RuleAction string

const (
	ActionNotify RuleAction = "notify"
	ActionBlock  RuleAction = "block"
)

// Rule matches a (source, destination) application pair. A nil From
// means "any source"; a nil To means "any destination". A rule with
// both sides nil is invalid and must never match.
type Rule struct {
	From   *AppIdentity
	To     *AppIdentity
	Action RuleAction
}

// IsValid reports whether the rule constrains at least one side.
// The persistence layer rejects invalid rules upstream; the engine
// additionally treats them as never-matching to fail safe.
func (r Rule) IsValid() bool {
	return r.From != nil || r.To != nil
}

// Match is the result of evaluating the rule list against a
// source/destination pair. RuleIndex is the position of the winning
// rule in stored order (first match wins).
type Match struct {
	Action    RuleAction
	RuleIndex int
}

// DedupKey suppresses repeat warnings for the same (source, dest)
// pair until new clipboard content is copied.
type DedupKey struct {
	Source string
	Dest   string
}

// NewDedupKey builds the key from the two identities (id preferred,
// name as fallback).
func NewDedupKey(source, dest AppIdentity) DedupKey {
	return DedupKey{Source: source.Key(), Dest: dest.Key()}
}

// ClipboardEvent is emitted when new clipboard content is detected.
// Only provenance is carried; content is never read.
type ClipboardEvent struct {
	Source AppIdentity `json:"source"`
}

// PasteWarning is emitted when a rule matches a cross-app focus
// change. Blocked reports whether the paste keystroke is actually
// being suppressed; Fallback is set when a Block rule degraded to a
// warning because the interception permission was not granted.
type PasteWarning struct {
	Source      AppIdentity `json:"source"`
	Destination AppIdentity `json:"destination"`
	Blocked     bool        `json:"blocked"`
	Fallback    bool        `json:"fallback,omitempty"`
}

// WarningRecord is a journaled paste warning.
type WarningRecord struct {
	PasteWarning
	At time.Time
}
