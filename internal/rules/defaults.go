package rules

import "github.com/clipguard/clipguard/internal/domain"

// defaultTerminals are the terminal emulators the default rule set
// warns about: pasting into a shell is the classic way a poisoned
// clipboard turns into command execution.
var defaultTerminals = []domain.AppIdentity{
	{ID: "com.apple.Terminal", Name: "Terminal"},
	{ID: "com.googlecode.iterm2", Name: "iTerm2"},
	{ID: "io.alacritty", Name: "Alacritty"},
	{ID: "com.github.wez.wezterm", Name: "WezTerm"},
	{ID: "net.kovidgoyal.kitty", Name: "kitty"},
	{ID: "co.zeit.hyper", Name: "Hyper"},
	{ID: "com.mitchellh.ghostty", Name: "Ghostty"},
	{ID: "com.raphaelamorim.rio", Name: "Rio"},
}

// DefaultRules returns the rule set used when no settings file
// exists: notify on any-source paste into a known terminal emulator.
func DefaultRules() []domain.Rule {
	result := make([]domain.Rule, 0, len(defaultTerminals))
	for _, term := range defaultTerminals {
		t := term
		result = append(result, domain.Rule{
			From:   nil,
			To:     &t,
			Action: domain.ActionNotify,
		})
	}
	return result
}
