package domain

import "strings"

// Mode selects the persona the answer is generated with.
type Mode string

const (
	ModeDefault  Mode = "default"
	ModeChat     Mode = "chat"
	ModeCoder    Mode = "coder"
	ModeBusiness Mode = "business"
	ModeCreative Mode = "creative"
	ModeWizard   Mode = "wizard"
)

func AllModes() []Mode {
	return []Mode{ModeChat, ModeCoder, ModeBusiness, ModeCreative, ModeWizard}
}

func (m Mode) IsValid() bool {
	switch m {
	case ModeChat, ModeCoder, ModeBusiness, ModeCreative, ModeWizard:
		return true
	default:
		return false
	}
}

// ParseMode never fails: anything outside the known set is the generic default.
func ParseMode(s string) Mode {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m.IsValid() {
		return m
	}
	return ModeDefault
}
