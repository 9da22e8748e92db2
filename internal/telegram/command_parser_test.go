package telegram

import (
	"testing"

	"github.com/kitbuilder587/orbe-search/internal/domain"
)

func TestParseQueryCommand(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantQuestion string
		wantMode     domain.Mode
	}{
		{"/chat command", "/chat привет", "привет", domain.ModeChat},
		{"/coder command", "/coder reverse a slice", "reverse a slice", domain.ModeCoder},
		{"/business command", "/business tam for saas", "tam for saas", domain.ModeBusiness},
		{"/creative command", "/creative a haiku", "a haiku", domain.ModeCreative},
		{"/wizard command", "/wizard what is time", "what is time", domain.ModeWizard},
		{"upper case command", "/CODER test", "test", domain.ModeCoder},
		{"command with bot name", "/coder@orbe_bot test", "test", domain.ModeCoder},
		{"extra spaces", "/coder   a    b  ", "a b", domain.ModeCoder},
		{"command without question", "/wizard", "", domain.ModeWizard},
		{"plain text", "просто текст", "просто текст", domain.ModeDefault},
		{"unknown command is text", "/quick тест", "/quick тест", domain.ModeDefault},
		{"default is not a command", "/default test", "/default test", domain.ModeDefault},
		{"empty", "   ", "", domain.ModeDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			question, mode := ParseQueryCommand(tt.text)
			if question != tt.wantQuestion {
				t.Errorf("question = %q, want %q", question, tt.wantQuestion)
			}
			if mode != tt.wantMode {
				t.Errorf("mode = %q, want %q", mode, tt.wantMode)
			}
		})
	}
}

func TestIsModeCommand(t *testing.T) {
	for _, m := range domain.AllModes() {
		if !IsModeCommand(string(m)) {
			t.Errorf("IsModeCommand(%q) = false", m)
		}
	}
	for _, cmd := range []string{"start", "help", "default", ""} {
		if IsModeCommand(cmd) {
			t.Errorf("IsModeCommand(%q) = true", cmd)
		}
	}
}
