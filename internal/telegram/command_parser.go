package telegram

import (
	"strings"

	"github.com/kitbuilder587/orbe-search/internal/domain"
)

// /chat, /coder, /business, /creative, /wizard -> соответствующий режим
// обычный текст -> ModeDefault
func ParseQueryCommand(text string) (question string, mode domain.Mode) {
	text = strings.TrimSpace(text)

	if text == "" {
		return "", domain.ModeDefault
	}

	if !strings.HasPrefix(text, "/") {
		return text, domain.ModeDefault
	}

	parts := strings.SplitN(text, " ", 2)
	command := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	// /coder@orbe_bot в группах
	if i := strings.Index(command, "@"); i >= 0 {
		command = command[:i]
	}

	var rest string
	if len(parts) > 1 {
		rest = normalizeSpaces(parts[1])
	}

	if m := domain.Mode(command); m.IsValid() {
		return rest, m
	}
	return text, domain.ModeDefault
}

// IsModeCommand reports whether cmd (without the slash) selects a persona.
func IsModeCommand(cmd string) bool {
	return domain.Mode(strings.ToLower(cmd)).IsValid()
}

func normalizeSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
