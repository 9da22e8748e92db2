package telegram

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kitbuilder587/orbe-search/internal/domain"
	"github.com/kitbuilder587/orbe-search/internal/files"
)

const MaxMessageLength = 4096 // лимит телеграма

var markdownLink = regexp.MustCompile(`\[([^\]\n]+)\]\((https?://[^)\s]+)\)`)

// FormatAnswer escapes the answer for HTML parse mode. Markdown links with an
// absolute URL become anchors; relative proxy links are made absolute when
// baseURL is set.
func FormatAnswer(text string, mode domain.Mode, baseURL string) string {
	if baseURL != "" {
		text = strings.ReplaceAll(text, "("+files.ProxyPath, "("+strings.TrimRight(baseURL, "/")+files.ProxyPath)
	}

	escaped := html.EscapeString(strings.TrimSpace(text))
	escaped = markdownLink.ReplaceAllString(escaped, `<a href="$2">$1</a>`)

	if indicator := modeIndicator(mode); indicator != "" {
		return indicator + "\n\n" + escaped
	}
	return escaped
}

func modeIndicator(mode domain.Mode) string {
	switch mode {
	case domain.ModeChat:
		return "<i>Chat mode</i>"
	case domain.ModeCoder:
		return "<i>Coder mode</i>"
	case domain.ModeBusiness:
		return "<i>Business mode</i>"
	case domain.ModeCreative:
		return "<i>Creative mode</i>"
	case domain.ModeWizard:
		return "<i>Wizard mode</i>"
	default:
		return ""
	}
}

func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			messages = append(messages, text)
			break
		}

		splitPoint := findSafeSplitPoint(text, maxLen)
		if splitPoint <= 0 || splitPoint > len(text) {
			splitPoint = maxLen
		}

		messages = append(messages, text[:splitPoint])
		text = text[splitPoint:]
	}

	return messages
}

// findSafeSplitPoint returns a cut position within maxLen bytes that is not
// inside a tag, an entity or an open element such as <a>...</a>, and starts a rune.
// Whitespace in the upper half of the window is preferred.
func findSafeSplitPoint(text string, maxLen int) int {
	var (
		inTag, inEntity, closing bool
		depth                    int
		lastSpace, lastSafe      int
	)

	for i := 0; i <= maxLen && i < len(text); i++ {
		if i > 0 && !inTag && !inEntity && depth == 0 && utf8.RuneStart(text[i]) {
			lastSafe = i
			if text[i-1] == ' ' || text[i-1] == '\n' {
				lastSpace = i
			}
		}
		if i == maxLen {
			break
		}

		switch text[i] {
		case '&':
			inEntity = !inTag
		case ';':
			inEntity = false
		case ' ', '\n':
			inEntity = false
		case '<':
			inTag = true
			closing = i+1 < len(text) && text[i+1] == '/'
		case '>':
			if !inTag {
				continue
			}
			inTag = false
			if closing {
				if depth > 0 {
					depth--
				}
			} else {
				depth++
			}
		}
	}

	if lastSpace > maxLen/2 {
		return lastSpace
	}
	if lastSafe > 0 {
		return lastSafe
	}

	// элемент длиннее лимита: режем хотя бы по границе руны
	for i := maxLen; i > 0; i-- {
		if utf8.RuneStart(text[i]) {
			return i
		}
	}
	return maxLen
}
