package genclient

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxPromptContentLen = 600

// BuildPrompt composes the backend prompt from the post's text and the
// requested style descriptor. The style label is title-cased for the caller's
// locale so the backend receives a consistent descriptor regardless of how
// the request spelled it.
func BuildPrompt(content, style, locale string) string {
	content = strings.TrimSpace(content)
	if len(content) > maxPromptContentLen {
		content = content[:maxPromptContentLen]
	}

	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		tag = language.English
	}
	caser := cases.Title(tag)

	label := caser.String(strings.TrimSpace(style))
	if label == "" {
		label = caser.String(DefaultStyle)
	}
	if content == "" {
		return fmt.Sprintf("%s marketing visual for a social media campaign.", label)
	}
	return fmt.Sprintf("%s marketing visual for the following social media post:\n%s", label, content)
}
