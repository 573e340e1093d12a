package chat

import (
	"fmt"
	"regexp"
	"strings"
)

const Persona = "You are a medical assistant specialized in skin conditions. " +
	"Answer any skin-related question with helpful, reliable, and beginner-friendly advice."

var thisWord = regexp.MustCompile(`(?i)\bthis\b`)

// SystemPrompt is the persona, plus a reminder of the user's latest
// condition when there is one.
func SystemPrompt(condition string) string {
	if condition == "" {
		return Persona
	}
	return fmt.Sprintf("%s If the user says 'this', they may be referring to their recent condition: '%s'.", Persona, condition)
}

// Substitute replaces every whole word "this", in any case, with the
// lowercased condition. The rest of the message is left as typed.
func Substitute(message, condition string) (string, bool) {
	if condition == "" || !thisWord.MatchString(message) {
		return message, false
	}
	return thisWord.ReplaceAllLiteralString(message, strings.ToLower(condition)), true
}

// Conversation builds the system and user turns sent to the provider.
func Conversation(message, condition string) []Message {
	text, _ := Substitute(message, condition)
	return []Message{
		{Role: RoleSystem, Content: SystemPrompt(condition)},
		{Role: RoleUser, Content: text},
	}
}
