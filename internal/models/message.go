package models

import (
	"strings"
	"time"
)

// PhotoFile references a photo held by the chat platform.
type PhotoFile struct {
	FileID   string
	UniqueID string
}

// IncomingMessage is a transport-neutral inbound chat message.
type IncomingMessage struct {
	ReporterID  int64
	DisplayName string
	Command     string // without the leading slash, empty for plain input
	Text        string
	Photo       *PhotoFile
	Location    *Coordinates
	ReceivedAt  time.Time
}

// IsCommand reports whether the message is a slash command.
func (m *IncomingMessage) IsCommand() bool {
	return m.Command != ""
}

// OutgoingMessage is a reply or notification for a reporter.
type OutgoingMessage struct {
	Text     string
	Markdown bool
	// Keyboard is a reply keyboard, one slice per row.
	Keyboard [][]string
	// LocationButton, when set, adds a button asking the client for its GPS position.
	LocationButton string
	RemoveKeyboard bool
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// EscapeMarkdown escapes user-provided text for Telegram legacy Markdown.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
