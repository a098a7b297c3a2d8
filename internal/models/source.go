package models

import "strings"

// Source identifies the ingestion path a check arrived through.
type Source string

const (
	SourceTelegramBot    Source = "telegram-bot"
	SourceUserbotForward Source = "userbot-forward"
	SourceSMS            Source = "sms"
	SourceManual         Source = "manual"
)

// KnownSources lists every valid ingestion source.
var KnownSources = []Source{SourceTelegramBot, SourceUserbotForward, SourceSMS, SourceManual}

// NormalizeSource maps the aliases used by upstream collaborators (bot,
// userbot, Android SMS relay, manual UI) onto the canonical Source values.
// Unrecognized input normalizes to manual, matching the queue logger's
// behavior upstream.
func NormalizeSource(raw string) Source {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "telegram", "tg", "telegram_bot", "telegram-bot", "bot":
		return SourceTelegramBot
	case "userbot", "forward", "userbot-forward", "userbot_forward":
		return SourceUserbotForward
	case "sms", "text", "smstext":
		return SourceSMS
	default:
		return SourceManual
	}
}

// IsManual reports whether the source is the manual-entry path, which has
// stricter duplicate semantics than bot and forward ingestion.
func (s Source) IsManual() bool {
	return s == SourceManual
}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	for _, known := range KnownSources {
		if s == known {
			return true
		}
	}
	return false
}
