package activity

import "strings"

// Translations for activity event tags. Colon-separated tags map to
// dot-separated keys under "activity.", mirroring the panel's locale files.
var eventTranslations = map[string]string{
	"activity.auth.reset-password":   "Reset the account password",
	"activity.auth.forgot-password":  "Requested a password reset token",
	"activity.auth.login":            "Logged in",
	"activity.auth.logout":           "Logged out",
	"activity.server.power.start":    "Started the server",
	"activity.server.power.stop":     "Stopped the server",
	"activity.server.power.restart":  "Restarted the server",
	"activity.server.file.upload":    "Uploaded a file",
	"activity.server.file.delete":    "Deleted a file",
	"activity.server.backup.create":  "Created a backup",
	"activity.server.backup.restore": "Restored a backup",
	"activity.api-key.create":        "Created an API key",
	"activity.api-key.delete":        "Deleted an API key",
}

// TranslationKey maps an event tag to its locale key, e.g.
// "server:file.upload" becomes "activity.server.file.upload"
func TranslationKey(event string) string {
	return "activity." + strings.ReplaceAll(event, ":", ".")
}

// TranslateEvent resolves the human-readable text for an event tag.
// Unknown tags fall back to the raw translation key, the same way the
// panel UI surfaces missing locale entries.
func TranslateEvent(event string) string {
	key := TranslationKey(event)
	if text, ok := eventTranslations[key]; ok {
		return text
	}
	return key
}
