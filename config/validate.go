package config

import (
	"strings"

	"videoInterpret/core"
)

const (
	minTaskLength = 3
	maxTaskLength = 1000
)

// supportedLanguages are the ISO 639-1 codes the transcription providers
// accept.
var supportedLanguages = map[string]bool{
	"pt": true, "en": true, "es": true, "fr": true, "de": true, "it": true,
	"ja": true, "ko": true, "zh": true, "ru": true, "ar": true, "hi": true,
}

// ValidateTaskDescription checks the user's free-text task at the entry
// point, before any extraction or dispatch is paid for.
func ValidateTaskDescription(task string) error {
	trimmed := strings.TrimSpace(task)
	if trimmed == "" {
		return core.InvalidConfiguration("task_description", "must not be empty")
	}
	if len(trimmed) < minTaskLength {
		return core.InvalidConfiguration("task_description", "too short (minimum %d characters)", minTaskLength)
	}
	if len(task) > maxTaskLength {
		return core.InvalidConfiguration("task_description", "too long (maximum %d characters)", maxTaskLength)
	}
	return nil
}

// ValidateLanguage checks an ISO 639-1 language code against the supported
// set.
func ValidateLanguage(language string) error {
	if len(language) != 2 || language != strings.ToLower(language) {
		return core.InvalidConfiguration("language", "must be a lowercase ISO 639-1 code, got %q", language)
	}
	if !supportedLanguages[language] {
		return core.InvalidConfiguration("language", "unsupported language %q", language)
	}
	return nil
}
