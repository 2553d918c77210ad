package language

import (
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// Entry is the immutable bundle of voice, prompts, and instructions for one locale.
type Entry struct {
	Key         domain.LocaleKey `yaml:"key"`
	Digit       string           `yaml:"digit"`
	DisplayName string           `yaml:"display_name"`

	// Locale is the tag used for speech recognition and synthesis (e.g. "en-US").
	Locale string `yaml:"locale"`
	// Voice is the gateway's synthesized-voice identifier (e.g. "Polly.Joanna").
	Voice string `yaml:"voice"`

	MenuPrompt  string `yaml:"menu_prompt"`
	Greeting    string `yaml:"greeting"`
	NoInput     string `yaml:"no_input"`
	Farewell    string `yaml:"farewell"`
	ErrorPrompt string `yaml:"error_prompt"`

	// TerminationPhrases are lowercase substrings that end the call.
	TerminationPhrases []string `yaml:"termination_phrases"`

	// Aliases are spoken names accepted as a language selector.
	Aliases []string `yaml:"aliases"`

	// Instructions is the system prompt sent to the generation backend.
	Instructions string `yaml:"instructions"`
}

// IsTermination reports whether the utterance contains any termination phrase,
// case-insensitively and anywhere in the text.
func (e Entry) IsTermination(utterance string) bool {
	text := strings.ToLower(utterance)
	for _, phrase := range e.TerminationPhrases {
		if phrase != "" && strings.Contains(text, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// matches reports whether a normalized selector picks this entry.
func (e Entry) matches(selector string) bool {
	if selector == e.Digit || selector == string(e.Key) {
		return true
	}
	if strings.EqualFold(selector, e.DisplayName) {
		return true
	}
	for _, alias := range e.Aliases {
		if alias != "" && strings.Contains(selector, strings.ToLower(alias)) {
			return true
		}
	}
	return false
}
