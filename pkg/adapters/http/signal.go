package http

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
)

// MaxUtteranceSize caps recognized text passed to the controller.
const MaxUtteranceSize = 4096

// Signal is the subset of a gateway webhook the controller needs.
type Signal struct {
	CallSid      string  `mapstructure:"CallSid"`
	SpeechResult string  `mapstructure:"SpeechResult"`
	Digits       string  `mapstructure:"Digits"`
	CallStatus   string  `mapstructure:"CallStatus"`
	Confidence   float64 `mapstructure:"Confidence"`
}

// Selector returns the language choice: a pressed digit wins over speech.
func (s Signal) Selector() string {
	if d := strings.TrimSpace(s.Digits); d != "" {
		return d
	}
	return s.SpeechResult
}

// Ended reports whether CallStatus is a final call state.
func (s Signal) Ended() bool {
	switch s.CallStatus {
	case "completed", "busy", "failed", "no-answer", "canceled":
		return true
	}
	return false
}

// decodeSignal maps a parsed form onto a Signal. Unknown parameters are ignored.
func decodeSignal(form url.Values) (Signal, error) {
	raw := make(map[string]any, len(form))
	for key, values := range form {
		if len(values) > 0 {
			raw[key] = values[0]
		}
	}

	var sig Signal
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &sig,
	})
	if err != nil {
		return Signal{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Signal{}, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if strings.TrimSpace(sig.CallSid) == "" {
		return Signal{}, errMissingCallSid
	}

	sig.SpeechResult = sanitize(sig.SpeechResult, MaxUtteranceSize)
	sig.Digits = sanitize(sig.Digits, MaxUtteranceSize)
	return sig, nil
}

// sanitize bounds the text, repairs invalid UTF-8 and strips control
// characters. Oversized input is truncated rather than rejected so the call
// keeps going.
func sanitize(input string, limit int) string {
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}
	if len(input) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(input[cut]) {
			cut--
		}
		input = input[:cut]
	}

	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
