// Package twiml renders callflow responses as Twilio voice markup.
package twiml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/parley/pkg/callflow"
	"github.com/twilio/twilio-go/twiml"
)

// ContentType is the media type of rendered documents.
const ContentType = "text/xml"

// Renderer turns gateway-neutral instructions into TwiML.
type Renderer struct {
	baseURL string
}

// NewRenderer returns a Renderer. When baseURL is set, action paths are made
// absolute against it; otherwise they stay relative to the webhook URL.
func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/")}
}

// Render produces the XML document for a response.
func (r *Renderer) Render(resp callflow.Response) (string, error) {
	elements := make([]twiml.Element, 0, len(resp.Instructions))
	for _, in := range resp.Instructions {
		el, err := r.element(in)
		if err != nil {
			return "", err
		}
		elements = append(elements, el)
	}
	return twiml.Voice(elements)
}

func (r *Renderer) element(in callflow.Instruction) (twiml.Element, error) {
	switch v := in.(type) {
	case callflow.Say:
		return say(v), nil
	case callflow.Gather:
		return r.gather(v), nil
	case callflow.Redirect:
		return &twiml.VoiceRedirect{Url: r.url(v.Action), Method: "POST"}, nil
	case callflow.Hangup:
		return &twiml.VoiceHangup{}, nil
	default:
		return nil, fmt.Errorf("unsupported instruction %T", in)
	}
}

func (r *Renderer) gather(g callflow.Gather) *twiml.VoiceGather {
	prompts := make([]twiml.Element, 0, len(g.Prompts))
	for _, p := range g.Prompts {
		prompts = append(prompts, say(p))
	}

	el := &twiml.VoiceGather{
		Input:         string(g.Mode),
		Action:        r.url(g.Action),
		Method:        "POST",
		Language:      g.Locale,
		InnerElements: prompts,
	}
	if g.Mode != callflow.CaptureDTMF {
		el.SpeechTimeout = "auto"
	}
	if g.NumDigits > 0 {
		el.NumDigits = strconv.Itoa(g.NumDigits)
	}
	return el
}

func say(s callflow.Say) *twiml.VoiceSay {
	return &twiml.VoiceSay{Message: s.Text, Voice: s.Voice, Language: s.Locale}
}

func (r *Renderer) url(path string) string {
	if r.baseURL == "" {
		return path
	}
	return r.baseURL + path
}
