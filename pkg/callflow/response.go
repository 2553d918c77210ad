package callflow

import "github.com/aretw0/parley/pkg/domain"

// Handler paths the gateway is told to call back.
const (
	RouteEntry    = "/voice"
	RouteLanguage = "/language"
	RouteRespond  = "/respond"
	RouteStatus   = "/status"
)

// CaptureMode selects which caller input the gateway collects.
type CaptureMode string

const (
	CaptureSpeech CaptureMode = "speech"
	CaptureDTMF   CaptureMode = "dtmf"
	CaptureAny    CaptureMode = "dtmf speech"
)

// Instruction is one step of a Response. The concrete types are Say,
// Gather, Redirect and Hangup.
type Instruction interface {
	instruction()
}

// Say speaks text in a voice.
type Say struct {
	Text   string
	Voice  string
	Locale string
}

// Gather captures the next caller input and posts it to Action.
// Prompts are spoken while listening.
type Gather struct {
	Mode      CaptureMode
	Action    string
	Locale    string
	NumDigits int
	Prompts   []Say
}

// Redirect sends the call to another handler.
type Redirect struct {
	Action string
}

// Hangup ends the call.
type Hangup struct{}

func (Say) instruction()      {}
func (Gather) instruction()   {}
func (Redirect) instruction() {}
func (Hangup) instruction()   {}

// Response is the controller's answer to one webhook.
type Response struct {
	// State is where the call stands after this response.
	State        domain.CallState
	Instructions []Instruction
}

// Texts returns every spoken text in order, including Gather prompts.
func (r Response) Texts() []string {
	var out []string
	for _, in := range r.Instructions {
		switch v := in.(type) {
		case Say:
			out = append(out, v.Text)
		case Gather:
			for _, p := range v.Prompts {
				out = append(out, p.Text)
			}
		}
	}
	return out
}

// HangsUp reports whether the response ends the call.
func (r Response) HangsUp() bool {
	for _, in := range r.Instructions {
		if _, ok := in.(Hangup); ok {
			return true
		}
	}
	return false
}

// Gather returns the first capture instruction, if any.
func (r Response) Gather() (Gather, bool) {
	for _, in := range r.Instructions {
		if g, ok := in.(Gather); ok {
			return g, true
		}
	}
	return Gather{}, false
}
