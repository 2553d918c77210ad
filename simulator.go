package parley

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/parley/pkg/callflow"
	"github.com/aretw0/parley/pkg/domain"
)

// Simulator plays one call against the controller from a text stream.
// Each input line stands for one caller action: a menu digit, a language
// name, or a recognized utterance. An empty line simulates silence.
type Simulator struct {
	Input  io.Reader
	Output io.Writer
	CallID string

	// ShowVoice prefixes every spoken line with its voice and locale.
	ShowVoice bool
}

// maxRedirects guards against redirect loops with no capture in between.
const maxRedirects = 8

// Run executes the call until the controller hangs up, the input ends, or
// the caller types "exit". The session is removed in every case.
func (r *Simulator) Run(ctx context.Context, svc *Service) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	callID := r.CallID
	if callID == "" {
		callID = "SIM-CALL"
	}

	ctrl := svc.Controller()
	lines := bufio.NewReader(r.Input)
	resp := ctrl.Entry(ctx, callID)
	redirects := 0

	for {
		r.print(resp)
		if resp.HangsUp() {
			return nil
		}

		g, listening := resp.Gather()
		if !listening {
			redirects++
			if redirects > maxRedirects {
				return fmt.Errorf("call %s is stuck in redirects", callID)
			}
			resp = r.follow(ctx, ctrl, callID, resp)
			continue
		}
		redirects = 0

		fmt.Fprint(r.Output, "> ")
		text, err := lines.ReadString('\n')
		if err != nil && (err != io.EOF || text == "") {
			fmt.Fprintln(r.Output)
			if hangupErr := ctrl.Hangup(ctx, callID); hangupErr != nil {
				return hangupErr
			}
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		input := strings.TrimSpace(text)

		if input == "exit" || input == "quit" {
			fmt.Fprintln(r.Output, "Bye!")
			return ctrl.Hangup(ctx, callID)
		}

		switch g.Action {
		case callflow.RouteLanguage:
			resp = ctrl.SelectLanguage(ctx, callID, input)
		case callflow.RouteRespond:
			resp = ctrl.Converse(ctx, callID, input)
		default:
			resp = ctrl.Entry(ctx, callID)
		}
	}
}

func (r *Simulator) follow(ctx context.Context, ctrl *callflow.Controller, callID string, resp callflow.Response) callflow.Response {
	for _, in := range resp.Instructions {
		if rd, ok := in.(callflow.Redirect); ok && rd.Action == callflow.RouteRespond {
			return ctrl.Converse(ctx, callID, "")
		}
	}
	return ctrl.Entry(ctx, callID)
}

func (r *Simulator) print(resp callflow.Response) {
	for _, in := range resp.Instructions {
		switch v := in.(type) {
		case callflow.Say:
			r.say(v)
		case callflow.Gather:
			for _, p := range v.Prompts {
				r.say(p)
			}
		}
	}
	if resp.State == domain.StateTerminated {
		fmt.Fprintln(r.Output, "[call ended]")
	}
}

func (r *Simulator) say(s callflow.Say) {
	if r.ShowVoice {
		fmt.Fprintf(r.Output, "[%s %s] %s\n", s.Voice, s.Locale, s.Text)
		return
	}
	fmt.Fprintln(r.Output, s.Text)
}
