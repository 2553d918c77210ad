package callflow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/callflow"
	"github.com/aretw0/parley/pkg/dialogue"
	"github.com/aretw0/parley/pkg/dialogue/dialoguetest"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/language"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctrl  *callflow.Controller
	gen   *dialoguetest.Generator
	store *memory.Store
	mgr   *session.Manager
}

func newFixture(t *testing.T, opts ...callflow.Option) *fixture {
	t.Helper()
	store := memory.NewStore()
	mgr := session.NewManager(store)
	gen := dialoguetest.New()
	ctrl := callflow.NewController(mgr, language.Default(), dialogue.NewEngine(gen), opts...)
	return &fixture{ctrl: ctrl, gen: gen, store: store, mgr: mgr}
}

func (f *fixture) session(t *testing.T, callID string) *domain.Session {
	t.Helper()
	sess, ok, err := f.mgr.Get(context.Background(), callID)
	require.NoError(t, err)
	require.True(t, ok, "expected session for %s", callID)
	return sess
}

func (f *fixture) missing(t *testing.T, callID string) {
	t.Helper()
	_, ok, err := f.mgr.Get(context.Background(), callID)
	require.NoError(t, err)
	assert.False(t, ok, "expected no session for %s", callID)
}

func requireListening(t *testing.T, resp callflow.Response, entry language.Entry) callflow.Gather {
	t.Helper()
	assert.Equal(t, domain.StateConversing, resp.State)
	g, ok := resp.Gather()
	require.True(t, ok, "capture must be re-armed")
	assert.Equal(t, callflow.CaptureSpeech, g.Mode)
	assert.Equal(t, callflow.RouteRespond, g.Action)
	assert.Equal(t, entry.Locale, g.Locale)
	require.Len(t, g.Prompts, 1)
	assert.Equal(t, entry.Voice, g.Prompts[0].Voice)
	assert.False(t, resp.HangsUp())
	return g
}

func TestController_Entry_PresentsMenu(t *testing.T) {
	f := newFixture(t)

	resp := f.ctrl.Entry(context.Background(), "CA1")
	assert.Equal(t, domain.StateLanguageSelect, resp.State)

	g, ok := resp.Gather()
	require.True(t, ok)
	assert.Equal(t, callflow.CaptureAny, g.Mode)
	assert.Equal(t, callflow.RouteLanguage, g.Action)
	assert.Equal(t, 1, g.NumDigits)
	require.Len(t, g.Prompts, len(language.Default().Entries()))
	assert.Equal(t, language.English.MenuPrompt, g.Prompts[0].Text)
	assert.Equal(t, language.Spanish.Voice, g.Prompts[1].Voice)

	last := resp.Instructions[len(resp.Instructions)-1]
	assert.Equal(t, callflow.Redirect{Action: callflow.RouteEntry}, last)

	f.missing(t, "CA1")
}

func TestController_SelectLanguage_Digit(t *testing.T) {
	f := newFixture(t)

	resp := f.ctrl.SelectLanguage(context.Background(), "CA1", "2")
	g := requireListening(t, resp, language.Spanish)
	assert.Equal(t, language.Spanish.Greeting, g.Prompts[0].Text)
	assert.Equal(t, "Polly.Lupe", g.Prompts[0].Voice)

	sess := f.session(t, "CA1")
	assert.Equal(t, domain.LocaleSpanish, sess.Language)
	assert.Empty(t, sess.History)
}

func TestController_SelectLanguage_UnknownFallsBack(t *testing.T) {
	f := newFixture(t)

	for _, selector := range []string{"9", "", "klingon", "#"} {
		resp := f.ctrl.SelectLanguage(context.Background(), "CA-"+selector, selector)
		g := requireListening(t, resp, language.English)
		assert.Equal(t, language.English.Greeting, g.Prompts[0].Text)
		assert.Equal(t, domain.LocaleEnglish, f.session(t, "CA-"+selector).Language)
	}
}

func TestController_SelectLanguage_ResetsExistingSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.SelectLanguage(ctx, "CA1", "1")
	f.ctrl.Converse(ctx, "CA1", "hello")
	require.Len(t, f.session(t, "CA1").History, 2)

	f.ctrl.SelectLanguage(ctx, "CA1", "3")
	sess := f.session(t, "CA1")
	assert.Equal(t, domain.LocaleFrench, sess.Language)
	assert.Empty(t, sess.History)
}

func TestController_Converse_Reply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.AddReply("my mic isn't working", "Let's make sure you're not muted. Is the mic icon red?")

	f.ctrl.SelectLanguage(ctx, "CA1", "1")
	resp := f.ctrl.Converse(ctx, "CA1", "my mic isn't working")

	g := requireListening(t, resp, language.English)
	assert.Equal(t, "Let's make sure you're not muted. Is the mic icon red?", g.Prompts[0].Text)
	assert.Equal(t, callflow.Redirect{Action: callflow.RouteRespond}, resp.Instructions[1])

	reqs := f.gen.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, language.English.Instructions, reqs[0].Instructions)
	assert.Len(t, reqs[0].History, 1)

	assert.Len(t, f.session(t, "CA1").History, 2)
}

func TestController_Converse_Truncates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.SelectLanguage(ctx, "CA1", "1")

	for i := 1; i <= 11; i++ {
		f.ctrl.Converse(ctx, "CA1", fmt.Sprintf("turn %d", i))
		assert.LessOrEqual(t, len(f.session(t, "CA1").History), domain.MaxHistory)
	}

	history := f.session(t, "CA1").History
	require.Len(t, history, domain.MaxHistory)
	assert.Equal(t, "turn 2", history[0].Content)
	for _, turn := range history {
		assert.NotEqual(t, "turn 1", turn.Content)
	}
}

func TestController_Converse_EmptyUtterance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.SelectLanguage(ctx, "CA1", "4")

	for _, utterance := range []string{"", "   ", "\n"} {
		resp := f.ctrl.Converse(ctx, "CA1", utterance)
		g := requireListening(t, resp, language.Portuguese)
		assert.Equal(t, language.Portuguese.NoInput, g.Prompts[0].Text)
	}

	assert.Zero(t, f.gen.Calls())
	assert.Empty(t, f.session(t, "CA1").History)
}

func TestController_Converse_Farewell(t *testing.T) {
	cases := []string{
		"ok bye",
		"OK BYE",
		"Thanks, that fixed my audio issue. Goodbye!",
		"my camera still flickers but that's all for now",
	}
	for _, utterance := range cases {
		t.Run(utterance, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.ctrl.SelectLanguage(ctx, "CA1", "1")

			resp := f.ctrl.Converse(ctx, "CA1", utterance)
			assert.Equal(t, domain.StateTerminated, resp.State)
			assert.True(t, resp.HangsUp())
			assert.Equal(t, []string{language.English.Farewell}, resp.Texts())
			assert.Zero(t, f.gen.Calls(), "farewell must short-circuit the backend")
			f.missing(t, "CA1")

			// A later signal for the same call starts over.
			again := f.ctrl.Converse(ctx, "CA1", "hello?")
			assert.Equal(t, domain.StateEntry, again.State)
			assert.Equal(t, []callflow.Instruction{callflow.Redirect{Action: callflow.RouteEntry}}, again.Instructions)
		})
	}
}

func TestController_Converse_LocaleFarewell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.SelectLanguage(ctx, "CA1", "2")

	resp := f.ctrl.Converse(ctx, "CA1", "Muchas gracias, ADIÓS")
	assert.Equal(t, domain.StateTerminated, resp.State)
	assert.Equal(t, []string{language.Spanish.Farewell}, resp.Texts())
}

func TestController_Converse_BackendError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.SelectLanguage(ctx, "CA1", "3")
	f.gen.FailWith(domain.NewBackendError("fake", domain.BackendTimeout, context.DeadlineExceeded))

	resp := f.ctrl.Converse(ctx, "CA1", "la caméra ne marche pas")
	g := requireListening(t, resp, language.French)
	assert.Equal(t, language.French.ErrorPrompt, g.Prompts[0].Text)

	sess := f.session(t, "CA1")
	require.Len(t, sess.History, 1)
	assert.Equal(t, domain.RoleUser, sess.History[0].Role)

	// The call continues once the backend recovers.
	f.gen.FailWith(nil)
	resp = f.ctrl.Converse(ctx, "CA1", "allô")
	requireListening(t, resp, language.French)
	assert.Len(t, f.session(t, "CA1").History, 3)
}

func TestController_Converse_MissingSession(t *testing.T) {
	f := newFixture(t)

	resp := f.ctrl.Converse(context.Background(), "CA-unknown", "hello")
	assert.Equal(t, domain.StateEntry, resp.State)
	assert.Equal(t, []callflow.Instruction{callflow.Redirect{Action: callflow.RouteEntry}}, resp.Instructions)
	assert.Zero(t, f.gen.Calls())
	f.missing(t, "CA-unknown")
}

func TestController_Isolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.SelectLanguage(ctx, "X", "2")
	f.ctrl.Converse(ctx, "X", "hola")

	resp := f.ctrl.Converse(ctx, "Y", "hello")
	assert.Equal(t, domain.StateEntry, resp.State)
	f.missing(t, "Y")

	f.ctrl.SelectLanguage(ctx, "Y", "1")
	f.ctrl.Converse(ctx, "Y", "hi")

	for _, req := range f.gen.Requests() {
		if req.Instructions == language.English.Instructions {
			for _, turn := range req.History {
				assert.NotEqual(t, "hola", turn.Content)
			}
		}
	}
	assert.Len(t, f.session(t, "X").History, 2)
	assert.Equal(t, domain.LocaleSpanish, f.session(t, "X").Language)
}

func TestController_ConcurrentCalls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			f.ctrl.SelectLanguage(ctx, id, "1")
			for j := 0; j < 5; j++ {
				f.ctrl.Converse(ctx, id, fmt.Sprintf("%s-%d", id, j))
			}
		}(fmt.Sprintf("CA%d", i))
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("CA%d", i)
		history := f.session(t, id).History
		require.Len(t, history, 10)
		for j := 0; j < 5; j++ {
			assert.Equal(t, fmt.Sprintf("%s-%d", id, j), history[2*j].Content)
		}
	}
}

func TestController_Hangup(t *testing.T) {
	var ended []*domain.SessionEvent
	f := newFixture(t, callflow.WithHooks(domain.LifecycleHooks{
		OnSessionEnd: func(_ context.Context, ev *domain.SessionEvent) { ended = append(ended, ev) },
	}))
	ctx := context.Background()

	f.ctrl.SelectLanguage(ctx, "CA1", "2")
	require.NoError(t, f.ctrl.Hangup(ctx, "CA1"))
	f.missing(t, "CA1")

	require.NoError(t, f.ctrl.Hangup(ctx, "CA1"))
	require.Len(t, ended, 1)
	assert.Equal(t, domain.EndHangup, ended[0].Reason)
	assert.Equal(t, domain.LocaleSpanish, ended[0].Language)
}

func TestController_Hooks(t *testing.T) {
	var (
		started, turns, failures, reprompts int
		ended                               []domain.EndReason
		lastKind                            domain.BackendErrorKind
	)
	hooks := domain.LifecycleHooks{
		OnSessionStart: func(context.Context, *domain.SessionEvent) { started++ },
		OnSessionEnd:   func(_ context.Context, ev *domain.SessionEvent) { ended = append(ended, ev.Reason) },
		OnTurn:         func(context.Context, *domain.TurnEvent) { turns++ },
		OnBackendError: func(_ context.Context, ev *domain.TurnEvent) { failures++; lastKind = ev.ErrorKind },
		OnReprompt:     func(context.Context, *domain.EventBase) { reprompts++ },
	}
	f := newFixture(t, callflow.WithHooks(hooks))
	ctx := context.Background()

	f.ctrl.SelectLanguage(ctx, "CA1", "1")
	f.ctrl.Converse(ctx, "CA1", "hello")
	f.ctrl.Converse(ctx, "CA1", "")
	f.gen.FailWith(errors.New("connection reset"))
	f.ctrl.Converse(ctx, "CA1", "still there?")
	f.ctrl.Converse(ctx, "CA1", "bye")

	assert.Equal(t, 1, started)
	assert.Equal(t, 1, turns)
	assert.Equal(t, 1, failures)
	assert.Equal(t, domain.BackendUnavailable, lastKind)
	assert.Equal(t, 1, reprompts)
	assert.Equal(t, []domain.EndReason{domain.EndFarewell}, ended)
}

func TestController_SingleLanguage(t *testing.T) {
	f := newFixture(t, callflow.WithSingleLanguage(domain.LocaleEnglish))
	ctx := context.Background()

	resp := f.ctrl.Entry(ctx, "CA1")
	g := requireListening(t, resp, language.English)
	assert.Equal(t, language.English.Greeting, g.Prompts[0].Text)

	sess := f.session(t, "CA1")
	assert.Equal(t, domain.LocaleEnglish, sess.Language)
	assert.Empty(t, sess.History)

	key, ok := f.ctrl.SingleLanguage()
	assert.True(t, ok)
	assert.Equal(t, domain.LocaleEnglish, key)
}

// brokenStore fails every operation.
type brokenStore struct{}

var errStoreDown = errors.New("store down")

func (brokenStore) Save(context.Context, *domain.Session) error { return errStoreDown }
func (brokenStore) Load(context.Context, string) (*domain.Session, error) {
	return nil, errStoreDown
}
func (brokenStore) Delete(context.Context, string) error { return errStoreDown }
func (brokenStore) List(context.Context) ([]string, error) { return nil, errStoreDown }

var _ ports.SessionStore = brokenStore{}

func TestController_StoreFailuresKeepCallAlive(t *testing.T) {
	gen := dialoguetest.New()
	ctrl := callflow.NewController(session.NewManager(brokenStore{}), language.Default(), dialogue.NewEngine(gen))
	ctx := context.Background()

	resp := ctrl.SelectLanguage(ctx, "CA1", "2")
	assert.False(t, resp.HangsUp())
	assert.Equal(t, []string{language.Spanish.ErrorPrompt}, resp.Texts())

	resp = ctrl.Converse(ctx, "CA1", "hola")
	requireListening(t, resp, language.English)
	assert.Equal(t, []string{language.English.ErrorPrompt}, resp.Texts())
	assert.Zero(t, gen.Calls())

	assert.ErrorIs(t, ctrl.Hangup(ctx, "CA1"), errStoreDown)
}
