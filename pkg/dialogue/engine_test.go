package dialogue_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aretw0/parley/pkg/dialogue"
	"github.com/aretw0/parley/pkg/dialogue/dialoguetest"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/language"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Turn_FirstUtterance(t *testing.T) {
	gen := dialoguetest.New()
	gen.AddReply("my mic isn't working", "Let's check your mute button first. Is it on?")
	engine := dialogue.NewEngine(gen)

	sess := domain.NewSession("CA1", domain.LocaleEnglish)
	reply, err := engine.Turn(context.Background(), sess, language.English, "my mic isn't working")
	require.NoError(t, err)
	assert.Equal(t, "Let's check your mute button first. Is it on?", reply)

	reqs := gen.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, language.English.Instructions, reqs[0].Instructions)
	assert.Equal(t, domain.DefaultMaxTokens, reqs[0].MaxTokens)
	require.Len(t, reqs[0].History, 1)
	assert.Equal(t, domain.Turn{Role: domain.RoleUser, Content: "my mic isn't working"}, reqs[0].History[0])

	require.Len(t, sess.History, 2)
	assert.Equal(t, domain.RoleAssistant, sess.History[1].Role)
	assert.Equal(t, reply, sess.History[1].Content)
}

func TestEngine_Turn_UsesLocaleInstructions(t *testing.T) {
	gen := dialoguetest.New()
	engine := dialogue.NewEngine(gen, dialogue.WithMaxTokens(128))

	sess := domain.NewSession("CA1", domain.LocaleSpanish)
	_, err := engine.Turn(context.Background(), sess, language.Spanish, "hola")
	require.NoError(t, err)

	req := gen.Requests()[0]
	assert.Equal(t, language.Spanish.Instructions, req.Instructions)
	assert.Contains(t, req.Instructions, "Spanish")
	assert.Equal(t, int64(128), req.MaxTokens)
}

func TestEngine_Turn_BoundsHistory(t *testing.T) {
	gen := dialoguetest.New()
	engine := dialogue.NewEngine(gen)
	sess := domain.NewSession("CA1", domain.LocaleEnglish)

	for i := 0; i < 10; i++ {
		_, err := engine.Turn(context.Background(), sess, language.English, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}
	require.Len(t, sess.History, domain.MaxHistory)
	assert.Equal(t, "question 0", sess.History[0].Content)

	// The 11th exchange pushes the oldest pair out.
	_, err := engine.Turn(context.Background(), sess, language.English, "question 10")
	require.NoError(t, err)
	require.Len(t, sess.History, domain.MaxHistory)
	assert.Equal(t, domain.RoleUser, sess.History[0].Role)
	assert.Equal(t, "question 1", sess.History[0].Content)
	assert.Equal(t, "You said: question 10", sess.History[domain.MaxHistory-1].Content)

	// The request sent upstream carried 21 turns at most.
	reqs := gen.Requests()
	assert.Len(t, reqs[len(reqs)-1].History, domain.MaxHistory+1)
}

func TestEngine_Turn_BackendFailureKeepsUserTurn(t *testing.T) {
	gen := dialoguetest.New()
	gen.FailWith(errors.New("connection refused"))
	engine := dialogue.NewEngine(gen)

	sess := domain.NewSession("CA1", domain.LocaleEnglish)
	reply, err := engine.Turn(context.Background(), sess, language.English, "hello")
	require.Error(t, err)
	assert.Empty(t, reply)

	be, ok := domain.AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, "fake", be.Provider)
	assert.Equal(t, domain.BackendUnavailable, be.Kind)

	require.Len(t, sess.History, 1)
	assert.Equal(t, domain.RoleUser, sess.History[0].Role)
}

func TestEngine_Turn_FailuresStillBounded(t *testing.T) {
	gen := dialoguetest.New()
	gen.FailWith(errors.New("boom"))
	engine := dialogue.NewEngine(gen)

	sess := domain.NewSession("CA1", domain.LocaleEnglish)
	for i := 0; i < 25; i++ {
		_, _ = engine.Turn(context.Background(), sess, language.English, fmt.Sprintf("u%d", i))
	}
	assert.Len(t, sess.History, domain.MaxHistory)
	assert.Equal(t, "u24", sess.History[domain.MaxHistory-1].Content)
}

func TestEngine_Turn_PassesThroughBackendError(t *testing.T) {
	gen := dialoguetest.New()
	gen.FailWith(domain.NewBackendError("anthropic", domain.BackendRateLimit, errors.New("slow down")))
	engine := dialogue.NewEngine(gen)

	_, err := engine.Turn(context.Background(), domain.NewSession("CA1", domain.LocaleEnglish), language.English, "hi")
	be, ok := domain.AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, "anthropic", be.Provider)
	assert.Equal(t, domain.BackendRateLimit, be.Kind)
}

func TestEngine_Turn_Timeout(t *testing.T) {
	gen := dialoguetest.New()
	engine := dialogue.NewEngine(gen)

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	_, err := engine.Turn(ctx, domain.NewSession("CA1", domain.LocaleEnglish), language.English, "hi")
	be, ok := domain.AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, domain.BackendTimeout, be.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngine_Turn_EmptyReplyIsMalformed(t *testing.T) {
	gen := dialoguetest.New()
	gen.AddReply("hi", "   ")
	engine := dialogue.NewEngine(gen)

	sess := domain.NewSession("CA1", domain.LocaleEnglish)
	_, err := engine.Turn(context.Background(), sess, language.English, "hi")
	be, ok := domain.AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, domain.BackendMalformed, be.Kind)
	assert.Len(t, sess.History, 1)
}

func TestClassifyStatus(t *testing.T) {
	cases := map[int]domain.BackendErrorKind{
		http.StatusUnauthorized:        domain.BackendAuth,
		http.StatusForbidden:           domain.BackendAuth,
		http.StatusTooManyRequests:     domain.BackendRateLimit,
		http.StatusGatewayTimeout:      domain.BackendTimeout,
		http.StatusBadRequest:          domain.BackendMalformed,
		http.StatusInternalServerError: domain.BackendUnavailable,
		529:                            domain.BackendUnavailable,
	}
	for status, want := range cases {
		assert.Equal(t, want, dialogue.ClassifyStatus(status), "status %d", status)
	}
}
