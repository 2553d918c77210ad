package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	callID := "CA-contract-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		s := domain.NewSession(callID, domain.LocaleFrench)
		s.Append(domain.RoleUser, "bonjour")
		s.Append(domain.RoleAssistant, "bonjour, comment puis-je vous aider ?")

		require.NoError(t, store.Save(ctx, s), "Save should not return error")

		loaded, err := store.Load(ctx, callID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, callID, loaded.CallID)
		assert.Equal(t, domain.LocaleFrench, loaded.Language)
		require.Len(t, loaded.History, 2)
		assert.Equal(t, domain.RoleUser, loaded.History[0].Role)
		assert.Equal(t, "bonjour", loaded.History[0].Content)
		assert.Equal(t, domain.RoleAssistant, loaded.History[1].Role)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+callID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Isolation", func(t *testing.T) {
		other := callID + "-other"
		require.NoError(t, store.Save(ctx, domain.NewSession(other, domain.LocaleSpanish)))
		defer func() { _ = store.Delete(ctx, other) }()

		loaded, err := store.Load(ctx, callID)
		require.NoError(t, err)
		assert.Equal(t, callID, loaded.CallID)
		assert.Equal(t, domain.LocaleFrench, loaded.Language)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewSession(callID, domain.LocaleEnglish)))

		require.NoError(t, store.Delete(ctx, callID), "Delete should not return error")

		_, err := store.Load(ctx, callID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, callID), "Deleting a missing session should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1 := callID + "-1"
		id2 := callID + "-2"
		_ = store.Save(ctx, domain.NewSession(id1, domain.LocaleEnglish))
		_ = store.Save(ctx, domain.NewSession(id2, domain.LocaleEnglish))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		calls, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, calls, id1)
		assert.Contains(t, calls, id2)
	})
}
