package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdctax/internal/onboarding/models"
	"fdctax/pkg/platform/sentinel"
)

func TestInMemorySessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewInMemorySessionStore()
	sess := &models.Session{ID: "s1", Flow: "luna", Stage: 2, Record: models.Record{"first_name": "Ada"}}

	require.NoError(t, st.Save(ctx, sess))
	sess.Record["first_name"] = "changed after save"

	got, err := st.FindByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Record.Text("first_name"))
	assert.Equal(t, 2, got.Stage)

	got.Stage = 5
	again, err := st.FindByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Stage, "reads return copies")
}

func TestInMemorySessionStoreNotFound(t *testing.T) {
	_, err := NewInMemorySessionStore().FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemorySessionStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	st := NewInMemorySessionStore(WithClock(func() time.Time { return now }))
	require.NoError(t, st.Save(ctx, &models.Session{ID: "s1", ExpiresAt: now.Add(time.Hour)}))

	_, err := st.FindByID(ctx, "s1")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = st.FindByID(ctx, "s1")
	assert.ErrorIs(t, err, sentinel.ErrExpired)

	_, err = st.FindByID(ctx, "s1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "expired sessions are dropped")
}

func TestInMemorySessionStoreDelete(t *testing.T) {
	ctx := context.Background()
	st := NewInMemorySessionStore()
	require.NoError(t, st.Save(ctx, &models.Session{ID: "s1"}))
	require.NoError(t, st.Delete(ctx, "s1"))

	_, err := st.FindByID(ctx, "s1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
