package orchestration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/store"
)

func TestUsers(t *testing.T) {
	ctx := context.Background()
	users := NewUsers(store.NewMemory())

	created, err := users.Create(ctx, "Ada", " Ada@Example.com ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.NotEqual(t, "s3cret", created.HashedPassword)

	_, err = users.Create(ctx, "Other", "ada@example.com", "x")
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, err := users.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	authed, err := users.Authenticate(ctx, "ADA@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, authed.ID)

	_, err = users.Authenticate(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = users.Authenticate(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = users.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
