package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/domain"
)

func TestStreamRepository_CreateGetListUpdateDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewStreamRepository(newTestPool(t))
	userID := domain.NewID("user")

	s := &domain.Stream{
		ID:              domain.NewID("stream"),
		UserID:          userID,
		Name:            "front-door",
		ConfigJSON:      `{"kind":"file"}`,
		ExecutionStatus: domain.ExecutionInactive,
	}
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "front-door", got.Name)

	list, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	got.ExecutionStatus = domain.ExecutionRunning
	require.NoError(t, repo.Update(ctx, got))

	reloaded, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionRunning, reloaded.ExecutionStatus)

	require.NoError(t, repo.Delete(ctx, s.ID))
	_, err = repo.GetByID(ctx, s.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestStreamRepository_Delete_NotFound(t *testing.T) {
	repo := NewStreamRepository(newTestPool(t))
	err := repo.Delete(context.Background(), "stream_missing")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}
