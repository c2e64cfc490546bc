package repository

import (
	"context"
	"testing"
	"time"

	"storyforge/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGameRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryGameRepository(time.Hour)

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrGameNotFound)

	game := model.NewGame("g-1", time.Now())
	require.NoError(t, game.SelectGenre(model.GenreMystery))
	require.NoError(t, repo.Save(ctx, game))

	got, err := repo.Get(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, model.GenreMystery, got.Genre)
	assert.Equal(t, model.PhaseCharacterCreation, got.Phase)

	// 读到的是副本
	got.Phase = model.PhasePlaying
	again, err := repo.Get(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseCharacterCreation, again.Phase)

	require.NoError(t, repo.Delete(ctx, "g-1"))
	_, err = repo.Get(ctx, "g-1")
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestMemoryGameRepositoryExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryGameRepository(time.Minute).(*memoryGameRepository)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Save(ctx, model.NewGame("old", now)))
	now = now.Add(2 * time.Minute)

	_, err := repo.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrGameNotFound)

	require.NoError(t, repo.Save(ctx, model.NewGame("new", now)))
	_, err = repo.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestMemoryGameRepositoryKeepsSession(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryGameRepository(0)

	game := model.NewGame("g-2", time.Now())
	require.NoError(t, game.SelectGenre(model.GenreSciFi))
	require.NoError(t, game.CreateCharacter(model.Character{Name: "Vex", Class: "Pilot"}))
	_, ok, err := game.Session.Begin(*game.Character)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.Save(ctx, game))

	got, err := repo.Get(ctx, "g-2")
	require.NoError(t, err)
	require.NotNil(t, got.Session)
	assert.Equal(t, model.Starting, got.Session.Start)
	assert.True(t, got.Session.Pending)
	assert.Equal(t, game.Session.Transcript, got.Session.Transcript)
}
