package model_test

import (
	"errors"
	"testing"

	"storyforge/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenreCatalog(t *testing.T) {
	catalog := model.Catalog()
	require.Len(t, catalog, len(model.Genres))

	for i, entry := range catalog {
		assert.Equal(t, model.Genres[i], entry.ID)
		cfg, ok := entry.ID.Config()
		require.True(t, ok)
		assert.NotEmpty(t, cfg.SystemPrompt, "genre %s", entry.ID)
		assert.NotEmpty(t, cfg.Model, "genre %s", entry.ID)
		assert.NotEmpty(t, cfg.Name)
		assert.Greater(t, cfg.Temperature, 0.0)
	}

	_, err := model.ParseGenre("romance")
	assert.Error(t, err)
	g, err := model.ParseGenre("western")
	require.NoError(t, err)
	assert.Equal(t, model.GenreWestern, g)
}

func TestNewCharacter(t *testing.T) {
	t.Run("trims and drops empty optionals", func(t *testing.T) {
		c, err := model.NewCharacter("  Kara ", "  ", "\tOrphan ", []string{" brave", ""})
		require.NoError(t, err)
		assert.Equal(t, "Kara", c.Name)
		assert.Empty(t, c.Class)
		assert.Equal(t, "Orphan", c.Background)
		assert.Equal(t, []string{"brave"}, c.Traits)
	})

	t.Run("name required", func(t *testing.T) {
		_, err := model.NewCharacter("   ", "Rogue", "", nil)
		assert.ErrorIs(t, err, model.ErrCharacterNameRequired)
	})
}

func TestOpeningMessages(t *testing.T) {
	t.Run("name and class", func(t *testing.T) {
		msgs, err := model.OpeningMessages(model.GenreFantasy, model.Character{Name: "Kara", Class: "Rogue"})
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, model.RoleSystem, msgs[0].Role)
		assert.Equal(t, model.RoleUser, msgs[1].Role)
		assert.Equal(t,
			"My character is Kara, a Rogue. Begin our fantasy adventure by setting an engaging opening scene. Then present me with 2-3 numbered choices for what to do next.",
			msgs[1].Content)
	})

	t.Run("with background", func(t *testing.T) {
		msgs, err := model.OpeningMessages(model.GenreWestern, model.Character{Name: "Jed", Background: "Drifter"})
		require.NoError(t, err)
		assert.Equal(t,
			"My character is Jed with a background as a Drifter. Begin our western adventure by setting an engaging opening scene. Then present me with 2-3 numbered choices for what to do next.",
			msgs[1].Content)
	})
}

func TestSessionLifecycle(t *testing.T) {
	s := &model.Session{Genre: model.GenreFantasy}

	req, ok, err := s.Begin(model.Character{Name: "Kara", Class: "Rogue"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, s.Pending)
	assert.Equal(t, model.Starting, s.Start)
	assert.Equal(t, "openai/gpt-4o", req.Model)
	assert.Equal(t, 0.9, req.Temperature)
	assert.Equal(t, model.MaxReplyTokens, req.MaxTokens)
	assert.Len(t, req.Messages, 2)

	// 开场只触发一次
	_, ok, err = s.Begin(model.Character{Name: "Kara"})
	require.NoError(t, err)
	assert.False(t, ok)

	// 请求未完成时提交被忽略
	_, ok = s.AppendUserTurn("I draw my dagger")
	assert.False(t, ok)
	assert.Len(t, s.Transcript, 2)

	s.Complete("You wake in a tavern.", nil)
	assert.False(t, s.Pending)
	assert.Equal(t, model.Started, s.Start)

	_, ok = s.AppendUserTurn("   ")
	assert.False(t, ok)

	req, ok = s.AppendUserTurn("  I order an ale ")
	require.True(t, ok)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, model.ChatMessage{Role: model.RoleUser, Content: "I order an ale"}, req.Messages[3])

	s.Complete("", errors.New("upstream 502"))
	assert.False(t, s.Pending)

	visible := s.Visible()
	require.Len(t, visible, 4)
	for _, m := range visible {
		assert.NotEqual(t, model.RoleSystem, m.Role)
	}
	assert.Equal(t, model.ChatMessage{Role: model.RoleAssistant, Content: model.FallbackReply}, visible[3])
}

func TestSessionRequestIsSnapshot(t *testing.T) {
	s := &model.Session{Genre: model.GenreHorror}
	req, ok, err := s.Begin(model.Character{Name: "Ann"})
	require.NoError(t, err)
	require.True(t, ok)

	s.Complete("The lights flicker.", nil)
	assert.Len(t, req.Messages, 2)
	assert.Len(t, s.Transcript, 3)
}

func TestCompleteWithoutPendingIsNoop(t *testing.T) {
	s := &model.Session{Genre: model.GenreMystery}
	s.Complete("late reply", nil)
	assert.Empty(t, s.Transcript)
	assert.False(t, s.Pending)
}

func TestStartStateText(t *testing.T) {
	for _, st := range []model.StartState{model.NotStarted, model.Starting, model.Started} {
		b, err := st.MarshalText()
		require.NoError(t, err)
		var back model.StartState
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, st, back)
	}
	var s model.StartState
	assert.Error(t, s.UnmarshalText([]byte("finished")))
}

func TestQuickChoices(t *testing.T) {
	text, ok := model.QuickChoiceLook.Text()
	require.True(t, ok)
	assert.Equal(t, "I look around carefully", text)

	_, ok = model.QuickChoice("flee").Text()
	assert.False(t, ok)
}
