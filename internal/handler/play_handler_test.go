package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storyforge/internal/model"
	"storyforge/internal/service"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func dialPlay(t *testing.T, srv *httptest.Server, tok string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/play/" + tok
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) playEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev playEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestPlayChannel(t *testing.T) {
	client := new(mockLLMClient)
	r, gameService, _ := newGameRouter(t, client)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx := context.Background()
	tok, view, err := gameService.CreateGame(ctx)
	require.NoError(t, err)
	_, err = gameService.SelectGenre(ctx, view.ID, "western")
	require.NoError(t, err)

	client.On("Complete", mock.Anything, mock.Anything).Return("Dust blows down Main Street.", nil).Once()
	_, err = gameService.CreateCharacter(ctx, view.ID, service.CharacterInput{Name: "Jesse", Class: "Gunslinger"})
	require.NoError(t, err)

	conn := dialPlay(t, srv, tok)

	ev := readEvent(t, conn)
	require.Equal(t, "state", ev.Type)
	require.NotNil(t, ev.Data)
	assert.Len(t, ev.Data.Messages, 2)

	client.On("Complete", mock.Anything, mock.Anything).Return("The sheriff tips his hat.", nil).Once()
	require.NoError(t, conn.WriteJSON(playCommand{Type: commandSay, Content: "I walk into the saloon"}))

	ev = readEvent(t, conn)
	require.Equal(t, "state", ev.Type)
	assert.True(t, ev.Data.Pending)
	assert.Len(t, ev.Data.Messages, 3)

	ev = readEvent(t, conn)
	require.Equal(t, "state", ev.Type)
	assert.False(t, ev.Data.Pending)
	require.Len(t, ev.Data.Messages, 4)
	assert.Equal(t, "The sheriff tips his hat.", ev.Data.Messages[3].Content)

	require.NoError(t, conn.WriteJSON(playCommand{Type: commandChoice, Choice: "sing"}))
	ev = readEvent(t, conn)
	assert.Equal(t, "error", ev.Type)
	assert.NotEmpty(t, ev.Message)

	require.NoError(t, conn.WriteJSON(playCommand{Type: "dance"}))
	ev = readEvent(t, conn)
	assert.Equal(t, "error", ev.Type)

	require.NoError(t, conn.WriteJSON(playCommand{Type: commandRestart}))
	ev = readEvent(t, conn)
	require.Equal(t, "state", ev.Type)
	assert.Equal(t, model.PhaseGenreSelection, ev.Data.Phase)
	assert.Empty(t, ev.Data.Messages)

	require.NoError(t, conn.WriteJSON(playCommand{Type: commandState}))
	ev = readEvent(t, conn)
	require.Equal(t, "state", ev.Type)
	assert.Equal(t, model.PhaseGenreSelection, ev.Data.Phase)

	client.AssertExpectations(t)
}

func TestPlayChannelRejectsBadToken(t *testing.T) {
	r, _, _ := newGameRouter(t, new(mockLLMClient))
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/play/not-a-token"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPlayChannelChecksOrigin(t *testing.T) {
	r, gameService, _ := newGameRouter(t, new(mockLLMClient))
	srv := httptest.NewServer(r)
	defer srv.Close()

	tok, _, err := gameService.CreateGame(context.Background())
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/play/" + tok

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://PLAY.example.com"}})
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	ev := readEvent(t, conn)
	assert.Equal(t, "state", ev.Type)
}
