package service

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"storyforge/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingGateway 记录转发给网关的请求体。
type recordingGateway struct {
	chatBody  []byte
	imageBody []byte
	query     url.Values
	calls     int
}

func (g *recordingGateway) ChatCompletions(_ context.Context, body []byte) (*gateway.Response, error) {
	g.calls++
	g.chatBody = body
	return &gateway.Response{StatusCode: 200, ContentType: "application/json", Body: []byte(`{"ok":true}`)}, nil
}

func (g *recordingGateway) ImageGenerations(_ context.Context, body []byte) (*gateway.Response, error) {
	g.calls++
	g.imageBody = body
	return &gateway.Response{StatusCode: 200, ContentType: "application/json", Body: []byte(`{"data":[]}`)}, nil
}

func (g *recordingGateway) ListModels(_ context.Context, query url.Values) (*gateway.Response, error) {
	g.calls++
	g.query = query
	return &gateway.Response{StatusCode: 200, ContentType: "application/json", Body: []byte(`{"data":[]}`)}, nil
}

func decodeBody(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestChatCompletionsAppliesDefaults(t *testing.T) {
	gw := &recordingGateway{}
	svc := NewProxyService(gw)

	var req ChatCompletionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"messages":[{"role":"user","content":"hi"}]}`), &req))

	_, err := svc.ChatCompletions(context.Background(), req)
	require.NoError(t, err)

	body := decodeBody(t, gw.chatBody)
	assert.Equal(t, DefaultChatModel, body["model"])
	assert.Equal(t, float64(950), body["max_tokens"])
	assert.Equal(t, 1.0, body["temperature"])
	assert.Equal(t, 1.0, body["top_p"])
	assert.Equal(t, 0.0, body["frequency_penalty"])
	assert.Equal(t, 0.0, body["presence_penalty"])
	assert.Equal(t, false, body["stream"])
	assert.Len(t, body["messages"], 1)
	for _, key := range []string{"tools", "provider", "portkey_provider", "portkey_virtual_key"} {
		assert.NotContains(t, body, key)
	}
}

func TestChatCompletionsKeepsExplicitValues(t *testing.T) {
	gw := &recordingGateway{}
	svc := NewProxyService(gw)

	var req ChatCompletionRequest
	raw := `{
		"model":"anthropic/claude-3-haiku",
		"messages":[],
		"max_tokens":0,
		"temperature":0,
		"stream":true,
		"tools":[],
		"provider":"openrouter",
		"portkey_virtual_key":"vk-1"
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &req))

	_, err := svc.ChatCompletions(context.Background(), req)
	require.NoError(t, err)

	body := decodeBody(t, gw.chatBody)
	assert.Equal(t, "anthropic/claude-3-haiku", body["model"])
	assert.Equal(t, float64(0), body["max_tokens"])
	assert.Equal(t, 0.0, body["temperature"])
	assert.Equal(t, true, body["stream"])
	assert.Equal(t, []interface{}{}, body["tools"])
	assert.Equal(t, "openrouter", body["provider"])
	assert.Equal(t, "vk-1", body["portkey_virtual_key"])
	assert.NotContains(t, body, "portkey_provider")
}

func TestChatCompletionsNullToolsOmitted(t *testing.T) {
	gw := &recordingGateway{}
	svc := NewProxyService(gw)

	var req ChatCompletionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"model":"m","tools":null}`), &req))

	_, err := svc.ChatCompletions(context.Background(), req)
	require.NoError(t, err)

	body := decodeBody(t, gw.chatBody)
	assert.NotContains(t, body, "tools")
	assert.NotContains(t, body, "messages")
}

func TestImageGenerationsRequiresPrompt(t *testing.T) {
	gw := &recordingGateway{}
	svc := NewProxyService(gw)

	_, err := svc.ImageGenerations(context.Background(), ImageGenerationRequest{Model: "x"})
	assert.ErrorIs(t, err, ErrPromptRequired)
	assert.Zero(t, gw.calls)
}

func TestImageGenerationsAppliesDefaults(t *testing.T) {
	gw := &recordingGateway{}
	svc := NewProxyService(gw)

	_, err := svc.ImageGenerations(context.Background(), ImageGenerationRequest{
		Prompt:          "a castle at dusk",
		GoogleProjectID: "proj",
	})
	require.NoError(t, err)

	body := decodeBody(t, gw.imageBody)
	assert.Equal(t, "a castle at dusk", body["prompt"])
	assert.Equal(t, DefaultImageModel, body["model"])
	assert.Equal(t, DefaultImageSize, body["size"])
	assert.Equal(t, float64(1), body["n"])
	assert.Equal(t, DefaultImageQuality, body["quality"])
	assert.Equal(t, DefaultImageStyle, body["style"])
	assert.Equal(t, DefaultImageProvider, body["provider"])
	assert.Equal(t, "proj", body["google_project_id"])
	assert.NotContains(t, body, "google_location")
	assert.NotContains(t, body, "portkey_provider")
}

func TestListModelsQuery(t *testing.T) {
	tests := []struct {
		name  string
		query ModelsQuery
		want  url.Values
	}{
		{
			name:  "defaults",
			query: ModelsQuery{},
			want: url.Values{
				"limit":               {"50"},
				"offset":              {"0"},
				"include_huggingface": {"false"},
				"gateway":             {"openrouter"},
			},
		},
		{
			name: "explicit",
			query: ModelsQuery{
				Provider:           "openai",
				Limit:              "10",
				Offset:             "20",
				IncludeHuggingface: "true",
				Gateway:            "portkey",
			},
			want: url.Values{
				"provider":            {"openai"},
				"limit":               {"10"},
				"offset":              {"20"},
				"include_huggingface": {"true"},
				"gateway":             {"portkey"},
			},
		},
		{
			name:  "huggingface must be exactly true",
			query: ModelsQuery{IncludeHuggingface: "TRUE"},
			want: url.Values{
				"limit":               {"50"},
				"offset":              {"0"},
				"include_huggingface": {"false"},
				"gateway":             {"openrouter"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &recordingGateway{}
			_, err := NewProxyService(gw).ListModels(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, gw.query)
		})
	}
}
