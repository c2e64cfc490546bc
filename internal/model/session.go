package model

import (
	"fmt"
	"strings"
)

// MaxReplyTokens 是每次请求模型时的 max_tokens 上限。
const MaxReplyTokens = 950

// FallbackReply 在模型调用失败时作为助手消息写入对话记录。
const FallbackReply = "⚠️ An error occurred. Please try again or restart the game."

const openingInstruction = "Begin our %s adventure by setting an engaging opening scene. Then present me with 2-3 numbered choices for what to do next."

// StartState 记录开场回合的进度，保证开场请求只发送一次。
type StartState int

const (
	NotStarted StartState = iota
	Starting
	Started
)

var startStateNames = [...]string{"not_started", "starting", "started"}

func (s StartState) String() string {
	if int(s) < len(startStateNames) {
		return startStateNames[s]
	}
	return fmt.Sprintf("StartState(%d)", int(s))
}

func (s StartState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *StartState) UnmarshalText(b []byte) error {
	for i, name := range startStateNames {
		if name == string(b) {
			*s = StartState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown start state %q", b)
}

// CompletionRequest 是一次发往模型网关的请求快照。
type CompletionRequest struct {
	Messages    []ChatMessage
	Model       string
	Temperature float64
	MaxTokens   int
}

// Session 是一次讲故事会话的全部状态。
// 同一时刻最多只有一个未完成的模型请求（Pending）。
type Session struct {
	Genre      Genre         `json:"genre"`
	Transcript []ChatMessage `json:"transcript"`
	Pending    bool          `json:"pending"`
	Start      StartState    `json:"start"`
}

// OpeningMessages 构造会话最初的 system 消息和角色介绍消息。
func OpeningMessages(genre Genre, character Character) ([]ChatMessage, error) {
	cfg, ok := genre.Config()
	if !ok {
		return nil, fmt.Errorf("unknown genre %q", genre)
	}
	intro := character.Introduction() + " " + fmt.Sprintf(openingInstruction, genre)
	return []ChatMessage{
		{Role: RoleSystem, Content: cfg.SystemPrompt},
		{Role: RoleUser, Content: intro},
	}, nil
}

// Begin 写入开场消息并返回开场请求。会话已开始过时返回 false。
func (s *Session) Begin(character Character) (CompletionRequest, bool, error) {
	if s.Start != NotStarted {
		return CompletionRequest{}, false, nil
	}
	opening, err := OpeningMessages(s.Genre, character)
	if err != nil {
		return CompletionRequest{}, false, err
	}
	s.Transcript = append(s.Transcript[:0], opening...)
	s.Start = Starting
	return s.submit(), true, nil
}

// AppendUserTurn 追加一条用户消息并返回对应请求。
// 内容为空、会话尚未开始或已有请求未完成时不做任何改动并返回 false。
func (s *Session) AppendUserTurn(content string) (CompletionRequest, bool) {
	content = strings.TrimSpace(content)
	if content == "" || s.Pending || s.Start == NotStarted {
		return CompletionRequest{}, false
	}
	s.Transcript = append(s.Transcript, ChatMessage{Role: RoleUser, Content: content})
	return s.submit(), true
}

func (s *Session) submit() CompletionRequest {
	s.Pending = true
	cfg, _ := s.Genre.Config()
	history := make([]ChatMessage, len(s.Transcript))
	copy(history, s.Transcript)
	return CompletionRequest{
		Messages:    history,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   MaxReplyTokens,
	}
}

// Complete 记录请求结果：成功时追加模型回复，失败时追加 FallbackReply。
// 无论结果如何都会清除 Pending。
func (s *Session) Complete(reply string, err error) {
	defer func() { s.Pending = false }()
	if !s.Pending {
		return
	}
	content := reply
	if err != nil {
		content = FallbackReply
	}
	s.Transcript = append(s.Transcript, ChatMessage{Role: RoleAssistant, Content: content})
	if s.Start == Starting {
		s.Start = Started
	}
}

// Visible 返回展示给玩家的消息（不含 system 消息）。
func (s *Session) Visible() []ChatMessage {
	out := make([]ChatMessage, 0, len(s.Transcript))
	for _, m := range s.Transcript {
		if m.Role == RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}
