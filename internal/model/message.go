package model

// Role 是对话消息的角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage 代表对话记录中的单条消息。
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// QuickChoice 是可以替代自由输入的预设行动。
type QuickChoice string

const (
	QuickChoiceInvestigate QuickChoice = "investigate"
	QuickChoiceLook        QuickChoice = "look"
	QuickChoiceTalk        QuickChoice = "talk"
)

// QuickChoices 按界面顺序列出全部预设行动。
var QuickChoices = []QuickChoice{QuickChoiceInvestigate, QuickChoiceLook, QuickChoiceTalk}

var quickChoiceTexts = map[QuickChoice]string{
	QuickChoiceInvestigate: "Tell me more about this situation",
	QuickChoiceLook:        "I look around carefully",
	QuickChoiceTalk:        "I talk to someone nearby",
}

// Text 返回预设行动对应的用户消息文本。
func (q QuickChoice) Text() (string, bool) {
	t, ok := quickChoiceTexts[q]
	return t, ok
}
