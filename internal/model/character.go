package model

import (
	"errors"
	"strings"
)

// ErrCharacterNameRequired 表示角色名为空（去除首尾空白后）。
var ErrCharacterNameRequired = errors.New("character name is required")

// Character 是玩家在角色创建阶段填写的身份信息，创建后不可变。
type Character struct {
	Name       string   `json:"name"`
	Class      string   `json:"class,omitempty"`
	Background string   `json:"background,omitempty"`
	Traits     []string `json:"traits,omitempty"`
}

// NewCharacter 规范化用户输入：所有字段去除首尾空白，空的可选字段视为未填写。
func NewCharacter(name, class, background string, traits []string) (Character, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Character{}, ErrCharacterNameRequired
	}
	var kept []string
	for _, t := range traits {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	return Character{
		Name:       name,
		Class:      strings.TrimSpace(class),
		Background: strings.TrimSpace(background),
		Traits:     kept,
	}, nil
}

// Introduction 生成开场白中的角色介绍句。
func (c Character) Introduction() string {
	var b strings.Builder
	b.WriteString("My character is ")
	b.WriteString(c.Name)
	if c.Class != "" {
		b.WriteString(", a ")
		b.WriteString(c.Class)
	}
	if c.Background != "" {
		b.WriteString(" with a background as a ")
		b.WriteString(c.Background)
	}
	b.WriteString(".")
	return b.String()
}
