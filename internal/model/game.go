package model

import (
	"errors"
	"time"
)

// ErrInvalidPhase 表示当前阶段不允许该操作。
var ErrInvalidPhase = errors.New("operation not allowed in current phase")

// Phase 是一局游戏所处的阶段。
type Phase string

const (
	PhaseGenreSelection    Phase = "genre-selection"
	PhaseCharacterCreation Phase = "character-creation"
	PhasePlaying           Phase = "playing"
)

// Game 是服务端保存的一局游戏。
// 阶段只能向前推进：genre-selection → character-creation → playing，
// 唯一的回退是 Restart（playing → genre-selection）。
type Game struct {
	ID         string     `json:"id"`
	Phase      Phase      `json:"phase"`
	Genre      Genre      `json:"genre,omitempty"`
	Character  *Character `json:"character,omitempty"`
	Session    *Session   `json:"session,omitempty"`
	Generation uint64     `json:"generation"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// NewGame 创建一局处于题材选择阶段的新游戏。
func NewGame(id string, now time.Time) *Game {
	return &Game{
		ID:        id,
		Phase:     PhaseGenreSelection,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SelectGenre 选择题材并进入角色创建阶段。
func (g *Game) SelectGenre(genre Genre) error {
	if g.Phase != PhaseGenreSelection {
		return ErrInvalidPhase
	}
	if _, ok := genre.Config(); !ok {
		return errors.New("unknown genre")
	}
	g.Genre = genre
	g.Phase = PhaseCharacterCreation
	return nil
}

// CreateCharacter 保存角色、创建会话并进入游戏阶段。
func (g *Game) CreateCharacter(character Character) error {
	if g.Phase != PhaseCharacterCreation {
		return ErrInvalidPhase
	}
	g.Character = &character
	g.Session = &Session{Genre: g.Genre}
	g.Phase = PhasePlaying
	return nil
}

// Restart 丢弃题材、角色与会话，回到题材选择阶段。
// Generation 递增，使仍在途中的旧请求结果被丢弃。
func (g *Game) Restart() {
	g.Phase = PhaseGenreSelection
	g.Genre = ""
	g.Character = nil
	g.Session = nil
	g.Generation++
}

// GenreSummary 是视图中展示的题材信息。
type GenreSummary struct {
	ID   Genre  `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// GameView 是返回给前端的游戏视图，永远不包含 system 消息。
type GameView struct {
	ID        string        `json:"id"`
	Phase     Phase         `json:"phase"`
	Genre     *GenreSummary `json:"genre,omitempty"`
	Character *Character    `json:"character,omitempty"`
	Messages  []ChatMessage `json:"messages"`
	Pending   bool          `json:"pending"`
	Start     StartState    `json:"start"`
}

// View 生成当前游戏的视图。
func (g *Game) View() GameView {
	v := GameView{
		ID:        g.ID,
		Phase:     g.Phase,
		Character: g.Character,
		Messages:  []ChatMessage{},
	}
	if cfg, ok := g.Genre.Config(); ok {
		v.Genre = &GenreSummary{ID: g.Genre, Name: cfg.Name, Icon: cfg.Icon}
	}
	if g.Session != nil {
		v.Messages = g.Session.Visible()
		v.Pending = g.Session.Pending
		v.Start = g.Session.Start
	}
	return v
}
