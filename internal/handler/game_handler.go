package handler

import (
	"errors"
	"net/http"
	"storyforge/internal/model"
	"storyforge/internal/service"
	"storyforge/pkg/log"

	"github.com/gin-gonic/gin"
)

// GameHandler 处理一局游戏的 REST 接口。
type GameHandler struct {
	gameService service.GameService
}

// NewGameHandler 创建一个新的 GameHandler。
func NewGameHandler(gameService service.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

// CreateGameResponse 是新建游戏的响应数据。
type CreateGameResponse struct {
	GameID string         `json:"gameId"`
	Token  string         `json:"token"`
	Game   model.GameView `json:"game"`
}

// SelectGenreRequest 是选择题材的请求体。
type SelectGenreRequest struct {
	Genre string `json:"genre" binding:"required"`
}

// CreateCharacterRequest 是角色创建表单的请求体。
type CreateCharacterRequest struct {
	Name       string   `json:"name" binding:"required"`
	Class      string   `json:"class"`
	Background string   `json:"background"`
	Traits     []string `json:"traits"`
}

// TurnRequest 是提交回合的请求体，content 和 choice 二选一。
type TurnRequest struct {
	Content string `json:"content"`
	Choice  string `json:"choice"`
}

// CreateGame 新建一局游戏并返回访问令牌。
func (h *GameHandler) CreateGame(c *gin.Context) {
	tok, view, err := h.gameService.CreateGame(c.Request.Context())
	if err != nil {
		log.Error("创建游戏失败", err)
		fail(c, http.StatusInternalServerError, "Failed to create game")
		return
	}
	ok(c, CreateGameResponse{GameID: view.ID, Token: tok, Game: view})
}

// GetGame 返回当前游戏视图。
func (h *GameHandler) GetGame(c *gin.Context) {
	view, err := h.gameService.GetGame(c.Request.Context(), c.GetString("gameID"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, view)
}

// SelectGenre 处理题材选择。
func (h *GameHandler) SelectGenre(c *gin.Context) {
	var req SelectGenreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	view, err := h.gameService.SelectGenre(c.Request.Context(), c.GetString("gameID"), req.Genre)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, view)
}

// CreateCharacter 保存角色，并在响应返回前生成开场场景。
func (h *GameHandler) CreateCharacter(c *gin.Context) {
	var req CreateCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	view, err := h.gameService.CreateCharacter(c.Request.Context(), c.GetString("gameID"), service.CharacterInput{
		Name:       req.Name,
		Class:      req.Class,
		Background: req.Background,
		Traits:     req.Traits,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, view)
}

// SubmitTurn 提交自由输入或预设行动。
func (h *GameHandler) SubmitTurn(c *gin.Context) {
	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	gameID := c.GetString("gameID")
	var (
		view model.GameView
		err  error
	)
	switch {
	case req.Choice != "":
		view, err = h.gameService.QuickChoice(c.Request.Context(), gameID, req.Choice)
	case req.Content != "":
		view, err = h.gameService.SubmitTurn(c.Request.Context(), gameID, req.Content)
	default:
		fail(c, http.StatusBadRequest, "content or choice is required")
		return
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, view)
}

// Restart 丢弃当前故事并回到题材选择。
func (h *GameHandler) Restart(c *gin.Context) {
	view, err := h.gameService.Restart(c.Request.Context(), c.GetString("gameID"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, view)
}

// writeServiceError 把业务错误映射为 HTTP 状态码。
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		fail(c, http.StatusNotFound, "Game not found")
	case errors.Is(err, service.ErrInvalidPhase):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnknownGenre),
		errors.Is(err, service.ErrInvalidCharacter),
		errors.Is(err, service.ErrUnknownChoice):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		log.Error("处理游戏请求失败", err)
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}
