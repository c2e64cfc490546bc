package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"storyforge/internal/model"
	"storyforge/internal/service"
	"storyforge/pkg/log"
	"storyforge/pkg/token"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// 客户端命令类型
const (
	commandSay     = "say"
	commandChoice  = "choice"
	commandRestart = "restart"
	commandState   = "state"
)

type playCommand struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Choice  string `json:"choice"`
}

type playEvent struct {
	Type    string          `json:"type"`
	Data    *model.GameView `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// PlayHandler 负责处理游戏的 WebSocket 连接。
// 每次游戏视图变化（包括请求进入 pending 和请求完成）都会推送给客户端。
type PlayHandler struct {
	gameService service.GameService
	jwtManager  *token.JWTManager
	upgrader    websocket.Upgrader
}

// NewPlayHandler 创建一个新的 PlayHandler。
// allowedOrigins 与 cors.allowed_origins 相同，握手请求的 Origin 不在其中时返回 403。
func NewPlayHandler(gameService service.GameService, jwtManager *token.JWTManager, allowedOrigins []string) *PlayHandler {
	return &PlayHandler{
		gameService: gameService,
		jwtManager:  jwtManager,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// originChecker 只放行白名单中的来源。没有 Origin 头的请求来自非浏览器客户端，直接放行。
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range allowedOrigins {
			if allowed == "*" || strings.EqualFold(allowed, origin) {
				return true
			}
		}
		log.Warnw("rejected WebSocket origin", "origin", origin)
		return false
	}
}

// Handle 处理一个传入的 WebSocket 连接。
func (h *PlayHandler) Handle(c *gin.Context) {
	claims, err := h.jwtManager.VerifyToken(c.Param("token"))
	if err != nil {
		fail(c, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	gameID := claims.GameID

	// 命令在客户端断开后仍需执行完毕
	ctx := context.WithoutCancel(c.Request.Context())
	current, err := h.gameService.GetGame(ctx, gameID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infow("play channel connected", "gameId", gameID)

	s := &playSession{conn: conn}
	updates, cancel := h.gameService.Watch(gameID)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for view := range updates {
			s.sendState(view)
		}
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	s.sendState(current)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			break
		}

		var cmd playCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			s.sendError("invalid command")
			continue
		}
		h.dispatch(ctx, s, gameID, cmd)
	}
	log.Infow("play channel closed", "gameId", gameID)
}

// dispatch 执行一条命令。say 和 choice 会等待模型返回，因此在独立的 goroutine 中运行，
// 结果通过订阅推送给客户端。
func (h *PlayHandler) dispatch(ctx context.Context, s *playSession, gameID string, cmd playCommand) {
	switch cmd.Type {
	case commandSay:
		go func() {
			if _, err := h.gameService.SubmitTurn(ctx, gameID, cmd.Content); err != nil {
				s.sendError(commandErrorMessage(err))
			}
		}()
	case commandChoice:
		go func() {
			if _, err := h.gameService.QuickChoice(ctx, gameID, cmd.Choice); err != nil {
				s.sendError(commandErrorMessage(err))
			}
		}()
	case commandRestart:
		if _, err := h.gameService.Restart(ctx, gameID); err != nil {
			s.sendError(commandErrorMessage(err))
		}
	case commandState:
		view, err := h.gameService.GetGame(ctx, gameID)
		if err != nil {
			s.sendError(commandErrorMessage(err))
			return
		}
		s.sendState(view)
	default:
		s.sendError("unknown command type: " + cmd.Type)
	}
}

func commandErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		return "Game not found"
	case errors.Is(err, service.ErrInvalidPhase),
		errors.Is(err, service.ErrUnknownChoice):
		return err.Error()
	default:
		log.Error("处理 WebSocket 命令失败", err)
		return "Internal server error"
	}
}

// playSession 串行化对同一连接的写操作。
type playSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *playSession) sendState(view model.GameView) {
	s.write(playEvent{Type: "state", Data: &view})
}

func (s *playSession) sendError(message string) {
	s.write(playEvent{Type: "error", Message: message})
}

func (s *playSession) write(event playEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(event); err != nil {
		log.Debugf("写入 WebSocket 消息失败: %v", err)
	}
}
