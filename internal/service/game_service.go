// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"storyforge/internal/model"
	"storyforge/internal/repository"
	"storyforge/pkg/llm"
	"storyforge/pkg/log"
	"storyforge/pkg/token"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrGameNotFound 表示游戏不存在或已过期。
	ErrGameNotFound = repository.ErrGameNotFound
	// ErrInvalidPhase 表示当前阶段不允许该操作。
	ErrInvalidPhase = model.ErrInvalidPhase
	// ErrUnknownGenre 表示题材不在目录中。
	ErrUnknownGenre = errors.New("unknown genre")
	// ErrInvalidCharacter 表示角色信息不合法。
	ErrInvalidCharacter = errors.New("invalid character")
	// ErrUnknownChoice 表示预设行动不存在。
	ErrUnknownChoice = errors.New("unknown quick choice")

	errNoChange     = errors.New("no change")
	errStaleReply   = errors.New("stale reply")
	errRecordFailed = errors.New("failed to record reply")
)

// CharacterInput 是角色创建表单提交的原始数据。
type CharacterInput struct {
	Name       string
	Class      string
	Background string
	Traits     []string
}

// GameService 定义了一局游戏从选题材到讲故事的全部操作。
// 每局游戏同一时刻最多只有一个模型请求；请求未完成时提交的新回合会被静默忽略。
type GameService interface {
	CreateGame(ctx context.Context) (string, model.GameView, error)
	GetGame(ctx context.Context, gameID string) (model.GameView, error)
	SelectGenre(ctx context.Context, gameID, genre string) (model.GameView, error)
	CreateCharacter(ctx context.Context, gameID string, input CharacterInput) (model.GameView, error)
	SubmitTurn(ctx context.Context, gameID, content string) (model.GameView, error)
	QuickChoice(ctx context.Context, gameID, choice string) (model.GameView, error)
	Restart(ctx context.Context, gameID string) (model.GameView, error)
	// Watch 订阅一局游戏的视图变化，调用返回的 cancel 取消订阅。
	Watch(gameID string) (<-chan model.GameView, func())
}

type gameService struct {
	repo       repository.GameRepository
	llmClient  llm.Client
	jwtManager *token.JWTManager
	locks      *keyedMutex
	watchers   *watchers
	now        func() time.Time
	newID      func() string
}

// NewGameService 创建一个新的 GameService 实例。
func NewGameService(repo repository.GameRepository, llmClient llm.Client, jwtManager *token.JWTManager) GameService {
	return &gameService{
		repo:       repo,
		llmClient:  llmClient,
		jwtManager: jwtManager,
		locks:      newKeyedMutex(),
		watchers:   newWatchers(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// CreateGame 创建一局新游戏并签发对应的令牌。
func (s *gameService) CreateGame(ctx context.Context) (string, model.GameView, error) {
	game := model.NewGame(s.newID(), s.now())
	if err := s.repo.Save(ctx, game); err != nil {
		return "", model.GameView{}, fmt.Errorf("failed to save game: %w", err)
	}
	tok, err := s.jwtManager.GenerateToken(game.ID)
	if err != nil {
		return "", model.GameView{}, fmt.Errorf("failed to sign game token: %w", err)
	}
	log.Infow("game created", "gameId", game.ID)
	return tok, game.View(), nil
}

func (s *gameService) GetGame(ctx context.Context, gameID string) (model.GameView, error) {
	game, err := s.repo.Get(ctx, gameID)
	if err != nil {
		return model.GameView{}, err
	}
	return game.View(), nil
}

func (s *gameService) SelectGenre(ctx context.Context, gameID, genre string) (model.GameView, error) {
	g, err := model.ParseGenre(genre)
	if err != nil {
		return model.GameView{}, fmt.Errorf("%w: %q", ErrUnknownGenre, genre)
	}
	game, err := s.update(ctx, gameID, func(game *model.Game) error {
		return game.SelectGenre(g)
	})
	if err != nil {
		return model.GameView{}, err
	}
	return game.View(), nil
}

// CreateCharacter 保存角色并立即生成开场场景，无需玩家额外操作。
func (s *gameService) CreateCharacter(ctx context.Context, gameID string, input CharacterInput) (model.GameView, error) {
	character, err := model.NewCharacter(input.Name, input.Class, input.Background, input.Traits)
	if err != nil {
		return model.GameView{}, fmt.Errorf("%w: %v", ErrInvalidCharacter, err)
	}

	var req model.CompletionRequest
	game, err := s.update(ctx, gameID, func(game *model.Game) error {
		if err := game.CreateCharacter(character); err != nil {
			return err
		}
		r, ok, err := game.Session.Begin(character)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidPhase
		}
		req = r
		return nil
	})
	if err != nil {
		return model.GameView{}, err
	}
	log.Infow("character created, starting story", "gameId", gameID, "genre", game.Genre, "character", character.Name)
	return s.complete(ctx, gameID, game.Generation, req)
}

// SubmitTurn 追加玩家的自由输入并请求下一段故事。
// 内容为空或已有请求未完成时不做任何改动，直接返回当前视图。
func (s *gameService) SubmitTurn(ctx context.Context, gameID, content string) (model.GameView, error) {
	var req model.CompletionRequest
	game, err := s.update(ctx, gameID, func(game *model.Game) error {
		if game.Phase != model.PhasePlaying || game.Session == nil {
			return ErrInvalidPhase
		}
		r, ok := game.Session.AppendUserTurn(content)
		if !ok {
			return errNoChange
		}
		req = r
		return nil
	})
	if errors.Is(err, errNoChange) {
		log.Debugf("turn ignored for game %s: empty input or request pending", gameID)
		return s.GetGame(ctx, gameID)
	}
	if err != nil {
		return model.GameView{}, err
	}
	return s.complete(ctx, gameID, game.Generation, req)
}

// QuickChoice 以预设行动作为玩家输入。
func (s *gameService) QuickChoice(ctx context.Context, gameID, choice string) (model.GameView, error) {
	text, ok := model.QuickChoice(choice).Text()
	if !ok {
		return model.GameView{}, fmt.Errorf("%w: %q", ErrUnknownChoice, choice)
	}
	return s.SubmitTurn(ctx, gameID, text)
}

// Restart 丢弃当前会话，回到题材选择阶段。仍在途中的请求结果将被丢弃。
func (s *gameService) Restart(ctx context.Context, gameID string) (model.GameView, error) {
	game, err := s.update(ctx, gameID, func(game *model.Game) error {
		game.Restart()
		return nil
	})
	if err != nil {
		return model.GameView{}, err
	}
	log.Infow("game restarted", "gameId", gameID, "generation", game.Generation)
	return game.View(), nil
}

func (s *gameService) Watch(gameID string) (<-chan model.GameView, func()) {
	return s.watchers.subscribe(gameID)
}

// complete 在锁外调用模型，然后把结果写回会话。
// 模型调用失败不会返回错误，而是以 FallbackReply 的形式出现在对话记录中。
// 请求不随客户端断开而取消。
func (s *gameService) complete(ctx context.Context, gameID string, generation uint64, req model.CompletionRequest) (model.GameView, error) {
	ctx = context.WithoutCancel(ctx)

	reply, callErr := s.llmClient.Complete(ctx, toLLMRequest(req))
	if callErr != nil {
		log.Warnw("storyteller request failed, appending fallback", "gameId", gameID, "model", req.Model, "error", callErr)
	}

	game, err := s.record(ctx, gameID, generation, reply, callErr)
	if err != nil && !errors.Is(err, errStaleReply) {
		// 写入失败时以 FallbackReply 再记录一次，保证 Pending 被清除
		log.Errorw("failed to record storyteller reply, retrying with fallback", "gameId", gameID, "error", err)
		game, err = s.record(ctx, gameID, generation, "", errRecordFailed)
	}
	if errors.Is(err, errStaleReply) {
		log.Infow("dropping reply for restarted game", "gameId", gameID)
		return s.GetGame(ctx, gameID)
	}
	if err != nil {
		log.Error("failed to record fallback reply", err)
		return model.GameView{}, err
	}
	return game.View(), nil
}

func (s *gameService) record(ctx context.Context, gameID string, generation uint64, reply string, callErr error) (*model.Game, error) {
	return s.update(ctx, gameID, func(game *model.Game) error {
		if game.Generation != generation || game.Session == nil {
			return errStaleReply
		}
		game.Session.Complete(reply, callErr)
		return nil
	})
}

// update 在单局游戏的锁内读取、修改并保存游戏，成功后通知订阅者。
func (s *gameService) update(ctx context.Context, gameID string, fn func(*model.Game) error) (*model.Game, error) {
	unlock := s.locks.lock(gameID)
	defer unlock()

	game, err := s.repo.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := fn(game); err != nil {
		return nil, err
	}
	game.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}
	s.watchers.publish(gameID, game.View())
	return game, nil
}

func toLLMRequest(req model.CompletionRequest) llm.Request {
	msgs := make([]llm.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return llm.Request{
		Messages:    msgs,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}
