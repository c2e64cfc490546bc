// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"storyforge/internal/model"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrGameNotFound 表示游戏不存在或已过期。
var ErrGameNotFound = errors.New("game not found")

// GameRepository 定义了游戏状态的存取接口。
type GameRepository interface {
	Save(ctx context.Context, game *model.Game) error
	Get(ctx context.Context, id string) (*model.Game, error)
	Delete(ctx context.Context, id string) error
}

type redisGameRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewRedisGameRepository 创建一个基于 Redis 的 GameRepository，每次保存都会刷新过期时间。
func NewRedisGameRepository(redisClient *redis.Client, ttl time.Duration) GameRepository {
	return &redisGameRepository{redisClient: redisClient, ttl: ttl}
}

func gameKey(id string) string {
	return fmt.Sprintf("game:%s", id)
}

// Save 将游戏序列化为 JSON 写入 Redis。
func (r *redisGameRepository) Save(ctx context.Context, game *model.Game) error {
	jsonData, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %w", err)
	}
	if err := r.redisClient.Set(ctx, gameKey(game.ID), jsonData, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set game: %w", err)
	}
	return nil
}

// Get 从 Redis 读取游戏。
func (r *redisGameRepository) Get(ctx context.Context, id string) (*model.Game, error) {
	jsonData, err := r.redisClient.Get(ctx, gameKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	var game model.Game
	if err := json.Unmarshal(jsonData, &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}
	return &game, nil
}

// Delete 删除游戏；不存在时不报错。
func (r *redisGameRepository) Delete(ctx context.Context, id string) error {
	if err := r.redisClient.Del(ctx, gameKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	return nil
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

type memoryGameRepository struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	games map[string]memoryEntry
}

// NewMemoryGameRepository 创建一个进程内的 GameRepository，适用于单实例部署。
// 存储的是 JSON 副本，调用方拿到的对象之间互不共享。
func NewMemoryGameRepository(ttl time.Duration) GameRepository {
	return &memoryGameRepository{
		ttl:   ttl,
		now:   time.Now,
		games: make(map[string]memoryEntry),
	}
}

func (r *memoryGameRepository) Save(_ context.Context, game *model.Game) error {
	jsonData, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := memoryEntry{data: jsonData}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.games[game.ID] = entry
	r.evictExpiredLocked()
	return nil
}

func (r *memoryGameRepository) Get(_ context.Context, id string) (*model.Game, error) {
	r.mu.Lock()
	entry, ok := r.games[id]
	if ok && !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		delete(r.games, id)
		ok = false
	}
	r.mu.Unlock()
	if !ok {
		return nil, ErrGameNotFound
	}
	var game model.Game
	if err := json.Unmarshal(entry.data, &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}
	return &game, nil
}

func (r *memoryGameRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, id)
	return nil
}

func (r *memoryGameRepository) evictExpiredLocked() {
	now := r.now()
	for id, entry := range r.games {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(r.games, id)
		}
	}
}
