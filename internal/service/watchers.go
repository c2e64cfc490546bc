package service

import (
	"storyforge/internal/model"
	"sync"
)

const watcherBuffer = 16

// watchers 把游戏视图的变化广播给订阅者（例如 WebSocket 连接）。
// 订阅者消费过慢时丢弃最旧的视图，不阻塞游戏状态的更新。
type watchers struct {
	mu   sync.Mutex
	subs map[string]map[chan model.GameView]struct{}
}

func newWatchers() *watchers {
	return &watchers{subs: make(map[string]map[chan model.GameView]struct{})}
}

func (w *watchers) subscribe(gameID string) (<-chan model.GameView, func()) {
	ch := make(chan model.GameView, watcherBuffer)
	w.mu.Lock()
	if w.subs[gameID] == nil {
		w.subs[gameID] = make(map[chan model.GameView]struct{})
	}
	w.subs[gameID][ch] = struct{}{}
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.subs[gameID], ch)
			if len(w.subs[gameID]) == 0 {
				delete(w.subs, gameID)
			}
			close(ch)
		})
	}
}

func (w *watchers) publish(gameID string, view model.GameView) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for ch := range w.subs[gameID] {
		select {
		case ch <- view:
			continue
		default:
		}
		// 缓冲已满：丢弃最旧的视图，保证最新状态一定送达
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- view:
		default:
		}
	}
}
