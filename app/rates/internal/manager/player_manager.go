package manager

import (
	"sync"

	"github.com/lk2023060901/xdooria-rates/app/rates/internal/model"
	"github.com/lk2023060901/xdooria-rates/pkg/logger"
)

// PlayerManager 在线玩家管理器，保存玩家运行时状态
type PlayerManager struct {
	logger logger.Logger

	mu      sync.RWMutex
	players map[int64]*model.Player // playerID -> Player
}

// NewPlayerManager 创建在线玩家管理器
func NewPlayerManager(l logger.Logger) *PlayerManager {
	return &PlayerManager{
		logger:  l.Named("manager.player"),
		players: make(map[int64]*model.Player),
	}
}

// Add 玩家上线，已存在时覆盖（重复登录以最新的数据为准）
func (m *PlayerManager) Add(p model.Player) {
	m.mu.Lock()
	_, replaced := m.players[p.ID]
	m.players[p.ID] = &p
	m.mu.Unlock()

	if replaced {
		m.logger.Warn("player registered twice, replaced", "player_id", p.ID)
	}
}

// Get 获取玩家状态的副本
func (m *PlayerManager) Get(playerID int64) (model.Player, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.players[playerID]
	if !ok {
		return model.Player{}, false
	}
	return *p, true
}

// Remove 玩家下线，返回玩家是否在线
func (m *PlayerManager) Remove(playerID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.players[playerID]; !ok {
		return false
	}
	delete(m.players, playerID)
	return true
}

// Update 在锁内修改玩家状态，玩家不在线时返回 false
func (m *PlayerManager) Update(playerID int64, fn func(p *model.Player)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[playerID]
	if !ok {
		return false
	}
	fn(p)
	return true
}

// Count 在线玩家数
func (m *PlayerManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}
