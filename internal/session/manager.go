package session

import (
	"fmt"
	"sync"

	"cdpsession/internal/logger"
	"cdpsession/pkg/model"
)

// Manager 全局会话管理器
type Manager struct {
	mu       sync.RWMutex
	sessions map[model.SessionID]*Session
	log      logger.Logger
}

// NewManager 创建会话管理器
func NewManager(l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{
		sessions: make(map[model.SessionID]*Session),
		log:      l,
	}
}

// Create 创建并注册新会话
func (m *Manager) Create(id model.SessionID, cfg model.SessionConfig) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("session %q already exists", id)
	}
	s, err := New(id, cfg)
	if err != nil {
		m.log.Err(err, "创建业务会话失败", "sessionID", string(id))
		return nil, err
	}
	m.sessions[id] = s
	m.log.Info("创建业务会话", "sessionID", string(id),
		"pages", cfg.PageCapacity, "assets", cfg.AssetCapacity,
		"concurrency", cfg.Concurrency, "maxRecords", cfg.MaxRecords, "filters", len(cfg.Filters))
	return s, nil
}

// Get 获取会话
func (m *Manager) Get(id model.SessionID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete 销毁会话并释放其资源
func (m *Manager) Delete(id model.SessionID) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.Close()
	m.log.Info("销毁业务会话", "sessionID", string(id))
	return true
}

// List 返回所有活动会话
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	return list
}

// CloseAll 销毁全部会话
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[model.SessionID]*Session)
	m.mu.Unlock()
	for id, s := range sessions {
		s.Close()
		m.log.Info("销毁业务会话", "sessionID", string(id))
	}
}
