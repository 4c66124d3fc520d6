package form

import (
	"sync"
	"time"
)

// Registry явный реестр сессий: chatID -> Session.
// Сессия создаётся на /start, удаляется при завершении,
// отмене или по простою (см. app.Janitor).
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
	}
}

// GetOrCreate возвращает сессию диалога, создавая при необходимости
func (r *Registry) GetOrCreate(chatID int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[chatID]; ok {
		return s
	}
	s := NewSession(chatID)
	r.sessions[chatID] = s
	return s
}

// Get возвращает сессию, если она существует
func (r *Registry) Get(chatID int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[chatID]
	return s, ok
}

// Remove удаляет сессию диалога
func (r *Registry) Remove(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, chatID)
}

// Len возвращает число активных сессий
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// EvictIdle удаляет сессии без переходов дольше maxIdle.
// Сессии с незавершённой финализацией не трогаем.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for chatID, s := range r.sessions {
		s.mu.Lock()
		idle := s.updatedAt.Before(cutoff) && !s.finalizing
		s.mu.Unlock()

		if idle {
			delete(r.sessions, chatID)
			evicted++
		}
	}
	return evicted
}
