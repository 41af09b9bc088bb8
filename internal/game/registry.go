package game

import (
	"sync"
	"time"
)

// Registry - потокобезопасная таблица живых сессий по id чата.
// Единственный глобальный инвариант ядра: не больше одной живой игры на чат.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	limits   Limits
}

func NewRegistry(limits Limits) *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
		limits:   limits,
	}
}

// Get возвращает живую сессию чата, если она есть.
func (r *Registry) Get(chatID int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[chatID]
	return s, ok
}

// Create заводит новую сессию. Если в чате уже идет игра - ErrAlreadyActive.
// Завершенная, но еще не убранная сессия не мешает новой.
func (r *Registry) Create(chatID int64, creator Player) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[chatID]; ok && existing.State() != StateEnded {
		return nil, ErrAlreadyActive
	}

	s := NewSession(chatID, creator, r.limits)
	r.sessions[chatID] = s
	return s, nil
}

// Remove убирает сессию из таблицы, только если там лежит именно она.
// Между завершением игры и уборкой другой игрок мог успеть создать в том же
// чате новую - слепое удаление по id снесло бы живую сессию.
func (r *Registry) Remove(chatID int64, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[chatID] == s {
		delete(r.sessions, chatID)
	}
}

// Len возвращает число живых сессий.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ExpiredGame - сессия, завершенная по простою.
type ExpiredGame struct {
	ChatID  int64
	Summary EndSummary
}

// Sweep завершает и убирает сессии, простоявшие без действий дольше ttl.
// Завершение идет через замок самой сессии, поэтому не гонится с ходами
// игроков; замок таблицы при этом не удерживается.
func (r *Registry) Sweep(ttl time.Duration) []ExpiredGame {
	r.mu.RLock()
	candidates := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		candidates = append(candidates, s)
	}
	r.mu.RUnlock()

	now := time.Now()
	var expired []ExpiredGame
	for _, s := range candidates {
		if summary, ok := s.ExpireIfIdle(ttl, now); ok {
			r.Remove(s.ChatID(), s)
			expired = append(expired, ExpiredGame{ChatID: s.ChatID(), Summary: summary})
		}
	}
	return expired
}
