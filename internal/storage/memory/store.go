// Package memory 提供基于内存的存储实现
//
// 适用于开发环境和测试，所有数据存储在进程内存中，重启后丢失。
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"neura/backend/internal/domain"
	"neura/backend/internal/storage"
)

// Store 内存存储实现
type Store struct {
	mu sync.RWMutex

	users      map[string]*domain.User // ID -> User
	emailIndex map[string]string       // email -> userID

	apiKeys   map[string]*domain.APIKey // ID -> APIKey
	hashIndex map[string]string         // keyHash -> keyID

	events       []*domain.UsageEvent
	monthlyUsage map[string]*domain.MonthlyUsage // userID+"|"+month -> bucket

	subscriptions map[string]*domain.Subscription // ID -> Subscription
	activeSubs    map[string]string               // userID -> 当前 active 订阅ID
}

// NewStore 创建内存存储
func NewStore() *Store {
	return &Store{
		users:         make(map[string]*domain.User),
		emailIndex:    make(map[string]string),
		apiKeys:       make(map[string]*domain.APIKey),
		hashIndex:     make(map[string]string),
		monthlyUsage:  make(map[string]*domain.MonthlyUsage),
		subscriptions: make(map[string]*domain.Subscription),
		activeSubs:    make(map[string]string),
	}
}

// ========== UserRepository ==========

// CreateUser 创建用户
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := s.emailIndex[email]; exists {
		return storage.ErrAlreadyExists
	}

	u := *user
	s.users[u.ID] = &u
	s.emailIndex[email] = u.ID
	return nil
}

// GetUserByID 按ID查询用户
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *u
	return &out, nil
}

// GetUserByEmail 按邮箱查询用户
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emailIndex[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *s.users[id]
	return &out, nil
}

// UpdateUser 更新用户记录
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return storage.ErrNotFound
	}

	// 邮箱变更时维护索引
	oldEmail := strings.ToLower(existing.Email)
	newEmail := strings.ToLower(user.Email)
	if oldEmail != newEmail {
		if _, taken := s.emailIndex[newEmail]; taken {
			return storage.ErrAlreadyExists
		}
		delete(s.emailIndex, oldEmail)
		s.emailIndex[newEmail] = user.ID
	}

	u := *user
	u.UpdatedAt = time.Now()
	s.users[u.ID] = &u
	return nil
}

// UpdateUserPlan 更新用户当前计划
func (s *Store) UpdateUserPlan(ctx context.Context, userID, planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	u.Plan = planID
	u.UpdatedAt = time.Now()
	return nil
}

// UpdateLastLogin 记录最近登录时间
func (s *Store) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	t := at
	u.LastLoginAt = &t
	u.UpdatedAt = time.Now()
	return nil
}

// DeactivateUser 停用用户
func (s *Store) DeactivateUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	u.IsActive = false
	u.UpdatedAt = time.Now()
	return nil
}

// ========== APIKeyRepository ==========

// SaveAPIKey 保存密钥记录
func (s *Store) SaveAPIKey(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.hashIndex[key.KeyHash]; exists {
		return storage.ErrAlreadyExists
	}

	k := *key
	s.apiKeys[k.ID] = &k
	s.hashIndex[k.KeyHash] = k.ID
	return nil
}

// GetAPIKey 按ID查询密钥
func (s *Store) GetAPIKey(ctx context.Context, id string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.apiKeys[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *k
	return &out, nil
}

// GetAPIKeyByHash 按摘要查询密钥
func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.hashIndex[keyHash]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *s.apiKeys[id]
	return &out, nil
}

// ListAPIKeysByUserID 列出用户的全部密钥，按创建时间倒序
func (s *Store) ListAPIKeysByUserID(ctx context.Context, userID string) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []*domain.APIKey
	for _, k := range s.apiKeys {
		if k.UserID == userID {
			out := *k
			keys = append(keys, &out)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
	return keys, nil
}

// DeactivateAPIKey 吊销密钥
func (s *Store) DeactivateAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.apiKeys[id]
	if !ok {
		return storage.ErrNotFound
	}
	k.IsActive = false
	return nil
}

// ========== UsageRepository ==========

// RecordUsage 写入用量事件并在同一临界区内更新密钥计数
func (s *Store) RecordUsage(ctx context.Context, event *domain.UsageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.apiKeys[event.APIKeyID]
	if !ok {
		return storage.ErrNotFound
	}

	e := *event
	s.events = append(s.events, &e)

	k.UsageCount++
	t := e.CreatedAt
	k.LastUsedAt = &t
	return nil
}

// IncrementMonthlyUsage 对月度聚合桶加一，桶不存在时创建
func (s *Store) IncrementMonthlyUsage(ctx context.Context, userID, month string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userID + "|" + month
	bucket, ok := s.monthlyUsage[key]
	if !ok {
		bucket = &domain.MonthlyUsage{
			ID:        key,
			UserID:    userID,
			Month:     month,
			CreatedAt: time.Now(),
		}
		s.monthlyUsage[key] = bucket
	}
	bucket.RequestsCount++
	return nil
}

// GetMonthlyUsage 查询月度聚合计数，无记录时返回零值桶
func (s *Store) GetMonthlyUsage(ctx context.Context, userID, month string) (*domain.MonthlyUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, ok := s.monthlyUsage[userID+"|"+month]
	if !ok {
		return &domain.MonthlyUsage{UserID: userID, Month: month}, nil
	}
	out := *bucket
	return &out, nil
}

// GetUserUsageSummary 统计用户全量用量
func (s *Store) GetUserUsageSummary(ctx context.Context, userID string) (*domain.UsageSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	var latencySum time.Duration
	endpoints := make(map[string]struct{})

	for _, e := range s.events {
		if e.UserID != userID {
			continue
		}
		total++
		latencySum += e.Latency
		endpoints[e.Endpoint] = struct{}{}
	}

	summary := &domain.UsageSummary{
		TotalRequests:   total,
		UniqueEndpoints: len(endpoints),
	}
	if total > 0 {
		summary.AvgLatencyMs = float64(latencySum.Milliseconds()) / float64(total)
	}
	return summary, nil
}

// ListRecentEvents 按时间倒序返回用户最近的用量事件
func (s *Store) ListRecentEvents(ctx context.Context, userID string, limit int) ([]*domain.UsageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []*domain.UsageEvent
	for _, e := range s.events {
		if e.UserID == userID {
			out := *e
			events = append(events, &out)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// DeleteEventsBefore 删除给定时间之前的用量事件
func (s *Store) DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var deleted int64
	for _, e := range s.events {
		if e.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return deleted, nil
}

// ========== SubscriptionRepository ==========

// ActivateSubscription 取代旧 active 订阅并写入新订阅，同时更新用户计划
func (s *Store) ActivateSubscription(ctx context.Context, sub *domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[sub.UserID]
	if !ok {
		return storage.ErrNotFound
	}

	// 旧的 active 订阅标记为 cancelled
	if oldID, has := s.activeSubs[sub.UserID]; has {
		s.subscriptions[oldID].Status = domain.SubscriptionCancelled
	}

	newSub := *sub
	newSub.Status = domain.SubscriptionActive
	s.subscriptions[newSub.ID] = &newSub
	s.activeSubs[newSub.UserID] = newSub.ID

	u.Plan = newSub.PlanID
	u.UpdatedAt = time.Now()
	return nil
}

// GetActiveSubscription 查询用户当前 active 订阅
func (s *Store) GetActiveSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.activeSubs[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *s.subscriptions[id]
	return &out, nil
}

// CancelActiveSubscription 取消 active 订阅并将用户计划重置为 free
func (s *Store) CancelActiveSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.activeSubs[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	sub := s.subscriptions[id]
	sub.Status = domain.SubscriptionCancelled
	delete(s.activeSubs, userID)

	if u, has := s.users[userID]; has {
		u.Plan = domain.PlanFree
		u.UpdatedAt = time.Now()
	}

	out := *sub
	return &out, nil
}

// ========== 生命周期 ==========

// Close 关闭存储（内存实现无需清理）
func (s *Store) Close() error {
	return nil
}

// Health 健康检查
func (s *Store) Health(ctx context.Context) error {
	return nil
}
