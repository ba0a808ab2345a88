package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"TradeAssistant/pkg/model"
)

var errDuplicateEmail = errors.New("邮箱已存在")

// MemoryStore 内存存储，未配置数据库时以及测试中使用
type MemoryStore struct {
	mutex        sync.RWMutex
	usersByID    map[string]*model.User
	usersByEmail map[string]*model.User
	trades       []*model.TradeSetup // 按插入顺序
	tradeByID    map[string]*model.TradeSetup
	interactions []model.TradeInteraction
	userTrades   []model.UserTrade
	now          func() time.Time
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		usersByID:    make(map[string]*model.User),
		usersByEmail: make(map[string]*model.User),
		tradeByID:    make(map[string]*model.TradeSetup),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreateUser 获取或创建用户
func (r *MemoryStore) GetOrCreateUser(ctx context.Context, email string) (*model.User, error) {
	return GetOrCreate(ctx,
		func(context.Context) (*model.User, error) {
			return r.findUserByEmail(email)
		},
		func(context.Context) (*model.User, error) {
			return r.createUser(email)
		},
	)
}

func (r *MemoryStore) findUserByEmail(email string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	u, ok := r.usersByEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryStore) createUser(email string) (*model.User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.usersByEmail[email]; exists {
		return nil, errDuplicateEmail
	}
	now := r.now()
	u := &model.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      model.NameFromEmail(email),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.usersByID[u.ID] = u
	r.usersByEmail[email] = u
	cp := *u
	return &cp, nil
}

// GetUserByID 按ID获取用户
func (r *MemoryStore) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	u, ok := r.usersByID[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// SaveTrade 保存交易信号
func (r *MemoryStore) SaveTrade(ctx context.Context, userID string, trade *model.TradeSetup) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if trade.ID == "" {
		trade.ID = uuid.New().String()
	}
	if _, exists := r.tradeByID[trade.ID]; exists {
		return fmt.Errorf("保存交易信号失败: ID %s 已存在", trade.ID)
	}
	trade.UserID = userID
	if trade.Status == "" {
		trade.Status = model.StatusActive
	}
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = r.now()
	}
	trade.UpdatedAt = trade.CreatedAt

	cp := trade.Clone()
	r.trades = append(r.trades, &cp)
	r.tradeByID[cp.ID] = &cp
	return nil
}

// GetTrades 查询用户的交易信号
func (r *MemoryStore) GetTrades(ctx context.Context, userID string, filter model.TradeFilter) ([]model.TradeSetup, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]model.TradeSetup, 0)
	// 倒序遍历，createdAt 相同时后插入的在前
	for i := len(r.trades) - 1; i >= 0; i-- {
		t := r.trades[i]
		if t.UserID != userID || !filter.Matches(t) {
			continue
		}
		result = append(result, t.Clone())
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > model.DefaultPageSize {
		result = result[:model.DefaultPageSize]
	}
	return result, nil
}

// MarkDelivered 标记单条信号已送达
func (r *MemoryStore) MarkDelivered(ctx context.Context, tradeID string) (*model.TradeSetup, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	t, ok := r.tradeByID[tradeID]
	if !ok {
		return nil, ErrNotFound
	}
	t.Delivered = true
	t.UpdatedAt = r.now()
	cp := t.Clone()
	return &cp, nil
}

// MarkAllDelivered 标记用户所有未送达信号
func (r *MemoryStore) MarkAllDelivered(ctx context.Context, userID string) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var n int64
	now := r.now()
	for _, t := range r.trades {
		if t.UserID == userID && !t.Delivered {
			t.Delivered = true
			t.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// ExpireOverdue 过期扫描
func (r *MemoryStore) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var n int64
	for _, t := range r.trades {
		if t.Expired(now) && t.Status != model.StatusExpired {
			t.Status = model.StatusExpired
			t.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// LogInteraction 记录用户交互
func (r *MemoryStore) LogInteraction(ctx context.Context, interaction *model.TradeInteraction) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if interaction.ID == "" {
		interaction.ID = uuid.New().String()
	}
	if interaction.Timestamp.IsZero() {
		interaction.Timestamp = r.now()
	}
	r.interactions = append(r.interactions, *interaction)
	return nil
}

// GetInteractions 最近的交互记录
func (r *MemoryStore) GetInteractions(ctx context.Context, userID string) ([]model.TradeInteraction, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]model.TradeInteraction, 0)
	for i := len(r.interactions) - 1; i >= 0; i-- {
		if r.interactions[i].UserID == userID {
			result = append(result, r.interactions[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	if len(result) > model.InteractionPageSize {
		result = result[:model.InteractionPageSize]
	}
	return result, nil
}

// SaveUserTrade 保存券商成交
func (r *MemoryStore) SaveUserTrade(ctx context.Context, trade *model.UserTrade) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.usersByID[trade.UserID]; !ok {
		return fmt.Errorf("保存成交失败: 用户 %s: %w", trade.UserID, ErrNotFound)
	}
	if trade.ID == "" {
		trade.ID = uuid.New().String()
	}
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = r.now()
	}
	r.userTrades = append(r.userTrades, *trade)
	return nil
}

// GetUserTrades 按成交时间倒序
func (r *MemoryStore) GetUserTrades(ctx context.Context, userID string, limit int) ([]model.UserTrade, error) {
	return r.selectUserTrades(userID, limit, func(model.UserTrade) bool { return true }), nil
}

// GetClosedUserTrades 已平仓成交
func (r *MemoryStore) GetClosedUserTrades(ctx context.Context, userID string) ([]model.UserTrade, error) {
	return r.selectUserTrades(userID, 0, func(t model.UserTrade) bool {
		return t.Status == model.UserTradeClosed
	}), nil
}

func (r *MemoryStore) selectUserTrades(userID string, limit int, keep func(model.UserTrade) bool) []model.UserTrade {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]model.UserTrade, 0)
	for i := len(r.userTrades) - 1; i >= 0; i-- {
		t := r.userTrades[i]
		if t.UserID == userID && keep(t) {
			result = append(result, t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Count 当前保存的交易信号数量
func (r *MemoryStore) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.trades)
}

func (r *MemoryStore) Ping(ctx context.Context) error { return nil }

func (r *MemoryStore) Close() error { return nil }

var _ TradeStore = (*MemoryStore)(nil)
