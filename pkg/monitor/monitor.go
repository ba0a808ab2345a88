package monitor

import (
	"context"
	"sort"
	"sync"
	"time"
)

// 组件状态
const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus 健康状态
type HealthStatus struct {
	Component   string    `json:"component"`
	Status      string    `json:"status"`
	LastChecked time.Time `json:"last_checked"`
	Message     string    `json:"message,omitempty"`
}

// CheckFunc 组件检查函数，返回 nil 表示健康
type CheckFunc func(ctx context.Context) error

// Monitor 组件健康状态注册表
type Monitor struct {
	components map[string]*HealthStatus
	checks     map[string]CheckFunc
	mutex      sync.RWMutex
	alertFunc  func(component, status, message string)
	timeout    time.Duration
}

// NewMonitor 创建监控。alertFunc 在组件状态变为非健康时调用，可为 nil
func NewMonitor(alertFunc func(component, status, message string)) *Monitor {
	return &Monitor{
		components: make(map[string]*HealthStatus),
		checks:     make(map[string]CheckFunc),
		alertFunc:  alertFunc,
		timeout:    5 * time.Second,
	}
}

// RegisterComponent 注册组件及其检查函数
func (m *Monitor) RegisterComponent(component string, check CheckFunc) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.components[component] = &HealthStatus{
		Component:   component,
		Status:      StatusUnknown,
		LastChecked: time.Now(),
	}
	if check != nil {
		m.checks[component] = check
	}
}

// UpdateStatus 更新组件状态
func (m *Monitor) UpdateStatus(component, status, message string) {
	m.mutex.Lock()

	if _, exists := m.components[component]; !exists {
		m.components[component] = &HealthStatus{
			Component: component,
		}
	}

	s := m.components[component]
	oldStatus := s.Status
	s.Status = status
	s.LastChecked = time.Now()
	s.Message = message
	m.mutex.Unlock()

	// 状态变为不健康时触发告警
	if oldStatus != status && status != StatusHealthy && m.alertFunc != nil {
		m.alertFunc(component, status, message)
	}
}

// GetStatus 获取组件状态的副本
func (m *Monitor) GetStatus(component string) *HealthStatus {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if status, exists := m.components[component]; exists {
		cp := *status
		return &cp
	}

	return nil
}

// GetAllStatus 获取所有组件状态，按组件名排序
func (m *Monitor) GetAllStatus() []HealthStatus {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	statuses := make([]HealthStatus, 0, len(m.components))
	for _, status := range m.components {
		statuses = append(statuses, *status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Component < statuses[j].Component
	})

	return statuses
}

// IsHealthy 所有组件都健康时返回 true。未检查过的组件视为不健康
func (m *Monitor) IsHealthy() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, s := range m.components {
		if s.Status != StatusHealthy {
			return false
		}
	}
	return true
}

// CheckAll 执行一轮所有组件的检查
func (m *Monitor) CheckAll(ctx context.Context) {
	m.mutex.RLock()
	checks := make(map[string]CheckFunc, len(m.checks))
	for name, fn := range m.checks {
		checks[name] = fn
	}
	m.mutex.RUnlock()

	for name, check := range checks {
		cctx, cancel := context.WithTimeout(ctx, m.timeout)
		err := check(cctx)
		cancel()

		if err != nil {
			m.UpdateStatus(name, StatusUnhealthy, err.Error())
			continue
		}
		m.UpdateStatus(name, StatusHealthy, "")
	}
}

// StartChecking 立即检查一次，之后按周期检查，直到 ctx 取消
func (m *Monitor) StartChecking(ctx context.Context, interval time.Duration) {
	m.CheckAll(ctx)

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CheckAll(ctx)
			}
		}
	}()
}
