package service

import (
	"sync"
	"time"
)

// AlertThrottle 告警节流器：同一 key 在冷却窗口内只放行一次。
// 时钟可注入，测试中可确定性地推进时间。
type AlertThrottle struct {
	mu       sync.Mutex
	cooldown time.Duration
	now      func() time.Time
	last     map[string]time.Time
}

// NewAlertThrottle 创建告警节流器
func NewAlertThrottle(cooldown time.Duration) *AlertThrottle {
	if cooldown <= 0 {
		cooldown = 10 * time.Minute
	}
	return &AlertThrottle{
		cooldown: cooldown,
		now:      time.Now,
		last:     make(map[string]time.Time),
	}
}

// SetClock 注入时钟（测试用）
func (t *AlertThrottle) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Allow 判断该 key 当前是否放行；放行时占用冷却窗口
func (t *AlertThrottle) Allow(key string) bool {
	if t == nil || key == "" {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	current := t.now()
	if fired, ok := t.last[key]; ok && current.Sub(fired) < t.cooldown {
		return false
	}
	t.last[key] = current
	return true
}

// Reset 清除某个 key 的冷却状态
func (t *AlertThrottle) Reset(key string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	delete(t.last, key)
	t.mu.Unlock()
}
