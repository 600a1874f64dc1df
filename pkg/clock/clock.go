// Package clock 提供可注入的时间源
//
// 设计说明：
// 借阅生命周期的每个判定（到期、逾期、罚款天数）都依赖"今天是哪天"。
// 直接调用time.Now()会让测试无法模拟时间流逝，因此所有生命周期操作
// 都从Clock接口取时间，测试中替换为ManualClock即可让时间前进任意天数。
package clock

import (
	"sync"
	"time"
)

// Clock 时间源接口
type Clock interface {
	// Now 当前时刻
	Now() time.Time

	// Today 当前日期（时分秒截断为0，本地时区）
	Today() time.Time
}

// Truncate 截断到日期（统一的"整天"定义，罚款天数计算依赖它）
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// =========================================
// 真实时钟
// =========================================

// Real 真实时钟（生产环境使用）
type Real struct{}

// NewReal 创建真实时钟
func NewReal() *Real {
	return &Real{}
}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) Today() time.Time {
	return Truncate(time.Now())
}

// =========================================
// 手动时钟（测试用）
// =========================================

// Manual 手动时钟，测试中通过Set/Advance控制时间
type Manual struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManual 创建手动时钟
func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

func (m *Manual) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

func (m *Manual) Today() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Truncate(m.now)
}

// Set 设置当前时刻
func (m *Manual) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Advance 时间前进d
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// AdvanceDays 时间前进n天
func (m *Manual) AdvanceDays(n int) {
	m.Advance(time.Duration(n) * 24 * time.Hour)
}
