package loan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// TestPolicy_DueDate 到期日 = 借出日 + 借期(整天)
func TestPolicy_DueDate(t *testing.T) {
	p := DefaultPolicy()

	// 借出时刻的时分秒不影响到期日
	loanedAt := time.Date(2025, 1, 1, 15, 30, 45, 0, time.Local)
	assert.Equal(t, date(2025, 1, 15), p.DueDate(loanedAt), "14天借期")
}

// TestPolicy_DaysLate 逾期天数按整天差计算
func TestPolicy_DaysLate(t *testing.T) {
	p := DefaultPolicy()
	due := date(2025, 1, 10)

	t.Run("到期日当天不算逾期", func(t *testing.T) {
		assert.Equal(t, 0, p.DaysLate(due, date(2025, 1, 10)))
		assert.Equal(t, 0, p.DaysLate(due, time.Date(2025, 1, 10, 23, 59, 0, 0, time.Local)), "当天任意时刻都不逾期")
	})

	t.Run("到期日之前不算逾期", func(t *testing.T) {
		assert.Equal(t, 0, p.DaysLate(due, date(2025, 1, 5)))
	})

	t.Run("逾期天数", func(t *testing.T) {
		assert.Equal(t, 1, p.DaysLate(due, date(2025, 1, 11)))
		assert.Equal(t, 5, p.DaysLate(due, date(2025, 1, 15)))
	})
}

// TestPolicy_DaysLate_AcrossDSTChange 跨夏令时切换的整天差
// 2026-03-08美东时区进入夏令时,当天只有23小时;
// 天数差必须按日历日计,不受切换日时长影响
func TestPolicy_DaysLate_AcrossDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("时区数据不可用: %v", err)
	}
	p := DefaultPolicy()
	due := time.Date(2026, 3, 7, 0, 0, 0, 0, loc)

	assert.Equal(t, 1, p.DaysLate(due, time.Date(2026, 3, 8, 23, 0, 0, 0, loc)))
	assert.Equal(t, 2, p.DaysLate(due, time.Date(2026, 3, 9, 0, 0, 0, 0, loc)), "跨切换日仍按日历天计")
	assert.Equal(t, int64(100), p.ComputeFine(due, time.Date(2026, 3, 9, 10, 0, 0, 0, loc)))

	// 秋季回拨(25小时的一天)同样不多算
	fallDue := time.Date(2026, 10, 31, 0, 0, 0, 0, loc)
	assert.Equal(t, 2, p.DaysLate(fallDue, time.Date(2026, 11, 2, 0, 0, 0, 0, loc)))
}

// TestPolicy_ComputeFine 罚款 = 逾期天数 * 日罚款率
func TestPolicy_ComputeFine(t *testing.T) {
	p := DefaultPolicy() // 0.50元/天
	due := date(2025, 1, 10)

	t.Run("未逾期无罚款", func(t *testing.T) {
		assert.Equal(t, int64(0), p.ComputeFine(due, date(2025, 1, 10)))
	})

	t.Run("逾期5天罚2.50元", func(t *testing.T) {
		assert.Equal(t, int64(250), p.ComputeFine(due, date(2025, 1, 15)))
	})

	t.Run("宽限期内免罚", func(t *testing.T) {
		graced := p
		graced.GraceDays = 3
		assert.Equal(t, int64(0), graced.ComputeFine(due, date(2025, 1, 13)), "逾期3天在宽限内")
		assert.Equal(t, int64(100), graced.ComputeFine(due, date(2025, 1, 15)), "超出宽限按2天计")
	})
}

// TestPolicy_FineMonotonicity 在借逾期期间罚款单调不减
func TestPolicy_FineMonotonicity(t *testing.T) {
	p := DefaultPolicy()
	due := date(2025, 1, 10)

	prev := int64(0)
	for day := 0; day < 30; day++ {
		fine := p.ComputeFine(due, due.AddDate(0, 0, day))
		assert.GreaterOrEqual(t, fine, prev, "第%d天罚款不应小于前一天", day)
		prev = fine
	}
}
