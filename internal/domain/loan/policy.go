package loan

import (
	"time"

	"github.com/xiebiao/library/pkg/clock"
)

// Policy 借阅策略(纯计算,无I/O无状态)
// 设计说明:
// 1. 到期、逾期、罚款的全部判定集中在这里,生命周期代码只调用不计算
// 2. 金额以"分"为单位的int64存储(避免浮点精度问题),日期按整天计算
// 3. 罚款永远从dueDate和asOf重新计算而非累加,这是清扫幂等性的基础
type Policy struct {
	LoanPeriodDays      int   // 借期(天),默认14
	MaxRenewals         int   // 最大续借次数,默认3
	MaxLoansPerBorrower int   // 单个读者在借上限,默认5
	DailyFineRateCents  int64 // 逾期日罚款(分),默认50(即0.50元/天)
	GraceDays           int   // 宽限天数(逾期前N天免罚),默认0
}

// DefaultPolicy 默认借阅策略
func DefaultPolicy() Policy {
	return Policy{
		LoanPeriodDays:      14,
		MaxRenewals:         3,
		MaxLoansPerBorrower: 5,
		DailyFineRateCents:  50,
		GraceDays:           0,
	}
}

// DueDate 计算到期日: 借出日 + 借期(整天)
func (p Policy) DueDate(loanDate time.Time) time.Time {
	return clock.Truncate(loanDate).AddDate(0, 0, p.LoanPeriodDays)
}

// DaysLate 计算逾期天数(整天差,未逾期返回0)
// 整天差按日历日计算:取两端的年月日后在UTC重新定位再相减。
// 本地时区的夏令时切换日只有23或25小时,直接对本地午夜做时长除法
// 会把跨切换的天数算错一天
func (p Policy) DaysLate(dueDate, asOf time.Time) int {
	due := calendarDay(dueDate)
	at := calendarDay(asOf)
	if !at.After(due) {
		return 0
	}
	return int(at.Sub(due) / (24 * time.Hour))
}

// calendarDay 取日历日(UTC午夜定位,只用于天数差计算)
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsOverdue 是否已逾期(asOf晚于到期日,按整天判定)
func (p Policy) IsOverdue(dueDate, asOf time.Time) bool {
	return p.DaysLate(dueDate, asOf) > 0
}

// ComputeFine 计算罚款(分)
// 罚款 = max(0, 逾期天数 - 宽限天数) * 日罚款率
// 确定性计算:同样的dueDate和asOf永远得到同样的金额,
// 且asOf单调推进时金额单调不减
func (p Policy) ComputeFine(dueDate, asOf time.Time) int64 {
	chargeable := p.DaysLate(dueDate, asOf) - p.GraceDays
	if chargeable <= 0 {
		return 0
	}
	return int64(chargeable) * p.DailyFineRateCents
}
