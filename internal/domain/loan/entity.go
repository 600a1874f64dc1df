package loan

import (
	"time"

	"github.com/xiebiao/library/pkg/clock"
)

// Loan 借阅实体(聚合根)
// DDD设计说明:
// 1. Loan独占自己的状态和罚款字段,对Book和User只持有非拥有引用(ID)
// 2. 借阅记录只创建、只变更,永不删除(历史档案)
// 3. 不变量:
//    - ReturnedAt非空 <=> 状态为RETURNED或RETURNED_LATE
//    - FineAmount>0 仅当逾期归还或当前逾期
//    - Renewals <= Policy.MaxRenewals
// 4. 所有生命周期方法接收外部传入的时间(由clock.Clock提供),
//    实体自身不调用time.Now()做业务判定,保证测试可模拟时间
type Loan struct {
	ID         uint
	BookID     uint       // 图书ID(非拥有引用)
	UserID     uint       // 读者ID(非拥有引用)
	LoanDate   time.Time  // 借出日(日期)
	DueDate    time.Time  // 到期日 = 借出日 + 借期
	ReturnedAt *time.Time // 归还时刻(未归还为nil)
	Status     Status     // 借阅状态
	Renewals   int        // 已续借次数
	FineAmount int64      // 罚款金额(分)
	FinePaid   bool       // 罚款是否已结清
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewLoan 创建新借阅(工厂方法,借出动作)
// 到期日按整天计算: dueDate = truncate(now) + 借期
// 注意:副本预占(ReserveCopy)由用例层在同一事务内完成,不在这里
func NewLoan(bookID, userID uint, now time.Time, policy Policy) *Loan {
	return &Loan{
		BookID:    bookID,
		UserID:    userID,
		LoanDate:  clock.Truncate(now),
		DueDate:   policy.DueDate(now),
		Status:    StatusActive,
		Renewals:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsOutstanding 是否在借(占用副本)
func (l *Loan) IsOutstanding() bool {
	return l.Status.IsOutstanding()
}

// Renew 续借
// 业务规则:
// - 终态不可续借(ErrInvalidTransition)
// - 已逾期不可续借,包括状态仍为ACTIVE但按asOf已过期的"事实逾期"
//   (清扫还没跑到它,但续借判定以实际时间为准)
// - 续借次数不能超过上限
// 副作用: Renewals+1,到期日从当前到期日顺延一个借期
func (l *Loan) Renew(policy Policy, asOf time.Time) error {
	if l.Status.IsTerminal() {
		return ErrInvalidTransition
	}
	if l.Status == StatusOverdue || policy.IsOverdue(l.DueDate, asOf) {
		return ErrLoanNotRenewable
	}
	if l.Renewals >= policy.MaxRenewals {
		return ErrRenewalLimitExceeded
	}

	l.Renewals++
	l.DueDate = l.DueDate.AddDate(0, 0, policy.LoanPeriodDays)
	l.UpdatedAt = asOf
	return nil
}

// Return 归还
// 状态转换:
// - 按期(asOf <= dueDate): ACTIVE -> RETURNED,罚款保持0
// - 逾期(asOf > dueDate): ACTIVE/OVERDUE -> RETURNED_LATE,
//   罚款按dueDate和asOf重新计算
// - 终态重复归还: ErrInvalidTransition(重复请求或数据完整性问题,必须上报)
// 返回late表示是否逾期归还(用例层据此决定事件与指标)
// 注意:副本释放(ReleaseCopy)由用例层在同一事务内完成
func (l *Loan) Return(policy Policy, asOf time.Time) (late bool, err error) {
	if l.Status.IsTerminal() {
		return false, ErrInvalidTransition
	}

	late = policy.IsOverdue(l.DueDate, asOf)

	target := StatusReturned
	if late {
		target = StatusReturnedLate
	}
	if !l.Status.CanTransitionTo(target) {
		return false, ErrInvalidTransition
	}

	returnedAt := asOf
	l.ReturnedAt = &returnedAt
	l.Status = target
	if late {
		l.FineAmount = policy.ComputeFine(l.DueDate, asOf)
	}
	l.UpdatedAt = asOf
	return late, nil
}

// Sweep 逾期清扫
// - ACTIVE且已过期: 转OVERDUE并计算罚款,返回transitioned=true
// - OVERDUE: 罚款按当前asOf重新计算(单调不减),状态不变
// - ACTIVE未过期: 无操作
// - 终态: ErrInvalidTransition
// 幂等性:罚款永远是ComputeFine(dueDate, asOf)的重算结果而非累加,
// 同一天清扫两次结果完全一致
func (l *Loan) Sweep(policy Policy, asOf time.Time) (transitioned bool, err error) {
	if l.Status.IsTerminal() {
		return false, ErrInvalidTransition
	}

	if !policy.IsOverdue(l.DueDate, asOf) {
		return false, nil
	}

	if l.Status == StatusActive {
		l.Status = StatusOverdue
		transitioned = true
	}
	l.FineAmount = policy.ComputeFine(l.DueDate, asOf)
	l.UpdatedAt = asOf
	return transitioned, nil
}

// PayFine 缴纳罚款
// 业务规则:
// - 无罚款不可缴(ErrNoFineDue),已结清不可重复缴(ErrFineAlreadyPaid)
// - 金额必须>=应缴罚款,不足则失败且无任何变更(ErrAmountMismatch)
// - 多缴按全额结清处理(找零是柜台的事,不在领域模型里)
func (l *Loan) PayFine(amountCents int64, asOf time.Time) error {
	if l.FinePaid {
		return ErrFineAlreadyPaid
	}
	if l.FineAmount <= 0 {
		return ErrNoFineDue
	}
	if amountCents < l.FineAmount {
		return ErrAmountMismatch
	}

	l.FinePaid = true
	l.UpdatedAt = asOf
	return nil
}

// HasUnpaidFine 是否有未结清罚款
func (l *Loan) HasUnpaidFine() bool {
	return l.FineAmount > 0 && !l.FinePaid
}
