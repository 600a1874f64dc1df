package loan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoan(loanedAt time.Time) *Loan {
	return NewLoan(1, 1, loanedAt, DefaultPolicy())
}

// TestNewLoan 借出后状态为在借,到期日=借出日+14天
func TestNewLoan(t *testing.T) {
	l := newTestLoan(date(2025, 1, 1))

	assert.Equal(t, StatusActive, l.Status)
	assert.Equal(t, date(2025, 1, 15), l.DueDate)
	assert.Equal(t, 0, l.Renewals)
	assert.Nil(t, l.ReturnedAt)
	assert.Equal(t, int64(0), l.FineAmount)
	assert.True(t, l.IsOutstanding())
}

// TestLoan_Renew 续借
func TestLoan_Renew(t *testing.T) {
	p := DefaultPolicy()

	t.Run("续借顺延到期日", func(t *testing.T) {
		l := newTestLoan(date(2025, 1, 1))
		err := l.Renew(p, date(2025, 1, 10))
		require.NoError(t, err)
		assert.Equal(t, 1, l.Renewals)
		assert.Equal(t, date(2025, 1, 29), l.DueDate, "从原到期日顺延14天")
	})

	t.Run("续借次数上限", func(t *testing.T) {
		capped := p
		capped.MaxRenewals = 2

		l := newTestLoan(date(2025, 1, 1))
		require.NoError(t, l.Renew(capped, date(2025, 1, 2)))
		require.NoError(t, l.Renew(capped, date(2025, 1, 3)))
		assert.Equal(t, 2, l.Renewals)

		err := l.Renew(capped, date(2025, 1, 4))
		assert.ErrorIs(t, err, ErrRenewalLimitExceeded, "第三次续借应被拒绝")
		assert.Equal(t, 2, l.Renewals, "失败不应有副作用")
	})

	t.Run("事实逾期不可续借", func(t *testing.T) {
		// 状态还是ACTIVE(清扫未跑到),但按当前时间已过期
		l := newTestLoan(date(2025, 1, 1))
		err := l.Renew(p, date(2025, 1, 20))
		assert.ErrorIs(t, err, ErrLoanNotRenewable)
	})

	t.Run("逾期状态不可续借", func(t *testing.T) {
		l := newTestLoan(date(2025, 1, 1))
		l.Status = StatusOverdue
		err := l.Renew(p, date(2025, 1, 20))
		assert.ErrorIs(t, err, ErrLoanNotRenewable)
	})

	t.Run("终态不可续借", func(t *testing.T) {
		l := newTestLoan(date(2025, 1, 1))
		l.Status = StatusReturned
		err := l.Renew(p, date(2025, 1, 10))
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

// TestLoan_Return 归还
func TestLoan_Return(t *testing.T) {
	p := DefaultPolicy()

	t.Run("按期归还", func(t *testing.T) {
		l := newTestLoan(date(2025, 1, 1))
		late, err := l.Return(p, date(2025, 1, 10))
		require.NoError(t, err)
		assert.False(t, late)
		assert.Equal(t, StatusReturned, l.Status)
		require.NotNil(t, l.ReturnedAt)
		assert.Equal(t, int64(0), l.FineAmount, "按期归还无罚款")
		assert.False(t, l.IsOutstanding())
	})

	t.Run("到期日当天归还不算逾期", func(t *testing.T) {
		l := newTestLoan(date(2025, 1, 1))
		late, err := l.Return(p, date(2025, 1, 15))
		require.NoError(t, err)
		assert.False(t, late)
		assert.Equal(t, StatusReturned, l.Status)
	})

	t.Run("逾期归还", func(t *testing.T) {
		// 到期2025-01-15,2025-01-20归还,逾期5天
		l := newTestLoan(date(2025, 1, 1))
		late, err := l.Return(p, date(2025, 1, 20))
		require.NoError(t, err)
		assert.True(t, late)
		assert.Equal(t, StatusReturnedLate, l.Status)
		assert.Equal(t, int64(5*50), l.FineAmount, "逾期5天,每天0.50元")
	})

	t.Run("逾期状态归还", func(t *testing.T) {
		l := newTestLoan(date(2025, 1, 1))
		_, err := l.Sweep(p, date(2025, 1, 18))
		require.NoError(t, err)
		require.Equal(t, StatusOverdue, l.Status)

		late, err := l.Return(p, date(2025, 1, 20))
		require.NoError(t, err)
		assert.True(t, late)
		assert.Equal(t, StatusReturnedLate, l.Status)
	})

	t.Run("重复归还被拒绝且记录不变", func(t *testing.T) {
		l := newTestLoan(date(2025, 1, 1))
		_, err := l.Return(p, date(2025, 1, 10))
		require.NoError(t, err)

		snapshot := *l
		_, err = l.Return(p, date(2025, 1, 11))
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, snapshot, *l, "终态借阅必须保持不变")
	})
}

// TestLoan_Sweep 逾期清扫
func TestLoan_Sweep(t *testing.T) {
	p := DefaultPolicy()

	t.Run("未到期无操作", func(t *testing.T) {
		l := newTestLoan(date(2025, 1, 1))
		transitioned, err := l.Sweep(p, date(2025, 1, 10))
		require.NoError(t, err)
		assert.False(t, transitioned)
		assert.Equal(t, StatusActive, l.Status)
	})

	t.Run("过期转逾期并计罚款", func(t *testing.T) {
		l := newTestLoan(date(2025, 1, 1))
		transitioned, err := l.Sweep(p, date(2025, 1, 18))
		require.NoError(t, err)
		assert.True(t, transitioned)
		assert.Equal(t, StatusOverdue, l.Status)
		assert.Equal(t, int64(3*50), l.FineAmount, "逾期3天")
	})

	t.Run("清扫幂等", func(t *testing.T) {
		l := newTestLoan(date(2025, 1, 1))
		asOf := date(2025, 1, 18)

		_, err := l.Sweep(p, asOf)
		require.NoError(t, err)
		fineAfterFirst := l.FineAmount
		statusAfterFirst := l.Status

		transitioned, err := l.Sweep(p, asOf)
		require.NoError(t, err)
		assert.False(t, transitioned, "第二次清扫不再转换状态")
		assert.Equal(t, fineAfterFirst, l.FineAmount, "同一天清扫两次罚款一致")
		assert.Equal(t, statusAfterFirst, l.Status)
	})

	t.Run("罚款随时间重算而非累加", func(t *testing.T) {
		l := newTestLoan(date(2025, 1, 1))
		_, err := l.Sweep(p, date(2025, 1, 18))
		require.NoError(t, err)
		assert.Equal(t, int64(150), l.FineAmount)

		_, err = l.Sweep(p, date(2025, 1, 25))
		require.NoError(t, err)
		assert.Equal(t, int64(500), l.FineAmount, "逾期10天,重算为5.00元")
	})

	t.Run("终态清扫被拒绝", func(t *testing.T) {
		l := newTestLoan(date(2025, 1, 1))
		_, err := l.Return(p, date(2025, 1, 20))
		require.NoError(t, err)

		_, err = l.Sweep(p, date(2025, 1, 25))
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

// TestLoan_PayFine 缴纳罚款
func TestLoan_PayFine(t *testing.T) {
	p := DefaultPolicy()

	lateLoan := func() *Loan {
		l := newTestLoan(date(2025, 1, 1))
		_, err := l.Return(p, date(2025, 1, 20)) // 罚款250分
		require.NoError(t, err)
		return l
	}

	t.Run("足额缴纳", func(t *testing.T) {
		l := lateLoan()
		paidAt := date(2025, 1, 21)
		require.NoError(t, l.PayFine(250, paidAt))
		assert.True(t, l.FinePaid)
		assert.False(t, l.HasUnpaidFine())
		assert.Equal(t, paidAt, l.UpdatedAt, "变更时间来自传入的时刻而非系统时钟")
	})

	t.Run("多缴按结清处理", func(t *testing.T) {
		l := lateLoan()
		assert.NoError(t, l.PayFine(1000, date(2025, 1, 21)))
		assert.True(t, l.FinePaid)
	})

	t.Run("金额不足被拒绝且无变更", func(t *testing.T) {
		l := lateLoan()
		err := l.PayFine(100, date(2025, 1, 21))
		assert.ErrorIs(t, err, ErrAmountMismatch)
		assert.False(t, l.FinePaid)
	})

	t.Run("重复缴纳被拒绝", func(t *testing.T) {
		l := lateLoan()
		require.NoError(t, l.PayFine(250, date(2025, 1, 21)))
		assert.ErrorIs(t, l.PayFine(250, date(2025, 1, 22)), ErrFineAlreadyPaid)
	})

	t.Run("无罚款不可缴纳", func(t *testing.T) {
		l := newTestLoan(date(2025, 1, 1))
		_, err := l.Return(p, date(2025, 1, 10))
		require.NoError(t, err)
		assert.ErrorIs(t, l.PayFine(100, date(2025, 1, 11)), ErrNoFineDue)
	})
}

// TestStatus_Transitions 状态机转换规则
func TestStatus_Transitions(t *testing.T) {
	assert.True(t, StatusActive.CanTransitionTo(StatusOverdue))
	assert.True(t, StatusActive.CanTransitionTo(StatusReturned))
	assert.True(t, StatusActive.CanTransitionTo(StatusReturnedLate))
	assert.True(t, StatusOverdue.CanTransitionTo(StatusReturnedLate))

	assert.False(t, StatusOverdue.CanTransitionTo(StatusReturned), "逾期借阅不可能按期归还")
	assert.False(t, StatusOverdue.CanTransitionTo(StatusActive), "逾期不可回退到在借")
	assert.False(t, StatusReturned.CanTransitionTo(StatusActive), "终态无后续转换")
	assert.False(t, StatusReturnedLate.CanTransitionTo(StatusOverdue), "终态无后续转换")

	assert.True(t, StatusReturned.IsTerminal())
	assert.True(t, StatusReturnedLate.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
	assert.False(t, StatusOverdue.IsTerminal())
}
