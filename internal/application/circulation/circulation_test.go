package circulation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/event"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)

func TestBorrow_Success(t *testing.T) {
	env := newTestEnv(testNow)
	env.addUser(1)
	env.addBook(10, 3, 3)

	resp, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 10})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, "ACTIVE", resp.Status, "新借阅应为在借状态")
	assert.Equal(t, "2026-03-01", resp.LoanDate)
	assert.Equal(t, "2026-03-15", resp.DueDate, "到期日应为借出日+14天")
	assert.Equal(t, 0, resp.Renewals)
	assert.Equal(t, int64(0), resp.FineAmount)

	b := env.bookRepo.get(10)
	assert.Equal(t, 2, b.AvailableCopies, "可借副本应减1")
	assert.Equal(t, int64(1), b.LoanCount, "历史借出次数应加1")

	created := env.events.byType(event.RoutingKeyLoanCreated)
	require.Len(t, created, 1, "应发布loan.created事件")
	assert.Equal(t, resp.ID, created[0].LoanID)
}

func TestBorrow_Rejections(t *testing.T) {
	t.Run("账户已停用", func(t *testing.T) {
		env := newTestEnv(testNow)
		env.userRepo.put(&user.User{ID: 1, Email: "a@lib.cn", Role: user.RoleUser, Active: false})
		env.addBook(10, 1, 1)

		_, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 10})
		assert.ErrorIs(t, err, loan.ErrBorrowerInactive)
		assert.Equal(t, 1, env.bookRepo.get(10).AvailableCopies, "拒绝借出不应扣减副本")
	})

	t.Run("有未结罚款", func(t *testing.T) {
		env := newTestEnv(testNow)
		env.addUser(1)
		env.addBook(10, 1, 1)
		env.loanRepo.put(&loan.Loan{
			BookID: 99, UserID: 1, Status: loan.StatusReturnedLate,
			FineAmount: 250, FinePaid: false,
		})

		_, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 10})
		assert.ErrorIs(t, err, loan.ErrUnpaidFines)
	})

	t.Run("重复借同一本书", func(t *testing.T) {
		env := newTestEnv(testNow)
		env.addUser(1)
		env.addBook(10, 5, 5)
		env.loanRepo.put(&loan.Loan{BookID: 10, UserID: 1, Status: loan.StatusActive})

		_, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 10})
		assert.ErrorIs(t, err, loan.ErrAlreadyBorrowed)
		assert.Equal(t, 5, env.bookRepo.get(10).AvailableCopies)
	})

	t.Run("达到在借上限", func(t *testing.T) {
		env := newTestEnv(testNow)
		env.addUser(1)
		env.addBook(10, 5, 5)
		for i := 0; i < env.policy.MaxLoansPerBorrower; i++ {
			env.loanRepo.put(&loan.Loan{BookID: uint(100 + i), UserID: 1, Status: loan.StatusActive})
		}

		_, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 10})
		assert.ErrorIs(t, err, loan.ErrLoanCapExceeded)

		b := env.bookRepo.get(10)
		assert.Equal(t, 5, b.AvailableCopies, "拒绝借出不应扣减副本")
		assert.Equal(t, int64(0), b.LoanCount)
		n, _ := env.loanRepo.CountOutstandingByUser(context.Background(), 1)
		assert.Equal(t, int64(5), n, "不应创建新的借阅记录")
	})

	t.Run("逾期在借也计入上限", func(t *testing.T) {
		env := newTestEnv(testNow)
		env.addUser(1)
		env.addBook(10, 5, 5)
		for i := 0; i < env.policy.MaxLoansPerBorrower-1; i++ {
			env.loanRepo.put(&loan.Loan{BookID: uint(100 + i), UserID: 1, Status: loan.StatusActive})
		}
		// 逾期但罚款已结清:不触发未结罚款检查,只占用借阅额度
		env.loanRepo.put(&loan.Loan{BookID: 200, UserID: 1, Status: loan.StatusOverdue})

		_, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 10})
		assert.ErrorIs(t, err, loan.ErrLoanCapExceeded)
	})

	t.Run("图书已下架", func(t *testing.T) {
		env := newTestEnv(testNow)
		env.addUser(1)
		env.bookRepo.put(&book.Book{ID: 10, TotalCopies: 3, AvailableCopies: 3, Active: false})

		_, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 10})
		assert.ErrorIs(t, err, book.ErrBookInactive)
	})

	t.Run("无可借副本", func(t *testing.T) {
		env := newTestEnv(testNow)
		env.addUser(1)
		env.addBook(10, 3, 0)

		_, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 10})
		assert.ErrorIs(t, err, book.ErrOutOfStock)
	})

	t.Run("读者不存在", func(t *testing.T) {
		env := newTestEnv(testNow)
		env.addBook(10, 1, 1)

		_, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 404, BookID: 10})
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})
}

// 最后1个副本被并发争抢:必然恰好一人成功,另一人收到无可借副本
func TestBorrow_ConcurrentLastCopy(t *testing.T) {
	env := newTestEnv(testNow)
	env.addUser(1)
	env.addUser(2)
	env.addBook(10, 1, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = env.borrow.Execute(context.Background(), BorrowRequest{
				UserID: uint(idx + 1),
				BookID: 10,
			})
		}(i)
	}
	wg.Wait()

	var succeeded, outOfStock int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, book.ErrOutOfStock):
			outOfStock++
		default:
			t.Fatalf("意外的错误: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "恰好一个请求成功")
	assert.Equal(t, 1, outOfStock, "另一个请求收到无可借副本")

	b := env.bookRepo.get(10)
	assert.Equal(t, 0, b.AvailableCopies, "可借数不应为负")
	outstanding, _ := env.loanRepo.CountOutstandingByBook(context.Background(), 10)
	assert.Equal(t, int64(1), outstanding, "在借数不应超过馆藏")
}

func TestRenew(t *testing.T) {
	borrowOne := func(env *testEnv) uint {
		env.addUser(1)
		env.addBook(10, 1, 1)
		resp, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 10})
		require.NoError(t, err)
		return resp.ID
	}

	t.Run("到期日从原到期日顺延", func(t *testing.T) {
		env := newTestEnv(testNow)
		id := borrowOne(env)

		// 第3天就续借,新到期日仍是原到期日+14天,而不是今天+14天
		env.clk.AdvanceDays(3)
		resp, err := env.renew.Execute(context.Background(), RenewRequest{LoanID: id, UserID: 1})
		require.NoError(t, err)
		assert.Equal(t, "2026-03-29", resp.DueDate)
		assert.Equal(t, 1, resp.Renewals)
		assert.Len(t, env.events.byType(event.RoutingKeyLoanRenewed), 1)
	})

	t.Run("续借次数上限", func(t *testing.T) {
		env := newTestEnv(testNow)
		id := borrowOne(env)

		for i := 0; i < env.policy.MaxRenewals; i++ {
			_, err := env.renew.Execute(context.Background(), RenewRequest{LoanID: id, UserID: 1})
			require.NoError(t, err)
		}
		_, err := env.renew.Execute(context.Background(), RenewRequest{LoanID: id, UserID: 1})
		assert.ErrorIs(t, err, loan.ErrRenewalLimitExceeded)
		assert.Equal(t, env.policy.MaxRenewals, env.loanRepo.get(id).Renewals, "失败的续借不应改变次数")
	})

	t.Run("事实逾期不可续借", func(t *testing.T) {
		env := newTestEnv(testNow)
		id := borrowOne(env)

		// 清扫器还没跑,状态仍是ACTIVE,但已过到期日
		env.clk.AdvanceDays(20)
		_, err := env.renew.Execute(context.Background(), RenewRequest{LoanID: id, UserID: 1})
		assert.ErrorIs(t, err, loan.ErrLoanNotRenewable)
	})

	t.Run("非本人不可续借", func(t *testing.T) {
		env := newTestEnv(testNow)
		id := borrowOne(env)
		env.addUser(2)

		_, err := env.renew.Execute(context.Background(), RenewRequest{LoanID: id, UserID: 2})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("馆员可代读者续借", func(t *testing.T) {
		env := newTestEnv(testNow)
		id := borrowOne(env)

		_, err := env.renew.Execute(context.Background(), RenewRequest{LoanID: id, UserID: 99, IsLibrarian: true})
		assert.NoError(t, err)
	})

	t.Run("借阅不存在", func(t *testing.T) {
		env := newTestEnv(testNow)
		_, err := env.renew.Execute(context.Background(), RenewRequest{LoanID: 404, UserID: 1})
		assert.ErrorIs(t, err, loan.ErrLoanNotFound)
	})
}

func TestReturn(t *testing.T) {
	borrowOne := func(env *testEnv) uint {
		env.addUser(1)
		env.addBook(10, 2, 2)
		resp, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 10})
		require.NoError(t, err)
		return resp.ID
	}

	t.Run("按期归还", func(t *testing.T) {
		env := newTestEnv(testNow)
		id := borrowOne(env)

		env.clk.AdvanceDays(10)
		resp, err := env.ret.Execute(context.Background(), ReturnRequest{LoanID: id, UserID: 1})
		require.NoError(t, err)

		assert.Equal(t, "RETURNED", resp.Status)
		assert.Equal(t, int64(0), resp.FineAmount)
		assert.NotEmpty(t, resp.ReturnedAt)
		assert.Equal(t, 2, env.bookRepo.get(10).AvailableCopies, "归还应释放副本")
		assert.Len(t, env.events.byType(event.RoutingKeyLoanReturned), 1)
	})

	t.Run("逾期归还计罚款", func(t *testing.T) {
		env := newTestEnv(testNow)
		id := borrowOne(env)

		// 到期2026-03-15,3月20日归还,逾期5天
		env.clk.Set(time.Date(2026, 3, 20, 9, 0, 0, 0, time.Local))
		resp, err := env.ret.Execute(context.Background(), ReturnRequest{LoanID: id, UserID: 1})
		require.NoError(t, err)

		assert.Equal(t, "RETURNED_LATE", resp.Status)
		assert.Equal(t, 5*env.policy.DailyFineRateCents, resp.FineAmount, "罚款=逾期天数×日费率")
		assert.False(t, resp.FinePaid)
		assert.Equal(t, 2, env.bookRepo.get(10).AvailableCopies, "逾期归还同样释放副本")
	})

	t.Run("重复归还", func(t *testing.T) {
		env := newTestEnv(testNow)
		id := borrowOne(env)

		_, err := env.ret.Execute(context.Background(), ReturnRequest{LoanID: id, UserID: 1})
		require.NoError(t, err)

		_, err = env.ret.Execute(context.Background(), ReturnRequest{LoanID: id, UserID: 1})
		assert.ErrorIs(t, err, loan.ErrInvalidTransition)
		assert.Equal(t, 2, env.bookRepo.get(10).AvailableCopies, "重复归还不应再次释放副本")
	})

	t.Run("非本人不可归还", func(t *testing.T) {
		env := newTestEnv(testNow)
		id := borrowOne(env)
		env.addUser(2)

		_, err := env.ret.Execute(context.Background(), ReturnRequest{LoanID: id, UserID: 2})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("馆员柜台代还", func(t *testing.T) {
		env := newTestEnv(testNow)
		id := borrowOne(env)

		resp, err := env.ret.Execute(context.Background(), ReturnRequest{LoanID: id, UserID: 99, IsLibrarian: true})
		require.NoError(t, err)
		assert.Equal(t, "RETURNED", resp.Status)
	})

	t.Run("副本计数异常时归还失败", func(t *testing.T) {
		env := newTestEnv(testNow)
		id := borrowOne(env)

		// 人为把可借数改回馆藏总数,模拟计数被破坏:
		// 归还时ReleaseCopy应报一致性错误而不是把可借数加到超过总数
		b := env.bookRepo.get(10)
		b.AvailableCopies = b.TotalCopies
		env.bookRepo.put(b)

		_, err := env.ret.Execute(context.Background(), ReturnRequest{LoanID: id, UserID: 1})
		assert.ErrorIs(t, err, book.ErrConsistencyViolation)
		assert.Equal(t, loan.StatusActive, env.loanRepo.get(id).Status, "失败的归还不应改变借阅状态")
	})
}

func TestPayFine(t *testing.T) {
	// 制造一条逾期5天归还、罚款250分的借阅
	lateLoan := func(env *testEnv) uint {
		env.addUser(1)
		env.addBook(10, 1, 1)
		resp, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 10})
		require.NoError(t, err)
		env.clk.Set(time.Date(2026, 3, 20, 9, 0, 0, 0, time.Local))
		_, err = env.ret.Execute(context.Background(), ReturnRequest{LoanID: resp.ID, UserID: 1})
		require.NoError(t, err)
		return resp.ID
	}

	t.Run("足额缴清", func(t *testing.T) {
		env := newTestEnv(testNow)
		id := lateLoan(env)

		resp, err := env.payFine.Execute(context.Background(), PayFineRequest{LoanID: id, UserID: 1, AmountCents: 250})
		require.NoError(t, err)
		assert.True(t, resp.FinePaid)
		assert.Len(t, env.events.byType(event.RoutingKeyFinePaid), 1)

		// 罚款结清后恢复借书资格
		env.addBook(20, 1, 1)
		_, err = env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 20})
		assert.NoError(t, err, "结清罚款后应可再借书")
	})

	t.Run("金额不足", func(t *testing.T) {
		env := newTestEnv(testNow)
		id := lateLoan(env)

		_, err := env.payFine.Execute(context.Background(), PayFineRequest{LoanID: id, UserID: 1, AmountCents: 100})
		assert.ErrorIs(t, err, loan.ErrAmountMismatch)
		assert.False(t, env.loanRepo.get(id).FinePaid, "不足额缴费不应有任何变更")
	})

	t.Run("重复缴费", func(t *testing.T) {
		env := newTestEnv(testNow)
		id := lateLoan(env)

		_, err := env.payFine.Execute(context.Background(), PayFineRequest{LoanID: id, UserID: 1, AmountCents: 250})
		require.NoError(t, err)
		_, err = env.payFine.Execute(context.Background(), PayFineRequest{LoanID: id, UserID: 1, AmountCents: 250})
		assert.ErrorIs(t, err, loan.ErrFineAlreadyPaid)
	})

	t.Run("无罚款可缴", func(t *testing.T) {
		env := newTestEnv(testNow)
		env.addUser(1)
		env.addBook(10, 1, 1)
		resp, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 10})
		require.NoError(t, err)

		_, err = env.payFine.Execute(context.Background(), PayFineRequest{LoanID: resp.ID, UserID: 1, AmountCents: 100})
		assert.ErrorIs(t, err, loan.ErrNoFineDue)
	})

	t.Run("非本人不可缴费", func(t *testing.T) {
		env := newTestEnv(testNow)
		id := lateLoan(env)
		env.addUser(2)

		_, err := env.payFine.Execute(context.Background(), PayFineRequest{LoanID: id, UserID: 2, AmountCents: 250})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestSweeper_RunOnce(t *testing.T) {
	env := newTestEnv(testNow)
	env.addUser(1)
	env.addUser(2)
	env.addBook(10, 5, 5)
	env.addBook(20, 5, 5)
	env.addBook(30, 5, 5)

	// 三条借阅:到期的、未到期的、已归还的
	overdue, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 10})
	require.NoError(t, err)
	returned, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 20})
	require.NoError(t, err)
	_, err = env.ret.Execute(context.Background(), ReturnRequest{LoanID: returned.ID, UserID: 1})
	require.NoError(t, err)

	env.clk.AdvanceDays(10)
	notDue, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 2, BookID: 30})
	require.NoError(t, err)

	// 第一条到期2026-03-15,3月21日清扫,逾期6天
	asOf := time.Date(2026, 3, 21, 2, 0, 0, 0, time.Local)
	result, err := env.sweeper.RunOnce(context.Background(), asOf)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Scanned, "只有到期未还的在借借阅进入扫描")
	assert.Equal(t, 1, result.Transitioned)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 6*env.policy.DailyFineRateCents, result.AccruedCents)

	swept := env.loanRepo.get(overdue.ID)
	assert.Equal(t, loan.StatusOverdue, swept.Status)
	assert.Equal(t, int64(300), swept.FineAmount)
	assert.Equal(t, loan.StatusActive, env.loanRepo.get(notDue.ID).Status, "未到期借阅不受影响")
	assert.Len(t, env.events.byType(event.RoutingKeyLoanOverdue), 1)

	t.Run("同一时间点重跑幂等", func(t *testing.T) {
		again, err := env.sweeper.RunOnce(context.Background(), asOf)
		require.NoError(t, err)
		assert.Equal(t, 1, again.Scanned, "OVERDUE借阅仍在扫描范围内")
		assert.Equal(t, 0, again.Transitioned, "不会重复转OVERDUE")
		assert.Equal(t, int64(0), again.AccruedCents, "同一时间点重算罚款无增量")
		assert.Equal(t, int64(300), env.loanRepo.get(overdue.ID).FineAmount, "罚款不应重复累加")
		assert.Len(t, env.events.byType(event.RoutingKeyLoanOverdue), 1, "不重发逾期事件")
	})

	t.Run("后续清扫刷新OVERDUE罚款", func(t *testing.T) {
		// 逾期在借期间存储的罚款随清扫推进,缴费结清的永远是当前金额
		later := asOf.AddDate(0, 0, 2) // 逾期8天
		again, err := env.sweeper.RunOnce(context.Background(), later)
		require.NoError(t, err)
		assert.Equal(t, 1, again.Scanned)
		assert.Equal(t, 0, again.Transitioned)
		assert.Equal(t, 2*env.policy.DailyFineRateCents, again.AccruedCents, "只计两天增量")
		assert.Equal(t, int64(400), env.loanRepo.get(overdue.ID).FineAmount)
	})

	t.Run("逾期归还按最新天数结算", func(t *testing.T) {
		env.clk.Set(time.Date(2026, 3, 23, 9, 0, 0, 0, time.Local))
		resp, err := env.ret.Execute(context.Background(), ReturnRequest{LoanID: overdue.ID, UserID: 1})
		require.NoError(t, err)
		assert.Equal(t, "RETURNED_LATE", resp.Status)
		assert.Equal(t, 8*env.policy.DailyFineRateCents, resp.FineAmount, "归还时罚款按实际逾期8天重算")
	})
}

func TestSweeper_Run_StopsOnCancel(t *testing.T) {
	env := newTestEnv(testNow)
	sweeper := NewOverdueSweeper(env.loanRepo, fakeTxManager{}, env.policy, env.clk, env.events, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("取消context后清扫循环应退出")
	}
}

func TestLoanQueries(t *testing.T) {
	env := newTestEnv(testNow)
	env.addUser(1)
	env.addUser(2)
	env.addBook(10, 5, 5)
	env.addBook(20, 5, 5)

	first, err := env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 10})
	require.NoError(t, err)
	_, err = env.borrow.Execute(context.Background(), BorrowRequest{UserID: 1, BookID: 20})
	require.NoError(t, err)

	t.Run("本人查询", func(t *testing.T) {
		resp, err := env.queries.GetLoan(context.Background(), first.ID, 1, false)
		require.NoError(t, err)
		assert.Equal(t, first.ID, resp.ID)
	})

	t.Run("他人查询被拒", func(t *testing.T) {
		_, err := env.queries.GetLoan(context.Background(), first.ID, 2, false)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("馆员可查任意借阅", func(t *testing.T) {
		_, err := env.queries.GetLoan(context.Background(), first.ID, 2, true)
		assert.NoError(t, err)
	})

	t.Run("我的借阅列表", func(t *testing.T) {
		resp, err := env.queries.ListMyLoans(context.Background(), 1, ListLoansRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.Total)
		assert.Equal(t, 1, resp.Page)
		assert.Equal(t, 20, resp.PageSize, "默认每页20条")
	})

	t.Run("按状态过滤", func(t *testing.T) {
		resp, err := env.queries.ListLoans(context.Background(), ListLoansRequest{Status: "ACTIVE"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.Total)
	})
}
