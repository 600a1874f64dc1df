package circulation

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/event"
	"github.com/xiebiao/library/pkg/clock"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/metrics"
)

// BorrowUseCase 借书用例
// 这是整个流通引擎最核心的用例:
// 资格检查、副本预占、借阅记录创建必须在同一个事务里完成,
// 资格和库存针对同一个一致性快照评估
type BorrowUseCase struct {
	loanRepo  loan.Repository
	bookRepo  book.Repository
	userRepo  user.Repository
	txManager TxManager
	policy    loan.Policy
	clk       clock.Clock
	events    event.Publisher
	cache     AvailabilityInvalidator
}

// AvailabilityInvalidator 可借状态缓存失效接口
// 借出/归还改变可借数后调用,失效失败只记日志(缓存有TTL兜底)
type AvailabilityInvalidator interface {
	Invalidate(ctx context.Context, bookID uint) error
}

// NewBorrowUseCase 创建借书用例
func NewBorrowUseCase(
	loanRepo loan.Repository,
	bookRepo book.Repository,
	userRepo user.Repository,
	txManager TxManager,
	policy loan.Policy,
	clk clock.Clock,
	events event.Publisher,
	cache AvailabilityInvalidator,
) *BorrowUseCase {
	return &BorrowUseCase{
		loanRepo:  loanRepo,
		bookRepo:  bookRepo,
		userRepo:  userRepo,
		txManager: txManager,
		policy:    policy,
		clk:       clk,
		events:    events,
		cache:     cache,
	}
}

// BorrowRequest 借书请求DTO
type BorrowRequest struct {
	UserID uint // 读者ID(从JWT中提取)
	BookID uint // 图书ID
}

// Execute 执行借书用例
//
// 核心问题:副本超借
// 场景:某书只剩1个可借副本,两个读者同时借
// 错误实现:先SELECT可借数、再判断、再UPDATE——两个请求都会通过判断
// 正确实现:ReserveCopy用单条条件UPDATE原子完成"判断+扣减",
// 靠RowsAffected区分成败,两个并发请求必然一个成功一个OutOfStock
//
// 完整流程(一个事务):
//  1. 读者资格:账户启用、无未结罚款、未重复借同一本书、未达在借上限
//  2. 预占副本(原子条件更新)
//  3. 创建借阅记录,到期日 = 今天 + 借期
//  4. 历史借出次数+1
//
// 任何一步失败整个事务回滚:不会出现"副本扣了但没有借阅记录"
func (uc *BorrowUseCase) Execute(ctx context.Context, req BorrowRequest) (*LoanResponse, error) {
	start := time.Now()

	var result *loan.Loan
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		// 1. 读者资格检查
		u, err := uc.userRepo.FindByID(txCtx, req.UserID)
		if err != nil {
			return err
		}
		if !u.Active {
			return loan.ErrBorrowerInactive
		}

		unpaid, err := uc.loanRepo.HasUnpaidFines(txCtx, req.UserID)
		if err != nil {
			return err
		}
		if unpaid {
			return loan.ErrUnpaidFines
		}

		already, err := uc.loanRepo.HasOutstandingForBook(txCtx, req.UserID, req.BookID)
		if err != nil {
			return err
		}
		if already {
			return loan.ErrAlreadyBorrowed
		}

		outstanding, err := uc.loanRepo.CountOutstandingByUser(txCtx, req.UserID)
		if err != nil {
			return err
		}
		if outstanding >= int64(uc.policy.MaxLoansPerBorrower) {
			return loan.ErrLoanCapExceeded
		}

		// 2. 预占副本(原子条件更新,并发下不超借)
		if err := uc.bookRepo.ReserveCopy(txCtx, req.BookID); err != nil {
			return err
		}

		// 3. 创建借阅记录
		l := loan.NewLoan(req.BookID, req.UserID, uc.clk.Now(), uc.policy)
		if err := uc.loanRepo.Create(txCtx, l); err != nil {
			return err
		}

		// 4. 热门度统计
		if err := uc.bookRepo.IncrLoanCount(txCtx, req.BookID); err != nil {
			return err
		}

		result = l
		return nil
	})

	if err != nil {
		uc.recordRejection(err)
		return nil, err
	}

	// 事务已提交:发布事件、失效缓存、记指标(都不影响借书结果)
	uc.events.PublishLoanEvent(ctx, event.RoutingKeyLoanCreated, result)
	if uc.cache != nil {
		if err := uc.cache.Invalidate(ctx, req.BookID); err != nil {
			log.Printf("失效可借状态缓存失败: book_id=%d err=%v", req.BookID, err)
		}
	}
	metrics.IncCounter(metrics.LoansIssuedTotal)
	metrics.ObserveHistogram(metrics.BorrowDuration, time.Since(start).Seconds())

	return toLoanResponse(result), nil
}

// recordRejection 借阅被拒指标(按原因分类,低基数标签)
func (uc *BorrowUseCase) recordRejection(err error) {
	var reason string
	switch {
	case errors.Is(err, book.ErrOutOfStock):
		reason = "out_of_stock"
	case errors.Is(err, book.ErrBookNotFound), errors.Is(err, apperrors.ErrUserNotFound):
		reason = "not_found"
	case errors.Is(err, loan.ErrBorrowerInactive),
		errors.Is(err, loan.ErrLoanCapExceeded),
		errors.Is(err, loan.ErrUnpaidFines),
		errors.Is(err, loan.ErrAlreadyBorrowed),
		errors.Is(err, book.ErrBookInactive):
		reason = "ineligible"
	default:
		return // 系统错误不计入业务拒绝
	}
	metrics.IncCounterVec(metrics.LoansRejectedTotal, map[string]string{"reason": reason})
}
