package circulation

import (
	"context"
	"log"
	"strconv"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/infrastructure/event"
	"github.com/xiebiao/library/pkg/clock"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/metrics"
)

// ReturnUseCase 还书用例
type ReturnUseCase struct {
	loanRepo  loan.Repository
	bookRepo  book.Repository
	txManager TxManager
	policy    loan.Policy
	clk       clock.Clock
	events    event.Publisher
	cache     AvailabilityInvalidator
}

// NewReturnUseCase 创建还书用例
func NewReturnUseCase(
	loanRepo loan.Repository,
	bookRepo book.Repository,
	txManager TxManager,
	policy loan.Policy,
	clk clock.Clock,
	events event.Publisher,
	cache AvailabilityInvalidator,
) *ReturnUseCase {
	return &ReturnUseCase{
		loanRepo:  loanRepo,
		bookRepo:  bookRepo,
		txManager: txManager,
		policy:    policy,
		clk:       clk,
		events:    events,
		cache:     cache,
	}
}

// ReturnRequest 还书请求DTO
type ReturnRequest struct {
	LoanID      uint // 借阅ID
	UserID      uint // 请求者ID(从JWT中提取)
	IsLibrarian bool // 馆员可代任何读者还书(柜台归还)
}

// Execute 执行还书
// 流程(一个事务):
//  1. 锁定借阅行:重复的归还请求在此串行化,
//     后到者读到终态并收到InvalidTransition,而不是把记录写坏
//  2. 权限:借阅人本人或馆员
//  3. 实体执行状态转换:按期→RETURNED,逾期→RETURNED_LATE并按
//     到期日和归还日重算罚款
//  4. 释放副本(原子条件更新;若可借数将超过馆藏总数,
//     返回ConsistencyViolation,整个事务回滚)
//  5. 持久化
func (uc *ReturnUseCase) Execute(ctx context.Context, req ReturnRequest) (*LoanResponse, error) {
	var result *loan.Loan
	var late bool

	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		l, err := uc.loanRepo.LockByID(txCtx, req.LoanID)
		if err != nil {
			return err
		}

		if !req.IsLibrarian && l.UserID != req.UserID {
			return apperrors.ErrForbidden
		}

		late, err = l.Return(uc.policy, uc.clk.Now())
		if err != nil {
			return err
		}

		if err := uc.bookRepo.ReleaseCopy(txCtx, l.BookID); err != nil {
			return err
		}

		if err := uc.loanRepo.Update(txCtx, l); err != nil {
			return err
		}

		result = l
		return nil
	})

	if err != nil {
		return nil, err
	}

	uc.events.PublishLoanEvent(ctx, event.RoutingKeyLoanReturned, result)
	if uc.cache != nil {
		if err := uc.cache.Invalidate(ctx, result.BookID); err != nil {
			log.Printf("失效可借状态缓存失败: book_id=%d err=%v", result.BookID, err)
		}
	}
	metrics.IncCounterVec(metrics.LoansReturnedTotal, map[string]string{"late": strconv.FormatBool(late)})
	if late {
		metrics.AddCounter(metrics.FinesAccruedCents, float64(result.FineAmount))
	}

	return toLoanResponse(result), nil
}
