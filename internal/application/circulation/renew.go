package circulation

import (
	"context"

	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/infrastructure/event"
	"github.com/xiebiao/library/pkg/clock"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/metrics"
)

// RenewUseCase 续借用例
type RenewUseCase struct {
	loanRepo  loan.Repository
	txManager TxManager
	policy    loan.Policy
	clk       clock.Clock
	events    event.Publisher
}

// NewRenewUseCase 创建续借用例
func NewRenewUseCase(
	loanRepo loan.Repository,
	txManager TxManager,
	policy loan.Policy,
	clk clock.Clock,
	events event.Publisher,
) *RenewUseCase {
	return &RenewUseCase{
		loanRepo:  loanRepo,
		txManager: txManager,
		policy:    policy,
		clk:       clk,
		events:    events,
	}
}

// RenewRequest 续借请求DTO
type RenewRequest struct {
	LoanID      uint // 借阅ID
	UserID      uint // 请求者ID(从JWT中提取)
	IsLibrarian bool // 馆员可代任何读者续借
}

// Execute 执行续借
// 流程(一个事务):
//  1. 锁定借阅行(并发的续借/归还请求在此串行化)
//  2. 权限:只有借阅人本人或馆员可以续借
//  3. 实体执行续借规则(次数上限、逾期不可续、终态不可续)
//  4. 持久化
//
// 续借不改变副本计数:书还在读者手里,只是到期日顺延
func (uc *RenewUseCase) Execute(ctx context.Context, req RenewRequest) (*LoanResponse, error) {
	var result *loan.Loan
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		l, err := uc.loanRepo.LockByID(txCtx, req.LoanID)
		if err != nil {
			return err
		}

		if !req.IsLibrarian && l.UserID != req.UserID {
			return apperrors.ErrForbidden
		}

		if err := l.Renew(uc.policy, uc.clk.Now()); err != nil {
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

	uc.events.PublishLoanEvent(ctx, event.RoutingKeyLoanRenewed, result)
	metrics.IncCounter(metrics.LoansRenewedTotal)

	return toLoanResponse(result), nil
}
