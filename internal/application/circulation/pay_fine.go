package circulation

import (
	"context"

	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/infrastructure/event"
	"github.com/xiebiao/library/pkg/clock"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/metrics"
)

// PayFineUseCase 缴纳罚款用例
// 说明:这里只做罚款的"结清登记",不对接支付渠道——
// 线下柜台收款后由馆员(或读者自助)调用本用例登记
type PayFineUseCase struct {
	loanRepo  loan.Repository
	txManager TxManager
	clk       clock.Clock
	events    event.Publisher
}

// NewPayFineUseCase 创建缴费用例
func NewPayFineUseCase(
	loanRepo loan.Repository,
	txManager TxManager,
	clk clock.Clock,
	events event.Publisher,
) *PayFineUseCase {
	return &PayFineUseCase{
		loanRepo:  loanRepo,
		txManager: txManager,
		clk:       clk,
		events:    events,
	}
}

// PayFineRequest 缴费请求DTO
type PayFineRequest struct {
	LoanID      uint  // 借阅ID
	UserID      uint  // 请求者ID(从JWT中提取)
	IsLibrarian bool  // 馆员可代收
	AmountCents int64 // 缴费金额(分)
}

// Execute 执行缴费
// 业务规则在实体里:金额必须>=应缴罚款,不足则拒绝且无任何变更,
// 多缴按全额结清处理
func (uc *PayFineUseCase) Execute(ctx context.Context, req PayFineRequest) (*LoanResponse, error) {
	var result *loan.Loan
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		l, err := uc.loanRepo.LockByID(txCtx, req.LoanID)
		if err != nil {
			return err
		}

		if !req.IsLibrarian && l.UserID != req.UserID {
			return apperrors.ErrForbidden
		}

		if err := l.PayFine(req.AmountCents, uc.clk.Now()); err != nil {
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

	uc.events.PublishLoanEvent(ctx, event.RoutingKeyFinePaid, result)
	metrics.IncCounter(metrics.FinesPaidTotal)

	return toLoanResponse(result), nil
}
