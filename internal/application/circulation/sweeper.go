package circulation

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/infrastructure/event"
	"github.com/xiebiao/library/pkg/clock"
	"github.com/xiebiao/library/pkg/metrics"
)

// OverdueSweeper 逾期清扫器
// 设计说明:
// 1. 定期扫描到期未还的在借借阅:ACTIVE转为OVERDUE,
//    已是OVERDUE的每轮按asOf刷新罚款(金额随逾期天数推进)
// 2. 幂等:罚款永远从到期日和asOf重算,同一天跑两遍结果一致
// 3. 扫描只取ID列表,每条借阅在自己的事务里锁行处理:
//    不持长事务,跑到一半失败时已处理的借阅保持正确,
//    剩下的留给下一轮
type OverdueSweeper struct {
	loanRepo  loan.Repository
	txManager TxManager
	policy    loan.Policy
	clk       clock.Clock
	events    event.Publisher
	interval  time.Duration
}

// NewOverdueSweeper 创建逾期清扫器
// interval<=0时默认24小时一轮
func NewOverdueSweeper(
	loanRepo loan.Repository,
	txManager TxManager,
	policy loan.Policy,
	clk clock.Clock,
	events event.Publisher,
	interval time.Duration,
) *OverdueSweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &OverdueSweeper{
		loanRepo:  loanRepo,
		txManager: txManager,
		policy:    policy,
		clk:       clk,
		events:    events,
		interval:  interval,
	}
}

// SweepResult 单轮清扫结果
type SweepResult struct {
	Scanned      int   `json:"scanned"`       // 扫描到的到期借阅数
	Transitioned int   `json:"transitioned"`  // 本轮转为OVERDUE的数量
	Skipped      int   `json:"skipped"`       // 扫描后、锁定前已归还的数量
	Failed       int   `json:"failed"`        // 处理失败的数量(留待下一轮)
	AccruedCents int64 `json:"accrued_cents"` // 本轮新增罚款(分)
}

// RunOnce 执行一轮清扫
// asOf由调用方传入:定时任务传clk.Now(),管理接口可指定时间点(补扫)
func (s *OverdueSweeper) RunOnce(ctx context.Context, asOf time.Time) (*SweepResult, error) {
	start := time.Now()

	ids, err := s.loanRepo.FindDueBefore(ctx, clock.Truncate(asOf))
	if err != nil {
		metrics.IncCounterVec(metrics.SweepRunsTotal, map[string]string{"result": "error"})
		return nil, err
	}

	result := &SweepResult{Scanned: len(ids)}
	for _, id := range ids {
		swept, err := s.sweepOne(ctx, id, asOf)
		switch {
		case errors.Is(err, loan.ErrInvalidTransition):
			// 扫描之后、锁定之前这条借阅已被归还,属于正常竞争,跳过
			result.Skipped++
		case err != nil:
			result.Failed++
			log.Printf("清扫借阅失败: loan_id=%d err=%v", id, err)
		case swept != nil:
			if swept.transitioned {
				result.Transitioned++
				metrics.IncCounter(metrics.SweepTransitionsTotal)
				s.events.PublishLoanEvent(ctx, event.RoutingKeyLoanOverdue, swept.loan)
			}
			result.AccruedCents += swept.accruedDelta
		}
	}

	if result.AccruedCents > 0 {
		metrics.AddCounter(metrics.FinesAccruedCents, float64(result.AccruedCents))
	}

	outcome := "success"
	if result.Failed > 0 {
		outcome = "partial_failure"
	}
	metrics.IncCounterVec(metrics.SweepRunsTotal, map[string]string{"result": outcome})
	metrics.ObserveHistogram(metrics.SweepDuration, time.Since(start).Seconds())

	log.Printf("逾期清扫完成: 扫描=%d 转逾期=%d 跳过=%d 失败=%d 新增罚款=%d分",
		result.Scanned, result.Transitioned, result.Skipped, result.Failed, result.AccruedCents)

	return result, nil
}

// sweptLoan 单条清扫结果
type sweptLoan struct {
	loan         *loan.Loan
	transitioned bool  // 是否本次从ACTIVE转为OVERDUE
	accruedDelta int64 // 罚款增量(重算值 - 原值)
}

// sweepOne 清扫单条借阅(独立事务)
func (s *OverdueSweeper) sweepOne(ctx context.Context, id uint, asOf time.Time) (*sweptLoan, error) {
	var swept *sweptLoan
	err := s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		l, err := s.loanRepo.LockByID(txCtx, id)
		if err != nil {
			return err
		}

		before := l.FineAmount
		transitioned, err := l.Sweep(s.policy, asOf)
		if err != nil {
			return err
		}

		if err := s.loanRepo.Update(txCtx, l); err != nil {
			return err
		}

		swept = &sweptLoan{
			loan:         l,
			transitioned: transitioned,
			accruedDelta: l.FineAmount - before,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return swept, nil
}

// Run 启动定时清扫循环(阻塞,通常在独立goroutine中运行)
// 启动时立即跑一轮(进程重启不等下一个周期),之后按interval执行,
// ctx取消时退出
func (s *OverdueSweeper) Run(ctx context.Context) {
	log.Printf("逾期清扫器已启动: interval=%v", s.interval)

	if _, err := s.RunOnce(ctx, s.clk.Now()); err != nil {
		log.Printf("逾期清扫执行失败: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("逾期清扫器已停止")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx, s.clk.Now()); err != nil {
				log.Printf("逾期清扫执行失败: %v", err)
			}
		}
	}
}
