package loan

import (
	"context"
	"time"
)

// Repository 借阅仓储接口(依赖倒置原则)
// 设计说明:
// 1. 只暴露生命周期和清扫真正需要的查询,
//    报表类的花式查询不属于这里(读侧模块的职责)
// 2. 同一条借阅的并发变更(如重复归还)通过LockByID串行化,
//    后到者读到终态并收到ErrInvalidTransition,而不是写坏记录
type Repository interface {
	// Create 创建借阅记录
	Create(ctx context.Context, loan *Loan) error

	// FindByID 根据ID查找借阅
	FindByID(ctx context.Context, id uint) (*Loan, error)

	// LockByID 悲观锁查询借阅(SELECT FOR UPDATE)
	// 续借/归还/缴费/清扫都先锁行再变更,同一借阅的并发操作串行化
	LockByID(ctx context.Context, id uint) (*Loan, error)

	// Update 更新借阅记录
	Update(ctx context.Context, loan *Loan) error

	// CountOutstandingByUser 读者当前在借数量(ACTIVE+OVERDUE)
	// 借阅上限检查用,必须与副本预占在同一事务快照中评估
	CountOutstandingByUser(ctx context.Context, userID uint) (int64, error)

	// CountOutstandingByBook 图书当前在借数量(ACTIVE+OVERDUE)
	// 一致性校验用: total - available 应等于此值
	CountOutstandingByBook(ctx context.Context, bookID uint) (int64, error)

	// HasOutstandingForBook 读者是否已在借此书(同一本书不可重复借)
	HasOutstandingForBook(ctx context.Context, userID, bookID uint) (bool, error)

	// HasUnpaidFines 读者是否有未结清罚款(有则阻止新借阅)
	HasUnpaidFines(ctx context.Context, userID uint) (bool, error)

	// FindDueBefore 查找到期日早于asOf且仍在借(ACTIVE/OVERDUE)的借阅(清扫扫描)
	// OVERDUE也要进清扫:每轮按asOf重算罚款,金额随逾期天数推进
	// 只返回ID列表:清扫逐条锁行处理,不在扫描时持有长事务
	FindDueBefore(ctx context.Context, asOf time.Time) ([]uint, error)

	// ListByUser 分页查询读者的借阅记录
	ListByUser(ctx context.Context, userID uint, params ListParams) ([]*Loan, int64, error)

	// ListByStatus 分页查询指定状态的借阅记录(馆员视图)
	ListByStatus(ctx context.Context, status Status, params ListParams) ([]*Loan, int64, error)
}

// ListParams 列表查询参数
type ListParams struct {
	Page     int    // 页码(从1开始)
	PageSize int    // 每页数量
	Status   Status // 按状态过滤(空表示全部)
}
