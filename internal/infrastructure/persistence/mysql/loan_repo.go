package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/library/internal/domain/loan"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 在借状态集合(ACTIVE + OVERDUE),多处统计查询共用
var outstandingStatuses = []string{
	string(loan.StatusActive),
	string(loan.StatusOverdue),
}

// loanRepository 借阅仓储实现(MySQL)
// 设计说明:
// 1. 实现domain/loan/repository.go定义的接口
// 2. 借阅记录只创建只更新,永不删除(历史档案)
// 3. 同一借阅的并发变更通过LockByID(SELECT FOR UPDATE)串行化
type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository 创建借阅仓储
func NewLoanRepository(db *gorm.DB) loan.Repository {
	return &loanRepository{db: db}
}

// Create 创建借阅记录
func (r *loanRepository) Create(ctx context.Context, l *loan.Loan) error {
	model := toLoanModel(l)

	if err := r.getDB(ctx).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建借阅记录失败")
	}

	// 回填自增ID
	l.ID = model.ID
	l.CreatedAt = model.CreatedAt
	l.UpdatedAt = model.UpdatedAt

	return nil
}

// FindByID 根据ID查找借阅
func (r *loanRepository) FindByID(ctx context.Context, id uint) (*loan.Loan, error) {
	var model LoanModel
	err := r.getDB(ctx).First(&model, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loan.ErrLoanNotFound
		}
		return nil, apperrors.Wrap(err, "查询借阅记录失败")
	}

	return toLoanEntity(&model), nil
}

// LockByID 悲观锁查询借阅(SELECT FOR UPDATE)
// 续借/归还/缴费/清扫先锁行再变更:并发的重复归还请求在这里排队,
// 后到者读到终态,实体方法返回ErrInvalidTransition,记录不会被写坏
func (r *loanRepository) LockByID(ctx context.Context, id uint) (*loan.Loan, error) {
	var model LoanModel
	db := r.getDB(ctx)
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loan.ErrLoanNotFound
		}
		return nil, apperrors.Wrap(err, "锁定借阅记录失败")
	}

	return toLoanEntity(&model), nil
}

// Update 更新借阅记录
func (r *loanRepository) Update(ctx context.Context, l *loan.Loan) error {
	model := toLoanModel(l)
	model.ID = l.ID
	model.CreatedAt = l.CreatedAt

	if err := r.getDB(ctx).Save(model).Error; err != nil {
		return apperrors.Wrap(err, "更新借阅记录失败")
	}

	l.UpdatedAt = model.UpdatedAt
	return nil
}

// CountOutstandingByUser 读者当前在借数量(ACTIVE+OVERDUE)
// 借阅上限检查用,事务内调用时与副本预占共享同一快照
func (r *loanRepository) CountOutstandingByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.getDB(ctx).Model(&LoanModel{}).
		Where("user_id = ?", userID).
		Where("status IN ?", outstandingStatuses).
		Count(&count).Error

	if err != nil {
		return 0, apperrors.Wrap(err, "统计在借数量失败")
	}
	return count, nil
}

// CountOutstandingByBook 图书当前在借数量(ACTIVE+OVERDUE)
func (r *loanRepository) CountOutstandingByBook(ctx context.Context, bookID uint) (int64, error) {
	var count int64
	err := r.getDB(ctx).Model(&LoanModel{}).
		Where("book_id = ?", bookID).
		Where("status IN ?", outstandingStatuses).
		Count(&count).Error

	if err != nil {
		return 0, apperrors.Wrap(err, "统计图书在借数量失败")
	}
	return count, nil
}

// HasOutstandingForBook 读者是否已在借此书
func (r *loanRepository) HasOutstandingForBook(ctx context.Context, userID, bookID uint) (bool, error) {
	var count int64
	err := r.getDB(ctx).Model(&LoanModel{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Where("status IN ?", outstandingStatuses).
		Count(&count).Error

	if err != nil {
		return false, apperrors.Wrap(err, "查询在借记录失败")
	}
	return count > 0, nil
}

// HasUnpaidFines 读者是否有未结清罚款
func (r *loanRepository) HasUnpaidFines(ctx context.Context, userID uint) (bool, error) {
	var count int64
	err := r.getDB(ctx).Model(&LoanModel{}).
		Where("user_id = ?", userID).
		Where("fine_amount > 0 AND fine_paid = ?", false).
		Count(&count).Error

	if err != nil {
		return false, apperrors.Wrap(err, "查询未结罚款失败")
	}
	return count > 0, nil
}

// FindDueBefore 查找到期日早于asOf且仍在借(ACTIVE/OVERDUE)的借阅ID(清扫扫描)
// OVERDUE也在范围内:每轮清扫按asOf重算罚款,存储的金额随逾期天数推进,
// 缴费结清的是当前金额而非首轮冻结值
// 只查ID不查整行:清扫逐条锁行处理,扫描本身不开长事务、不持锁
func (r *loanRepository) FindDueBefore(ctx context.Context, asOf time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&LoanModel{}).
		Where("status IN ?", outstandingStatuses).
		Where("due_date < ?", asOf).
		Order("id ASC").
		Pluck("id", &ids).Error

	if err != nil {
		return nil, apperrors.Wrap(err, "扫描到期借阅失败")
	}
	return ids, nil
}

// ListByUser 分页查询读者的借阅记录
func (r *loanRepository) ListByUser(ctx context.Context, userID uint, params loan.ListParams) ([]*loan.Loan, int64, error) {
	query := r.db.WithContext(ctx).Model(&LoanModel{}).Where("user_id = ?", userID)

	if params.Status != "" {
		query = query.Where("status = ?", string(params.Status))
	}

	return r.listByQuery(query, params)
}

// ListByStatus 分页查询指定状态的借阅记录(馆员视图)
func (r *loanRepository) ListByStatus(ctx context.Context, status loan.Status, params loan.ListParams) ([]*loan.Loan, int64, error) {
	query := r.db.WithContext(ctx).Model(&LoanModel{})

	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	return r.listByQuery(query, params)
}

// listByQuery 分页查询公共逻辑
func (r *loanRepository) listByQuery(query *gorm.DB, params loan.ListParams) ([]*loan.Loan, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "统计借阅记录失败")
	}

	var models []LoanModel
	offset := (params.Page - 1) * params.PageSize
	err := query.Order("created_at DESC").
		Limit(params.PageSize).Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询借阅记录失败")
	}

	loans := make([]*loan.Loan, len(models))
	for i, model := range models {
		loans[i] = toLoanEntity(&model)
	}
	return loans, total, nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

// toLoanEntity GORM模型 → 领域实体
func toLoanEntity(model *LoanModel) *loan.Loan {
	return &loan.Loan{
		ID:         model.ID,
		BookID:     model.BookID,
		UserID:     model.UserID,
		LoanDate:   model.LoanDate,
		DueDate:    model.DueDate,
		ReturnedAt: model.ReturnedAt,
		Status:     loan.Status(model.Status),
		Renewals:   model.Renewals,
		FineAmount: model.FineAmount,
		FinePaid:   model.FinePaid,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

// toLoanModel 领域实体 → GORM模型
func toLoanModel(l *loan.Loan) *LoanModel {
	return &LoanModel{
		BookID:     l.BookID,
		UserID:     l.UserID,
		LoanDate:   l.LoanDate,
		DueDate:    l.DueDate,
		ReturnedAt: l.ReturnedAt,
		Status:     string(l.Status),
		Renewals:   l.Renewals,
		FineAmount: l.FineAmount,
		FinePaid:   l.FinePaid,
	}
}

// getDB 从context获取事务DB,如果没有则使用默认DB
func (r *loanRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}
