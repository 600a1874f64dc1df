// Package circulation 流通用例层
//
// 借出、续借、归还、缴费、逾期清扫的编排都在这里:
// 事务边界由TxManager划定,业务规则在domain/loan实体里,
// 副本计数的原子变更在book.Repository里,
// 用例只负责把它们按正确的顺序缝在同一个事务中。
package circulation

import (
	"context"
	"fmt"
	"time"

	"github.com/xiebiao/library/internal/domain/loan"
)

// TxManager 事务边界接口
// 生产环境由mysql.TxManager实现(GORM事务+context传递),
// 测试中用直通实现替代,用例层不感知具体事务机制
type TxManager interface {
	// Transaction 在一个事务内执行fn:fn返回error时回滚,返回nil时提交
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// LoanResponse 借阅响应DTO
// 说明:不直接返回领域实体,领域模型变更不影响API契约
type LoanResponse struct {
	ID             uint   `json:"id"`
	BookID         uint   `json:"book_id"`
	UserID         uint   `json:"user_id"`
	LoanDate       string `json:"loan_date"`
	DueDate        string `json:"due_date"`
	ReturnedAt     string `json:"returned_at,omitempty"`
	Status         string `json:"status"`
	StatusLabel    string `json:"status_label"`
	Renewals       int    `json:"renewals"`
	FineAmount     int64  `json:"fine_amount"` // 罚款(分)
	FineAmountYuan string `json:"fine_amount_yuan"`
	FinePaid       bool   `json:"fine_paid"`
	CreatedAt      string `json:"created_at"`
}

// toLoanResponse 领域实体 → 响应DTO
func toLoanResponse(l *loan.Loan) *LoanResponse {
	resp := &LoanResponse{
		ID:             l.ID,
		BookID:         l.BookID,
		UserID:         l.UserID,
		LoanDate:       l.LoanDate.Format("2006-01-02"),
		DueDate:        l.DueDate.Format("2006-01-02"),
		Status:         l.Status.String(),
		StatusLabel:    l.Status.Label(),
		Renewals:       l.Renewals,
		FineAmount:     l.FineAmount,
		FineAmountYuan: formatAmount(l.FineAmount),
		FinePaid:       l.FinePaid,
		CreatedAt:      l.CreatedAt.Format(time.DateTime),
	}
	if l.ReturnedAt != nil {
		resp.ReturnedAt = l.ReturnedAt.Format(time.DateTime)
	}
	return resp
}

// formatAmount 格式化金额(分→元)
func formatAmount(cents int64) string {
	return fmt.Sprintf("%.2f", float64(cents)/100.0)
}
