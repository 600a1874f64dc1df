package circulation

import (
	"context"

	"github.com/xiebiao/library/internal/domain/loan"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// LoanQueryUseCase 借阅查询用例(读侧)
// 只读操作,不开事务、不加锁
type LoanQueryUseCase struct {
	loanRepo loan.Repository
}

// NewLoanQueryUseCase 创建借阅查询用例
func NewLoanQueryUseCase(loanRepo loan.Repository) *LoanQueryUseCase {
	return &LoanQueryUseCase{loanRepo: loanRepo}
}

// GetLoan 查询单条借阅详情
// 权限:借阅人本人或馆员
func (uc *LoanQueryUseCase) GetLoan(ctx context.Context, loanID, userID uint, isLibrarian bool) (*LoanResponse, error) {
	l, err := uc.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if !isLibrarian && l.UserID != userID {
		return nil, apperrors.ErrForbidden
	}

	return toLoanResponse(l), nil
}

// ListLoansRequest 借阅列表查询请求DTO
type ListLoansRequest struct {
	Page     int    // 页码(从1开始)
	PageSize int    // 每页数量
	Status   string // 按状态过滤(空表示全部)
}

// normalize 参数默认值与范围限制
func (r *ListLoansRequest) normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = 20
	}
	if r.PageSize > 100 {
		r.PageSize = 100
	}
}

// ListLoansResponse 借阅列表响应DTO
type ListLoansResponse struct {
	List     []*LoanResponse `json:"list"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// ListMyLoans 查询读者自己的借阅记录
func (uc *LoanQueryUseCase) ListMyLoans(ctx context.Context, userID uint, req ListLoansRequest) (*ListLoansResponse, error) {
	req.normalize()

	loans, total, err := uc.loanRepo.ListByUser(ctx, userID, loan.ListParams{
		Page:     req.Page,
		PageSize: req.PageSize,
		Status:   loan.Status(req.Status),
	})
	if err != nil {
		return nil, err
	}

	return buildListResponse(loans, total, req), nil
}

// ListLoans 按状态查询借阅记录(馆员视图,如全部逾期借阅)
func (uc *LoanQueryUseCase) ListLoans(ctx context.Context, req ListLoansRequest) (*ListLoansResponse, error) {
	req.normalize()

	loans, total, err := uc.loanRepo.ListByStatus(ctx, loan.Status(req.Status), loan.ListParams{
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	return buildListResponse(loans, total, req), nil
}

func buildListResponse(loans []*loan.Loan, total int64, req ListLoansRequest) *ListLoansResponse {
	list := make([]*LoanResponse, len(loans))
	for i, l := range loans {
		list[i] = toLoanResponse(l)
	}
	return &ListLoansResponse{
		List:     list,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
}
