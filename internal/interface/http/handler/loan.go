package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/library/internal/application/circulation"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/response"
)

// LoanHandler 借阅HTTP处理器
// 借书/续借/归还/缴费/查询都从这里进入,
// 归属权限(本人还是馆员代办)由用例层判断,Handler只负责
// 把JWT里的身份信息透传下去
type LoanHandler struct {
	borrowUseCase  *circulation.BorrowUseCase
	renewUseCase   *circulation.RenewUseCase
	returnUseCase  *circulation.ReturnUseCase
	payFineUseCase *circulation.PayFineUseCase
	queryUseCase   *circulation.LoanQueryUseCase
}

// NewLoanHandler 创建借阅处理器
func NewLoanHandler(
	borrowUseCase *circulation.BorrowUseCase,
	renewUseCase *circulation.RenewUseCase,
	returnUseCase *circulation.ReturnUseCase,
	payFineUseCase *circulation.PayFineUseCase,
	queryUseCase *circulation.LoanQueryUseCase,
) *LoanHandler {
	return &LoanHandler{
		borrowUseCase:  borrowUseCase,
		renewUseCase:   renewUseCase,
		returnUseCase:  returnUseCase,
		payFineUseCase: payFineUseCase,
		queryUseCase:   queryUseCase,
	}
}

// toLoanDTO 应用层DTO → HTTP层DTO
func toLoanDTO(l *circulation.LoanResponse) *dto.LoanResponse {
	return &dto.LoanResponse{
		ID:             l.ID,
		BookID:         l.BookID,
		UserID:         l.UserID,
		LoanDate:       l.LoanDate,
		DueDate:        l.DueDate,
		ReturnedAt:     l.ReturnedAt,
		Status:         l.Status,
		StatusLabel:    l.StatusLabel,
		Renewals:       l.Renewals,
		FineAmount:     l.FineAmount,
		FineAmountYuan: l.FineAmountYuan,
		FinePaid:       l.FinePaid,
		CreatedAt:      l.CreatedAt,
	}
}

// Borrow 借书
// @Summary      借书
// @Description  为当前读者借出一个副本,资格检查与副本扣减在同一事务内
// @Tags         借阅
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.BorrowRequest true "借书请求"
// @Success      200 {object} response.Response{data=dto.LoanResponse} "借出成功"
// @Failure      400 {object} response.Response "无可借副本/读者不符合借书条件"
// @Failure      401 {object} response.Response "未登录"
// @Failure      404 {object} response.Response "图书不存在"
// @Router       /api/v1/loans [post]
func (h *LoanHandler) Borrow(c *gin.Context) {
	var req dto.BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	result, err := h.borrowUseCase.Execute(c.Request.Context(), circulation.BorrowRequest{
		UserID: middleware.MustGetUserID(c),
		BookID: req.BookID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toLoanDTO(result))
}

// Renew 续借
// @Summary      续借
// @Description  到期日从原到期日顺延一个借期,逾期或达上限不可续借
// @Tags         借阅
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "借阅ID"
// @Success      200 {object} response.Response{data=dto.LoanResponse} "续借成功"
// @Failure      400 {object} response.Response "不可续借"
// @Failure      403 {object} response.Response "无权操作他人借阅"
// @Failure      404 {object} response.Response "借阅不存在"
// @Router       /api/v1/loans/{id}/renew [post]
func (h *LoanHandler) Renew(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.renewUseCase.Execute(c.Request.Context(), circulation.RenewRequest{
		LoanID:      id,
		UserID:      middleware.MustGetUserID(c),
		IsLibrarian: middleware.IsLibrarian(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toLoanDTO(result))
}

// Return 还书
// @Summary      还书
// @Description  归还副本并结算罚款,馆员可代读者柜台归还
// @Tags         借阅
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "借阅ID"
// @Success      200 {object} response.Response{data=dto.LoanResponse} "归还成功"
// @Failure      400 {object} response.Response "借阅已归还"
// @Failure      403 {object} response.Response "无权操作他人借阅"
// @Failure      404 {object} response.Response "借阅不存在"
// @Router       /api/v1/loans/{id}/return [post]
func (h *LoanHandler) Return(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.returnUseCase.Execute(c.Request.Context(), circulation.ReturnRequest{
		LoanID:      id,
		UserID:      middleware.MustGetUserID(c),
		IsLibrarian: middleware.IsLibrarian(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toLoanDTO(result))
}

// PayFine 缴纳罚款
// @Summary      缴纳罚款
// @Description  登记罚款结清,金额不足则拒绝,多缴按全额结清
// @Tags         借阅
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "借阅ID"
// @Param        request body dto.PayFineRequest true "缴费金额"
// @Success      200 {object} response.Response{data=dto.LoanResponse} "缴费成功"
// @Failure      400 {object} response.Response "金额不足/无罚款/已结清"
// @Failure      403 {object} response.Response "无权操作他人借阅"
// @Failure      404 {object} response.Response "借阅不存在"
// @Router       /api/v1/loans/{id}/fine/pay [post]
func (h *LoanHandler) PayFine(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req dto.PayFineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	result, err := h.payFineUseCase.Execute(c.Request.Context(), circulation.PayFineRequest{
		LoanID:      id,
		UserID:      middleware.MustGetUserID(c),
		IsLibrarian: middleware.IsLibrarian(c),
		AmountCents: req.AmountCents,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toLoanDTO(result))
}

// GetLoan 借阅详情
// @Summary      借阅详情
// @Tags         借阅
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "借阅ID"
// @Success      200 {object} response.Response{data=dto.LoanResponse}
// @Failure      403 {object} response.Response "无权查看他人借阅"
// @Failure      404 {object} response.Response "借阅不存在"
// @Router       /api/v1/loans/{id} [get]
func (h *LoanHandler) GetLoan(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.queryUseCase.GetLoan(c.Request.Context(), id,
		middleware.MustGetUserID(c), middleware.IsLibrarian(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toLoanDTO(result))
}

// ListMyLoans 我的借阅记录
// @Summary      我的借阅记录
// @Tags         借阅
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(20)
// @Param        status query string false "状态过滤" Enums(ACTIVE, OVERDUE, RETURNED, RETURNED_LATE)
// @Success      200 {object} response.Response
// @Router       /api/v1/loans/my [get]
func (h *LoanHandler) ListMyLoans(c *gin.Context) {
	var req dto.ListLoansRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	result, err := h.queryUseCase.ListMyLoans(c.Request.Context(), middleware.MustGetUserID(c),
		circulation.ListLoansRequest{
			Page:     req.Page,
			PageSize: req.PageSize,
			Status:   req.Status,
		})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPage(c, result.List, result.Total, result.Page, result.PageSize)
}

// ListLoans 借阅记录查询(馆员)
// @Summary      借阅记录查询
// @Description  馆员按状态查询全馆借阅,如全部逾期借阅
// @Tags         借阅
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(20)
// @Param        status query string false "状态过滤" Enums(ACTIVE, OVERDUE, RETURNED, RETURNED_LATE)
// @Success      200 {object} response.Response
// @Failure      403 {object} response.Response "需要馆员权限"
// @Router       /api/v1/admin/loans [get]
func (h *LoanHandler) ListLoans(c *gin.Context) {
	var req dto.ListLoansRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	result, err := h.queryUseCase.ListLoans(c.Request.Context(), circulation.ListLoansRequest{
		Page:     req.Page,
		PageSize: req.PageSize,
		Status:   req.Status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPage(c, result.List, result.Total, result.Page, result.PageSize)
}
