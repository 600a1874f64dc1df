package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	appbook "github.com/xiebiao/library/internal/application/book"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/pkg/response"
)

// BookHandler 图书HTTP处理器
// 查询接口公开,编目类操作(入馆、补副本、上下架、改信息)要求馆员权限,
// 权限由路由上的RequireLibrarian中间件保证
type BookHandler struct {
	registerBookUseCase *appbook.RegisterBookUseCase
	listBooksUseCase    *appbook.ListBooksUseCase
	getBookUseCase      *appbook.GetBookUseCase
	manageBookUseCase   *appbook.ManageBookUseCase
}

// NewBookHandler 创建图书处理器
func NewBookHandler(
	registerBookUseCase *appbook.RegisterBookUseCase,
	listBooksUseCase *appbook.ListBooksUseCase,
	getBookUseCase *appbook.GetBookUseCase,
	manageBookUseCase *appbook.ManageBookUseCase,
) *BookHandler {
	return &BookHandler{
		registerBookUseCase: registerBookUseCase,
		listBooksUseCase:    listBooksUseCase,
		getBookUseCase:      getBookUseCase,
		manageBookUseCase:   manageBookUseCase,
	}
}

// parseIDParam 解析路径中的:id参数
func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.ErrorWithCode(c, 40900, "参数错误: 无效的ID")
		return 0, false
	}
	return uint(id), true
}

// RegisterBook 图书入馆
// @Summary      图书入馆
// @Description  馆员登记新书,初始可借数等于馆藏总数
// @Tags         图书
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.RegisterBookRequest true "图书信息"
// @Success      200 {object} response.Response{data=dto.BookResponse}
// @Failure      400 {object} response.Response "参数错误"
// @Failure      401 {object} response.Response "未登录"
// @Failure      403 {object} response.Response "需要馆员权限"
// @Failure      409 {object} response.Response "ISBN已存在"
// @Router       /api/v1/books [post]
func (h *BookHandler) RegisterBook(c *gin.Context) {
	var req dto.RegisterBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	result, err := h.registerBookUseCase.Execute(c.Request.Context(), appbook.RegisterBookRequest{
		ISBN:        req.ISBN,
		Title:       req.Title,
		Author:      req.Author,
		Publisher:   req.Publisher,
		TotalCopies: req.TotalCopies,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toBookDTO(result))
}

// ListBooks 图书列表
// @Summary      图书列表
// @Description  分页查询馆藏,支持关键词搜索与排序
// @Tags         图书
// @Produce      json
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(20)
// @Param        keyword query string false "搜索关键词(书名/作者)"
// @Param        only_active query bool false "只看流通中的图书"
// @Param        sort_by query string false "排序方式" Enums(loan_count_desc, created_at_desc)
// @Success      200 {object} response.Response{data=dto.ListBooksResponse}
// @Router       /api/v1/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	var req dto.ListBooksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	result, err := h.listBooksUseCase.Execute(c.Request.Context(), appbook.ListBooksRequest{
		Page:       req.Page,
		PageSize:   req.PageSize,
		Keyword:    req.Keyword,
		OnlyActive: req.OnlyActive,
		SortBy:     req.SortBy,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	list := make([]dto.BookListItem, len(result.List))
	for i, b := range result.List {
		list[i] = dto.BookListItem{
			ID:              b.ID,
			ISBN:            b.ISBN,
			Title:           b.Title,
			Author:          b.Author,
			Publisher:       b.Publisher,
			TotalCopies:     b.TotalCopies,
			AvailableCopies: b.AvailableCopies,
			Active:          b.Active,
			LoanCount:       b.LoanCount,
			CreatedAt:       b.CreatedAt,
		}
	}

	response.Success(c, &dto.ListBooksResponse{
		List:  list,
		Total: result.Total,
		Page:  result.Page,
		Size:  result.PageSize,
	})
}

// GetBook 图书详情
// @Summary      图书详情
// @Tags         图书
// @Produce      json
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response{data=dto.BookResponse}
// @Failure      404 {object} response.Response "图书不存在"
// @Router       /api/v1/books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.getBookUseCase.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toBookDTO(result))
}

// GetAvailability 图书可借状态
// @Summary      图书可借状态
// @Description  高频查询,走Redis缓存,借还后主动失效
// @Tags         图书
// @Produce      json
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response{data=dto.AvailabilityResponse}
// @Failure      404 {object} response.Response "图书不存在"
// @Router       /api/v1/books/{id}/availability [get]
func (h *BookHandler) GetAvailability(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.getBookUseCase.GetAvailability(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, &dto.AvailabilityResponse{
		BookID:          result.BookID,
		TotalCopies:     result.TotalCopies,
		AvailableCopies: result.AvailableCopies,
		Loanable:        result.Loanable,
	})
}

// AddCopies 补充馆藏副本
// @Summary      补充馆藏副本
// @Tags         图书
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "图书ID"
// @Param        request body dto.AddCopiesRequest true "补充数量"
// @Success      200 {object} response.Response
// @Failure      403 {object} response.Response "需要馆员权限"
// @Failure      404 {object} response.Response "图书不存在"
// @Router       /api/v1/books/{id}/copies [post]
func (h *BookHandler) AddCopies(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req dto.AddCopiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	if err := h.manageBookUseCase.AddCopies(c.Request.Context(), id, req.Count); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "补充副本成功"})
}

// SetActive 图书上架/下架
// @Summary      图书上架/下架
// @Description  下架只阻止新借出,在借副本照常归还
// @Tags         图书
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "图书ID"
// @Param        request body dto.SetBookActiveRequest true "目标状态"
// @Success      200 {object} response.Response
// @Failure      403 {object} response.Response "需要馆员权限"
// @Failure      404 {object} response.Response "图书不存在"
// @Router       /api/v1/books/{id}/active [put]
func (h *BookHandler) SetActive(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req dto.SetBookActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	if err := h.manageBookUseCase.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "操作成功"})
}

// UpdateInfo 更新编目信息
// @Summary      更新编目信息
// @Tags         图书
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "图书ID"
// @Param        request body dto.UpdateBookRequest true "编目信息"
// @Success      200 {object} response.Response
// @Failure      403 {object} response.Response "需要馆员权限"
// @Failure      404 {object} response.Response "图书不存在"
// @Router       /api/v1/books/{id} [put]
func (h *BookHandler) UpdateInfo(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req dto.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	if err := h.manageBookUseCase.UpdateInfo(c.Request.Context(), id, appbook.UpdateInfoRequest{
		Title:       req.Title,
		Author:      req.Author,
		Publisher:   req.Publisher,
		Description: req.Description,
	}); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "更新成功"})
}

// toBookDTO 应用层DTO → HTTP层DTO
func toBookDTO(b *appbook.BookResponse) *dto.BookResponse {
	return &dto.BookResponse{
		ID:              b.ID,
		ISBN:            b.ISBN,
		Title:           b.Title,
		Author:          b.Author,
		Publisher:       b.Publisher,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		Active:          b.Active,
		LoanCount:       b.LoanCount,
		Description:     b.Description,
		CreatedAt:       b.CreatedAt,
	}
}
