package book

import (
	"context"

	"github.com/xiebiao/library/internal/domain/book"
)

// RegisterBookUseCase 图书入馆用例(编目)
// 设计说明:
// 1. 应用层负责用例编排,协调领域服务完成业务流程
// 2. 输入输出使用DTO(Data Transfer Object),与HTTP层解耦
// 3. 此用例比较简单,只需调用领域服务即可
type RegisterBookUseCase struct {
	bookService book.Service
}

// NewRegisterBookUseCase 创建入馆用例
func NewRegisterBookUseCase(bookService book.Service) *RegisterBookUseCase {
	return &RegisterBookUseCase{
		bookService: bookService,
	}
}

// RegisterBookRequest 入馆请求DTO
type RegisterBookRequest struct {
	ISBN        string // ISBN号
	Title       string // 书名
	Author      string // 作者
	Publisher   string // 出版社
	TotalCopies int    // 入馆副本数
	Description string // 图书描述
}

// BookResponse 图书响应DTO
type BookResponse struct {
	ID              uint   `json:"id"`
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Publisher       string `json:"publisher"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
	Active          bool   `json:"active"`
	LoanCount       int64  `json:"loan_count"`
	Description     string `json:"description"`
	CreatedAt       string `json:"created_at"`
}

func toBookResponse(b *book.Book) *BookResponse {
	return &BookResponse{
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
		CreatedAt:       b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// Execute 执行入馆用例
// 说明:
// 1. 应用层不直接操作Repository,通过领域服务间接操作
// 2. 业务规则校验由领域服务负责(ISBN格式、副本数、重复检查)
// 3. 应用层只负责流程编排
func (uc *RegisterBookUseCase) Execute(ctx context.Context, req RegisterBookRequest) (*BookResponse, error) {
	b, err := uc.bookService.RegisterBook(
		ctx,
		req.ISBN,
		req.Title,
		req.Author,
		req.Publisher,
		req.TotalCopies,
		req.Description,
	)
	if err != nil {
		return nil, err
	}

	return toBookResponse(b), nil
}

// ManageBookUseCase 馆藏管理用例(馆员操作)
// 补充副本、上下架、更新编目信息
type ManageBookUseCase struct {
	bookService book.Service
}

// NewManageBookUseCase 创建馆藏管理用例
func NewManageBookUseCase(bookService book.Service) *ManageBookUseCase {
	return &ManageBookUseCase{bookService: bookService}
}

// AddCopies 补充馆藏副本
func (uc *ManageBookUseCase) AddCopies(ctx context.Context, bookID uint, n int) error {
	return uc.bookService.AddCopies(ctx, bookID, n)
}

// SetActive 上架/下架
// 下架只阻止新借出,在借副本照常归还
func (uc *ManageBookUseCase) SetActive(ctx context.Context, bookID uint, active bool) error {
	return uc.bookService.SetActive(ctx, bookID, active)
}

// UpdateInfoRequest 编目信息更新请求DTO
type UpdateInfoRequest struct {
	Title       string
	Author      string
	Publisher   string
	Description string
}

// UpdateInfo 更新编目信息
func (uc *ManageBookUseCase) UpdateInfo(ctx context.Context, bookID uint, req UpdateInfoRequest) error {
	return uc.bookService.UpdateBookInfo(ctx, bookID, req.Title, req.Author, req.Publisher, req.Description)
}
