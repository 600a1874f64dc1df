package dto

// RegisterBookRequest HTTP入馆请求
// validator tag说明:
// - required: 必填字段
// - min/max: 数值范围校验
type RegisterBookRequest struct {
	ISBN        string `json:"isbn" binding:"required" example:"9787115428028"`
	Title       string `json:"title" binding:"required,max=200" example:"Go语言实战"`
	Author      string `json:"author" binding:"required,max=100" example:"威廉·肯尼迪"`
	Publisher   string `json:"publisher" binding:"max=100" example:"人民邮电出版社"`
	TotalCopies int    `json:"total_copies" binding:"required,min=1,max=9999" example:"5"`
	Description string `json:"description" binding:"max=5000" example:"一本关于Go语言的实战书籍"`
}

// BookResponse HTTP图书响应
// 用于单本图书详情返回
type BookResponse struct {
	ID              uint   `json:"id" example:"1"`
	ISBN            string `json:"isbn" example:"9787115428028"`
	Title           string `json:"title" example:"Go语言实战"`
	Author          string `json:"author" example:"威廉·肯尼迪"`
	Publisher       string `json:"publisher" example:"人民邮电出版社"`
	TotalCopies     int    `json:"total_copies" example:"5"`
	AvailableCopies int    `json:"available_copies" example:"3"`
	Active          bool   `json:"active" example:"true"`
	LoanCount       int64  `json:"loan_count" example:"42"`
	Description     string `json:"description" example:"一本关于Go语言的实战书籍"`
	CreatedAt       string `json:"created_at" example:"2026-01-15 10:30:00"`
}

// BookListItem HTTP图书列表项
// 列表查询时不返回Description字段(减少数据传输量)
type BookListItem struct {
	ID              uint   `json:"id" example:"1"`
	ISBN            string `json:"isbn" example:"9787115428028"`
	Title           string `json:"title" example:"Go语言实战"`
	Author          string `json:"author" example:"威廉·肯尼迪"`
	Publisher       string `json:"publisher" example:"人民邮电出版社"`
	TotalCopies     int    `json:"total_copies" example:"5"`
	AvailableCopies int    `json:"available_copies" example:"3"`
	Active          bool   `json:"active" example:"true"`
	LoanCount       int64  `json:"loan_count" example:"42"`
	CreatedAt       string `json:"created_at" example:"2026-01-15 10:30:00"`
}

// ListBooksRequest HTTP图书列表请求
type ListBooksRequest struct {
	Page       int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
	Keyword    string `form:"keyword" binding:"omitempty,max=100" example:"Go"`
	OnlyActive bool   `form:"only_active" example:"true"`
	SortBy     string `form:"sort_by" binding:"omitempty,oneof=loan_count_desc created_at_desc" example:"loan_count_desc"`
}

// ListBooksResponse HTTP图书列表响应
type ListBooksResponse struct {
	List  []BookListItem `json:"list"`
	Total int64          `json:"total" example:"100"`
	Page  int            `json:"page" example:"1"`
	Size  int            `json:"size" example:"20"`
}

// AvailabilityResponse HTTP可借状态响应
type AvailabilityResponse struct {
	BookID          uint `json:"book_id" example:"1"`
	TotalCopies     int  `json:"total_copies" example:"5"`
	AvailableCopies int  `json:"available_copies" example:"3"`
	Loanable        bool `json:"loanable" example:"true"`
}

// AddCopiesRequest 补充馆藏副本请求(馆员操作)
type AddCopiesRequest struct {
	Count int `json:"count" binding:"required,min=1,max=9999" example:"3"`
}

// SetBookActiveRequest 上架/下架请求(馆员操作)
type SetBookActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// UpdateBookRequest 编目信息更新请求(馆员操作)
type UpdateBookRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Author      string `json:"author" binding:"required,max=100"`
	Publisher   string `json:"publisher" binding:"max=100"`
	Description string `json:"description" binding:"max=5000"`
}
