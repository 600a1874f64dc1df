package dto

// BorrowRequest HTTP借书请求
type BorrowRequest struct {
	BookID uint `json:"book_id" binding:"required" example:"1"`
}

// LoanResponse HTTP借阅响应
type LoanResponse struct {
	ID             uint   `json:"id" example:"1"`
	BookID         uint   `json:"book_id" example:"1"`
	UserID         uint   `json:"user_id" example:"1"`
	LoanDate       string `json:"loan_date" example:"2026-03-01"`
	DueDate        string `json:"due_date" example:"2026-03-15"`
	ReturnedAt     string `json:"returned_at,omitempty" example:"2026-03-10 14:30:00"`
	Status         string `json:"status" example:"ACTIVE"`
	StatusLabel    string `json:"status_label" example:"在借"`
	Renewals       int    `json:"renewals" example:"0"`
	FineAmount     int64  `json:"fine_amount" example:"0"`       // 罚款(分)
	FineAmountYuan string `json:"fine_amount_yuan" example:"0.00"` // 罚款(元),方便前端显示
	FinePaid       bool   `json:"fine_paid" example:"false"`
	CreatedAt      string `json:"created_at" example:"2026-03-01 10:00:00"`
}

// PayFineRequest HTTP缴纳罚款请求
type PayFineRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required,min=1" example:"250"` // 缴费金额(分)
}

// ListLoansRequest HTTP借阅列表请求
type ListLoansRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
	Status   string `form:"status" binding:"omitempty,oneof=ACTIVE OVERDUE RETURNED RETURNED_LATE" example:"OVERDUE"`
}

// SweepResponse HTTP逾期清扫结果响应
type SweepResponse struct {
	Scanned      int   `json:"scanned" example:"12"`
	Transitioned int   `json:"transitioned" example:"10"`
	Skipped      int   `json:"skipped" example:"1"`
	Failed       int   `json:"failed" example:"1"`
	AccruedCents int64 `json:"accrued_cents" example:"1500"`
}
