package book

import (
	"time"
)

// Book 图书实体(聚合根)
// DDD设计说明:
// 1. Book是馆藏聚合的根实体,副本不做逐本追踪,只维护计数
//    (TotalCopies馆藏总数、AvailableCopies可借数)
// 2. 不变量: 0 <= AvailableCopies <= TotalCopies,且
//    TotalCopies - AvailableCopies = 该书当前在借(ACTIVE/OVERDUE)的借阅数
// 3. AvailableCopies只允许通过Repository的原子操作
//    (ReserveCopy/ReleaseCopy)随借阅状态转换一起变更,实体方法不直接改它
// 4. ISBN作为业务唯一标识(数据库层保证唯一性)
type Book struct {
	ID              uint
	ISBN            string // ISBN号(国际标准书号)
	Title           string // 书名
	Author          string // 作者
	Publisher       string // 出版社
	TotalCopies     int    // 馆藏总副本数
	AvailableCopies int    // 当前可借副本数
	Active          bool   // 是否可流通(下架图书不可借出)
	LoanCount       int64  // 历史借出总次数(热门度统计)
	Description     string // 图书描述
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewBook 创建新图书(工厂方法)
// 新书入馆时全部副本可借: AvailableCopies = TotalCopies
func NewBook(isbn, title, author, publisher string, totalCopies int, description string) *Book {
	now := time.Now()
	return &Book{
		ISBN:            isbn,
		Title:           title,
		Author:          author,
		Publisher:       publisher,
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
		Active:          true,
		Description:     description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// OutstandingCopies 当前在借副本数(派生值)
func (b *Book) OutstandingCopies() int {
	return b.TotalCopies - b.AvailableCopies
}

// HasAvailableCopy 是否还有可借副本
func (b *Book) HasAvailableCopy() bool {
	return b.AvailableCopies > 0
}

// IsLoanable 是否可借出(在流通中且有可借副本)
func (b *Book) IsLoanable() bool {
	return b.Active && b.HasAvailableCopy()
}

// CheckConsistency 校验副本计数不变量
// 违反时返回ErrConsistencyViolation,调用方必须中止事务,绝不静默修正
func (b *Book) CheckConsistency() error {
	if b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
		return ErrConsistencyViolation
	}
	return nil
}

// AddCopies 补充馆藏副本(新购入库)
// 业务规则:数量必须>0,新增副本直接进入可借池
func (b *Book) AddCopies(n int) error {
	if n <= 0 {
		return ErrInvalidCopies
	}
	b.TotalCopies += n
	b.AvailableCopies += n
	b.UpdatedAt = time.Now()
	return nil
}

// RemoveCopies 削减馆藏副本(报损、剔旧)
// 业务规则:只能削减当前可借的副本,在借副本必须先归还
func (b *Book) RemoveCopies(n int) error {
	if n <= 0 {
		return ErrInvalidCopies
	}
	if n > b.AvailableCopies {
		return ErrCopiesInUse
	}
	b.TotalCopies -= n
	b.AvailableCopies -= n
	b.UpdatedAt = time.Now()
	return nil
}

// Deactivate 下架(停止流通)
// 下架不影响已借出的副本,只阻止新的借出
func (b *Book) Deactivate() {
	b.Active = false
	b.UpdatedAt = time.Now()
}

// Activate 重新上架
func (b *Book) Activate() {
	b.Active = true
	b.UpdatedAt = time.Now()
}

// UpdateInfo 更新图书基本信息
func (b *Book) UpdateInfo(title, author, publisher, description string) {
	if title != "" {
		b.Title = title
	}
	if author != "" {
		b.Author = author
	}
	if publisher != "" {
		b.Publisher = publisher
	}
	if description != "" {
		b.Description = description
	}
	b.UpdatedAt = time.Now()
}
