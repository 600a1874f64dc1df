package book

import (
	"context"
	"regexp"
)

// Service 图书领域服务接口
// 设计说明:
// 1. 领域服务封装跨实体的业务规则校验(ISBN格式、唯一性)
// 2. 不依赖具体的Repository实现(依赖倒置)
// 3. 副本计数的借还变更不在这里:那是流通用例配合
//    Repository原子操作的职责,Service只管编目类操作
type Service interface {
	// RegisterBook 图书入馆(编目)
	// 业务规则:
	// - ISBN格式必须合法(10位或13位数字)
	// - 初始副本数必须>0
	// - ISBN不能重复
	RegisterBook(ctx context.Context, isbn, title, author, publisher string, totalCopies int, description string) (*Book, error)

	// GetBookByID 根据ID获取图书详情
	GetBookByID(ctx context.Context, id uint) (*Book, error)

	// GetBookByISBN 根据ISBN获取图书
	GetBookByISBN(ctx context.Context, isbn string) (*Book, error)

	// UpdateBookInfo 更新图书基本信息
	UpdateBookInfo(ctx context.Context, id uint, title, author, publisher, description string) error

	// AddCopies 补充馆藏副本
	AddCopies(ctx context.Context, id uint, n int) error

	// SetActive 上架/下架
	// 下架只阻止新借出,不影响在借副本的归还
	SetActive(ctx context.Context, id uint, active bool) error

	// ListBooks 分页查询图书列表
	ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error)
}

// service 领域服务实现
type service struct {
	repo Repository
}

// NewService 创建图书领域服务
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// RegisterBook 图书入馆
func (s *service) RegisterBook(ctx context.Context, isbn, title, author, publisher string, totalCopies int, description string) (*Book, error) {
	// 1. ISBN格式校验
	if !isValidISBN(isbn) {
		return nil, ErrInvalidISBN
	}

	// 2. 副本数校验
	if totalCopies <= 0 {
		return nil, ErrInvalidCopies
	}

	// 3. ISBN唯一性检查(数据库UNIQUE索引兜底)
	existing, err := s.repo.FindByISBN(ctx, isbn)
	if err == nil && existing != nil {
		return nil, ErrISBNDuplicate
	}
	if err != nil && err != ErrBookNotFound {
		return nil, err
	}

	// 4. 创建并持久化
	b := NewBook(isbn, title, author, publisher, totalCopies, description)
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

// GetBookByID 根据ID获取图书
func (s *service) GetBookByID(ctx context.Context, id uint) (*Book, error) {
	return s.repo.FindByID(ctx, id)
}

// GetBookByISBN 根据ISBN获取图书
func (s *service) GetBookByISBN(ctx context.Context, isbn string) (*Book, error) {
	if !isValidISBN(isbn) {
		return nil, ErrInvalidISBN
	}
	return s.repo.FindByISBN(ctx, isbn)
}

// UpdateBookInfo 更新图书基本信息
func (s *service) UpdateBookInfo(ctx context.Context, id uint, title, author, publisher, description string) error {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	b.UpdateInfo(title, author, publisher, description)
	return s.repo.Update(ctx, b)
}

// AddCopies 补充馆藏副本
func (s *service) AddCopies(ctx context.Context, id uint, n int) error {
	// 悲观锁读取,副本计数的读-改-写必须在同一把锁下
	b, err := s.repo.LockByID(ctx, id)
	if err != nil {
		return err
	}

	if err := b.AddCopies(n); err != nil {
		return err
	}
	if err := b.CheckConsistency(); err != nil {
		return err
	}

	return s.repo.Update(ctx, b)
}

// SetActive 上架/下架
func (s *service) SetActive(ctx context.Context, id uint, active bool) error {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if active {
		b.Activate()
	} else {
		b.Deactivate()
	}
	return s.repo.Update(ctx, b)
}

// ListBooks 分页查询图书列表
func (s *service) ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error) {
	return s.repo.List(ctx, params)
}

// =========================================
// 辅助函数:业务规则校验
// =========================================

// isValidISBN 校验ISBN格式
// 支持ISBN-10和ISBN-13,允许分隔符(978-7-115-42802-8)
// 简化实现:只检查位数(生产环境应校验校验位)
func isValidISBN(isbn string) bool {
	re := regexp.MustCompile(`[^0-9Xx]`)
	clean := re.ReplaceAllString(isbn, "")

	length := len(clean)
	return length == 10 || length == 13
}
