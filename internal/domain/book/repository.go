package book

import (
	"context"
)

// Repository 图书仓储接口(依赖倒置原则)
// 设计说明:
// 1. 由domain层定义接口,infrastructure层实现
// 2. 便于Mock测试,不依赖具体数据库实现
// 3. ReserveCopy/ReleaseCopy是可借副本计数的唯一合法变更入口,
//    必须实现为原子条件更新(而非读-改-写),保证并发借书不超借
type Repository interface {
	// Create 创建图书
	Create(ctx context.Context, book *Book) error

	// FindByID 根据ID查找图书
	FindByID(ctx context.Context, id uint) (*Book, error)

	// FindByISBN 根据ISBN查找图书
	FindByISBN(ctx context.Context, isbn string) (*Book, error)

	// Update 更新图书信息(不含副本计数,计数走下面的原子操作)
	Update(ctx context.Context, book *Book) error

	// Delete 删除图书(软删除)
	Delete(ctx context.Context, id uint) error

	// List 分页查询图书列表
	List(ctx context.Context, params ListParams) ([]*Book, int64, error)

	// LockByID 悲观锁查询图书(SELECT FOR UPDATE)
	// 用于需要"读计数+改计数"在同一把锁下完成的场景
	LockByID(ctx context.Context, id uint) (*Book, error)

	// ReserveCopy 原子预占一个副本(借出)
	// 实现为条件更新: UPDATE ... SET available = available - 1
	// WHERE id = ? AND available > 0 AND active = true
	// 检查RowsAffected: 0行时区分图书不存在/已下架/无可借副本,
	// 分别返回ErrBookNotFound/ErrBookInactive/ErrOutOfStock
	// 并发语义:同一本书只剩1个副本时,两个并发借出只有一个成功
	ReserveCopy(ctx context.Context, id uint) error

	// ReleaseCopy 原子释放一个副本(归还)
	// 实现为条件更新: UPDATE ... SET available = available + 1
	// WHERE id = ? AND available < total
	// RowsAffected=0且图书存在时说明可借数将超过馆藏总数,
	// 返回ErrConsistencyViolation(致命一致性错误,绝不夹到上界了事)
	ReleaseCopy(ctx context.Context, id uint) error

	// IncrLoanCount 历史借出次数+1(热门度统计,借出成功后调用)
	IncrLoanCount(ctx context.Context, id uint) error
}

// ListParams 列表查询参数
type ListParams struct {
	Page       int    // 页码(从1开始)
	PageSize   int    // 每页数量
	Keyword    string // 搜索关键词(搜索标题、作者、出版社)
	OnlyActive bool   // 只看流通中的图书
	SortBy     string // 排序字段(loan_count_desc, created_at_desc)
}
