package book

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
)

// GetBookUseCase 图书详情与可借状态查询用例
// 设计说明:
// 1. 详情查询直接走MySQL(编目信息变更少,无需缓存)
// 2. 可借状态走Cache-Aside:查询热点书的可借数是高频读,
//    缓存未命中时回源MySQL并回填;借出/归还后由流通用例主动失效
// 3. MySQL是权威数据源,缓存只是加速,短TTL兜底不一致
type GetBookUseCase struct {
	bookService book.Service
	cache       *redis.AvailabilityCache
}

// NewGetBookUseCase 创建详情查询用例
// cache可为nil(如Redis未部署),此时每次回源MySQL
func NewGetBookUseCase(bookService book.Service, cache *redis.AvailabilityCache) *GetBookUseCase {
	return &GetBookUseCase{
		bookService: bookService,
		cache:       cache,
	}
}

// Execute 查询图书详情
func (uc *GetBookUseCase) Execute(ctx context.Context, bookID uint) (*BookResponse, error) {
	b, err := uc.bookService.GetBookByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return toBookResponse(b), nil
}

// AvailabilityResponse 可借状态响应DTO
type AvailabilityResponse struct {
	BookID          uint `json:"book_id"`
	TotalCopies     int  `json:"total_copies"`
	AvailableCopies int  `json:"available_copies"`
	Loanable        bool `json:"loanable"` // 流通中且有可借副本
	FromCache       bool `json:"-"`
}

// GetAvailability 查询可借状态(Cache-Aside)
func (uc *GetBookUseCase) GetAvailability(ctx context.Context, bookID uint) (*AvailabilityResponse, error) {
	// 1. 先查缓存
	if uc.cache != nil {
		snap, err := uc.cache.Get(ctx, bookID)
		if err == nil {
			return &AvailabilityResponse{
				BookID:          snap.BookID,
				TotalCopies:     snap.TotalCopies,
				AvailableCopies: snap.AvailableCopies,
				Loanable:        snap.Active && snap.AvailableCopies > 0,
				FromCache:       true,
			}, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			// Redis故障降级为直接回源,不影响查询
			log.Printf("查询可借状态缓存失败: book_id=%d err=%v", bookID, err)
		}
	}

	// 2. 回源MySQL
	b, err := uc.bookService.GetBookByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	// 3. 回填缓存(失败只记日志)
	if uc.cache != nil {
		snap := &redis.AvailabilitySnapshot{
			BookID:          b.ID,
			TotalCopies:     b.TotalCopies,
			AvailableCopies: b.AvailableCopies,
			Active:          b.Active,
			CachedAt:        time.Now(),
		}
		if err := uc.cache.Set(ctx, snap); err != nil {
			log.Printf("回填可借状态缓存失败: book_id=%d err=%v", bookID, err)
		}
	}

	return &AvailabilityResponse{
		BookID:          b.ID,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		Loanable:        b.IsLoanable(),
	}, nil
}
