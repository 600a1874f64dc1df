package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// ErrCacheMiss 缓存未命中(调用方应回源数据库)
var ErrCacheMiss = apperrors.New(apperrors.ErrCodeRedisError, "缓存未命中")

// AvailabilitySnapshot 图书可借状态快照
// 展示用的旁路缓存数据,不是权威数据:
// 借阅事务永远以MySQL里的原子计数为准,缓存只服务高频的详情页查询
type AvailabilitySnapshot struct {
	BookID          uint      `json:"book_id"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	Active          bool      `json:"active"`
	CachedAt        time.Time `json:"cached_at"`
}

// AvailabilityCache 图书可借状态缓存(Cache-Aside)
// Key设计: book:availability:{book_id},短TTL兜底,
// 借出/归还成功后由用例层主动失效
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAvailabilityCache 创建可借状态缓存
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{
		client: client,
		ttl:    5 * time.Minute,
	}
}

func (c *AvailabilityCache) key(bookID uint) string {
	return fmt.Sprintf("book:availability:%d", bookID)
}

// Get 读取快照,未命中返回ErrCacheMiss
func (c *AvailabilityCache) Get(ctx context.Context, bookID uint) (*AvailabilitySnapshot, error) {
	raw, err := c.client.Get(ctx, c.key(bookID)).Result()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "读取可借状态缓存失败")
	}

	var snap AvailabilitySnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, apperrors.Wrap(err, "解析可借状态缓存失败")
	}
	return &snap, nil
}

// Set 写入快照
func (c *AvailabilityCache) Set(ctx context.Context, snap *AvailabilitySnapshot) error {
	snap.CachedAt = time.Now()
	raw, err := json.Marshal(snap)
	if err != nil {
		return apperrors.Wrap(err, "序列化可借状态失败")
	}

	if err := c.client.Set(ctx, c.key(snap.BookID), raw, c.ttl).Err(); err != nil {
		return apperrors.Wrap(err, "写入可借状态缓存失败")
	}
	return nil
}

// Invalidate 失效快照(借出/归还成功后调用)
// 失效失败只影响缓存新鲜度(有TTL兜底),不应让借阅事务失败,
// 调用方可以只记日志
func (c *AvailabilityCache) Invalidate(ctx context.Context, bookID uint) error {
	if err := c.client.Del(ctx, c.key(bookID)).Err(); err != nil {
		return apperrors.Wrap(err, "失效可借状态缓存失败")
	}
	return nil
}
