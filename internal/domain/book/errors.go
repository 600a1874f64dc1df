package book

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 图书领域错误定义
var (
	// ErrBookNotFound 图书不存在
	ErrBookNotFound = apperrors.ErrBookNotFound

	// ErrISBNDuplicate ISBN已存在
	ErrISBNDuplicate = apperrors.ErrISBNDuplicate

	// ErrInvalidISBN ISBN格式不正确
	ErrInvalidISBN = apperrors.New(apperrors.ErrCodeInvalidParams, "ISBN格式不正确")

	// ErrInvalidCopies 无效的副本数量
	ErrInvalidCopies = apperrors.New(apperrors.ErrCodeInvalidParams, "副本数量必须大于0")

	// ErrCopiesInUse 副本在借中,不可削减
	ErrCopiesInUse = apperrors.New(apperrors.ErrCodeBusinessError, "存在在借副本,不可削减馆藏")

	// ErrOutOfStock 无可借副本
	ErrOutOfStock = apperrors.New(apperrors.ErrCodeOutOfStock, "暂无可借副本")

	// ErrBookInactive 图书已下架
	ErrBookInactive = apperrors.New(apperrors.ErrCodeBusinessError, "图书已下架,不可借出")

	// ErrConsistencyViolation 副本计数不变量被破坏
	// 说明:这是内部一致性错误而非业务拒绝,表示可借数将越过
	// [0, TotalCopies]边界。遇到它必须中止事务并大声报错,绝不静默修正
	ErrConsistencyViolation = apperrors.New(apperrors.ErrCodeConsistency, "副本计数异常,操作已中止")
)
