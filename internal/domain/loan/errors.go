package loan

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 借阅领域错误定义
var (
	// ErrLoanNotFound 借阅记录不存在
	ErrLoanNotFound = apperrors.ErrLoanNotFound

	// ErrBorrowerIneligible 读者不符合借阅条件(停用、达到借阅上限、有未结罚款)
	ErrBorrowerIneligible = apperrors.New(apperrors.ErrCodeBorrowerIneligible, "读者不符合借阅条件")

	// ErrBorrowerInactive 读者账户已停用
	ErrBorrowerInactive = apperrors.New(apperrors.ErrCodeBorrowerIneligible, "读者账户已停用")

	// ErrLoanCapExceeded 在借数量已达上限
	ErrLoanCapExceeded = apperrors.New(apperrors.ErrCodeBorrowerIneligible, "在借数量已达上限")

	// ErrUnpaidFines 有未结清的罚款
	ErrUnpaidFines = apperrors.New(apperrors.ErrCodeBorrowerIneligible, "存在未结清的罚款,请先缴纳")

	// ErrAlreadyBorrowed 同一本书不可重复借阅
	ErrAlreadyBorrowed = apperrors.New(apperrors.ErrCodeBorrowerIneligible, "您已借阅此书且尚未归还")

	// ErrRenewalLimitExceeded 续借次数已达上限
	ErrRenewalLimitExceeded = apperrors.New(apperrors.ErrCodeRenewalLimit, "续借次数已达上限")

	// ErrLoanNotRenewable 当前状态不可续借(已逾期)
	ErrLoanNotRenewable = apperrors.New(apperrors.ErrCodeLoanNotRenewable, "借阅已逾期,不可续借")

	// ErrInvalidTransition 终态借阅不可再变更
	// 说明:重复归还请求或数据完整性问题都会落到这里,
	// 必须报给调用方,绝不静默忽略
	ErrInvalidTransition = apperrors.New(apperrors.ErrCodeInvalidTransition, "借阅已归还,不可再操作")

	// ErrAmountMismatch 缴费金额不足
	ErrAmountMismatch = apperrors.New(apperrors.ErrCodeAmountMismatch, "缴费金额低于应缴罚款")

	// ErrNoFineDue 无罚款可缴
	ErrNoFineDue = apperrors.New(apperrors.ErrCodeBusinessError, "该借阅没有待缴罚款")

	// ErrFineAlreadyPaid 罚款已结清
	ErrFineAlreadyPaid = apperrors.New(apperrors.ErrCodeBusinessError, "罚款已结清,无需重复缴纳")
)
