package loan

// Status 借阅状态
// 教学要点:
// 1. 使用string类型存储(可读性优先,状态数量少,索引代价可接受)
// 2. RETURNED和RETURNED_LATE是终态,终态借阅不可再变更
// 3. "在借"(Outstanding)指ACTIVE或OVERDUE,即副本尚未归还
type Status string

const (
	StatusActive       Status = "ACTIVE"        // 在借,未到期
	StatusOverdue      Status = "OVERDUE"       // 在借,已逾期
	StatusReturned     Status = "RETURNED"      // 按期归还(终态)
	StatusReturnedLate Status = "RETURNED_LATE" // 逾期归还(终态)
)

// String 实现Stringer接口(方便日志输出)
func (s Status) String() string {
	return string(s)
}

// Label 中文标签(展示用)
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "在借"
	case StatusOverdue:
		return "已逾期"
	case StatusReturned:
		return "已归还"
	case StatusReturnedLate:
		return "逾期归还"
	default:
		return "未知状态"
	}
}

// IsTerminal 是否为终态
func (s Status) IsTerminal() bool {
	return s == StatusReturned || s == StatusReturnedLate
}

// IsOutstanding 是否在借(副本尚未归还,占用可借池)
func (s Status) IsOutstanding() bool {
	return s == StatusActive || s == StatusOverdue
}

// CanTransitionTo 检查是否可以转换到目标状态
// 状态机设计:防止非法状态跳转(如已归还的借阅再次归还)
func (s Status) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusActive:       {StatusOverdue, StatusReturned, StatusReturnedLate}, // 在借→逾期/按期还/逾期还
		StatusOverdue:      {StatusReturnedLate},                                // 逾期→逾期还(逾期不可能按期还)
		StatusReturned:     {},                                                  // 终态
		StatusReturnedLate: {},                                                  // 终态
	}

	allowed, exists := transitions[s]
	if !exists {
		return false
	}

	for _, target2 := range allowed {
		if target2 == target {
			return true
		}
	}
	return false
}
