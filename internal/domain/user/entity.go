package user

import (
	"time"
)

// 角色常量
// USER是普通读者,LIBRARIAN可执行馆员操作(编目、代还、触发清扫),
// ADMIN额外拥有账户管理权限
const (
	RoleUser      = "USER"
	RoleLibrarian = "LIBRARIAN"
	RoleAdmin     = "ADMIN"
)

// User 用户实体(聚合根)
// DDD设计说明:
// 1. 流通域只把User当作只读的"读者"消费:借阅资格检查
//    只看ID、Active和在借数量,不关心认证细节
// 2. 密码已加密存储(bcrypt),不应该有GetPassword()等方法暴露明文
// 3. 领域实体不依赖GORM tag(infrastructure层的Repository实现时会处理映射)
type User struct {
	ID        uint
	Email     string
	Password  string // bcrypt哈希值
	Nickname  string
	Role      string // USER/LIBRARIAN/ADMIN
	Active    bool   // 账户是否启用(停用的读者不可借书)
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser 创建新用户(工厂方法)
// hashedPassword必须是bcrypt加密后的密码,新用户默认为启用的普通读者
func NewUser(email, hashedPassword, nickname string) *User {
	now := time.Now()
	return &User{
		Email:     email,
		Password:  hashedPassword,
		Nickname:  nickname,
		Role:      RoleUser,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsLibrarian 是否为馆员(含管理员)
func (u *User) IsLibrarian() bool {
	return u.Role == RoleLibrarian || u.Role == RoleAdmin
}

// UpdateNickname 更新昵称(领域行为)
func (u *User) UpdateNickname(nickname string) {
	u.Nickname = nickname
	u.UpdatedAt = time.Now()
}

// Deactivate 停用账户(停用后不可登录、不可借书,在借记录不受影响)
func (u *User) Deactivate() {
	u.Active = false
	u.UpdatedAt = time.Now()
}

// Activate 启用账户
func (u *User) Activate() {
	u.Active = true
	u.UpdatedAt = time.Now()
}
