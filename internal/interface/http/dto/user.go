package dto

// RegisterRequest HTTP层注册请求
// 说明：HTTP层的DTO，包含参数验证tag
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email" example:"reader@lib.cn"`
	Password string `json:"password" binding:"required,min=8,max=20" example:"passw0rd"`
	Nickname string `json:"nickname" binding:"required,min=2,max=50" example:"爱读书的人"`
}

// UserResponse 用户响应（不包含密码）
type UserResponse struct {
	ID       uint   `json:"id" example:"1"`
	Email    string `json:"email" example:"reader@lib.cn"`
	Nickname string `json:"nickname" example:"爱读书的人"`
	Role     string `json:"role" example:"USER"`
}

// LoginRequest HTTP层登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"reader@lib.cn"`
	Password string `json:"password" binding:"required" example:"passw0rd"`
}

// LoginResponse HTTP层登录响应
type LoginResponse struct {
	User         UserInfo `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in" example:"7200"` // Access Token过期时间（秒）
}

// UserInfo 用户信息
type UserInfo struct {
	ID       uint   `json:"id" example:"1"`
	Email    string `json:"email" example:"reader@lib.cn"`
	Nickname string `json:"nickname" example:"爱读书的人"`
	Role     string `json:"role" example:"USER"`
}

// SetUserActiveRequest 启用/停用读者账户请求(馆员操作)
type SetUserActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}
