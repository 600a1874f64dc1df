package integration

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 用户模块集成测试
//
// 集成测试 vs 单元测试：
// - 单元测试：Mock外部依赖（数据库、Redis），测试单个函数的逻辑
// - 集成测试：使用真实的数据库和Redis，测试完整的API流程
//
// 测试场景覆盖：
// 1. 正常注册（默认USER角色）
// 2. 重复邮箱注册（应失败）
// 3. 密码强度校验
// 4. 登录/登出与Token黑名单

func TestUserRegister(t *testing.T) {
	RequireServer(t)

	t.Run("正常注册", func(t *testing.T) {
		email := GenerateTestEmail("normal_reader")
		registerReq := map[string]string{
			"email":    email,
			"password": "Test1234",
			"nickname": "测试读者",
		}

		resp := PostJSON(t, BaseURL+"/users/register", registerReq, "")
		assert.Equal(t, 0, resp.Code, "注册应该成功")

		var data RegisterData
		err := json.Unmarshal(resp.Data, &data)
		require.NoError(t, err, "解析响应数据失败")

		assert.NotZero(t, data.ID, "用户ID应该大于0")
		assert.Equal(t, email, data.Email, "返回的邮箱应该与请求一致")
		assert.Equal(t, "USER", data.Role, "新注册账号应为普通读者角色")
	})

	t.Run("重复邮箱注册应失败", func(t *testing.T) {
		email := GenerateTestEmail("duplicate_reader")
		registerReq := map[string]string{
			"email":    email,
			"password": "Test1234",
			"nickname": "测试读者",
		}

		resp := PostJSON(t, BaseURL+"/users/register", registerReq, "")
		require.Equal(t, 0, resp.Code, "第一次注册应该成功")

		resp = PostJSON(t, BaseURL+"/users/register", registerReq, "")
		assert.NotEqual(t, 0, resp.Code, "重复邮箱注册应该失败")
	})

	t.Run("弱密码应失败", func(t *testing.T) {
		registerReq := map[string]string{
			"email":    GenerateTestEmail("weak_pass"),
			"password": "12345678", // 纯数字
			"nickname": "测试读者",
		}

		resp := PostJSON(t, BaseURL+"/users/register", registerReq, "")
		assert.NotEqual(t, 0, resp.Code, "纯数字密码应该被拒绝")
	})
}

func TestUserLoginLogout(t *testing.T) {
	RequireServer(t)

	email, token := RegisterTestReader(t, "login_reader")

	t.Run("登录后可访问个人信息", func(t *testing.T) {
		resp := GetJSON(t, BaseURL+"/profile", token)
		assert.Equal(t, 0, resp.Code, "登录态应可访问个人信息")
	})

	t.Run("错误密码登录失败", func(t *testing.T) {
		loginReq := map[string]string{
			"email":    email,
			"password": "WrongPass1",
		}
		resp := PostJSON(t, BaseURL+"/users/login", loginReq, "")
		assert.NotEqual(t, 0, resp.Code, "错误密码应该登录失败")
	})

	t.Run("登出后Token进入黑名单", func(t *testing.T) {
		resp := PostJSON(t, BaseURL+"/users/logout", nil, token)
		assert.Equal(t, 0, resp.Code, "登出应该成功")

		resp = GetJSON(t, BaseURL+"/profile", token)
		assert.NotEqual(t, 0, resp.Code, "登出后的Token应该被拒绝")
	})
}
