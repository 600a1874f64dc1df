package integration

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 借阅模块集成测试
//
// 说明:
// 图书入馆需要馆员权限,馆员账号由部署脚本预置,普通测试环境
// 不一定存在;这里覆盖读者侧可独立验证的流程:
// 1. 未登录访问借阅接口被拒
// 2. 借不存在的图书返回404业务码
// 3. 图书列表/可借状态公开可查
// 4. 我的借阅列表分页

func TestLoanEndpoints(t *testing.T) {
	RequireServer(t)

	_, token := RegisterTestReader(t, "loan_reader")

	t.Run("未登录不能借书", func(t *testing.T) {
		resp := PostJSON(t, BaseURL+"/loans", map[string]uint{"book_id": 1}, "")
		assert.NotEqual(t, 0, resp.Code, "未登录应该被拒绝")
	})

	t.Run("借不存在的图书", func(t *testing.T) {
		resp := PostJSON(t, BaseURL+"/loans", map[string]uint{"book_id": 99999999}, token)
		assert.Equal(t, 40402, resp.Code, "应返回图书不存在的业务码")
	})

	t.Run("我的借阅列表为空", func(t *testing.T) {
		resp := GetJSON(t, BaseURL+"/loans/my?page=1&page_size=10", token)
		require.Equal(t, 0, resp.Code, "查询我的借阅失败: %s", resp.Message)

		var page struct {
			Total int64 `json:"total"`
		}
		err := json.Unmarshal(resp.Data, &page)
		require.NoError(t, err, "解析分页响应失败")
		assert.Zero(t, page.Total, "新读者不应有借阅记录")
	})

	t.Run("普通读者无馆员权限", func(t *testing.T) {
		resp := GetJSON(t, BaseURL+"/admin/loans", token)
		assert.NotEqual(t, 0, resp.Code, "普通读者访问馆员接口应被拒绝")

		resp = PostJSON(t, BaseURL+"/admin/sweep", nil, token)
		assert.NotEqual(t, 0, resp.Code, "普通读者不能触发逾期清扫")
	})
}

func TestBookPublicEndpoints(t *testing.T) {
	RequireServer(t)

	t.Run("图书列表公开可查", func(t *testing.T) {
		resp := GetJSON(t, BaseURL+"/books?page=1&page_size=5", "")
		assert.Equal(t, 0, resp.Code, "图书列表查询失败: %s", resp.Message)
	})

	t.Run("不存在图书的可借状态", func(t *testing.T) {
		resp := GetJSON(t, fmt.Sprintf("%s/books/%d/availability", BaseURL, 99999999), "")
		assert.Equal(t, 40402, resp.Code, "应返回图书不存在的业务码")
	})

	t.Run("未登录不能入馆图书", func(t *testing.T) {
		bookReq := map[string]interface{}{
			"isbn":         "9787115428028",
			"title":        "Go语言实战",
			"author":       "威廉·肯尼迪",
			"total_copies": 3,
		}
		resp := PostJSON(t, BaseURL+"/books", bookReq, "")
		assert.NotEqual(t, 0, resp.Code, "未登录入馆应被拒绝")
	})
}
