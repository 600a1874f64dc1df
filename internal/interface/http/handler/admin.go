package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/library/internal/application/circulation"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/pkg/clock"
	"github.com/xiebiao/library/pkg/response"
)

// AdminHandler 馆员运维HTTP处理器
// 逾期清扫平时由后台定时任务执行,这里暴露手动触发入口:
// 定时任务停摆后补扫、或运维排查时按需执行
type AdminHandler struct {
	sweeper     *circulation.OverdueSweeper
	userService user.Service
	clk         clock.Clock
}

// NewAdminHandler 创建馆员运维处理器
func NewAdminHandler(sweeper *circulation.OverdueSweeper, userService user.Service, clk clock.Clock) *AdminHandler {
	return &AdminHandler{
		sweeper:     sweeper,
		userService: userService,
		clk:         clk,
	}
}

// TriggerSweep 手动触发逾期清扫
// @Summary      手动触发逾期清扫
// @Description  立即执行一轮逾期扫描,幂等,可重复触发
// @Tags         运维
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=dto.SweepResponse}
// @Failure      403 {object} response.Response "需要馆员权限"
// @Router       /api/v1/admin/sweep [post]
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	result, err := h.sweeper.RunOnce(c.Request.Context(), h.clk.Now())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, &dto.SweepResponse{
		Scanned:      result.Scanned,
		Transitioned: result.Transitioned,
		Skipped:      result.Skipped,
		Failed:       result.Failed,
		AccruedCents: result.AccruedCents,
	})
}

// SetUserActive 启用/停用读者账户
// @Summary      启用/停用读者账户
// @Description  停用后不能再借书,在借图书仍可归还
// @Tags         运维
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "用户ID"
// @Param        request body dto.SetUserActiveRequest true "目标状态"
// @Success      200 {object} response.Response
// @Failure      403 {object} response.Response "需要馆员权限"
// @Failure      404 {object} response.Response "用户不存在"
// @Router       /api/v1/admin/users/{id}/active [put]
func (h *AdminHandler) SetUserActive(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req dto.SetUserActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	if err := h.userService.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "操作成功"})
}
