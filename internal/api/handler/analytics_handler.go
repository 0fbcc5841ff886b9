package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"training-eval/internal/dto"
	"training-eval/internal/service"
	"training-eval/pkg/response"
)

// AnalyticsHandler 统计分析模块 HTTP 处理器
type AnalyticsHandler struct {
	analyticsSvc service.AnalyticsService
}

// NewAnalyticsHandler 创建 AnalyticsHandler
func NewAnalyticsHandler(analyticsSvc service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsSvc: analyticsSvc}
}

// GetSessionAnalytics 单场次统计；暂无评估时 summary 为 null
// GET /api/v1/sessions/:id/analytics
func (h *AnalyticsHandler) GetSessionAnalytics(c *gin.Context) {
	result, err := h.analyticsSvc.SessionAnalytics(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleAnalyticsError(c, err)
		return
	}

	response.OK(c, result)
}

// GetInstructorAnalytics 讲师维度统计
// GET /api/v1/analytics/instructors?search=&min_rating=&range=&sort_by=
func (h *AnalyticsHandler) GetInstructorAnalytics(c *gin.Context) {
	var req dto.InstructorAnalyticsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.analyticsSvc.InstructorAnalytics(c.Request.Context(), &req)
	if err != nil {
		h.handleAnalyticsError(c, err)
		return
	}

	response.OK(c, result)
}

// handleAnalyticsError 统一处理统计模块业务错误
func (h *AnalyticsHandler) handleAnalyticsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 12001, "培训场次不存在")
	default:
		response.InternalError(c)
	}
}
