package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"training-eval/internal/dto"
	"training-eval/internal/service"
	"training-eval/pkg/response"
)

// EvaluationHandler 评估模块 HTTP 处理器
type EvaluationHandler struct {
	evaluationSvc service.EvaluationService
}

// NewEvaluationHandler 创建 EvaluationHandler
func NewEvaluationHandler(evaluationSvc service.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{evaluationSvc: evaluationSvc}
}

// SubmitEvaluation 学员提交评估（无需登录，受限流保护）
// POST /api/v1/sessions/:id/evaluations
func (h *EvaluationHandler) SubmitEvaluation(c *gin.Context) {
	var req dto.SubmitEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	evaluation, err := h.evaluationSvc.Submit(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleEvaluationError(c, err)
		return
	}

	response.Created(c, evaluation)
}

// ListSessionEvaluations 某场次的全部评估
// GET /api/v1/sessions/:id/evaluations
func (h *EvaluationHandler) ListSessionEvaluations(c *gin.Context) {
	evaluations, err := h.evaluationSvc.ListBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleEvaluationError(c, err)
		return
	}

	response.OK(c, gin.H{"list": evaluations})
}

// ListEvaluations 全部评估
// GET /api/v1/evaluations
func (h *EvaluationHandler) ListEvaluations(c *gin.Context) {
	evaluations, err := h.evaluationSvc.ListAll(c.Request.Context())
	if err != nil {
		h.handleEvaluationError(c, err)
		return
	}

	response.OK(c, gin.H{"list": evaluations})
}

// handleEvaluationError 统一处理评估模块业务错误
func (h *EvaluationHandler) handleEvaluationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 12001, "培训场次不存在")
	case errors.Is(err, service.ErrRatingsIncomplete):
		response.BadRequest(c, 13001, "请为每道题目评分")
	case errors.Is(err, service.ErrUnknownSource):
		response.BadRequest(c, 13002, "未知的信息来源")
	case errors.Is(err, service.ErrOverallEvaluationInvalid):
		response.BadRequest(c, 13003, "未知的总体评价")
	case errors.Is(err, service.ErrCourseDateInvalid):
		response.BadRequest(c, 13004, "课程日期格式错误")
	default:
		response.InternalError(c)
	}
}
