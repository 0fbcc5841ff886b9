package handler

import (
	"github.com/gin-gonic/gin"

	"training-eval/internal/api/middleware"
	"training-eval/internal/catalog"
	"training-eval/internal/dto"
	"training-eval/internal/service"
	"training-eval/pkg/response"
)

// 页面标识
const (
	PageHome              = "home"
	PageLogin             = "login"
	PageEvaluation        = "evaluation"
	PageAdmin             = "admin"
	PageInstructorRatings = "instructor-ratings"
)

// PageView 页面路由返回的视图数据，由前端负责渲染
type PageView struct {
	Page string            `json:"page"`
	User *dto.UserResponse `json:"user,omitempty"`
	Data interface{}       `json:"data,omitempty"`
}

// PageHandler 页面路由处理器
// /admin 与 /instructor-ratings 挂在 PageGate 之后，未登录时已被重定向
type PageHandler struct {
	sessionSvc   service.SessionService
	analyticsSvc service.AnalyticsService
	catalog      *catalog.Catalog
}

// NewPageHandler 创建 PageHandler
func NewPageHandler(sessionSvc service.SessionService, analyticsSvc service.AnalyticsService, cat *catalog.Catalog) *PageHandler {
	return &PageHandler{sessionSvc: sessionSvc, analyticsSvc: analyticsSvc, catalog: cat}
}

// Home 首页：场次列表（支持与 /api/v1/sessions 相同的筛选参数）
// GET /
func (h *PageHandler) Home(c *gin.Context) {
	var req dto.SessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	sessions, err := h.sessionSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, PageView{Page: PageHome, Data: gin.H{"sessions": sessions}})
}

// Login 登录页
// GET /login
func (h *PageHandler) Login(c *gin.Context) {
	response.OK(c, PageView{Page: PageLogin})
}

// Evaluation 学员填写评估页：场次信息 + 题库；场次不存在时 session 为 null
// GET /evaluation/:sessionId
func (h *PageHandler) Evaluation(c *gin.Context) {
	session, err := h.sessionSvc.GetByID(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, PageView{
		Page: PageEvaluation,
		Data: gin.H{"session": session, "catalog": h.catalog},
	})
}

// Admin 管理后台
// GET /admin
func (h *PageHandler) Admin(c *gin.Context) {
	sessions, err := h.sessionSvc.List(c.Request.Context(), nil)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, PageView{
		Page: PageAdmin,
		User: pageUser(c),
		Data: gin.H{"sessions": sessions},
	})
}

// InstructorRatings 讲师评分页，默认筛选条件下的讲师统计
// GET /instructor-ratings
func (h *PageHandler) InstructorRatings(c *gin.Context) {
	var req dto.InstructorAnalyticsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	report, err := h.analyticsSvc.InstructorAnalytics(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, PageView{
		Page: PageInstructorRatings,
		User: pageUser(c),
		Data: report,
	})
}

// pageUser 取 PageGate 写入的当前用户
func pageUser(c *gin.Context) *dto.UserResponse {
	v, ok := c.Get(middleware.CtxUser)
	if !ok {
		return nil
	}
	u, _ := v.(*dto.UserResponse)
	return u
}
