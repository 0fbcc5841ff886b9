package dto

import "training-eval/internal/analytics"

// ── 统计分析 DTO ──

// SessionAnalyticsResponse 单场次统计
// Summary 为 nil 表示该场次暂无评估
type SessionAnalyticsResponse struct {
	Session SessionResponse           `json:"session"`
	Summary *analytics.SessionSummary `json:"summary"`
}

// InstructorAnalyticsRequest 讲师统计查询参数
type InstructorAnalyticsRequest struct {
	Search    string `form:"search"     binding:"max=255"`
	MinRating int    `form:"min_rating" binding:"min=0,max=5"`
	Range     string `form:"range"      binding:"omitempty,oneof=all month quarter year"`
	SortBy    string `form:"sort_by"    binding:"omitempty,oneof=rating name sessions"`
}

// InstructorResponse 单个讲师统计
type InstructorResponse struct {
	Name             string                  `json:"name"`
	Sessions         []analytics.SessionRef  `json:"sessions"`
	AvgRating        float64                 `json:"avg_rating"`
	TotalSessions    int                     `json:"total_sessions"`
	TotalEvaluations int                     `json:"total_evaluations"`
	FeedbackCount    int                     `json:"feedback_count"`
	Trends           []analytics.TrendBucket `json:"trends"`
}

// InstructorOverview 讲师统计总览
type InstructorOverview struct {
	TotalInstructors int     `json:"total_instructors"`
	AvgRating        float64 `json:"avg_rating"`
	TotalSessions    int     `json:"total_sessions"`
	TotalEvaluations int     `json:"total_evaluations"`
}

// InstructorAnalyticsResponse 讲师统计响应
type InstructorAnalyticsResponse struct {
	Overview    InstructorOverview   `json:"overview"`
	Scale       float64              `json:"scale"` // 满分
	Instructors []InstructorResponse `json:"instructors"`
}
