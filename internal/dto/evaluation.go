package dto

import "training-eval/internal/model"

// ── 评估 DTO ──

// RatingInput 单题评分
type RatingInput struct {
	Group    string       `json:"group"    binding:"required"`
	Question string       `json:"question" binding:"required"`
	Rating   model.Rating `json:"rating"   binding:"required,oneof=excellent very_good good needs_improvement"`
}

// OpenEndedInput 开放题回答
type OpenEndedInput struct {
	Question string `json:"question" binding:"required"`
	Response string `json:"response" binding:"max=5000"`
}

// SuggestionInput 推荐参训人
type SuggestionInput struct {
	Name  string `json:"name"  binding:"max=255"`
	Phone string `json:"phone" binding:"max=50"`
	Email string `json:"email" binding:"omitempty,max=255"`
}

// SubmitEvaluationRequest 提交评估请求
// training_session_id 取自路径参数
type SubmitEvaluationRequest struct {
	InstructorName     string            `json:"instructor_name"     binding:"max=255"`
	Course             string            `json:"course"              binding:"max=255"`
	CourseDate         string            `json:"course_date"         binding:"omitempty,datetime=2006-01-02"`
	ParticipantName    *string           `json:"participant_name"    binding:"omitempty,max=255"`
	ParticipantEmail   *string           `json:"participant_email"   binding:"omitempty,email,max=255"`
	Ratings            []RatingInput     `json:"ratings"             binding:"required,min=1,dive"`
	OpenEndedResponses []OpenEndedInput  `json:"open_ended_responses" binding:"dive"`
	Sources            []string          `json:"sources"             binding:"dive,required,max=100"`
	OverallEvaluation  string            `json:"overall_evaluation"  binding:"max=50"`
	AdditionalComments *string           `json:"additional_comments" binding:"omitempty,max=5000"`
	Suggestions        []SuggestionInput `json:"suggestions"         binding:"max=50,dive"`
}

// EvaluationResponse 评估响应
type EvaluationResponse struct {
	ID                 string                    `json:"id"`
	TrainingSessionID  string                    `json:"training_session_id"`
	InstructorName     string                    `json:"instructor_name"`
	Course             string                    `json:"course"`
	CourseDate         string                    `json:"course_date,omitempty"`
	ParticipantName    *string                   `json:"participant_name"`
	ParticipantEmail   *string                   `json:"participant_email"`
	Ratings            []model.RatingEntry       `json:"ratings"`
	OpenEndedResponses []model.OpenEndedResponse `json:"open_ended_responses"`
	Sources            []string                  `json:"sources"`
	AdditionalComments *string                   `json:"additional_comments"`
	Suggestions        []model.Suggestion        `json:"suggestions"`
	SubmittedAt        string                    `json:"submitted_at"`
	TrainingSession    *SessionResponse          `json:"training_session,omitempty"`
}
