package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// RatingEntry 单题评分
type RatingEntry struct {
	Group    string `json:"group"`
	Question string `json:"question"`
	Rating   Rating `json:"rating"`
}

// OpenEndedResponse 开放题回答
type OpenEndedResponse struct {
	Question string `json:"question"`
	Response string `json:"response"`
}

// Suggestion 学员推荐的潜在参训人
type Suggestion struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// HasContent 姓名、电话、邮箱至少一项非空
func (s Suggestion) HasContent() bool {
	return strings.TrimSpace(s.Name) != "" ||
		strings.TrimSpace(s.Phone) != "" ||
		strings.TrimSpace(s.Email) != ""
}

// Evaluation 学员评估表 — 对应 evaluations
// 创建后不可修改，只会随所属场次级联删除
type Evaluation struct {
	ID                 string                                `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TrainingSessionID  string                                `gorm:"type:uuid;not null;index"                       json:"training_session_id"`
	InstructorName     string                                `gorm:"type:varchar(255);not null;default:''"          json:"instructor_name"`
	Course             string                                `gorm:"type:varchar(255);not null;default:''"          json:"course"`
	CourseDate         *time.Time                            `gorm:"type:date"                                      json:"course_date,omitempty"`
	ParticipantName    *string                               `gorm:"type:varchar(255)"                              json:"participant_name,omitempty"`
	ParticipantEmail   *string                               `gorm:"type:varchar(255)"                              json:"participant_email,omitempty"`
	Ratings            datatypes.JSONSlice[RatingEntry]       `gorm:"type:jsonb;not null;default:'[]'"               json:"ratings"`
	OpenEndedResponses datatypes.JSONSlice[OpenEndedResponse] `gorm:"type:jsonb;not null;default:'[]'"               json:"open_ended_responses"`
	Sources            datatypes.JSONSlice[string]            `gorm:"type:jsonb;not null;default:'[]'"               json:"sources"`
	AdditionalComments *string                               `gorm:"type:text"                                      json:"additional_comments,omitempty"`
	Suggestions        datatypes.JSONSlice[Suggestion]        `gorm:"type:jsonb;not null;default:'[]'"               json:"suggestions"`
	SubmittedAt        time.Time                             `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"submitted_at"`

	TrainingSession *TrainingSession `gorm:"foreignKey:TrainingSessionID" json:"training_session,omitempty"`
}

// TableName 指定表名
func (Evaluation) TableName() string { return "evaluations" }

// Comment 返回附加意见，未填写时为空字符串
func (e *Evaluation) Comment() string {
	if e.AdditionalComments == nil {
		return ""
	}
	return strings.TrimSpace(*e.AdditionalComments)
}
