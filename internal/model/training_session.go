package model

import "time"

// TrainingSession 培训场次表 — 对应 training_sessions
// training_id + batch_id 约定唯一，由 SessionService 创建前查重保证
type TrainingSession struct {
	ID             string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TrainingID     string     `gorm:"type:varchar(100);not null;index:idx_training_sessions_codes" json:"training_id"`
	BatchID        string     `gorm:"type:varchar(100);not null;index:idx_training_sessions_codes" json:"batch_id"`
	TrainingName   string     `gorm:"type:varchar(255);not null"                     json:"training_name"`
	InstructorName *string    `gorm:"type:varchar(255)"                              json:"instructor_name,omitempty"`
	Description    *string    `gorm:"type:text"                                      json:"description,omitempty"`
	StartDate      *time.Time `gorm:"type:date"                                      json:"start_date,omitempty"`
	EndDate        *time.Time `gorm:"type:date"                                      json:"end_date,omitempty"`
	Timestamps

	// 仅用于声明级联删除，查询时不预加载
	Evaluations []Evaluation `gorm:"foreignKey:TrainingSessionID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定表名
func (TrainingSession) TableName() string { return "training_sessions" }

// Instructor 返回讲师姓名，未设置时为空字符串
func (s *TrainingSession) Instructor() string {
	if s.InstructorName == nil {
		return ""
	}
	return *s.InstructorName
}
