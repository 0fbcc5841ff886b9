package dto

// ── 培训场次 DTO ──

// CreateSessionRequest 创建场次请求
type CreateSessionRequest struct {
	TrainingID     string  `json:"training_id"     binding:"required,max=100"`
	BatchID        string  `json:"batch_id"        binding:"required,max=100"`
	TrainingName   string  `json:"training_name"   binding:"required,max=255"`
	InstructorName *string `json:"instructor_name" binding:"omitempty,max=255"`
	Description    *string `json:"description"     binding:"omitempty,max=2000"`
	StartDate      string  `json:"start_date"      binding:"omitempty,datetime=2006-01-02"`
	EndDate        string  `json:"end_date"        binding:"omitempty,datetime=2006-01-02"`
}

// UpdateSessionRequest 更新场次请求，nil 字段保持不变
// 日期传空字符串表示清空，格式由 service 层校验
type UpdateSessionRequest struct {
	TrainingID     *string `json:"training_id"     binding:"omitempty,min=1,max=100"`
	BatchID        *string `json:"batch_id"        binding:"omitempty,min=1,max=100"`
	TrainingName   *string `json:"training_name"   binding:"omitempty,min=1,max=255"`
	InstructorName *string `json:"instructor_name" binding:"omitempty,max=255"`
	Description    *string `json:"description"     binding:"omitempty,max=2000"`
	StartDate      *string `json:"start_date"      binding:"omitempty,max=10"`
	EndDate        *string `json:"end_date"        binding:"omitempty,max=10"`
}

// SessionListRequest 场次列表筛选参数
type SessionListRequest struct {
	Instructor   string `form:"instructor"`
	TrainingName string `form:"training_name"`
	BatchID      string `form:"batch_id"`
}

// SessionLookupRequest 按培训编号 + 批次号查询
type SessionLookupRequest struct {
	TrainingID string `form:"training_id" binding:"required"`
	BatchID    string `form:"batch_id"    binding:"required"`
}

// SessionResponse 场次响应
type SessionResponse struct {
	ID             string  `json:"id"`
	TrainingID     string  `json:"training_id"`
	BatchID        string  `json:"batch_id"`
	TrainingName   string  `json:"training_name"`
	InstructorName *string `json:"instructor_name"`
	Description    *string `json:"description"`
	StartDate      string  `json:"start_date,omitempty"`
	EndDate        string  `json:"end_date,omitempty"`
	EvaluationURL  string  `json:"evaluation_url"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}
