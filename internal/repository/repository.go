package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	TrainingSession TrainingSessionRepository
	Evaluation      EvaluationRepository
	AdminUser       AdminUserRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		TrainingSession: NewTrainingSessionRepo(db),
		Evaluation:      NewEvaluationRepo(db),
		AdminUser:       NewAdminUserRepo(db),
	}
}
